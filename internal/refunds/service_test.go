package refunds

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	stripelib "github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/amaliareyes/seamline-backend/internal/orders"
	"github.com/amaliareyes/seamline-backend/internal/payments"
	"github.com/amaliareyes/seamline-backend/pkg/db/models"
	"github.com/amaliareyes/seamline-backend/pkg/enums"
	pkgerrors "github.com/amaliareyes/seamline-backend/pkg/errors"
	"github.com/amaliareyes/seamline-backend/pkg/outbox"
	pkgstripe "github.com/amaliareyes/seamline-backend/pkg/stripe"
	"github.com/amaliareyes/seamline-backend/pkg/types"
)

type stubPaymentsRepo struct {
	payment *models.Payment
}

func (s *stubPaymentsRepo) WithTx(tx *gorm.DB) payments.Repository { return s }

func (s *stubPaymentsRepo) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	return payment, nil
}

func (s *stubPaymentsRepo) FindBySessionID(ctx context.Context, sessionID string) (*models.Payment, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPaymentsRepo) FindBySessionIDForUpdate(ctx context.Context, sessionID string) (*models.Payment, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPaymentsRepo) FindSucceededByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	if s.payment == nil || s.payment.OrderID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.payment
	return &copied, nil
}

func (s *stubPaymentsRepo) FindSucceededByOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	return s.FindSucceededByOrder(ctx, orderID)
}

func (s *stubPaymentsRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	return nil, nil
}

func (s *stubPaymentsRepo) Update(ctx context.Context, paymentID uuid.UUID, updates map[string]any) error {
	if s.payment == nil || s.payment.ID != paymentID {
		return gorm.ErrRecordNotFound
	}
	if refunded, ok := updates["refunded_cents"].(int); ok {
		s.payment.RefundedCents = refunded
	}
	if status, ok := updates["status"].(enums.PaymentStatus); ok {
		s.payment.Status = status
	}
	if metadata, ok := updates["metadata"].(types.JSONMap); ok {
		s.payment.Metadata = metadata
	}
	return nil
}

func (s *stubPaymentsRepo) RecordWebhookEvent(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	return false, nil
}

type stubCanceller struct {
	calls  []orders.CancelInput
	cancel error
}

func (s *stubCanceller) CancelWithTx(ctx context.Context, tx *gorm.DB, input orders.CancelInput) (*models.Order, error) {
	if s.cancel != nil {
		return nil, s.cancel
	}
	s.calls = append(s.calls, input)
	return &models.Order{ID: input.OrderID, Status: enums.OrderStatusCancelled}, nil
}

type stubProcessor struct {
	refundKeys []string
	refundErr  error
}

func (s *stubProcessor) CreateCheckoutSession(ctx context.Context, in pkgstripe.CheckoutSessionInput) (*stripelib.CheckoutSession, error) {
	return nil, errors.New("not expected in refund tests")
}

func (s *stubProcessor) CreateRefund(ctx context.Context, paymentIntentID string, amountCents int64, idempotencyKey string) (*stripelib.Refund, error) {
	if s.refundErr != nil {
		return nil, s.refundErr
	}
	s.refundKeys = append(s.refundKeys, idempotencyKey)
	return &stripelib.Refund{ID: "re_test_1", Amount: amountCents}, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type fixture struct {
	svc       Service
	repo      *stubPaymentsRepo
	canceller *stubCanceller
	processor *stubProcessor
	outbox    *stubOutbox
}

func newFixture(t *testing.T, payment *models.Payment) *fixture {
	t.Helper()
	f := &fixture{
		repo:      &stubPaymentsRepo{payment: payment},
		canceller: &stubCanceller{},
		processor: &stubProcessor{},
		outbox:    &stubOutbox{},
	}
	svc, err := NewService(f.repo, f.canceller, stubTxRunner{}, f.outbox, f.processor, 0, nil)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	f.svc = svc
	return f
}

func capturedPayment(orderID uuid.UUID, amountCents int) *models.Payment {
	intent := "pi_test_1"
	return &models.Payment{
		ID:                uuid.New(),
		OrderID:           orderID,
		CheckoutSessionID: "cs_test_1",
		PaymentIntentID:   &intent,
		AmountCents:       amountCents,
		Status:            enums.PaymentStatusSucceeded,
	}
}

func operatorRefund(orderID uuid.UUID, amount int) RefundInput {
	return RefundInput{
		OrderID:     orderID,
		AmountCents: &amount,
		Reason:      "customer complaint",
		ActorUserID: uuid.New(),
		ActorRole:   enums.RoleStaff,
	}
}

func TestPartialRefundLeavesPaymentSucceeded(t *testing.T) {
	orderID := uuid.New()
	f := newFixture(t, capturedPayment(orderID, 4700))

	result, err := f.svc.Refund(context.Background(), operatorRefund(orderID, 2000))
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if result.Full {
		t.Fatalf("partial refund reported as full")
	}
	if result.RefundedCents != 2000 || result.RemainingCents != 2700 {
		t.Fatalf("unexpected balances: refunded %d remaining %d", result.RefundedCents, result.RemainingCents)
	}
	if f.repo.payment.Status != enums.PaymentStatusSucceeded {
		t.Fatalf("partial refund must not change payment status, got %s", f.repo.payment.Status)
	}
	if len(f.canceller.calls) != 0 {
		t.Fatalf("partial refund must not cancel the order")
	}
	if len(f.outbox.events) != 1 {
		t.Fatalf("expected one refund event, got %d", len(f.outbox.events))
	}
}

func TestFullRefundAfterPartialCancelsOrder(t *testing.T) {
	orderID := uuid.New()
	f := newFixture(t, capturedPayment(orderID, 4700))

	if _, err := f.svc.Refund(context.Background(), operatorRefund(orderID, 2000)); err != nil {
		t.Fatalf("first refund failed: %v", err)
	}
	result, err := f.svc.Refund(context.Background(), operatorRefund(orderID, 2700))
	if err != nil {
		t.Fatalf("second refund failed: %v", err)
	}
	if !result.Full {
		t.Fatalf("expected full refund")
	}
	if f.repo.payment.Status != enums.PaymentStatusRefunded {
		t.Fatalf("expected payment refunded, got %s", f.repo.payment.Status)
	}
	if f.repo.payment.RefundedCents != 4700 {
		t.Fatalf("expected cumulative 4700, got %d", f.repo.payment.RefundedCents)
	}
	if len(f.canceller.calls) != 1 {
		t.Fatalf("full refund must cancel the order, got %d calls", len(f.canceller.calls))
	}
	if f.canceller.calls[0].OrderID != orderID {
		t.Fatalf("cancelled wrong order")
	}
}

func TestRefundWithoutAmountRefundsRemainingBalance(t *testing.T) {
	orderID := uuid.New()
	f := newFixture(t, capturedPayment(orderID, 4700))

	input := operatorRefund(orderID, 0)
	input.AmountCents = nil
	result, err := f.svc.Refund(context.Background(), input)
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if !result.Full {
		t.Fatalf("omitted amount must refund everything")
	}
	if result.RefundedCents != 4700 || result.RemainingCents != 0 {
		t.Fatalf("unexpected balances: refunded %d remaining %d", result.RefundedCents, result.RemainingCents)
	}
	if f.repo.payment.Status != enums.PaymentStatusRefunded {
		t.Fatalf("expected payment refunded, got %s", f.repo.payment.Status)
	}
	if len(f.canceller.calls) != 1 {
		t.Fatalf("full refund must cancel the order")
	}
}

func TestRefundWithoutAmountAfterPartial(t *testing.T) {
	orderID := uuid.New()
	f := newFixture(t, capturedPayment(orderID, 4700))

	if _, err := f.svc.Refund(context.Background(), operatorRefund(orderID, 2000)); err != nil {
		t.Fatalf("partial refund failed: %v", err)
	}

	rest := operatorRefund(orderID, 0)
	rest.AmountCents = nil
	result, err := f.svc.Refund(context.Background(), rest)
	if err != nil {
		t.Fatalf("remaining refund failed: %v", err)
	}
	if !result.Full || result.RefundedCents != 4700 {
		t.Fatalf("omitted amount must take only what is left: %+v", result)
	}
}

func TestRefundIdempotencyKeyTracksBalance(t *testing.T) {
	orderID := uuid.New()
	payment := capturedPayment(orderID, 4700)
	f := newFixture(t, payment)

	if _, err := f.svc.Refund(context.Background(), operatorRefund(orderID, 2000)); err != nil {
		t.Fatalf("first refund failed: %v", err)
	}
	if _, err := f.svc.Refund(context.Background(), operatorRefund(orderID, 2700)); err != nil {
		t.Fatalf("second refund failed: %v", err)
	}

	want := []string{
		fmt.Sprintf("refund:%s:0", payment.ID),
		fmt.Sprintf("refund:%s:2000", payment.ID),
	}
	if len(f.processor.refundKeys) != len(want) {
		t.Fatalf("expected %d processor calls, got %d", len(want), len(f.processor.refundKeys))
	}
	for i := range want {
		if f.processor.refundKeys[i] != want[i] {
			t.Errorf("key %d = %q, want %q", i, f.processor.refundKeys[i], want[i])
		}
	}
}

func TestRefundRejectsExcessAmount(t *testing.T) {
	orderID := uuid.New()
	f := newFixture(t, capturedPayment(orderID, 4700))

	_, err := f.svc.Refund(context.Background(), operatorRefund(orderID, 5000))
	if !pkgerrors.HasCode(err, pkgerrors.CodeExceedsBalance) {
		t.Fatalf("expected exceeds balance, got %v", err)
	}
	if f.repo.payment.RefundedCents != 0 {
		t.Fatalf("rejected refund must not change the ledger")
	}
}

func TestRefundWithoutCapturedPayment(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Refund(context.Background(), operatorRefund(uuid.New(), 100))
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotRefundable) {
		t.Fatalf("expected not refundable, got %v", err)
	}
}

func TestRefundFullyRefundedPayment(t *testing.T) {
	orderID := uuid.New()
	payment := capturedPayment(orderID, 4700)
	payment.RefundedCents = 4700
	payment.Status = enums.PaymentStatusRefunded
	f := newFixture(t, payment)

	_, err := f.svc.Refund(context.Background(), operatorRefund(orderID, 100))
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotRefundable) {
		t.Fatalf("expected not refundable, got %v", err)
	}
}

func TestRefundRequiresOperator(t *testing.T) {
	orderID := uuid.New()
	f := newFixture(t, capturedPayment(orderID, 4700))

	input := operatorRefund(orderID, 100)
	input.ActorRole = enums.RoleCustomer
	_, err := f.svc.Refund(context.Background(), input)
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRefundValidation(t *testing.T) {
	orderID := uuid.New()
	f := newFixture(t, capturedPayment(orderID, 4700))

	zero := operatorRefund(orderID, 0)
	if _, err := f.svc.Refund(context.Background(), zero); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for zero amount, got %v", err)
	}

	noReason := operatorRefund(orderID, 100)
	noReason.Reason = ""
	if _, err := f.svc.Refund(context.Background(), noReason); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing reason, got %v", err)
	}
}

func TestRefundProcessorFailureLeavesStateUnchanged(t *testing.T) {
	orderID := uuid.New()
	f := newFixture(t, capturedPayment(orderID, 4700))
	f.processor.refundErr = errors.New("processor unavailable")

	_, err := f.svc.Refund(context.Background(), operatorRefund(orderID, 2000))
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if f.repo.payment.RefundedCents != 0 {
		t.Fatalf("failed refund must not change the ledger")
	}
	if len(f.outbox.events) != 0 {
		t.Fatalf("failed refund must not emit events")
	}
}

func TestRefundAuditTrail(t *testing.T) {
	orderID := uuid.New()
	f := newFixture(t, capturedPayment(orderID, 4700))

	if _, err := f.svc.Refund(context.Background(), operatorRefund(orderID, 2000)); err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	history, ok := f.repo.payment.Metadata["refunds"].([]any)
	if !ok || len(history) != 1 {
		t.Fatalf("expected one audit entry, got %#v", f.repo.payment.Metadata["refunds"])
	}
	entry, ok := history[0].(map[string]any)
	if !ok {
		t.Fatalf("unexpected audit entry shape: %#v", history[0])
	}
	if entry["amount_cents"] != 2000 {
		t.Fatalf("expected audited amount 2000, got %v", entry["amount_cents"])
	}
	if entry["reason"] != "customer complaint" {
		t.Fatalf("expected audited reason, got %v", entry["reason"])
	}
}
