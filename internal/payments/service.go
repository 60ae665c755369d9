package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amaliareyes/seamline-backend/internal/orders"
	"github.com/amaliareyes/seamline-backend/pkg/db/models"
	"github.com/amaliareyes/seamline-backend/pkg/enums"
	pkgerrors "github.com/amaliareyes/seamline-backend/pkg/errors"
	"github.com/amaliareyes/seamline-backend/pkg/metrics"
	"github.com/amaliareyes/seamline-backend/pkg/outbox"
	pkgstripe "github.com/amaliareyes/seamline-backend/pkg/stripe"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type orderCanceller interface {
	CancelWithTx(ctx context.Context, tx *gorm.DB, input orders.CancelInput) (*models.Order, error)
}

// InitiateInput opens a checkout session for an order.
type InitiateInput struct {
	OrderID       uuid.UUID
	ActorUserID   uuid.UUID
	CustomerEmail string
}

// InitiateResult returns the hosted payment page handle.
type InitiateResult struct {
	PaymentID   uuid.UUID
	SessionID   string
	CheckoutURL string
}

// ReconcileInput carries one verified processor notification.
type ReconcileInput struct {
	EventID         string
	EventType       string
	SessionID       string
	PaymentIntentID string
	FailureReason   string
}

// PaymentSucceededEvent is emitted when an order's payment settles.
type PaymentSucceededEvent struct {
	PaymentID   uuid.UUID `json:"payment_id"`
	OrderID     uuid.UUID `json:"order_id"`
	AmountCents int       `json:"amount_cents"`
}

// PaymentFailedEvent is emitted when checkout fails or expires.
type PaymentFailedEvent struct {
	PaymentID uuid.UUID `json:"payment_id"`
	OrderID   uuid.UUID `json:"order_id"`
	Reason    string    `json:"reason"`
}

// Service defines the payment gateway adapter operations.
type Service interface {
	Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error)
	Reconcile(ctx context.Context, input ReconcileInput) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
}

type service struct {
	repo        Repository
	ordersRepo  orders.Repository
	canceller   orderCanceller
	tx          txRunner
	outbox      outboxPublisher
	processor   pkgstripe.PaymentClient
	callTimeout time.Duration
	sessionTTL  time.Duration
	metrics     *metrics.SettlementMetrics
}

// NewService builds the payment adapter with the required dependencies.
func NewService(repo Repository, ordersRepo orders.Repository, canceller orderCanceller, tx txRunner, ob outboxPublisher, processor pkgstripe.PaymentClient, callTimeout, sessionTTL time.Duration, m *metrics.SettlementMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if canceller == nil {
		return nil, fmt.Errorf("order canceller required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if processor == nil {
		return nil, fmt.Errorf("payment processor client required")
	}
	if callTimeout <= 0 {
		callTimeout = 15 * time.Second
	}
	if sessionTTL <= 0 {
		sessionTTL = 30 * time.Minute
	}
	return &service{
		repo:        repo,
		ordersRepo:  ordersRepo,
		canceller:   canceller,
		tx:          tx,
		outbox:      ob,
		processor:   processor,
		callTimeout: callTimeout,
		sessionTTL:  sessionTTL,
		metrics:     m,
	}, nil
}

func (s *service) Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.ordersRepo.FindByID(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if input.ActorUserID != uuid.Nil && order.CustomerID != input.ActorUserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
	}
	if order.PaidAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyPaid, "order already paid")
	}
	if order.Status != enums.OrderStatusBooked {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment can only be initiated for booked orders")
	}

	// The processor call happens outside any transaction; the session id that
	// comes back is what ties the eventual webhook to this payment row. The
	// payment id is minted up front so each attempt carries its own processor
	// idempotency key; a customer retrying after an abandoned session must get
	// a fresh session, not a cached replay of the old one.
	paymentID := uuid.New()
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	start := time.Now()
	sess, err := s.processor.CreateCheckoutSession(callCtx, checkoutInput(order, paymentID, input.CustomerEmail, s.sessionTTL))
	s.metrics.ObserveProcessorCall("create_checkout_session", time.Since(start))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	payment := &models.Payment{
		ID:                paymentID,
		OrderID:           order.ID,
		CheckoutSessionID: sess.ID,
		AmountCents:       order.TotalCents,
		Status:            enums.PaymentStatusPending,
	}
	if _, err := s.repo.Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist payment")
	}

	return &InitiateResult{
		PaymentID:   payment.ID,
		SessionID:   sess.ID,
		CheckoutURL: sess.URL,
	}, nil
}

// Reconcile applies one processor notification. Deliveries are at-least-once:
// the persisted event id makes replays a silent no-op, and the payment row is
// locked so concurrent deliveries for the same session serialize.
func (s *service) Reconcile(ctx context.Context, input ReconcileInput) error {
	if input.EventID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	if input.SessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}

	duplicate := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		already, err := repo.RecordWebhookEvent(ctx, &models.WebhookEvent{
			EventID:   input.EventID,
			EventType: input.EventType,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record webhook event")
		}
		if already {
			duplicate = true
			return nil
		}

		payment, err := repo.FindBySessionIDForUpdate(ctx, input.SessionID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found for session")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payment")
		}

		switch input.EventType {
		case "checkout.session.completed":
			return s.applySuccess(ctx, tx, repo, payment, input)
		case "checkout.session.expired", "checkout.session.async_payment_failed":
			return s.applyFailure(ctx, tx, repo, payment, input)
		default:
			// Unknown event types are acknowledged without effect.
			return nil
		}
	})
	if err != nil {
		s.metrics.IncWebhook("failed")
		return err
	}
	if duplicate {
		s.metrics.IncWebhook("duplicate")
	} else {
		s.metrics.IncWebhook("applied")
	}
	return nil
}

func (s *service) applySuccess(ctx context.Context, tx *gorm.DB, repo Repository, payment *models.Payment, input ReconcileInput) error {
	if payment.Status == enums.PaymentStatusSucceeded || payment.Status == enums.PaymentStatusRefunded {
		return nil
	}

	// The order lock is taken before the payment is marked, so two sessions
	// completing for the same order serialize here and only the first one
	// can settle it.
	ordersRepo := s.ordersRepo.WithTx(tx)
	order, err := ordersRepo.FindForUpdate(ctx, payment.OrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
	}
	if order.PaidAt != nil {
		// A sibling session already settled this order. The charge still
		// captured real money, so the intent id is kept and the row is flagged
		// for an operator refund instead of double-crediting the order.
		return s.flagDuplicateCharge(ctx, tx, repo, payment, input)
	}

	updates := map[string]any{
		"status": enums.PaymentStatusSucceeded,
	}
	if input.PaymentIntentID != "" {
		updates["payment_intent_id"] = input.PaymentIntentID
	}
	if err := repo.Update(ctx, payment.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment succeeded")
	}

	// The adapter stamps paid_at; moving the order through its pipeline is
	// the lifecycle's job, not the payment's.
	if err := ordersRepo.Update(ctx, order.ID, map[string]any{"paid_at": time.Now()}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stamp order paid_at")
	}

	s.metrics.IncPayment(enums.PaymentStatusSucceeded.String())
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentSucceeded,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Data: PaymentSucceededEvent{
			PaymentID:   payment.ID,
			OrderID:     payment.OrderID,
			AmountCents: payment.AmountCents,
		},
	})
}

// flagDuplicateCharge records a completed session whose order was already
// paid through another session. The payment ends failed with the intent id
// preserved so the refund processor can reverse it.
func (s *service) flagDuplicateCharge(ctx context.Context, tx *gorm.DB, repo Repository, payment *models.Payment, input ReconcileInput) error {
	reason := "order already paid by another session"
	updates := map[string]any{
		"status":         enums.PaymentStatusFailed,
		"failure_reason": reason,
	}
	if input.PaymentIntentID != "" {
		updates["payment_intent_id"] = input.PaymentIntentID
	}
	if err := repo.Update(ctx, payment.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag duplicate charge")
	}

	s.metrics.IncPayment(enums.PaymentStatusFailed.String())
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentFailed,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Data: PaymentFailedEvent{
			PaymentID: payment.ID,
			OrderID:   payment.OrderID,
			Reason:    reason,
		},
	})
}

func (s *service) applyFailure(ctx context.Context, tx *gorm.DB, repo Repository, payment *models.Payment, input ReconcileInput) error {
	if payment.Status != enums.PaymentStatusPending {
		return nil
	}
	reason := input.FailureReason
	if reason == "" {
		reason = input.EventType
	}
	if err := repo.Update(ctx, payment.ID, map[string]any{
		"status":         enums.PaymentStatusFailed,
		"failure_reason": reason,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
	}

	// An expired session on a still-booked order means the customer never
	// paid; the engine releases the slot.
	if input.EventType == "checkout.session.expired" {
		order, err := s.ordersRepo.WithTx(tx).FindForUpdate(ctx, payment.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if order.Status == enums.OrderStatusBooked && order.PaidAt == nil {
			if _, err := s.canceller.CancelWithTx(ctx, tx, orders.CancelInput{
				OrderID:   order.ID,
				ActorRole: enums.RoleSystem,
				Reason:    "payment session expired",
			}); err != nil {
				return err
			}
		}
	}

	s.metrics.IncPayment(enums.PaymentStatusFailed.String())
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentFailed,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Data: PaymentFailedEvent{
			PaymentID: payment.ID,
			OrderID:   payment.OrderID,
			Reason:    reason,
		},
	})
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.repo.ListByOrder(ctx, orderID)
}

func checkoutInput(order *models.Order, paymentID uuid.UUID, email string, ttl time.Duration) pkgstripe.CheckoutSessionInput {
	lines := make([]pkgstripe.CheckoutLine, 0, len(order.Items)+1)
	for _, item := range order.Items {
		lines = append(lines, pkgstripe.CheckoutLine{
			Name:        item.ServiceName,
			AmountCents: int64(item.BasePriceCents),
			Quantity:    int64(item.Qty),
		})
	}
	if len(lines) == 0 {
		lines = append(lines, pkgstripe.CheckoutLine{
			Name:        fmt.Sprintf("Order #%d", order.OrderNumber),
			AmountCents: int64(order.SubtotalCents),
			Quantity:    1,
		})
	}
	if order.DeliveryFeeCents > 0 {
		lines = append(lines, pkgstripe.CheckoutLine{
			Name:        "Collection & delivery",
			AmountCents: int64(order.DeliveryFeeCents),
			Quantity:    1,
		})
	}
	return pkgstripe.CheckoutSessionInput{
		OrderID:       order.ID.String(),
		AttemptID:     paymentID.String(),
		OrderNumber:   order.OrderNumber,
		Currency:      order.Currency.String(),
		Lines:         lines,
		CustomerEmail: email,
		ExpiresAt:     time.Now().Add(ttl).Unix(),
	}
}
