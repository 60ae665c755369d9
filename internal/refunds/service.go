package refunds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amaliareyes/seamline-backend/internal/orders"
	"github.com/amaliareyes/seamline-backend/internal/payments"
	"github.com/amaliareyes/seamline-backend/pkg/db/models"
	"github.com/amaliareyes/seamline-backend/pkg/enums"
	pkgerrors "github.com/amaliareyes/seamline-backend/pkg/errors"
	"github.com/amaliareyes/seamline-backend/pkg/metrics"
	"github.com/amaliareyes/seamline-backend/pkg/outbox"
	pkgstripe "github.com/amaliareyes/seamline-backend/pkg/stripe"
	"github.com/amaliareyes/seamline-backend/pkg/types"
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

// RefundInput reverses part or all of an order's captured payment. A nil
// AmountCents refunds the whole remaining refundable balance.
type RefundInput struct {
	OrderID     uuid.UUID
	AmountCents *int
	Reason      string
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
}

// RefundResult reports the payment state after the refund applied.
type RefundResult struct {
	PaymentID      uuid.UUID
	RefundedCents  int
	RemainingCents int
	Full           bool
}

// PaymentRefundedEvent is emitted for every applied refund.
type PaymentRefundedEvent struct {
	PaymentID     uuid.UUID `json:"payment_id"`
	OrderID       uuid.UUID `json:"order_id"`
	AmountCents   int       `json:"amount_cents"`
	RefundedCents int       `json:"refunded_cents"`
	Full          bool      `json:"full"`
	Reason        string    `json:"reason"`
}

// Service defines the refund processor operations.
type Service interface {
	Refund(ctx context.Context, input RefundInput) (*RefundResult, error)
}

type service struct {
	payments    payments.Repository
	canceller   orderCanceller
	tx          txRunner
	outbox      outboxPublisher
	processor   pkgstripe.PaymentClient
	callTimeout time.Duration
	metrics     *metrics.SettlementMetrics
}

// NewService builds the refund processor with the required dependencies.
func NewService(paymentsRepo payments.Repository, canceller orderCanceller, tx txRunner, ob outboxPublisher, processor pkgstripe.PaymentClient, callTimeout time.Duration, m *metrics.SettlementMetrics) (Service, error) {
	if paymentsRepo == nil {
		return nil, fmt.Errorf("payments repository required")
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
	return &service{
		payments:    paymentsRepo,
		canceller:   canceller,
		tx:          tx,
		outbox:      ob,
		processor:   processor,
		callTimeout: callTimeout,
		metrics:     m,
	}, nil
}

// Refund reverses AmountCents against the order's captured payment. The
// processor call happens before the ledger write; its idempotency key is
// derived from the payment's refunded balance, so a retry after a crash
// between the two steps replays the same refund instead of issuing a new one.
func (s *service) Refund(ctx context.Context, input RefundInput) (*RefundResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.AmountCents != nil && *input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund reason required")
	}
	if !input.ActorRole.IsOperator() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "refunds require staff or admin")
	}

	payment, err := s.payments.FindSucceededByOrder(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotRefundable, "order has no captured payment")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.PaymentIntentID == nil || *payment.PaymentIntentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotRefundable, "payment has no processor charge")
	}
	remaining := payment.RemainingRefundableCents()
	if remaining == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotRefundable, "payment already fully refunded")
	}
	// An omitted amount means the operator wants everything back.
	amount := remaining
	if input.AmountCents != nil {
		amount = *input.AmountCents
	}
	if amount > remaining {
		return nil, pkgerrors.New(pkgerrors.CodeExceedsBalance,
			fmt.Sprintf("refund of %d exceeds refundable balance %d", amount, remaining))
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	idempotencyKey := fmt.Sprintf("refund:%s:%d", payment.ID, payment.RefundedCents)
	start := time.Now()
	_, err = s.processor.CreateRefund(callCtx, *payment.PaymentIntentID, int64(amount), idempotencyKey)
	s.metrics.ObserveProcessorCall("create_refund", time.Since(start))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create refund")
	}

	var result *RefundResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.payments.WithTx(tx)
		locked, err := repo.FindSucceededByOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payment")
		}
		if amount > locked.RemainingRefundableCents() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refundable balance changed, retry")
		}

		newRefunded := locked.RefundedCents + amount
		full := newRefunded == locked.AmountCents

		updates := map[string]any{
			"refunded_cents": newRefunded,
			"metadata":       appendRefundAudit(locked.Metadata, amount, input, time.Now()),
		}
		if full {
			updates["status"] = enums.PaymentStatusRefunded
		}
		if err := repo.Update(ctx, locked.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply refund")
		}

		if full {
			// A fully refunded order has nothing left to fulfil. Cancel is a
			// no-op when the order is already cancelled.
			if _, err := s.canceller.CancelWithTx(ctx, tx, orders.CancelInput{
				OrderID:     locked.OrderID,
				ActorUserID: input.ActorUserID,
				ActorRole:   input.ActorRole,
				Reason:      "payment fully refunded: " + input.Reason,
			}); err != nil {
				return err
			}
		}

		result = &RefundResult{
			PaymentID:      locked.ID,
			RefundedCents:  newRefunded,
			RemainingCents: locked.AmountCents - newRefunded,
			Full:           full,
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentRefunded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   locked.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole.String()},
			Data: PaymentRefundedEvent{
				PaymentID:     locked.ID,
				OrderID:       locked.OrderID,
				AmountCents:   amount,
				RefundedCents: newRefunded,
				Full:          full,
				Reason:        input.Reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if result.Full {
		s.metrics.IncRefund("full")
	} else {
		s.metrics.IncRefund("partial")
	}
	return result, nil
}

// appendRefundAudit grows the refunds list in the payment metadata.
func appendRefundAudit(metadata types.JSONMap, amount int, input RefundInput, at time.Time) types.JSONMap {
	if metadata == nil {
		metadata = types.JSONMap{}
	}
	history, _ := metadata["refunds"].([]any)
	metadata["refunds"] = append(history, map[string]any{
		"amount_cents":  amount,
		"reason":        input.Reason,
		"actor_user_id": input.ActorUserID.String(),
		"at":            at.UTC().Format(time.RFC3339),
	})
	return metadata
}
