package payouts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/amaliareyes/seamline-backend/pkg/db"
	"github.com/amaliareyes/seamline-backend/pkg/db/models"
	"github.com/amaliareyes/seamline-backend/pkg/enums"
	pkgerrors "github.com/amaliareyes/seamline-backend/pkg/errors"
	"github.com/amaliareyes/seamline-backend/pkg/metrics"
	"github.com/amaliareyes/seamline-backend/pkg/outbox"
	"github.com/amaliareyes/seamline-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ListFilters narrows payout list queries.
type ListFilters struct {
	UserID *uuid.UUID
	Status *enums.PayoutStatus
	Role   *enums.ActorRole
}

// PayoutList is a cursor page of payouts.
type PayoutList struct {
	Payouts    []models.Payout
	NextCursor string
}

// MarkPaidInput settles one payout off-platform.
type MarkPaidInput struct {
	PayoutID    uuid.UUID
	Method      enums.PayoutMethod
	Notes       *string
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
}

// PayoutCreatedEvent is emitted when an owed amount materializes.
type PayoutCreatedEvent struct {
	PayoutID    uuid.UUID       `json:"payout_id"`
	OrderID     uuid.UUID       `json:"order_id"`
	UserID      uuid.UUID       `json:"user_id"`
	Role        enums.ActorRole `json:"role"`
	AmountCents int             `json:"amount_cents"`
}

// PayoutPaidEvent is emitted when a payout is settled.
type PayoutPaidEvent struct {
	PayoutID    uuid.UUID          `json:"payout_id"`
	OrderID     uuid.UUID          `json:"order_id"`
	UserID      uuid.UUID          `json:"user_id"`
	AmountCents int                `json:"amount_cents"`
	Method      enums.PayoutMethod `json:"method"`
}

// Service defines the payout calculator and settlement operations.
type Service interface {
	// MaterializeForOrder runs inside the order-completion transaction.
	MaterializeForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) error
	MarkPaid(ctx context.Context, input MarkPaidInput) (*models.Payout, error)
	Get(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payout, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*PayoutList, error)
}

type service struct {
	repo           Repository
	tx             txRunner
	outbox         outboxPublisher
	tailorRate     decimal.Decimal
	runnerFeeCents int
	metrics        *metrics.SettlementMetrics
}

// NewService builds the payout service. The tailor rate is a fraction in
// [0, 1]; the runner fee is a flat amount in minor units.
func NewService(repo Repository, tx txRunner, ob outboxPublisher, tailorRate decimal.Decimal, runnerFeeCents int, m *metrics.SettlementMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if tailorRate.IsNegative() || tailorRate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("tailor rate %s out of range", tailorRate)
	}
	if runnerFeeCents < 0 {
		return nil, fmt.Errorf("runner fee must be non-negative")
	}
	return &service{
		repo:           repo,
		tx:             tx,
		outbox:         ob,
		tailorRate:     tailorRate,
		runnerFeeCents: runnerFeeCents,
		metrics:        m,
	}, nil
}

// TailorShareCents computes the tailor's cut of the order subtotal. The
// product is truncated to whole minor units so the platform keeps the
// remainder of any fractional cent.
func TailorShareCents(subtotalCents int, rate decimal.Decimal) int {
	return int(decimal.NewFromInt(int64(subtotalCents)).Mul(rate).IntPart())
}

func (s *service) MaterializeForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if order.Status != enums.OrderStatusCompleted {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payouts materialize only for completed orders")
	}

	repo := s.repo.WithTx(tx)

	if order.TailorID != nil {
		amount := TailorShareCents(order.SubtotalCents, s.tailorRate)
		if err := s.materialize(ctx, tx, repo, order, *order.TailorID, enums.RoleTailor, amount); err != nil {
			return err
		}
	}
	if order.RunnerID != nil {
		if err := s.materialize(ctx, tx, repo, order, *order.RunnerID, enums.RoleRunner, s.runnerFeeCents); err != nil {
			return err
		}
	}
	return nil
}

// materialize writes one payout row. The unique index on (order_id, user_id)
// makes a concurrent or repeated completion converge on a single row.
func (s *service) materialize(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, userID uuid.UUID, role enums.ActorRole, amountCents int) error {
	payout := &models.Payout{
		OrderID:     order.ID,
		UserID:      userID,
		Role:        role,
		AmountCents: amountCents,
		Status:      enums.PayoutStatusPending,
	}
	if err := repo.Create(ctx, payout); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_payouts_order_user") {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout")
	}

	s.metrics.IncPayout("created")
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPayoutCreated,
		AggregateType: enums.AggregatePayout,
		AggregateID:   payout.ID,
		Data: PayoutCreatedEvent{
			PayoutID:    payout.ID,
			OrderID:     order.ID,
			UserID:      userID,
			Role:        role,
			AmountCents: amountCents,
		},
	})
}

func (s *service) MarkPaid(ctx context.Context, input MarkPaidInput) (*models.Payout, error) {
	if input.PayoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payout method")
	}
	if !input.ActorRole.IsOperator() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "settlement requires staff or admin")
	}

	var settled *models.Payout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payout, err := repo.FindByIDForUpdate(ctx, input.PayoutID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payout")
		}
		if payout.Status == enums.PayoutStatusPaid {
			return pkgerrors.New(pkgerrors.CodeAlreadySettled, "payout already marked paid")
		}
		if payout.Status == enums.PayoutStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cancelled payouts cannot be settled")
		}

		now := time.Now()
		updates := map[string]any{
			"status":  enums.PayoutStatusPaid,
			"method":  input.Method,
			"paid_at": now,
		}
		if input.Notes != nil {
			updates["notes"] = *input.Notes
		}
		if err := repo.Update(ctx, payout.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payout paid")
		}

		payout.Status = enums.PayoutStatusPaid
		payout.Method = &input.Method
		payout.PaidAt = &now
		payout.Notes = input.Notes
		settled = payout

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutPaid,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole.String()},
			Data: PayoutPaidEvent{
				PayoutID:    payout.ID,
				OrderID:     payout.OrderID,
				UserID:      payout.UserID,
				AmountCents: payout.AmountCents,
				Method:      input.Method,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncPayout("paid")
	return settled, nil
}

func (s *service) Get(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error) {
	if payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}
	payout, err := s.repo.FindByID(ctx, payoutID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
	}
	return payout, nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payout, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.repo.ListByOrder(ctx, orderID)
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*PayoutList, error) {
	return s.repo.List(ctx, params, filters)
}
