package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

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

type catalogReader interface {
	FindActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ServiceOffering, error)
}

// PayoutMaterializer creates the payout rows for a completed order inside the
// completing transaction.
type PayoutMaterializer interface {
	MaterializeForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) error
}

// Pricing carries the booking-time platform charges.
type Pricing struct {
	DeliveryFeeCents int
	Currency         enums.Currency
}

// Service defines the order lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetDetail(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Timeline(ctx context.Context, orderID uuid.UUID) ([]models.OrderTimelineEntry, error)
	Advance(ctx context.Context, input AdvanceInput) (*models.Order, error)
	UpdateItemStatus(ctx context.Context, input UpdateItemStatusInput) (*models.OrderItem, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
	CancelWithTx(ctx context.Context, tx *gorm.DB, input CancelInput) (*models.Order, error)
	AssignRunner(ctx context.Context, input AssignInput) error
	AssignTailor(ctx context.Context, input AssignInput) error
	ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	ListForRunner(ctx context.Context, runnerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	ListForTailor(ctx context.Context, tailorID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	ListAll(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	catalog catalogReader
	payouts PayoutMaterializer
	pricing Pricing
	metrics *metrics.SettlementMetrics
}

// NewService builds the order lifecycle service with the required dependencies.
func NewService(repo Repository, tx txRunner, ob outboxPublisher, catalog catalogReader, payouts PayoutMaterializer, pricing Pricing, m *metrics.SettlementMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if payouts == nil {
		return nil, fmt.Errorf("payout materializer required")
	}
	if !pricing.Currency.IsValid() {
		return nil, fmt.Errorf("invalid pricing currency %q", pricing.Currency)
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  ob,
		catalog: catalog,
		payouts: payouts,
		pricing: pricing,
		metrics: m,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	ids := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		if item.ServiceID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "service id required")
		}
		if item.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item qty must be positive")
		}
		ids = append(ids, item.ServiceID)
	}

	offerings, err := s.catalog.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load service offerings")
	}
	byID := make(map[uuid.UUID]models.ServiceOffering, len(offerings))
	for _, offering := range offerings {
		byID[offering.ID] = offering
	}

	subtotal := 0
	items := make([]models.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		offering, ok := byID[item.ServiceID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown or inactive service")
		}
		line := offering.BasePriceCents * item.Qty
		subtotal += line
		items = append(items, models.OrderItem{
			ServiceID:      offering.ID,
			ServiceName:    offering.Name,
			BasePriceCents: offering.BasePriceCents,
			Qty:            item.Qty,
			PriceCents:     line,
			Status:         enums.OrderItemStatusPending,
		})
	}

	order := &models.Order{
		CustomerID:       input.CustomerID,
		Status:           enums.OrderStatusBooked,
		Currency:         s.pricing.Currency,
		SubtotalCents:    subtotal,
		DeliveryFeeCents: s.pricing.DeliveryFeeCents,
		TotalCents:       subtotal + s.pricing.DeliveryFeeCents,
		CollectionDate:   input.CollectionDate,
		CollectionSlot:   input.CollectionSlot,
		DeliveryAddress:  input.DeliveryAddress.Normalize(),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		if err := repo.AppendTimeline(ctx, &models.OrderTimelineEntry{
			OrderID:     order.ID,
			ToStatus:    enums.OrderStatusBooked,
			ActorUserID: &input.CustomerID,
			ActorRole:   enums.RoleCustomer,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append timeline")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.CustomerID, Role: enums.RoleCustomer.String()},
			Data: OrderCreatedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				CustomerID:    order.CustomerID,
				SubtotalCents: order.SubtotalCents,
				TotalCents:    order.TotalCents,
				Currency:      order.Currency.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	order.Items = items
	s.metrics.IncTransition(enums.OrderStatusBooked.String())
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) GetDetail(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindDetail(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order detail")
	}
	return order, nil
}

func (s *service) Timeline(ctx context.Context, orderID uuid.UUID) ([]models.OrderTimelineEntry, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	entries, err := s.repo.ListTimeline(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load timeline")
	}
	return entries, nil
}

func (s *service) Advance(ctx context.Context, input AdvanceInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil && input.ActorRole != enums.RoleSystem {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.ActorRole.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid actor role")
	}
	if input.Override {
		if !input.ActorRole.IsOperator() {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "override requires staff or admin")
		}
		if input.Reason == nil || *input.Reason == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "override reason required")
		}
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}

		if err := validateTransition(order.Status, input.TargetStatus, input.Override); err != nil {
			return err
		}
		if err := authorizeEdge(input.ActorRole, input.TargetStatus); err != nil {
			return err
		}
		if input.TargetStatus == enums.OrderStatusReady {
			items, err := repo.ListItems(ctx, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
			}
			for _, item := range items {
				if item.Status != enums.OrderItemStatusDone {
					return pkgerrors.New(pkgerrors.CodeStateConflict, "all items must be done before the order is ready")
				}
			}
		}

		from := order.Status
		now := time.Now()
		updates := map[string]any{
			"status":  input.TargetStatus,
			"version": gorm.Expr("version + 1"),
		}
		applyMilestone(updates, input.TargetStatus, now)

		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if err := repo.AppendTimeline(ctx, timelineEntry(order.ID, &from, input.TargetStatus, input)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append timeline")
		}

		order.Status = input.TargetStatus
		order.Version++
		setMilestone(order, input.TargetStatus, now)

		if input.TargetStatus == enums.OrderStatusCompleted {
			if err := s.payouts.MaterializeForOrder(ctx, tx, order); err != nil {
				return err
			}
		}

		updated = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(input.ActorUserID, input.ActorRole),
			Data: OrderStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				FromStatus:  from,
				ToStatus:    input.TargetStatus,
				Override:    input.Override,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(input.TargetStatus.String())
	return updated, nil
}

// UpdateItemStatus moves one item through pending -> in_progress -> done.
// Advancing the order to ready refuses while any item is not done, so this is
// how a tailor unblocks that edge.
func (s *service) UpdateItemStatus(ctx context.Context, input UpdateItemStatusInput) (*models.OrderItem, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown item status")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var updated *models.OrderItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is in a terminal state")
		}
		if !input.ActorRole.IsOperator() {
			if input.ActorRole != enums.RoleTailor {
				return pkgerrors.New(pkgerrors.CodeForbidden, "only the tailor can update item status")
			}
			if order.TailorID == nil || *order.TailorID != input.ActorUserID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this tailor")
			}
			if order.Status != enums.OrderStatusCollected && order.Status != enums.OrderStatusInProgress {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "items can only be updated while the order is being worked")
			}
		}

		items, err := repo.ListItems(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}
		var item *models.OrderItem
		for i := range items {
			if items[i].ID == input.ItemID {
				item = &items[i]
				break
			}
		}
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "item not found on order")
		}
		if item.Status == input.Status {
			updated = item
			return nil
		}

		if err := repo.UpdateItem(ctx, item.ID, map[string]any{"status": input.Status}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item status")
		}
		item.Status = input.Status
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	var cancelled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.CancelWithTx(ctx, tx, input)
		if err != nil {
			return err
		}
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// CancelWithTx cancels inside a caller-managed transaction so the refund
// processor can cancel and refund atomically. Cancelling an order that is
// already cancelled is a no-op.
func (s *service) CancelWithTx(ctx context.Context, tx *gorm.DB, input CancelInput) (*models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.ActorRole.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid actor role")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancel reason required")
	}

	repo := s.repo.WithTx(tx)
	order, err := repo.FindForUpdate(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
	}

	if order.Status == enums.OrderStatusCancelled {
		return order, nil
	}
	if !CanCancel(order.Status) {
		return nil, pkgerrors.New(pkgerrors.CodeCannotCancel, "completed orders cannot be cancelled")
	}

	from := order.Status
	now := time.Now()
	if err := repo.Update(ctx, order.ID, map[string]any{
		"status":        enums.OrderStatusCancelled,
		"cancelled_at":  now,
		"cancel_reason": input.Reason,
		"version":       gorm.Expr("version + 1"),
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}

	entry := &models.OrderTimelineEntry{
		OrderID:   order.ID,
		ToStatus:  enums.OrderStatusCancelled,
		ActorRole: input.ActorRole,
		Reason:    &input.Reason,
	}
	entry.FromStatus = &from
	if input.ActorUserID != uuid.Nil {
		actorID := input.ActorUserID
		entry.ActorUserID = &actorID
	}
	if err := repo.AppendTimeline(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append timeline")
	}

	order.Status = enums.OrderStatusCancelled
	order.CancelledAt = &now
	order.CancelReason = &input.Reason
	order.Version++

	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(input.ActorUserID, input.ActorRole),
		Data: OrderCancelledEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			FromStatus:  from,
			Reason:      input.Reason,
		},
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(enums.OrderStatusCancelled.String())
	return order, nil
}

func (s *service) AssignRunner(ctx context.Context, input AssignInput) error {
	return s.assign(ctx, input, "runner_id")
}

func (s *service) AssignTailor(ctx context.Context, input AssignInput) error {
	return s.assign(ctx, input, "tailor_id")
}

func (s *service) assign(ctx context.Context, input AssignInput, column string) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.AssigneeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "assignee id required")
	}
	if !input.ActorRole.IsOperator() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "assignment requires staff or admin")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is in a terminal state")
		}
		return repo.Update(ctx, order.ID, map[string]any{column: input.AssigneeID})
	})
}

func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.repo.ListForCustomer(ctx, customerID, params, filters)
}

func (s *service) ListForRunner(ctx context.Context, runnerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if runnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.repo.ListForRunner(ctx, runnerID, params, filters)
}

func (s *service) ListForTailor(ctx context.Context, tailorID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if tailorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.repo.ListForTailor(ctx, tailorID, params, filters)
}

func (s *service) ListAll(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	return s.repo.ListAll(ctx, params, filters)
}

func timelineEntry(orderID uuid.UUID, from *enums.OrderStatus, to enums.OrderStatus, input AdvanceInput) *models.OrderTimelineEntry {
	entry := &models.OrderTimelineEntry{
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		ActorRole:  input.ActorRole,
		Override:   input.Override,
		Reason:     input.Reason,
	}
	if input.ActorUserID != uuid.Nil {
		actorID := input.ActorUserID
		entry.ActorUserID = &actorID
	}
	return entry
}

func applyMilestone(updates map[string]any, status enums.OrderStatus, now time.Time) {
	switch status {
	case enums.OrderStatusCollected:
		updates["collected_at"] = now
	case enums.OrderStatusReady:
		updates["ready_at"] = now
	case enums.OrderStatusDelivered:
		updates["delivered_at"] = now
	case enums.OrderStatusCompleted:
		updates["completed_at"] = now
	}
}

func setMilestone(order *models.Order, status enums.OrderStatus, now time.Time) {
	switch status {
	case enums.OrderStatusCollected:
		order.CollectedAt = &now
	case enums.OrderStatusReady:
		order.ReadyAt = &now
	case enums.OrderStatusDelivered:
		order.DeliveredAt = &now
	case enums.OrderStatusCompleted:
		order.CompletedAt = &now
	}
}

func actorRef(userID uuid.UUID, role enums.ActorRole) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: userID, Role: role.String()}
}
