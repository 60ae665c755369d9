package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/amaliareyes/seamline-backend/internal/orders"
	"github.com/amaliareyes/seamline-backend/internal/payments"
	"github.com/amaliareyes/seamline-backend/pkg/db/models"
)

// ExecuteInput books an order and opens its checkout session in one call.
type ExecuteInput struct {
	Order         orders.CreateOrderInput
	CustomerEmail string
}

// ExecuteResult returns the booked order and the hosted payment handle.
type ExecuteResult struct {
	Order       *models.Order
	PaymentID   uuid.UUID
	SessionID   string
	CheckoutURL string
}

// Service orchestrates booking plus payment initiation.
type Service interface {
	Execute(ctx context.Context, input ExecuteInput) (*ExecuteResult, error)
}

type service struct {
	orders   orders.Service
	payments payments.Service
	logger   zerolog.Logger
}

// NewService builds the checkout orchestrator.
func NewService(ordersSvc orders.Service, paymentsSvc payments.Service, logger zerolog.Logger) (Service, error) {
	if ordersSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if paymentsSvc == nil {
		return nil, fmt.Errorf("payments service required")
	}
	return &service{orders: ordersSvc, payments: paymentsSvc, logger: logger}, nil
}

// Execute books the order, then opens the checkout session. The two steps are
// deliberately separate transactions: a processor outage leaves a booked,
// unpaid order that the customer can pay for later or that expires through the
// session lifecycle.
func (s *service) Execute(ctx context.Context, input ExecuteInput) (*ExecuteResult, error) {
	order, err := s.orders.Create(ctx, input.Order)
	if err != nil {
		return nil, err
	}

	initiated, err := s.payments.Initiate(ctx, payments.InitiateInput{
		OrderID:       order.ID,
		ActorUserID:   order.CustomerID,
		CustomerEmail: input.CustomerEmail,
	})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("order booked but checkout session failed")
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Int64("order_number", order.OrderNumber).
		Int("total_cents", order.TotalCents).
		Str("session_id", initiated.SessionID).
		Msg("checkout executed")

	return &ExecuteResult{
		Order:       order,
		PaymentID:   initiated.PaymentID,
		SessionID:   initiated.SessionID,
		CheckoutURL: initiated.CheckoutURL,
	}, nil
}
