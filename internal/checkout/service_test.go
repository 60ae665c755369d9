package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/amaliareyes/seamline-backend/internal/orders"
	"github.com/amaliareyes/seamline-backend/internal/payments"
	"github.com/amaliareyes/seamline-backend/pkg/db/models"
	"github.com/amaliareyes/seamline-backend/pkg/enums"
	"github.com/amaliareyes/seamline-backend/pkg/pagination"
)

type stubOrdersService struct {
	created   *models.Order
	createErr error
}

func (s *stubOrdersService) Create(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.created, nil
}

func (s *stubOrdersService) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.created, nil
}

func (s *stubOrdersService) GetDetail(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.created, nil
}

func (s *stubOrdersService) Timeline(ctx context.Context, orderID uuid.UUID) ([]models.OrderTimelineEntry, error) {
	return nil, nil
}

func (s *stubOrdersService) Advance(ctx context.Context, input orders.AdvanceInput) (*models.Order, error) {
	return nil, nil
}

func (s *stubOrdersService) UpdateItemStatus(ctx context.Context, input orders.UpdateItemStatusInput) (*models.OrderItem, error) {
	return nil, nil
}

func (s *stubOrdersService) Cancel(ctx context.Context, input orders.CancelInput) (*models.Order, error) {
	return nil, nil
}

func (s *stubOrdersService) CancelWithTx(ctx context.Context, tx *gorm.DB, input orders.CancelInput) (*models.Order, error) {
	return nil, nil
}

func (s *stubOrdersService) AssignRunner(ctx context.Context, input orders.AssignInput) error {
	return nil
}

func (s *stubOrdersService) AssignTailor(ctx context.Context, input orders.AssignInput) error {
	return nil
}

func (s *stubOrdersService) ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters orders.ListFilters) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (s *stubOrdersService) ListForRunner(ctx context.Context, runnerID uuid.UUID, params pagination.Params, filters orders.ListFilters) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (s *stubOrdersService) ListForTailor(ctx context.Context, tailorID uuid.UUID, params pagination.Params, filters orders.ListFilters) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (s *stubOrdersService) ListAll(ctx context.Context, params pagination.Params, filters orders.ListFilters) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

type stubPaymentsService struct {
	initiated   *payments.InitiateResult
	initiateErr error
	lastInput   payments.InitiateInput
}

func (s *stubPaymentsService) Initiate(ctx context.Context, input payments.InitiateInput) (*payments.InitiateResult, error) {
	s.lastInput = input
	if s.initiateErr != nil {
		return nil, s.initiateErr
	}
	return s.initiated, nil
}

func (s *stubPaymentsService) Reconcile(ctx context.Context, input payments.ReconcileInput) error {
	return nil
}

func (s *stubPaymentsService) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	return nil, nil
}

func bookedOrder(customerID uuid.UUID) *models.Order {
	return &models.Order{
		ID:               uuid.New(),
		OrderNumber:      1001,
		CustomerID:       customerID,
		Status:           enums.OrderStatusBooked,
		SubtotalCents:    4000,
		DeliveryFeeCents: 700,
		TotalCents:       4700,
		Currency:         enums.CurrencyGBP,
	}
}

func TestExecuteBooksAndInitiates(t *testing.T) {
	customerID := uuid.New()
	order := bookedOrder(customerID)
	ordersSvc := &stubOrdersService{created: order}
	paymentsSvc := &stubPaymentsService{
		initiated: &payments.InitiateResult{
			PaymentID:   uuid.New(),
			SessionID:   "cs_test_1",
			CheckoutURL: "https://checkout.example/cs_test_1",
		},
	}
	svc, err := NewService(ordersSvc, paymentsSvc, zerolog.Nop())
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	result, err := svc.Execute(context.Background(), ExecuteInput{
		Order: orders.CreateOrderInput{
			CustomerID: customerID,
			Items:      []orders.CreateOrderItemInput{{ServiceID: uuid.New(), Qty: 2}},
		},
		CustomerEmail: "customer@example.com",
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if result.Order.TotalCents != 4700 {
		t.Fatalf("expected total 4700, got %d", result.Order.TotalCents)
	}
	if result.SessionID != "cs_test_1" {
		t.Fatalf("expected session id, got %q", result.SessionID)
	}
	if paymentsSvc.lastInput.OrderID != order.ID {
		t.Fatalf("initiate used wrong order")
	}
	if paymentsSvc.lastInput.CustomerEmail != "customer@example.com" {
		t.Fatalf("initiate dropped customer email")
	}
}

func TestExecuteStopsOnBookingFailure(t *testing.T) {
	ordersSvc := &stubOrdersService{createErr: errors.New("catalog rejected item")}
	paymentsSvc := &stubPaymentsService{}
	svc, err := NewService(ordersSvc, paymentsSvc, zerolog.Nop())
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	_, err = svc.Execute(context.Background(), ExecuteInput{})
	if err == nil {
		t.Fatalf("expected booking failure to propagate")
	}
	if paymentsSvc.lastInput.OrderID != uuid.Nil {
		t.Fatalf("payment must not be initiated after failed booking")
	}
}

func TestExecuteSurfacesInitiateFailure(t *testing.T) {
	customerID := uuid.New()
	ordersSvc := &stubOrdersService{created: bookedOrder(customerID)}
	paymentsSvc := &stubPaymentsService{initiateErr: errors.New("processor unavailable")}
	svc, err := NewService(ordersSvc, paymentsSvc, zerolog.Nop())
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	_, err = svc.Execute(context.Background(), ExecuteInput{
		Order: orders.CreateOrderInput{CustomerID: customerID},
	})
	if err == nil {
		t.Fatalf("expected initiate failure to propagate")
	}
}
