package payouts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/amaliareyes/seamline-backend/pkg/db/models"
	"github.com/amaliareyes/seamline-backend/pkg/enums"
	pkgerrors "github.com/amaliareyes/seamline-backend/pkg/errors"
	"github.com/amaliareyes/seamline-backend/pkg/outbox"
	"github.com/amaliareyes/seamline-backend/pkg/pagination"
)

type stubPayoutsRepo struct {
	rows      map[string]*models.Payout
	byID      map[uuid.UUID]*models.Payout
	updates   map[string]any
	createErr error
}

func newStubPayoutsRepo() *stubPayoutsRepo {
	return &stubPayoutsRepo{
		rows: map[string]*models.Payout{},
		byID: map[uuid.UUID]*models.Payout{},
	}
}

func key(orderID, userID uuid.UUID) string {
	return orderID.String() + "/" + userID.String()
}

func (s *stubPayoutsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPayoutsRepo) Create(ctx context.Context, payout *models.Payout) error {
	if s.createErr != nil {
		return s.createErr
	}
	k := key(payout.OrderID, payout.UserID)
	if _, exists := s.rows[k]; exists {
		// The same shape the postgres driver returns when the unique index
		// rejects a duplicate payout row.
		return &pgconn.PgError{
			Code:           "23505",
			Message:        `duplicate key value violates unique constraint "ux_payouts_order_user"`,
			ConstraintName: "ux_payouts_order_user",
		}
	}
	if payout.ID == uuid.Nil {
		payout.ID = uuid.New()
	}
	s.rows[k] = payout
	s.byID[payout.ID] = payout
	return nil
}

func (s *stubPayoutsRepo) FindByID(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error) {
	payout, ok := s.byID[payoutID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *payout
	return &copied, nil
}

func (s *stubPayoutsRepo) FindByIDForUpdate(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error) {
	return s.FindByID(ctx, payoutID)
}

func (s *stubPayoutsRepo) FindByOrderAndUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Payout, error) {
	payout, ok := s.rows[key(orderID, userID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *payout
	return &copied, nil
}

func (s *stubPayoutsRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payout, error) {
	var list []models.Payout
	for _, payout := range s.byID {
		if payout.OrderID == orderID {
			list = append(list, *payout)
		}
	}
	return list, nil
}

func (s *stubPayoutsRepo) Update(ctx context.Context, payoutID uuid.UUID, updates map[string]any) error {
	s.updates = updates
	if payout, ok := s.byID[payoutID]; ok {
		if status, ok := updates["status"].(enums.PayoutStatus); ok {
			payout.Status = status
		}
	}
	return nil
}

func (s *stubPayoutsRepo) List(ctx context.Context, params pagination.Params, filters ListFilters) (*PayoutList, error) {
	return &PayoutList{}, nil
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

func newTestService(t *testing.T, repo Repository, ob *stubOutbox, rate string, runnerFee int) Service {
	t.Helper()
	if ob == nil {
		ob = &stubOutbox{}
	}
	svc, err := NewService(repo, stubTxRunner{}, ob, decimal.RequireFromString(rate), runnerFee, nil)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func completedOrder(tailorID, runnerID *uuid.UUID, subtotal int) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		OrderNumber:   1001,
		Status:        enums.OrderStatusCompleted,
		SubtotalCents: subtotal,
		TailorID:      tailorID,
		RunnerID:      runnerID,
	}
}

func TestTailorShareCents(t *testing.T) {
	cases := []struct {
		subtotal int
		rate     string
		want     int
	}{
		{4000, "0.60", 2400},
		{4000, "0.6", 2400},
		{999, "0.60", 599},  // 599.4 truncates down
		{1001, "0.33", 330}, // 330.33 truncates down
		{0, "0.60", 0},
		{4000, "1", 4000},
		{4000, "0", 0},
	}
	for _, tc := range cases {
		got := TailorShareCents(tc.subtotal, decimal.RequireFromString(tc.rate))
		if got != tc.want {
			t.Errorf("share(%d, %s) = %d, want %d", tc.subtotal, tc.rate, got, tc.want)
		}
	}
}

func TestMaterializeForOrderCreatesBothPayouts(t *testing.T) {
	tailorID := uuid.New()
	runnerID := uuid.New()
	order := completedOrder(&tailorID, &runnerID, 4000)
	repo := newStubPayoutsRepo()
	ob := &stubOutbox{}
	svc := newTestService(t, repo, ob, "0.60", 500)

	if err := svc.MaterializeForOrder(context.Background(), &gorm.DB{}, order); err != nil {
		t.Fatalf("materialize failed: %v", err)
	}

	tailorPayout, err := repo.FindByOrderAndUser(context.Background(), order.ID, tailorID)
	if err != nil {
		t.Fatalf("tailor payout missing: %v", err)
	}
	if tailorPayout.AmountCents != 2400 {
		t.Fatalf("expected tailor payout 2400, got %d", tailorPayout.AmountCents)
	}
	if tailorPayout.Status != enums.PayoutStatusPending {
		t.Fatalf("expected pending, got %s", tailorPayout.Status)
	}

	runnerPayout, err := repo.FindByOrderAndUser(context.Background(), order.ID, runnerID)
	if err != nil {
		t.Fatalf("runner payout missing: %v", err)
	}
	if runnerPayout.AmountCents != 500 {
		t.Fatalf("expected runner payout 500, got %d", runnerPayout.AmountCents)
	}
	if len(ob.events) != 2 {
		t.Fatalf("expected two payout created events, got %d", len(ob.events))
	}
}

func TestMaterializeForOrderIsIdempotent(t *testing.T) {
	tailorID := uuid.New()
	order := completedOrder(&tailorID, nil, 4000)
	repo := newStubPayoutsRepo()
	ob := &stubOutbox{}
	svc := newTestService(t, repo, ob, "0.60", 500)

	if err := svc.MaterializeForOrder(context.Background(), &gorm.DB{}, order); err != nil {
		t.Fatalf("first materialize failed: %v", err)
	}
	if err := svc.MaterializeForOrder(context.Background(), &gorm.DB{}, order); err != nil {
		t.Fatalf("repeat materialize must be a no-op, got %v", err)
	}
	if len(repo.byID) != 1 {
		t.Fatalf("expected one payout row, got %d", len(repo.byID))
	}
	if len(ob.events) != 1 {
		t.Fatalf("repeat must not emit events, got %d", len(ob.events))
	}
}

func TestMaterializeRejectsNonCompletedOrder(t *testing.T) {
	tailorID := uuid.New()
	order := completedOrder(&tailorID, nil, 4000)
	order.Status = enums.OrderStatusDelivered
	svc := newTestService(t, newStubPayoutsRepo(), nil, "0.60", 500)

	err := svc.MaterializeForOrder(context.Background(), &gorm.DB{}, order)
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestMaterializeSkipsUnassignedRoles(t *testing.T) {
	order := completedOrder(nil, nil, 4000)
	repo := newStubPayoutsRepo()
	svc := newTestService(t, repo, nil, "0.60", 500)

	if err := svc.MaterializeForOrder(context.Background(), &gorm.DB{}, order); err != nil {
		t.Fatalf("materialize failed: %v", err)
	}
	if len(repo.byID) != 0 {
		t.Fatalf("no payouts expected without assignees")
	}
}

func TestMarkPaid(t *testing.T) {
	repo := newStubPayoutsRepo()
	svc := newTestService(t, repo, nil, "0.60", 500)

	payout := &models.Payout{
		OrderID:     uuid.New(),
		UserID:      uuid.New(),
		Role:        enums.RoleTailor,
		AmountCents: 2400,
		Status:      enums.PayoutStatusPending,
	}
	if err := repo.Create(context.Background(), payout); err != nil {
		t.Fatalf("seed payout: %v", err)
	}

	settled, err := svc.MarkPaid(context.Background(), MarkPaidInput{
		PayoutID:    payout.ID,
		Method:      enums.PayoutMethodBankTransfer,
		ActorUserID: uuid.New(),
		ActorRole:   enums.RoleStaff,
	})
	if err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if settled.Status != enums.PayoutStatusPaid {
		t.Fatalf("expected paid, got %s", settled.Status)
	}
	if settled.PaidAt == nil {
		t.Fatalf("expected paid_at to be set")
	}

	// A second settlement attempt is rejected.
	_, err = svc.MarkPaid(context.Background(), MarkPaidInput{
		PayoutID:    payout.ID,
		Method:      enums.PayoutMethodBankTransfer,
		ActorUserID: uuid.New(),
		ActorRole:   enums.RoleStaff,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeAlreadySettled) {
		t.Fatalf("expected already settled, got %v", err)
	}
}

func TestMarkPaidRequiresOperator(t *testing.T) {
	svc := newTestService(t, newStubPayoutsRepo(), nil, "0.60", 500)

	_, err := svc.MarkPaid(context.Background(), MarkPaidInput{
		PayoutID:    uuid.New(),
		Method:      enums.PayoutMethodCash,
		ActorUserID: uuid.New(),
		ActorRole:   enums.RoleTailor,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
