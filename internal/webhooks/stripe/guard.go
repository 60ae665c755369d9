package stripe

import (
	"context"
	"fmt"

	"github.com/amaliareyes/seamline-backend/pkg/outbox/idempotency"
)

const webhookConsumer = "stripe-webhook"

// IdempotencyGuard scopes the shared event-dedup manager to the Stripe
// webhook consumer. It is a cheap pre-filter; the database-persisted event id
// inside the reconcile transaction is the authoritative replay check.
type IdempotencyGuard struct {
	manager *idempotency.Manager
}

// NewIdempotencyGuard wraps the manager for webhook deliveries.
func NewIdempotencyGuard(manager *idempotency.Manager) (*IdempotencyGuard, error) {
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	return &IdempotencyGuard{manager: manager}, nil
}

func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	return g.manager.CheckAndMarkProcessed(ctx, webhookConsumer, eventID)
}

func (g *IdempotencyGuard) Delete(ctx context.Context, eventID string) error {
	return g.manager.Delete(ctx, webhookConsumer, eventID)
}
