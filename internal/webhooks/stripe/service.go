package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	stripelib "github.com/stripe/stripe-go/v84"

	"github.com/amaliareyes/seamline-backend/internal/payments"
	pkgerrors "github.com/amaliareyes/seamline-backend/pkg/errors"
)

type reconciler interface {
	Reconcile(ctx context.Context, input payments.ReconcileInput) error
}

// Service translates verified processor events into reconcile calls.
type Service interface {
	HandleEvent(ctx context.Context, event *stripelib.Event) error
}

type service struct {
	payments reconciler
	logger   zerolog.Logger
}

// NewService builds the webhook event handler.
func NewService(paymentsSvc reconciler, logger zerolog.Logger) (Service, error) {
	if paymentsSvc == nil {
		return nil, fmt.Errorf("payments service required")
	}
	return &service{payments: paymentsSvc, logger: logger}, nil
}

// HandleEvent routes one verified event. Event types outside the checkout
// session family are acknowledged and dropped so the processor stops
// retrying them.
func (s *service) HandleEvent(ctx context.Context, event *stripelib.Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event required")
	}
	eventType := string(event.Type)
	if !strings.HasPrefix(eventType, "checkout.session.") {
		if isRefundEvent(eventType) {
			// Refunds are applied to the ledger when the operator issues
			// them, not from webhooks, but the processor-side confirmation
			// stays visible for the audit trail.
			s.logger.Info().
				Str("event_id", event.ID).
				Str("event_type", eventType).
				Msg("acknowledging refund webhook event")
			return nil
		}
		s.logger.Debug().
			Str("event_id", event.ID).
			Str("event_type", eventType).
			Msg("ignoring unhandled webhook event type")
		return nil
	}

	var sess stripelib.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session payload")
	}
	if sess.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "event payload missing session id")
	}

	input := payments.ReconcileInput{
		EventID:   event.ID,
		EventType: eventType,
		SessionID: sess.ID,
	}
	if sess.PaymentIntent != nil {
		input.PaymentIntentID = sess.PaymentIntent.ID
	}

	s.logger.Info().
		Str("event_id", event.ID).
		Str("event_type", eventType).
		Str("session_id", sess.ID).
		Msg("reconciling webhook event")

	return s.payments.Reconcile(ctx, input)
}

// isRefundEvent matches the processor's refund event family.
func isRefundEvent(eventType string) bool {
	return strings.HasPrefix(eventType, "refund.") ||
		strings.HasPrefix(eventType, "charge.refund")
}
