package stripe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	stripelib "github.com/stripe/stripe-go/v84"

	"github.com/amaliareyes/seamline-backend/internal/payments"
	pkgerrors "github.com/amaliareyes/seamline-backend/pkg/errors"
)

type stubReconciler struct {
	inputs []payments.ReconcileInput
	err    error
}

func (s *stubReconciler) Reconcile(ctx context.Context, input payments.ReconcileInput) error {
	s.inputs = append(s.inputs, input)
	return s.err
}

func newHandler(t *testing.T, rec *stubReconciler) Service {
	t.Helper()
	svc, err := NewService(rec, zerolog.Nop())
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func sessionEvent(t *testing.T, eventType string, payload map[string]any) *stripelib.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &stripelib.Event{
		ID:   "evt_test_1",
		Type: stripelib.EventType(eventType),
		Data: &stripelib.EventData{Raw: raw},
	}
}

func TestHandleEventRoutesCompletedSession(t *testing.T) {
	rec := &stubReconciler{}
	svc := newHandler(t, rec)

	event := sessionEvent(t, "checkout.session.completed", map[string]any{
		"id":             "cs_test_1",
		"payment_intent": map[string]any{"id": "pi_test_1"},
	})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if len(rec.inputs) != 1 {
		t.Fatalf("expected one reconcile call, got %d", len(rec.inputs))
	}
	got := rec.inputs[0]
	if got.EventID != "evt_test_1" || got.SessionID != "cs_test_1" {
		t.Fatalf("unexpected reconcile input: %+v", got)
	}
	if got.PaymentIntentID != "pi_test_1" {
		t.Fatalf("expected payment intent id, got %q", got.PaymentIntentID)
	}
}

func TestHandleEventIgnoresUnrelatedTypes(t *testing.T) {
	rec := &stubReconciler{}
	svc := newHandler(t, rec)

	event := sessionEvent(t, "invoice.paid", map[string]any{"id": "in_test_1"})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unrelated event must be acknowledged, got %v", err)
	}
	if len(rec.inputs) != 0 {
		t.Fatalf("unrelated event must not reconcile")
	}
}

func TestHandleEventSurfacesRefundFamily(t *testing.T) {
	for _, eventType := range []string{"charge.refunded", "charge.refund.updated", "refund.created", "refund.updated"} {
		t.Run(eventType, func(t *testing.T) {
			rec := &stubReconciler{}
			var buf bytes.Buffer
			svc, err := NewService(rec, zerolog.New(&buf))
			if err != nil {
				t.Fatalf("service constructor failed: %v", err)
			}

			event := sessionEvent(t, eventType, map[string]any{"id": "re_test_1"})
			if err := svc.HandleEvent(context.Background(), event); err != nil {
				t.Fatalf("refund event must be acknowledged, got %v", err)
			}
			if len(rec.inputs) != 0 {
				t.Fatalf("refund events must not reconcile payments")
			}
			logged := buf.String()
			if !strings.Contains(logged, `"level":"info"`) || !strings.Contains(logged, eventType) {
				t.Fatalf("refund event must be logged at info for the audit trail, got %q", logged)
			}
		})
	}
}

func TestHandleEventRejectsMalformedPayload(t *testing.T) {
	rec := &stubReconciler{}
	svc := newHandler(t, rec)

	event := &stripelib.Event{
		ID:   "evt_test_2",
		Type: "checkout.session.completed",
		Data: &stripelib.EventData{Raw: json.RawMessage(`"not an object"`)},
	}
	err := svc.HandleEvent(context.Background(), event)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHandleEventRequiresSessionID(t *testing.T) {
	rec := &stubReconciler{}
	svc := newHandler(t, rec)

	event := sessionEvent(t, "checkout.session.expired", map[string]any{})
	err := svc.HandleEvent(context.Background(), event)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
