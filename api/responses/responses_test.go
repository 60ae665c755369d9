package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/amaliareyes/seamline-backend/pkg/errors"
	"github.com/amaliareyes/seamline-backend/pkg/types"
)

func TestWriteSuccessEnvelope(t *testing.T) {
	resp := httptest.NewRecorder()
	WriteSuccess(resp, map[string]string{"status": "booked"})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json content type got %q", ct)
	}

	var envelope types.SuccessEnvelope
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	data, ok := envelope.Data.(map[string]any)
	if !ok || data["status"] != "booked" {
		t.Fatalf("unexpected data payload: %#v", envelope.Data)
	}
}

func TestWriteSuccessStatusCreated(t *testing.T) {
	resp := httptest.NewRecorder()
	WriteSuccessStatus(resp, http.StatusCreated, nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
}

func TestWriteErrorPassesThroughValidationMessage(t *testing.T) {
	resp := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "qty must be positive")
	WriteError(context.Background(), nil, resp, err)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	var envelope types.ErrorEnvelope
	if decodeErr := json.Unmarshal(resp.Body.Bytes(), &envelope); decodeErr != nil {
		t.Fatalf("decode envelope: %v", decodeErr)
	}
	if envelope.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %q", envelope.Error.Code)
	}
	if envelope.Error.Message != "qty must be positive" {
		t.Fatalf("expected message passthrough got %q", envelope.Error.Message)
	}
}

func TestWriteErrorMasksInternalMessage(t *testing.T) {
	resp := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeInternal, "pg connection pool exhausted on host db-3")
	WriteError(context.Background(), nil, resp, err)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
	var envelope types.ErrorEnvelope
	if decodeErr := json.Unmarshal(resp.Body.Bytes(), &envelope); decodeErr != nil {
		t.Fatalf("decode envelope: %v", decodeErr)
	}
	if envelope.Error.Message != "internal server error" {
		t.Fatalf("expected masked message got %q", envelope.Error.Message)
	}
}

func TestWriteErrorWrapsUntypedError(t *testing.T) {
	resp := httptest.NewRecorder()
	WriteError(context.Background(), nil, resp, errors.New("boom"))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for untyped error got %d", resp.Code)
	}
	var envelope types.ErrorEnvelope
	if decodeErr := json.Unmarshal(resp.Body.Bytes(), &envelope); decodeErr != nil {
		t.Fatalf("decode envelope: %v", decodeErr)
	}
	if envelope.Error.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("unexpected code %q", envelope.Error.Code)
	}
}

func TestWriteErrorIncludesAllowedDetails(t *testing.T) {
	resp := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "invalid payload").
		WithDetails(map[string]any{"field": "qty"})
	WriteError(context.Background(), nil, resp, err)

	var envelope types.ErrorEnvelope
	if decodeErr := json.Unmarshal(resp.Body.Bytes(), &envelope); decodeErr != nil {
		t.Fatalf("decode envelope: %v", decodeErr)
	}
	details, ok := envelope.Error.Details.(map[string]any)
	if !ok || details["field"] != "qty" {
		t.Fatalf("expected details passthrough got %#v", envelope.Error.Details)
	}
}

func TestWriteErrorStripsDisallowedDetails(t *testing.T) {
	resp := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
		WithDetails(map[string]any{"table": "orders"})
	WriteError(context.Background(), nil, resp, err)

	var envelope types.ErrorEnvelope
	if decodeErr := json.Unmarshal(resp.Body.Bytes(), &envelope); decodeErr != nil {
		t.Fatalf("decode envelope: %v", decodeErr)
	}
	if envelope.Error.Details != nil {
		t.Fatalf("expected details stripped got %#v", envelope.Error.Details)
	}
}
