package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/larimar/onboarding-bfa-go/internal/domain"

	"go.uber.org/zap"
)

func TestHandleServiceError_ConflictPayloadShape(t *testing.T) {
	rec := httptest.NewRecorder()
	handleServiceError(rec, &domain.ErrConflict{
		Message:   "RNC ya registrado",
		Conflicts: map[string]string{"rnc": "RNC ya registrado"},
	}, zap.NewNop())

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var body map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	for _, field := range []string{"error", "conflicts", "message"} {
		if _, ok := body[field]; !ok {
			t.Errorf("expected %q in conflict payload, got %v", field, body)
		}
	}
	var msg string
	if err := json.Unmarshal(body["message"], &msg); err != nil || msg != "RNC ya registrado" {
		t.Errorf("expected message to carry the summary, got %s", body["message"])
	}
}

func TestHandleServiceError_NotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	handleServiceError(rec, &domain.ErrNotFound{Resource: "case", ID: "nope"}, zap.NewNop())

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
