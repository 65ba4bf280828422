package handler

import (
	"encoding/json"
	"net/http"

	"github.com/larimar/onboarding-bfa-go/internal/domain"
	"github.com/larimar/onboarding-bfa-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// 1. Onboarding — POST /v1/onboarding/step
// ============================================================

// submittedBy returns the identity-provider user id for attribution. The
// onboarding flow runs before the user can hold an operator token, so the
// frontend sends the id from signup in a header. Empty is fine.
func submittedBy(r *http.Request) string {
	return r.Header.Get("X-User-Id")
}

func stepHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding/step")
		defer span.End()

		var req domain.StepRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		span.SetAttributes(attribute.String("onboarding.step", req.Step))

		result, err := svc.Apply(ctx, &req, submittedBy(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// ============================================================
// 2. Pre-submit validation — POST /v1/onboarding/validate
// ============================================================

func validateHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding/validate")
		defer span.End()

		var req domain.ValidateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := svc.CheckDuplicates(ctx, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

// ============================================================
// 3. Document registration — POST /v1/onboarding/documents
// ============================================================

func documentsHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding/documents")
		defer span.End()

		var req domain.DocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		doc, err := svc.RegisterDocument(ctx, &req, submittedBy(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, doc)
	}
}

// ============================================================
// 4. Identity sign-up — POST /v1/auth/signup
// ============================================================

func signupHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/signup")
		defer span.End()

		var req domain.SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := svc.Signup(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, resp)
	}
}
