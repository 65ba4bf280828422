package handler

import (
	"encoding/json"
	"net/http"

	"github.com/larimar/onboarding-bfa-go/internal/domain"
	"github.com/larimar/onboarding-bfa-go/internal/infra/observability"
	"github.com/larimar/onboarding-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// 5. Backoffice — operator login
// ============================================================

func loginHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/backoffice/login")
		defer span.End()

		var req domain.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := authSvc.Login(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// ============================================================
// 6. Backoffice — case queue & detail
// ============================================================

func listCasesHandler(svc *service.BackofficeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/backoffice/cases")
		defer span.End()

		status := r.URL.Query().Get("status")
		page, pageSize := parsePagination(r)

		cases, err := svc.ListCases(ctx, status, page, pageSize)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if cases == nil {
			cases = []domain.CaseSummary{}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"cases":    cases,
			"page":     page,
			"pageSize": pageSize,
		})
	}
}

func caseDetailHandler(svc *service.BackofficeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/backoffice/cases/{caseId}")
		defer span.End()

		caseID := chi.URLParam(r, "caseId")
		if caseID == "" {
			writeError(w, http.StatusBadRequest, "caseId is required")
			return
		}
		span.SetAttributes(attribute.String("case.id", caseID))

		detail, err := svc.GetCaseDetail(ctx, caseID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, detail)
	}
}

// ============================================================
// 7. Backoffice — review decision
// ============================================================

func decisionHandler(svc *service.BackofficeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/backoffice/cases/{caseId}/decision")
		defer span.End()

		caseID := chi.URLParam(r, "caseId")
		if caseID == "" {
			writeError(w, http.StatusBadRequest, "caseId is required")
			return
		}

		var req domain.DecisionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		reviewer := OperatorIDFromContext(ctx)
		if err := svc.Decide(ctx, caseID, reviewer, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// 8. Backoffice — funnel metrics
// ============================================================

func funnelMetricsHandler(metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := metrics.GetFunnelSnapshot()
		writeJSON(w, http.StatusOK, snapshot)
	}
}
