package handler

import (
	"net/http"
	"time"

	"github.com/larimar/onboarding-bfa-go/internal/infra/observability"
	"github.com/larimar/onboarding-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// Routes follow the API contract defined for the onboarding frontend.
func NewRouter(onboardingSvc *service.OnboardingService, boSvc *service.BackofficeService, authSvc *service.AuthService, metrics *observability.Metrics, allowedOrigins []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(boSvc, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. Onboarding workflow (public: runs pre-login)
		// POST /v1/onboarding/step
		// POST /v1/onboarding/validate
		// POST /v1/onboarding/documents
		// =============================================
		if onboardingSvc != nil {
			r.Post("/onboarding/step", stepHandler(onboardingSvc, logger))
			r.Post("/onboarding/validate", validateHandler(onboardingSvc, logger))
			r.Post("/onboarding/documents", documentsHandler(onboardingSvc, logger))

			// =============================================
			// 2. Identity
			// POST /v1/auth/signup
			// =============================================
			r.Post("/auth/signup", signupHandler(onboardingSvc, logger))
		} else {
			unavailable := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusServiceUnavailable, "onboarding unavailable: Supabase not configured")
			})
			r.Handle("/onboarding/*", unavailable)
			r.Handle("/auth/*", unavailable)
		}

		// =============================================
		// 3. Backoffice
		// =============================================
		r.Route("/backoffice", func(r chi.Router) {
			if authSvc == nil {
				r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					writeError(w, http.StatusServiceUnavailable, "backoffice unavailable: auth not configured")
				}))
				return
			}
			// Public
			r.Post("/login", loginHandler(authSvc, logger))

			// Protected
			r.Group(func(r chi.Router) {
				r.Use(JWTAuthMiddleware(authSvc, logger))
				r.Get("/cases", listCasesHandler(boSvc, logger))
				r.Get("/cases/{caseId}", caseDetailHandler(boSvc, logger))
				r.Post("/cases/{caseId}/decision", decisionHandler(boSvc, logger))
				r.Get("/metrics", funnelMetricsHandler(metrics, logger))
			})
		})
	})

	return r
}

// ============================================================
// Probes
// ============================================================

func healthzHandler(boSvc *service.BackofficeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		status := "healthy"
		var latency int64
		if boSvc != nil {
			start := time.Now()
			if _, err := boSvc.ListCases(ctx, "", 1, 1); err != nil {
				status = "degraded"
			}
			latency = time.Since(start).Milliseconds()
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":       status,
			"store_ms":     latency,
			"last_checked": now,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
