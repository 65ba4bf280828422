package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/larimar/onboarding-bfa-go/internal/config"
	"github.com/larimar/onboarding-bfa-go/internal/domain"
	"github.com/larimar/onboarding-bfa-go/internal/handler"
	"github.com/larimar/onboarding-bfa-go/internal/infra/cache"
	"github.com/larimar/onboarding-bfa-go/internal/infra/fixtures"
	"github.com/larimar/onboarding-bfa-go/internal/infra/observability"
	"github.com/larimar/onboarding-bfa-go/internal/infra/resilience"
	"github.com/larimar/onboarding-bfa-go/internal/infra/supabase"
	"github.com/larimar/onboarding-bfa-go/internal/port"
	"github.com/larimar/onboarding-bfa-go/internal/service"

	"go.uber.org/zap"
)

const demoOperatorEmail = "demo@larimar.do"
const demoOperatorPassword = "demo1234"

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, "onboarding-bfa")
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("use_supabase", cfg.UseSupabase),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "onboarding-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	caseListCache := cache.New[[]domain.CaseSummary](cfg.CacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("supabase")

	// --- Data backend ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	var onboardingSvc *service.OnboardingService
	var authSvc *service.AuthService
	var reader port.BackofficeReader
	var decider port.CaseDecider

	if cfg.UseSupabase && cfg.SupabaseURL != "" {
		logger.Info("using Supabase as data backend",
			zap.String("supabase_url", cfg.SupabaseURL),
		)
		supabaseClient := supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			cb,
			resilienceCfg,
			logger,
		)
		onboardingSvc = service.NewOnboardingService(supabaseClient, supabaseClient, metrics, logger)
		authSvc = service.NewAuthService(supabaseClient, cfg.JWTSecret, cfg.JWTAccessTTL, logger)
		reader = supabaseClient
		decider = supabaseClient
	} else {
		logger.Warn("Supabase not configured, serving seeded demo data; onboarding routes unavailable")
		demoRepo := fixtures.New(cfg.DemoSeed)
		reader = demoRepo

		operators, err := fixtures.NewOperators(demoOperatorEmail, demoOperatorPassword)
		if err != nil {
			logger.Fatal("failed to seed demo operator", zap.Error(err))
		}
		authSvc = service.NewAuthService(operators, cfg.JWTSecret, cfg.JWTAccessTTL, logger)
		logger.Info("demo operator available", zap.String("email", demoOperatorEmail))
	}

	// --- Services ---
	boSvc := service.NewBackofficeService(reader, decider, caseListCache, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(onboardingSvc, boSvc, authSvc, metrics, cfg.AllowedOrigins, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
