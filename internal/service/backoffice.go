package service

import (
	"context"
	"fmt"
	"time"

	"github.com/larimar/onboarding-bfa-go/internal/domain"
	"github.com/larimar/onboarding-bfa-go/internal/infra/observability"
	"github.com/larimar/onboarding-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var boTracer = otel.Tracer("service/backoffice")

// BackofficeService serves the operations dashboard: case queue, case
// detail, and review decisions. Reads go through the injected reader
// (Supabase in production, seeded fixtures in demo mode); decisions need
// a decider and are unavailable when it is nil.
type BackofficeService struct {
	reader  port.BackofficeReader
	decider port.CaseDecider
	cache   port.Cache[[]domain.CaseSummary]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewBackofficeService creates the backoffice service.
func NewBackofficeService(reader port.BackofficeReader, decider port.CaseDecider, cache port.Cache[[]domain.CaseSummary], metrics *observability.Metrics, logger *zap.Logger) *BackofficeService {
	return &BackofficeService{
		reader:  reader,
		decider: decider,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}
}

// ListCases returns a page of the case queue. The dashboard polls this,
// so results are cached briefly.
func (b *BackofficeService) ListCases(ctx context.Context, status string, page, pageSize int) ([]domain.CaseSummary, error) {
	ctx, span := boTracer.Start(ctx, "Backoffice.ListCases")
	defer span.End()

	cacheKey := fmt.Sprintf("cases:%s:%d:%d", status, page, pageSize)
	if cached, ok := b.cache.Get(cacheKey); ok {
		b.metrics.IncrCacheHit("cases")
		return cached, nil
	}
	b.metrics.IncrCacheMiss("cases")

	cases, err := b.reader.ListCases(ctx, status, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	for i := range cases {
		cases[i].CompanyRNC = formatRNC(cases[i].CompanyRNC)
	}
	b.cache.Set(cacheKey, cases)
	return cases, nil
}

// GetCaseDetail aggregates everything the detail view shows. The case row
// resolves first (it carries the company id); the six per-company
// collections are then fetched concurrently.
func (b *BackofficeService) GetCaseDetail(ctx context.Context, caseID string) (*domain.CaseDetail, error) {
	ctx, span := boTracer.Start(ctx, "Backoffice.GetCaseDetail")
	defer span.End()
	span.SetAttributes(attribute.String("case.id", caseID))

	start := time.Now()
	defer func() {
		b.metrics.RecordRequestDuration("case_detail", time.Since(start))
	}()

	cs, err := b.reader.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	detail := &domain.CaseDetail{Case: *cs}
	if cs.CompanyID == "" {
		return detail, nil
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		company, err := b.reader.GetCompany(gCtx, cs.CompanyID)
		if err != nil {
			return fmt.Errorf("company: %w", err)
		}
		detail.Company = company
		return nil
	})
	g.Go(func() error {
		addrs, err := b.reader.ListAddresses(gCtx, cs.CompanyID)
		if err != nil {
			return fmt.Errorf("addresses: %w", err)
		}
		detail.Addresses = addrs
		return nil
	})
	g.Go(func() error {
		owners, err := b.reader.ListOwners(gCtx, cs.CompanyID)
		if err != nil {
			return fmt.Errorf("owners: %w", err)
		}
		detail.Owners = owners
		return nil
	})
	g.Go(func() error {
		acts, err := b.reader.ListActivities(gCtx, cs.CompanyID)
		if err != nil {
			return fmt.Errorf("activities: %w", err)
		}
		detail.Activities = acts
		return nil
	})
	g.Go(func() error {
		docs, err := b.reader.ListDocuments(gCtx, cs.CompanyID)
		if err != nil {
			return fmt.Errorf("documents: %w", err)
		}
		detail.Documents = docs
		return nil
	})
	g.Go(func() error {
		acc, err := b.reader.GetAccountByCompany(gCtx, cs.CompanyID)
		if err != nil {
			return fmt.Errorf("account: %w", err)
		}
		detail.Account = acc
		return nil
	})

	if err := g.Wait(); err != nil {
		b.logger.Error("case detail aggregation failed",
			zap.String("case_id", caseID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("case detail: %w", err)
	}
	return detail, nil
}

// Decide records a review decision on a pending case. Only cases in
// pending_review can be decided; terminal states are reached, not erased.
func (b *BackofficeService) Decide(ctx context.Context, caseID, reviewer string, req *domain.DecisionRequest) error {
	ctx, span := boTracer.Start(ctx, "Backoffice.Decide")
	defer span.End()

	if b.decider == nil {
		return &domain.ErrForbidden{Action: "decisions unavailable in demo mode"}
	}
	if req.Decision != domain.CaseStatusApproved && req.Decision != domain.CaseStatusRejected {
		return &domain.ErrValidation{Field: "decision", Message: "decision must be approved or rejected"}
	}

	cs, err := b.reader.GetCase(ctx, caseID)
	if err != nil {
		return err
	}
	if cs.Status != domain.CaseStatusPendingReview {
		return &domain.ErrValidation{Field: "caseId", Message: "case is not pending review"}
	}

	if err := b.decider.UpdateCaseStatus(ctx, caseID, req.Decision, reviewer, req.Reason); err != nil {
		b.metrics.IncrStoreError("case decision")
		b.logger.Error("case decision failed",
			zap.String("case_id", caseID),
			zap.Error(err),
		)
		return &domain.ErrStore{Op: "case decision", Err: err}
	}

	// The decision changes the queue, drop the cached listings.
	b.cache.DeletePrefix("cases:")

	b.logger.Info("case decided",
		zap.String("case_id", caseID),
		zap.String("decision", req.Decision),
		zap.String("reviewer", reviewer),
	)
	return nil
}
