// Package service — OnboardingService drives the KYB onboarding workflow:
// per-step validation, the step transition engine, and finalization.
//
// The workflow is client-driven. The server keeps no session between
// steps; every request carries the identifiers returned by the previous
// one, and every handler below is a pure state-transition function over
// the external case store.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/larimar/onboarding-bfa-go/internal/domain"
	"github.com/larimar/onboarding-bfa-go/internal/infra/observability"
	"github.com/larimar/onboarding-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service/onboarding")

// OnboardingService applies onboarding step submissions.
type OnboardingService struct {
	store    port.CaseStore
	identity port.IdentityProvider
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewOnboardingService creates the onboarding service with all
// dependencies injected.
func NewOnboardingService(store port.CaseStore, identity port.IdentityProvider, metrics *observability.Metrics, logger *zap.Logger) *OnboardingService {
	return &OnboardingService{
		store:    store,
		identity: identity,
		metrics:  metrics,
		logger:   logger,
	}
}

// Apply executes one onboarding step: validate, persist, and return the
// identifiers the client carries into the next step.
//
// Persistence errors never leak raw: unique violations map to the same
// conflict shape as the pre-check (the store is the authority in the
// check-then-write race), everything else becomes a generic store error.
func (s *OnboardingService) Apply(ctx context.Context, req *domain.StepRequest, submittedBy string) (*domain.StepResult, error) {
	ctx, span := tracer.Start(ctx, "Onboarding.Apply")
	defer span.End()
	span.SetAttributes(attribute.String("onboarding.step", req.Step))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("step_"+req.Step, time.Since(start))
	}()

	if err := s.validateStep(ctx, req); err != nil {
		s.metrics.IncrStep(req.Step, "invalid")
		return nil, err
	}

	var (
		res *domain.StepResult
		err error
	)
	switch req.Step {
	case domain.StepCompanyInfo:
		res, err = s.applyCompanyInfo(ctx, req, submittedBy)
	case domain.StepCompanyAddress:
		res, err = s.applyCompanyAddress(ctx, req, submittedBy)
	case domain.StepOwner:
		res, err = s.applyOwner(ctx, req, submittedBy)
	case domain.StepExpectedActivity:
		res, err = s.applyExpectedActivity(ctx, req, submittedBy)
	case domain.StepFollowUp:
		res, err = s.applyFollowUp(ctx, req)
	default:
		// validateStep already rejected unknown steps; keep the guard.
		return nil, &domain.ErrValidation{Field: "step", Message: "unknown step: " + req.Step}
	}

	switch {
	case err == nil:
		s.metrics.IncrStep(req.Step, "success")
	case isConflict(err):
		s.metrics.IncrStep(req.Step, "conflict")
	default:
		s.metrics.IncrStep(req.Step, "error")
	}
	return res, err
}

// applyCompanyInfo persists the company and then the case. Company first:
// the case row needs the resolved company id as a foreign key. The two
// writes are not atomic; a crash in between leaves a company without a
// case, and the client resumes by re-submitting with the companyId it
// already holds.
func (s *OnboardingService) applyCompanyInfo(ctx context.Context, req *domain.StepRequest, submittedBy string) (*domain.StepResult, error) {
	ctx, span := tracer.Start(ctx, "Onboarding.companyInfo")
	defer span.End()

	data := req.Data
	normalized := normalizeRNC(data.RNC)

	if err := s.checkRNCAvailable(ctx, data.RNC, normalized, req.CompanyID); err != nil {
		return nil, err
	}

	companyID := req.CompanyID
	if companyID != "" {
		patch := map[string]any{
			"name":           data.CompanyName,
			"rnc":            data.RNC,
			"rnc_normalized": normalized,
			"country":        data.Country,
			"phone":          data.Phone,
			"industry":       data.Industry,
		}
		if err := s.store.UpdateCompany(ctx, companyID, patch); err != nil {
			return nil, s.storeError(ctx, "update company", err)
		}
	} else {
		id, err := s.store.InsertCompany(ctx, &domain.Company{
			Name:          data.CompanyName,
			RNC:           data.RNC,
			RNCNormalized: normalized,
			Country:       data.Country,
			Phone:         data.Phone,
			Industry:      data.Industry,
		}, submittedBy)
		if err != nil {
			return nil, s.storeError(ctx, "insert company", err)
		}
		companyID = id
	}

	caseID := req.CaseID
	if caseID != "" {
		if err := s.store.TouchCase(ctx, caseID); err != nil {
			return nil, s.storeError(ctx, "touch case", err)
		}
	} else {
		id, err := s.store.InsertCase(ctx, companyID, submittedBy)
		if err != nil {
			return nil, s.storeError(ctx, "insert case", err)
		}
		caseID = id
	}

	return &domain.StepResult{CaseID: caseID, CompanyID: companyID}, nil
}

// applyCompanyAddress appends one address row. Re-submissions accumulate
// rows on purpose; addresses are never updated in place.
func (s *OnboardingService) applyCompanyAddress(ctx context.Context, req *domain.StepRequest, submittedBy string) (*domain.StepResult, error) {
	ctx, span := tracer.Start(ctx, "Onboarding.companyAddress")
	defer span.End()

	_, err := s.store.InsertAddress(ctx, &domain.CompanyAddress{
		CompanyID:  req.CompanyID,
		Line:       req.Data.AddressLine,
		City:       req.Data.City,
		Province:   req.Data.Province,
		PostalCode: req.Data.PostalCode,
		Country:    req.Data.Country,
	}, submittedBy)
	if err != nil {
		return nil, s.storeError(ctx, "insert address", err)
	}

	return &domain.StepResult{CaseID: req.CaseID, CompanyID: req.CompanyID}, nil
}

// applyOwner upserts the person, then the (company, person) ownership row.
// A duplicate-key result from the ownership fallback path means the row
// already represents the desired state, so it counts as success.
func (s *OnboardingService) applyOwner(ctx context.Context, req *domain.StepRequest, submittedBy string) (*domain.StepResult, error) {
	ctx, span := tracer.Start(ctx, "Onboarding.owner")
	defer span.End()

	data := req.Data
	personID := req.PersonID
	if personID != "" {
		patch := map[string]any{
			"full_name":       data.OwnerName,
			"document_number": normalizeDoc(data.DocumentNumber),
			"pep":             data.PEP,
		}
		if data.LivenessScore != nil {
			patch["liveness_score"] = *data.LivenessScore
		}
		if err := s.store.UpdatePerson(ctx, personID, patch); err != nil {
			return nil, s.storeError(ctx, "update person", err)
		}
	} else {
		id, err := s.store.InsertPerson(ctx, &domain.Person{
			FullName:       data.OwnerName,
			DocumentNumber: normalizeDoc(data.DocumentNumber),
			PEP:            data.PEP,
			LivenessScore:  data.LivenessScore,
		}, submittedBy)
		if err != nil {
			return nil, s.storeError(ctx, "insert person", err)
		}
		personID = id
	}

	err := s.store.UpsertOwnership(ctx, &domain.Ownership{
		CompanyID:    req.CompanyID,
		PersonID:     personID,
		OwnershipPct: data.OwnershipPct,
		IsUBO:        data.IsUBO,
	}, submittedBy)
	if err != nil {
		var dup *domain.ErrDuplicate
		if errors.As(err, &dup) {
			s.logger.Debug("ownership row already exists, treating as success",
				zap.String("company_id", req.CompanyID),
				zap.String("person_id", personID),
			)
		} else {
			return nil, s.storeError(ctx, "upsert ownership", err)
		}
	}

	return &domain.StepResult{CaseID: req.CaseID, CompanyID: req.CompanyID, PersonID: personID}, nil
}

// applyExpectedActivity appends one activity row (append-only, like
// addresses).
func (s *OnboardingService) applyExpectedActivity(ctx context.Context, req *domain.StepRequest, submittedBy string) (*domain.StepResult, error) {
	ctx, span := tracer.Start(ctx, "Onboarding.expectedActivity")
	defer span.End()

	_, err := s.store.InsertActivity(ctx, &domain.ExpectedActivity{
		CompanyID:     req.CompanyID,
		MonthlyVolume: req.Data.MonthlyVolume,
		Countries:     req.Data.Countries,
		FundingSource: req.Data.FundingSource,
		Notes:         req.Data.Notes,
	}, submittedBy)
	if err != nil {
		return nil, s.storeError(ctx, "insert activity", err)
	}

	return &domain.StepResult{CaseID: req.CaseID, CompanyID: req.CompanyID}, nil
}

// applyFollowUp is the terminal step: the case flips to pending_review,
// then account provisioning runs as a best-effort side effect. The case
// transition is the step's contract; a provisioning failure is logged and
// swallowed, never surfaced.
func (s *OnboardingService) applyFollowUp(ctx context.Context, req *domain.StepRequest) (*domain.StepResult, error) {
	ctx, span := tracer.Start(ctx, "Onboarding.followUp")
	defer span.End()

	if err := s.store.UpdateCaseStatus(ctx, req.CaseID, domain.CaseStatusPendingReview, "", req.Data.Notes); err != nil {
		return nil, s.storeError(ctx, "update case status", err)
	}

	if req.CompanyID != "" {
		if _, err := s.ProvisionAccount(ctx, req.CompanyID); err != nil {
			s.metrics.IncrProvisioning("error")
			s.logger.Error("account provisioning failed, continuing",
				zap.String("case_id", req.CaseID),
				zap.String("company_id", req.CompanyID),
				zap.Error(err),
			)
		}
	}

	return &domain.StepResult{CaseID: req.CaseID, CompanyID: req.CompanyID}, nil
}

// storeError maps a persistence failure. Unique violations become the
// same conflict the pre-check produces, a miss on a row the request named
// keeps its not-found identity, and anything else is logged in full and
// replaced by the generic store error.
func (s *OnboardingService) storeError(ctx context.Context, op string, err error) error {
	var dup *domain.ErrDuplicate
	if errors.As(err, &dup) {
		s.metrics.IncrConflict("rnc")
		return &domain.ErrConflict{
			Message:   "RNC ya registrado",
			Conflicts: map[string]string{"rnc": "RNC ya registrado"},
		}
	}

	var notFound *domain.ErrNotFound
	if errors.As(err, &notFound) {
		return err
	}

	s.metrics.IncrStoreError(op)
	s.logger.Error("store operation failed",
		zap.String("op", op),
		zap.Error(err),
	)
	return &domain.ErrStore{Op: op, Err: err}
}

func isConflict(err error) bool {
	var conflict *domain.ErrConflict
	return errors.As(err, &conflict)
}
