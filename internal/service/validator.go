package service

import (
	"context"
	"errors"
	"strings"

	"github.com/larimar/onboarding-bfa-go/internal/domain"

	"go.uber.org/zap"
)

// Step pre-condition checks. Pure besides the duplicate lookups against
// the store and the identity provider; nothing here writes.

// validateStep enforces the per-step required fields and identifiers.
// A missing upstream identifier is a client error: the frontend failed to
// carry forward what the previous step returned.
func (s *OnboardingService) validateStep(ctx context.Context, req *domain.StepRequest) error {
	if !domain.KnownStep(req.Step) {
		return &domain.ErrValidation{Field: "step", Message: "unknown step: " + req.Step}
	}

	switch req.Step {
	case domain.StepCompanyInfo:
		if strings.TrimSpace(req.Data.CompanyName) == "" {
			return &domain.ErrValidation{Field: "companyName", Message: "missing companyName"}
		}
		if strings.TrimSpace(req.Data.RNC) == "" {
			return &domain.ErrValidation{Field: "rnc", Message: "missing rnc"}
		}

	case domain.StepCompanyAddress, domain.StepExpectedActivity:
		if req.CompanyID == "" {
			return &domain.ErrValidation{Field: "companyId", Message: "missing companyId"}
		}

	case domain.StepOwner:
		if req.CompanyID == "" {
			return &domain.ErrValidation{Field: "companyId", Message: "missing companyId"}
		}
		if strings.TrimSpace(req.Data.OwnerName) == "" {
			return &domain.ErrValidation{Field: "ownerName", Message: "missing ownerName"}
		}
		if req.Data.OwnershipPct < 0 || req.Data.OwnershipPct > 100 {
			return &domain.ErrValidation{Field: "ownershipPct", Message: "ownershipPct must be between 0 and 100"}
		}

	case domain.StepFollowUp:
		if req.CaseID == "" {
			return &domain.ErrValidation{Field: "caseId", Message: "missing caseId"}
		}
	}
	return nil
}

// CheckDuplicates serves POST /v1/onboarding/validate: is this email/RNC
// still available? Both checks run and the conflicts map carries every
// offending field, so the client highlights all of them at once.
//
// This is a courtesy pre-check. The write path re-detects duplicates from
// the store's own unique constraint; a concurrent registration between
// this check and the write is handled there.
func (s *OnboardingService) CheckDuplicates(ctx context.Context, req *domain.ValidateRequest) error {
	ctx, span := tracer.Start(ctx, "Onboarding.CheckDuplicates")
	defer span.End()

	conflicts := map[string]string{}

	if req.RNC != "" {
		if err := s.checkRNCAvailable(ctx, req.RNC, normalizeRNC(req.RNC), ""); err != nil {
			var conflict *domain.ErrConflict
			if !errors.As(err, &conflict) {
				return err
			}
			for k, v := range conflict.Conflicts {
				conflicts[k] = v
			}
		}
	}

	if req.Email != "" {
		user, err := s.identity.GetUserByEmail(ctx, req.Email)
		if err != nil {
			s.logger.Error("identity lookup failed", zap.Error(err))
			return &domain.ErrStore{Op: "identity lookup", Err: err}
		}
		if user != nil {
			s.metrics.IncrConflict("email")
			conflicts["email"] = "Email ya registrado"
		}
	}

	if len(conflicts) > 0 {
		return &domain.ErrConflict{
			Message:   conflictMessage(conflicts),
			Conflicts: conflicts,
		}
	}
	return nil
}

// checkRNCAvailable queries the store for the exact submitted value and
// then the digits-only form, so "1-31-24567-8" collides with "131245678"
// in either direction. The two lookups hit different columns: a digits-only
// submission still misses the display column when the stored value is
// punctuated, so the normalized lookup runs whenever the first one missed.
// A match on the caller's own company is not a conflict (company_info
// re-submissions update in place).
func (s *OnboardingService) checkRNCAvailable(ctx context.Context, raw, normalized, ownCompanyID string) error {
	match, err := s.store.GetCompanyByRNC(ctx, raw)
	if err != nil {
		return s.storeError(ctx, "rnc lookup", err)
	}
	if match == nil && normalized != "" {
		match, err = s.store.GetCompanyByRNCNormalized(ctx, normalized)
		if err != nil {
			return s.storeError(ctx, "rnc lookup", err)
		}
	}

	if match != nil && match.ID != ownCompanyID {
		s.metrics.IncrConflict("rnc")
		return &domain.ErrConflict{
			Message:   "RNC ya registrado",
			Conflicts: map[string]string{"rnc": "RNC ya registrado"},
		}
	}
	return nil
}

// Signup is the create_account identity step: look the email up, then
// sign the user up. An AlreadyExists from either path produces the same
// conflict shape as the RNC check for uniform client handling.
func (s *OnboardingService) Signup(ctx context.Context, req *domain.SignupRequest) (*domain.SignupResponse, error) {
	ctx, span := tracer.Start(ctx, "Onboarding.Signup")
	defer span.End()

	if strings.TrimSpace(req.Email) == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "missing email"}
	}
	if len(req.Password) < 8 {
		return nil, &domain.ErrValidation{Field: "password", Message: "La contraseña debe tener al menos 8 caracteres"}
	}

	existing, err := s.identity.GetUserByEmail(ctx, req.Email)
	if err != nil {
		s.logger.Error("identity lookup failed", zap.Error(err))
		return nil, &domain.ErrStore{Op: "identity lookup", Err: err}
	}
	if existing != nil {
		s.metrics.IncrConflict("email")
		return nil, emailConflict()
	}

	session, err := s.identity.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		// The provider's own duplicate signal wins over the pre-check,
		// same as the RNC write path.
		var dup *domain.ErrDuplicate
		if errors.As(err, &dup) {
			s.metrics.IncrConflict("email")
			return nil, emailConflict()
		}
		s.logger.Error("identity signup failed", zap.Error(err))
		return nil, &domain.ErrStore{Op: "identity signup", Err: err}
	}

	return &domain.SignupResponse{
		UserID:  session.UserID,
		Email:   req.Email,
		Message: "Cuenta creada con éxito",
	}, nil
}

func emailConflict() *domain.ErrConflict {
	return &domain.ErrConflict{
		Message:   "Email ya registrado",
		Conflicts: map[string]string{"email": "Email ya registrado"},
	}
}

func conflictMessage(conflicts map[string]string) string {
	if len(conflicts) == 1 {
		for _, msg := range conflicts {
			return msg
		}
	}
	return "RNC y email ya registrados"
}
