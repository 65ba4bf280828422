package service

import (
	"context"
	"strings"

	"github.com/larimar/onboarding-bfa-go/internal/domain"
)

// RegisterDocument records that a KYB document was uploaded for a
// company (optionally a specific owner). The upload itself happens
// against external blob storage; only the metadata registration lands in
// the case store.
func (s *OnboardingService) RegisterDocument(ctx context.Context, req *domain.DocumentRequest, submittedBy string) (*domain.Document, error) {
	ctx, span := tracer.Start(ctx, "Onboarding.RegisterDocument")
	defer span.End()

	if req.CompanyID == "" {
		return nil, &domain.ErrValidation{Field: "companyId", Message: "missing companyId"}
	}
	if strings.TrimSpace(req.Kind) == "" {
		return nil, &domain.ErrValidation{Field: "kind", Message: "missing kind"}
	}

	doc := &domain.Document{
		CompanyID:   req.CompanyID,
		PersonID:    req.PersonID,
		Kind:        req.Kind,
		FileName:    req.FileName,
		StoragePath: req.StoragePath,
	}
	id, err := s.store.RegisterDocument(ctx, doc, submittedBy)
	if err != nil {
		return nil, s.storeError(ctx, "register document", err)
	}
	doc.ID = id
	return doc, nil
}
