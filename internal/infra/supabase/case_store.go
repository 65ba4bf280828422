package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/larimar/onboarding-bfa-go/internal/domain"

	"github.com/google/uuid"
)

// ============================================================
// CaseStore implementation — onboarding CRUD via PostgREST
// ============================================================

// --- Companies ---

func (c *Client) InsertCompany(ctx context.Context, com *domain.Company, createdBy string) (string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertCompany")
	defer span.End()

	id := uuid.New().String()
	row := map[string]any{
		"id":             id,
		"name":           com.Name,
		"rnc":            com.RNC,
		"rnc_normalized": com.RNCNormalized,
		"country":        com.Country,
		"phone":          com.Phone,
		"industry":       com.Industry,
	}
	withAttribution(row, createdBy)

	if _, err := c.insertRow(ctx, "companies", row, attributionPolicy); err != nil {
		return "", err
	}
	return id, nil
}

func (c *Client) UpdateCompany(ctx context.Context, companyID string, patch map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateCompany")
	defer span.End()

	path := fmt.Sprintf("companies?id=eq.%s", url.QueryEscape(companyID))
	return rowNotFound(c.patchRow(ctx, path, patch, fieldPolicy{}), "company", companyID)
}

func (c *Client) GetCompany(ctx context.Context, companyID string) (*domain.Company, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCompany")
	defer span.End()

	path := fmt.Sprintf("companies?id=eq.%s&limit=1", url.QueryEscape(companyID))
	body, err := c.getRows(ctx, path)
	if err != nil {
		return nil, err
	}
	return firstRow[domain.Company](body)
}

// GetCompanyByRNC matches the RNC exactly as stored (display form).
// Not-found is not an error for duplicate pre-checks.
func (c *Client) GetCompanyByRNC(ctx context.Context, rnc string) (*domain.Company, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCompanyByRNC")
	defer span.End()

	path := fmt.Sprintf("companies?rnc=eq.%s&limit=1", url.QueryEscape(rnc))
	body, err := c.getRows(ctx, path)
	if err != nil {
		return nil, err
	}
	return firstRow[domain.Company](body)
}

// GetCompanyByRNCNormalized matches on the digits-only canonical form.
func (c *Client) GetCompanyByRNCNormalized(ctx context.Context, digits string) (*domain.Company, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCompanyByRNCNormalized")
	defer span.End()

	path := fmt.Sprintf("companies?rnc_normalized=eq.%s&limit=1", url.QueryEscape(digits))
	body, err := c.getRows(ctx, path)
	if err != nil {
		return nil, err
	}
	return firstRow[domain.Company](body)
}

// --- Cases ---

func (c *Client) InsertCase(ctx context.Context, companyID, createdBy string) (string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertCase")
	defer span.End()

	id := uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339)
	row := map[string]any{
		"id":         id,
		"company_id": companyID,
		"status":     domain.CaseStatusCollecting,
		"created_at": now,
		"updated_at": now,
	}
	withAttribution(row, createdBy)

	if _, err := c.insertRow(ctx, "onboarding_cases", row, attributionPolicy); err != nil {
		return "", err
	}
	return id, nil
}

func (c *Client) GetCase(ctx context.Context, caseID string) (*domain.Case, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCase")
	defer span.End()

	path := fmt.Sprintf("onboarding_cases?id=eq.%s&limit=1", url.QueryEscape(caseID))
	body, err := c.getRows(ctx, path)
	if err != nil {
		return nil, err
	}
	cs, err := firstRow[domain.Case](body)
	if err != nil {
		return nil, err
	}
	if cs == nil {
		return nil, &domain.ErrNotFound{Resource: "case", ID: caseID}
	}
	return cs, nil
}

func (c *Client) TouchCase(ctx context.Context, caseID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.TouchCase")
	defer span.End()

	path := fmt.Sprintf("onboarding_cases?id=eq.%s", url.QueryEscape(caseID))
	patch := map[string]any{"updated_at": time.Now().UTC().Format(time.RFC3339)}
	return rowNotFound(c.patchRow(ctx, path, patch, fieldPolicy{}), "case", caseID)
}

func (c *Client) UpdateCaseStatus(ctx context.Context, caseID, status, reviewer, reason string) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateCaseStatus")
	defer span.End()

	path := fmt.Sprintf("onboarding_cases?id=eq.%s", url.QueryEscape(caseID))
	patch := map[string]any{
		"status":     status,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}
	if reviewer != "" {
		patch["reviewer"] = reviewer
	}
	if reason != "" {
		patch["decision_reason"] = reason
	}
	return rowNotFound(c.patchRow(ctx, path, patch, fieldPolicy{}), "case", caseID)
}

// rowNotFound rewrites a table-level miss from the strict patch into the
// same shape the readers report, so callers see one not-found identity
// per resource regardless of which operation tripped it.
func rowNotFound(err error, resource, id string) error {
	var notFound *domain.ErrNotFound
	if errors.As(err, &notFound) {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	return err
}

// --- Addresses ---

func (c *Client) InsertAddress(ctx context.Context, addr *domain.CompanyAddress, createdBy string) (string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertAddress")
	defer span.End()

	id := uuid.New().String()
	row := map[string]any{
		"id":          id,
		"company_id":  addr.CompanyID,
		"line":        addr.Line,
		"city":        addr.City,
		"province":    addr.Province,
		"postal_code": addr.PostalCode,
		"country":     addr.Country,
	}
	withAttribution(row, createdBy)

	if _, err := c.insertRow(ctx, "company_addresses", row, attributionPolicy); err != nil {
		return "", err
	}
	return id, nil
}

// --- Beneficial owners ---

func (c *Client) InsertPerson(ctx context.Context, p *domain.Person, createdBy string) (string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertPerson")
	defer span.End()

	id := uuid.New().String()
	row := map[string]any{
		"id":              id,
		"full_name":       p.FullName,
		"document_number": p.DocumentNumber,
		"pep":             p.PEP,
	}
	if p.LivenessScore != nil {
		row["liveness_score"] = *p.LivenessScore
	}
	withAttribution(row, createdBy)

	if _, err := c.insertRow(ctx, "persons", row, attributionPolicy); err != nil {
		return "", err
	}
	return id, nil
}

func (c *Client) UpdatePerson(ctx context.Context, personID string, patch map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdatePerson")
	defer span.End()

	path := fmt.Sprintf("persons?id=eq.%s", url.QueryEscape(personID))
	return rowNotFound(c.patchRow(ctx, path, patch, fieldPolicy{}), "person", personID)
}

// UpsertOwnership writes the (company_id, person_id) ownership row with an
// on_conflict target. Schemas predating the unique constraint reject the
// target; then we fall back to a plain insert and let the caller treat a
// duplicate-key result as convergence.
func (c *Client) UpsertOwnership(ctx context.Context, own *domain.Ownership, createdBy string) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpsertOwnership")
	defer span.End()

	row := map[string]any{
		"id":            uuid.New().String(),
		"company_id":    own.CompanyID,
		"person_id":     own.PersonID,
		"ownership_pct": own.OwnershipPct,
		"is_ubo":        own.IsUBO,
	}
	withAttribution(row, createdBy)

	_, err := c.upsertRow(ctx, "ownerships", "company_id,person_id", row, attributionPolicy)
	if err == nil || !isNoConflictTarget(err) {
		return err
	}

	c.logger.Warn("supabase: ownerships lacks (company_id, person_id) constraint, falling back to plain insert")
	_, err = c.insertRow(ctx, "ownerships", row, attributionPolicy)
	return err
}

// --- Expected activity ---

func (c *Client) InsertActivity(ctx context.Context, act *domain.ExpectedActivity, createdBy string) (string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertActivity")
	defer span.End()

	id := uuid.New().String()
	row := map[string]any{
		"id":             id,
		"company_id":     act.CompanyID,
		"monthly_volume": act.MonthlyVolume,
		"countries":      act.Countries,
		"funding_source": act.FundingSource,
		"notes":          act.Notes,
	}
	withAttribution(row, createdBy)

	if _, err := c.insertRow(ctx, "expected_activities", row, attributionPolicy); err != nil {
		return "", err
	}
	return id, nil
}

// --- Accounts ---

func (c *Client) GetAccountByCompany(ctx context.Context, companyID string) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetAccountByCompany")
	defer span.End()

	path := fmt.Sprintf("accounts?company_id=eq.%s&limit=1", url.QueryEscape(companyID))
	body, err := c.getRows(ctx, path)
	if err != nil {
		return nil, err
	}
	return firstRow[domain.Account](body)
}

func (c *Client) InsertAccount(ctx context.Context, acc *domain.Account) (string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertAccount")
	defer span.End()

	id := uuid.New().String()
	row := map[string]any{
		"id":             id,
		"company_id":     acc.CompanyID,
		"account_number": acc.AccountNumber,
		"account_type":   acc.AccountType,
		"currency":       acc.Currency,
		"balance":        acc.Balance,
		"daily_limit":    acc.DailyLimit,
		"monthly_limit":  acc.MonthlyLimit,
		"status":         acc.Status,
	}

	if _, err := c.insertRow(ctx, "accounts", row, fieldPolicy{}); err != nil {
		return "", err
	}
	return id, nil
}

// --- Documents ---

func (c *Client) RegisterDocument(ctx context.Context, doc *domain.Document, createdBy string) (string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.RegisterDocument")
	defer span.End()

	id := uuid.New().String()
	row := map[string]any{
		"id":         id,
		"company_id": doc.CompanyID,
		"kind":       doc.Kind,
	}
	if doc.PersonID != "" {
		row["person_id"] = doc.PersonID
	}
	if doc.FileName != "" {
		row["file_name"] = doc.FileName
	}
	if doc.StoragePath != "" {
		row["storage_path"] = doc.StoragePath
	}
	withAttribution(row, createdBy)

	if _, err := c.insertRow(ctx, "company_documents", row, attributionPolicy); err != nil {
		return "", err
	}
	return id, nil
}

// withAttribution adds the submitted-by column when the caller is known.
// The column is optional schema-wise; the fieldPolicy strips it on
// deployments that predate the migration.
func withAttribution(row map[string]any, createdBy string) {
	if createdBy != "" {
		row["created_by"] = createdBy
	}
}
