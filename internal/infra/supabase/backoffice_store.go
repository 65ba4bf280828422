package supabase

import (
	"context"
	"fmt"
	"net/url"

	"github.com/larimar/onboarding-bfa-go/internal/domain"
)

// ============================================================
// BackofficeReader / OperatorStore implementation
// ============================================================

// caseListRow embeds the company via PostgREST resource embedding so the
// list view needs a single round-trip.
type caseListRow struct {
	domain.Case
	Company *struct {
		Name string `json:"name"`
		RNC  string `json:"rnc"`
	} `json:"company"`
}

func (c *Client) ListCases(ctx context.Context, status string, page, pageSize int) ([]domain.CaseSummary, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListCases")
	defer span.End()

	offset := (page - 1) * pageSize
	path := fmt.Sprintf("onboarding_cases?select=*,company:companies(name,rnc)&order=updated_at.desc&limit=%d&offset=%d", pageSize, offset)
	if status != "" {
		path += "&status=eq." + url.QueryEscape(status)
	}

	body, err := c.getRows(ctx, path)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[caseListRow](body)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.CaseSummary, 0, len(rows))
	for _, r := range rows {
		s := domain.CaseSummary{Case: r.Case}
		if r.Company != nil {
			s.CompanyName = r.Company.Name
			s.CompanyRNC = r.Company.RNC
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

func (c *Client) ListAddresses(ctx context.Context, companyID string) ([]domain.CompanyAddress, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListAddresses")
	defer span.End()

	path := fmt.Sprintf("company_addresses?company_id=eq.%s&order=created_at.asc", url.QueryEscape(companyID))
	body, err := c.getRows(ctx, path)
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.CompanyAddress](body)
}

// ownerRow embeds the person into the ownership row.
type ownerRow struct {
	domain.Ownership
	Person *domain.Person `json:"person"`
}

func (c *Client) ListOwners(ctx context.Context, companyID string) ([]domain.OwnerDetail, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListOwners")
	defer span.End()

	path := fmt.Sprintf("ownerships?select=*,person:persons(*)&company_id=eq.%s", url.QueryEscape(companyID))
	body, err := c.getRows(ctx, path)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[ownerRow](body)
	if err != nil {
		return nil, err
	}

	owners := make([]domain.OwnerDetail, 0, len(rows))
	for _, r := range rows {
		owners = append(owners, domain.OwnerDetail{Ownership: r.Ownership, Person: r.Person})
	}
	return owners, nil
}

func (c *Client) ListActivities(ctx context.Context, companyID string) ([]domain.ExpectedActivity, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListActivities")
	defer span.End()

	path := fmt.Sprintf("expected_activities?company_id=eq.%s&order=created_at.asc", url.QueryEscape(companyID))
	body, err := c.getRows(ctx, path)
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.ExpectedActivity](body)
}

func (c *Client) ListDocuments(ctx context.Context, companyID string) ([]domain.Document, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListDocuments")
	defer span.End()

	path := fmt.Sprintf("company_documents?company_id=eq.%s&order=created_at.asc", url.QueryEscape(companyID))
	body, err := c.getRows(ctx, path)
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.Document](body)
}

// --- Operators ---

func (c *Client) GetOperatorByEmail(ctx context.Context, email string) (*domain.Operator, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetOperatorByEmail")
	defer span.End()

	path := fmt.Sprintf("backoffice_operators?email=eq.%s&limit=1", url.QueryEscape(email))
	body, err := c.getRows(ctx, path)
	if err != nil {
		return nil, err
	}
	return firstRow[domain.Operator](body)
}
