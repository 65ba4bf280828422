// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/larimar/onboarding-bfa-go/internal/domain"
)

// CaseStore defines all write/read operations the onboarding workflow
// needs against the persistent store. Implemented by the Supabase adapter
// (or any other persistence layer). Implementations must map raw driver
// errors to the domain error types: unique-constraint violations become
// *domain.ErrDuplicate, missing rows *domain.ErrNotFound; unknown-column
// errors are absorbed by the adapter's own schema-compatibility shim and
// never cross this boundary.
type CaseStore interface {
	// Companies
	InsertCompany(ctx context.Context, com *domain.Company, createdBy string) (string, error)
	UpdateCompany(ctx context.Context, companyID string, patch map[string]any) error
	GetCompany(ctx context.Context, companyID string) (*domain.Company, error)
	GetCompanyByRNC(ctx context.Context, rnc string) (*domain.Company, error)
	GetCompanyByRNCNormalized(ctx context.Context, digits string) (*domain.Company, error)

	// Cases
	InsertCase(ctx context.Context, companyID, createdBy string) (string, error)
	GetCase(ctx context.Context, caseID string) (*domain.Case, error)
	TouchCase(ctx context.Context, caseID string) error
	UpdateCaseStatus(ctx context.Context, caseID, status, reviewer, reason string) error

	// Addresses (append-only)
	InsertAddress(ctx context.Context, addr *domain.CompanyAddress, createdBy string) (string, error)

	// Beneficial owners
	InsertPerson(ctx context.Context, p *domain.Person, createdBy string) (string, error)
	UpdatePerson(ctx context.Context, personID string, patch map[string]any) error
	UpsertOwnership(ctx context.Context, own *domain.Ownership, createdBy string) error

	// Expected activity (append-only)
	InsertActivity(ctx context.Context, act *domain.ExpectedActivity, createdBy string) (string, error)

	// Accounts
	GetAccountByCompany(ctx context.Context, companyID string) (*domain.Account, error)
	InsertAccount(ctx context.Context, acc *domain.Account) (string, error)

	// Documents
	RegisterDocument(ctx context.Context, doc *domain.Document, createdBy string) (string, error)
}

// BackofficeReader is the read side consumed by the backoffice dashboard.
// Implemented by the Supabase adapter in production and by the seeded
// fixtures repository in demo mode. The detail view fans out over these
// methods concurrently, so implementations must be safe for concurrent use.
type BackofficeReader interface {
	ListCases(ctx context.Context, status string, page, pageSize int) ([]domain.CaseSummary, error)
	GetCase(ctx context.Context, caseID string) (*domain.Case, error)
	GetCompany(ctx context.Context, companyID string) (*domain.Company, error)
	ListAddresses(ctx context.Context, companyID string) ([]domain.CompanyAddress, error)
	ListOwners(ctx context.Context, companyID string) ([]domain.OwnerDetail, error)
	ListActivities(ctx context.Context, companyID string) ([]domain.ExpectedActivity, error)
	ListDocuments(ctx context.Context, companyID string) ([]domain.Document, error)
	GetAccountByCompany(ctx context.Context, companyID string) (*domain.Account, error)
}

// CaseDecider records a backoffice review decision. The fixtures repository
// does not implement it (demo data is read-only), so it may be nil when the
// store is not configured.
type CaseDecider interface {
	UpdateCaseStatus(ctx context.Context, caseID, status, reviewer, reason string) error
}

// IdentityProvider is the external auth system (Supabase GoTrue) consumed
// by the create_account step.
type IdentityProvider interface {
	GetUserByEmail(ctx context.Context, email string) (*domain.IdentityUser, error)
	SignUp(ctx context.Context, email, password string) (*domain.IdentitySession, error)
}

// OperatorStore resolves backoffice operators for login. A missing
// operator is (nil, nil), not an error, so login can answer unknown email
// and wrong password identically.
type OperatorStore interface {
	GetOperatorByEmail(ctx context.Context, email string) (*domain.Operator, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	DeletePrefix(prefix string)
}
