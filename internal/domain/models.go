// Package domain defines the core business entities for the onboarding BFA.
// These models are independent of external services and represent the
// canonical data structures used throughout the service.
package domain

import "time"

// ============================================================
// Onboarding case
// ============================================================

// Case status lifecycle. The onboarding flow only ever moves a case from
// collecting to pending_review; approved/rejected are set by a reviewer
// in the backoffice.
const (
	CaseStatusCollecting    = "collecting"
	CaseStatusPendingReview = "pending_review"
	CaseStatusApproved      = "approved"
	CaseStatusRejected      = "rejected"
)

// Case represents one KYB onboarding attempt.
type Case struct {
	ID             string    `json:"id"`
	CompanyID      string    `json:"company_id,omitempty"`
	Status         string    `json:"status"`
	Reviewer       string    `json:"reviewer,omitempty"`
	DecisionReason string    `json:"decision_reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ============================================================
// Company
// ============================================================

// Company is the legal entity under onboarding.
type Company struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// RNC is stored as submitted (display form). RNCNormalized holds the
	// digits-only canonical form used for uniqueness checks.
	RNC           string `json:"rnc"`
	RNCNormalized string `json:"rnc_normalized"`
	Country       string `json:"country,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Industry      string `json:"industry,omitempty"`
}

// CompanyAddress is one address submission for a company. Address rows are
// append-only: re-submitting the step adds a new row rather than updating.
type CompanyAddress struct {
	ID         string `json:"id"`
	CompanyID  string `json:"company_id"`
	Line       string `json:"line,omitempty"`
	City       string `json:"city,omitempty"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// ============================================================
// Beneficial owner
// ============================================================

// Person is a beneficial owner being onboarded.
type Person struct {
	ID             string   `json:"id"`
	FullName       string   `json:"full_name"`
	DocumentNumber string   `json:"document_number,omitempty"`
	PEP            bool     `json:"pep"`
	LivenessScore  *float64 `json:"liveness_score,omitempty"`
}

// Ownership joins a Company and a Person. At most one row exists per
// (company_id, person_id) pair.
type Ownership struct {
	ID           string  `json:"id"`
	CompanyID    string  `json:"company_id"`
	PersonID     string  `json:"person_id"`
	OwnershipPct float64 `json:"ownership_pct"`
	IsUBO        bool    `json:"is_ubo"`
}

// ============================================================
// Expected activity
// ============================================================

// ExpectedActivity describes the declared transactional profile of a
// company. Append-only, one row per submission.
type ExpectedActivity struct {
	ID            string   `json:"id"`
	CompanyID     string   `json:"company_id"`
	MonthlyVolume string   `json:"monthly_volume,omitempty"`
	Countries     []string `json:"countries,omitempty"`
	FundingSource string   `json:"funding_source,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

// ============================================================
// Account
// ============================================================

// AccountStatusPendingActivation is the initial status of a provisioned
// account; activation happens after the case is approved.
const AccountStatusPendingActivation = "pending_activation"

// Account is the deposit account provisioned at finalization.
type Account struct {
	ID            string  `json:"id"`
	CompanyID     string  `json:"company_id"`
	AccountNumber string  `json:"account_number"`
	AccountType   string  `json:"account_type"`
	Currency      string  `json:"currency"`
	Balance       float64 `json:"balance"`
	DailyLimit    float64 `json:"daily_limit"`
	MonthlyLimit  float64 `json:"monthly_limit"`
	Status        string  `json:"status"`
}

// ============================================================
// Documents
// ============================================================

// Document is the metadata record of an uploaded KYB document. The blob
// itself lives in external storage; we only keep the registration.
type Document struct {
	ID          string `json:"id"`
	CompanyID   string `json:"company_id"`
	PersonID    string `json:"person_id,omitempty"`
	Kind        string `json:"kind"`
	FileName    string `json:"file_name,omitempty"`
	StoragePath string `json:"storage_path,omitempty"`
}

// ============================================================
// Identity (Supabase Auth / GoTrue)
// ============================================================

// IdentityUser is a user record in the external identity provider.
type IdentityUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// IdentitySession is the session issued by the identity provider on sign-up.
type IdentitySession struct {
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// ============================================================
// Backoffice
// ============================================================

// Operator is a backoffice user allowed to review onboarding cases.
type Operator struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	PasswordHash string `json:"password_hash,omitempty"`
}

// CaseSummary is the list view of a case for the backoffice table.
type CaseSummary struct {
	Case        Case   `json:"case"`
	CompanyName string `json:"company_name,omitempty"`
	CompanyRNC  string `json:"company_rnc,omitempty"`
}

// CaseDetail aggregates everything the backoffice shows for one case.
type CaseDetail struct {
	Case       Case               `json:"case"`
	Company    *Company           `json:"company,omitempty"`
	Addresses  []CompanyAddress   `json:"addresses"`
	Owners     []OwnerDetail      `json:"owners"`
	Activities []ExpectedActivity `json:"activities"`
	Documents  []Document         `json:"documents"`
	Account    *Account           `json:"account,omitempty"`
}

// OwnerDetail pairs an ownership row with the resolved person.
type OwnerDetail struct {
	Ownership Ownership `json:"ownership"`
	Person    *Person   `json:"person,omitempty"`
}

// FunnelMetrics is the snapshot served by GET /v1/backoffice/metrics.
type FunnelMetrics struct {
	StepSubmissions     map[string]int64 `json:"step_submissions"`
	DuplicateConflicts  map[string]int64 `json:"duplicate_conflicts"`
	AccountsProvisioned int64            `json:"accounts_provisioned"`
	ProvisioningSkipped int64            `json:"provisioning_skipped"`
	StoreErrors         int64            `json:"store_errors"`
	Period              string           `json:"period"`
}
