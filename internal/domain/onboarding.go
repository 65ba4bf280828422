package domain

// Onboarding step names as submitted by the frontend. Steps execute in
// order, but the server holds no session: each request carries the
// identifiers returned by the previous step.
const (
	StepCompanyInfo      = "company_info"
	StepCompanyAddress   = "company_address"
	StepOwner            = "owner"
	StepExpectedActivity = "expected_activity"
	StepFollowUp         = "follow_up"
)

// KnownStep reports whether name is a step this workflow handles.
func KnownStep(name string) bool {
	switch name {
	case StepCompanyInfo, StepCompanyAddress, StepOwner, StepExpectedActivity, StepFollowUp:
		return true
	}
	return false
}

// StepRequest is the payload of POST /v1/onboarding/step. CaseID, CompanyID
// and PersonID are the identifiers the client carries forward between steps.
type StepRequest struct {
	Step      string   `json:"step"`
	CaseID    string   `json:"caseId,omitempty"`
	CompanyID string   `json:"companyId,omitempty"`
	PersonID  string   `json:"personId,omitempty"`
	Data      StepData `json:"data"`
}

// StepData is the union of per-step fields. Each step reads only the
// fields it cares about; unknown fields are ignored.
type StepData struct {
	// company_info
	CompanyName string `json:"companyName,omitempty"`
	RNC         string `json:"rnc,omitempty"`
	Country     string `json:"country,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Industry    string `json:"industry,omitempty"`

	// company_address
	AddressLine string `json:"addressLine,omitempty"`
	City        string `json:"city,omitempty"`
	Province    string `json:"province,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`

	// owner
	OwnerName      string   `json:"ownerName,omitempty"`
	DocumentNumber string   `json:"documentNumber,omitempty"`
	PEP            bool     `json:"pep,omitempty"`
	LivenessScore  *float64 `json:"livenessScore,omitempty"`
	OwnershipPct   float64  `json:"ownershipPct,omitempty"`
	IsUBO          bool     `json:"isUbo,omitempty"`

	// expected_activity
	MonthlyVolume string   `json:"monthlyVolume,omitempty"`
	Countries     []string `json:"countries,omitempty"`
	FundingSource string   `json:"fundingSource,omitempty"`

	// follow_up
	Notes string `json:"notes,omitempty"`
}

// StepResult carries the identifiers the client must send with the next step.
type StepResult struct {
	CaseID    string `json:"caseId"`
	CompanyID string `json:"companyId"`
	PersonID  string `json:"personId,omitempty"`
}

// ValidateRequest is the payload of POST /v1/onboarding/validate.
type ValidateRequest struct {
	Email string `json:"email,omitempty"`
	RNC   string `json:"rnc,omitempty"`
}

// DocumentRequest registers an uploaded document against a company/person.
type DocumentRequest struct {
	CompanyID   string `json:"companyId"`
	PersonID    string `json:"personId,omitempty"`
	Kind        string `json:"kind"`
	FileName    string `json:"fileName,omitempty"`
	StoragePath string `json:"storagePath,omitempty"`
}

// SignupRequest is the identity-provider sign-up (create_account step).
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupResponse returns the identity issued for the new user.
type SignupResponse struct {
	UserID  string `json:"userId"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// LoginRequest authenticates a backoffice operator.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the operator JWT.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
	Operator    struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"operator"`
}

// DecisionRequest is a backoffice review decision on a pending case.
type DecisionRequest struct {
	Decision string `json:"decision"` // approved | rejected
	Reason   string `json:"reason,omitempty"`
}
