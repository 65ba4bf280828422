package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/larimar/onboarding-bfa-go/internal/domain"
	"github.com/larimar/onboarding-bfa-go/internal/infra/observability"
	"github.com/larimar/onboarding-bfa-go/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

// mockStore is an in-memory CaseStore with injectable failures.
type mockStore struct {
	companies     map[string]*domain.Company
	account       *domain.Account
	caseStatus    string
	caseReason    string
	touchedCases  []string
	addressRows   int
	activityRows  int
	documentRows  int
	insertedAccts []*domain.Account

	insertCompanyErr    error
	upsertOwnershipErr  error
	insertAccountErr    error
	updateCaseStatusErr error
}

func newMockStore() *mockStore {
	return &mockStore{companies: map[string]*domain.Company{}}
}

func (m *mockStore) InsertCompany(_ context.Context, com *domain.Company, _ string) (string, error) {
	if m.insertCompanyErr != nil {
		return "", m.insertCompanyErr
	}
	com.ID = "company-1"
	m.companies[com.ID] = com
	return com.ID, nil
}

func (m *mockStore) UpdateCompany(_ context.Context, companyID string, _ map[string]any) error {
	if _, ok := m.companies[companyID]; !ok {
		return &domain.ErrNotFound{Resource: "company", ID: companyID}
	}
	return nil
}

func (m *mockStore) GetCompany(_ context.Context, companyID string) (*domain.Company, error) {
	return m.companies[companyID], nil
}

func (m *mockStore) GetCompanyByRNC(_ context.Context, rnc string) (*domain.Company, error) {
	for _, c := range m.companies {
		if c.RNC == rnc {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockStore) GetCompanyByRNCNormalized(_ context.Context, digits string) (*domain.Company, error) {
	for _, c := range m.companies {
		if c.RNCNormalized == digits {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockStore) InsertCase(_ context.Context, companyID, _ string) (string, error) {
	m.caseStatus = domain.CaseStatusCollecting
	return "case-1", nil
}

func (m *mockStore) GetCase(_ context.Context, caseID string) (*domain.Case, error) {
	return &domain.Case{ID: caseID, Status: m.caseStatus}, nil
}

func (m *mockStore) TouchCase(_ context.Context, caseID string) error {
	m.touchedCases = append(m.touchedCases, caseID)
	return nil
}

func (m *mockStore) UpdateCaseStatus(_ context.Context, _, status, _, reason string) error {
	if m.updateCaseStatusErr != nil {
		return m.updateCaseStatusErr
	}
	m.caseStatus = status
	m.caseReason = reason
	return nil
}

func (m *mockStore) InsertAddress(_ context.Context, _ *domain.CompanyAddress, _ string) (string, error) {
	m.addressRows++
	return "addr-1", nil
}

func (m *mockStore) InsertPerson(_ context.Context, p *domain.Person, _ string) (string, error) {
	p.ID = "person-1"
	return p.ID, nil
}

func (m *mockStore) UpdatePerson(_ context.Context, _ string, _ map[string]any) error {
	return nil
}

func (m *mockStore) UpsertOwnership(_ context.Context, _ *domain.Ownership, _ string) error {
	return m.upsertOwnershipErr
}

func (m *mockStore) InsertActivity(_ context.Context, _ *domain.ExpectedActivity, _ string) (string, error) {
	m.activityRows++
	return "act-1", nil
}

func (m *mockStore) GetAccountByCompany(_ context.Context, _ string) (*domain.Account, error) {
	return m.account, nil
}

func (m *mockStore) InsertAccount(_ context.Context, acc *domain.Account) (string, error) {
	if m.insertAccountErr != nil {
		return "", m.insertAccountErr
	}
	m.insertedAccts = append(m.insertedAccts, acc)
	return "acct-1", nil
}

func (m *mockStore) RegisterDocument(_ context.Context, _ *domain.Document, _ string) (string, error) {
	m.documentRows++
	return "doc-1", nil
}

type mockIdentity struct {
	user      *domain.IdentityUser
	lookupErr error
	session   *domain.IdentitySession
	signupErr error
}

func (m *mockIdentity) GetUserByEmail(_ context.Context, _ string) (*domain.IdentityUser, error) {
	return m.user, m.lookupErr
}

func (m *mockIdentity) SignUp(_ context.Context, _, _ string) (*domain.IdentitySession, error) {
	return m.session, m.signupErr
}

func newService(store *mockStore, identity *mockIdentity) *service.OnboardingService {
	if identity == nil {
		identity = &mockIdentity{}
	}
	return service.NewOnboardingService(store, identity, observability.NewMetrics(), zap.NewNop())
}

// --- Tests ---

func TestApply_CompanyInfo_CreatesCompanyAndCase(t *testing.T) {
	store := newMockStore()
	svc := newService(store, nil)

	result, err := svc.Apply(context.Background(), &domain.StepRequest{
		Step: domain.StepCompanyInfo,
		Data: domain.StepData{CompanyName: "Comercial Altagracia SRL", RNC: "1-31-24567-8", Country: "DO"},
	}, "user-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.CompanyID != "company-1" {
		t.Errorf("expected companyId 'company-1', got '%s'", result.CompanyID)
	}
	if result.CaseID != "case-1" {
		t.Errorf("expected caseId 'case-1', got '%s'", result.CaseID)
	}
	if store.companies["company-1"].RNCNormalized != "131245678" {
		t.Errorf("expected normalized rnc '131245678', got '%s'", store.companies["company-1"].RNCNormalized)
	}
}

func TestApply_CompanyInfo_Resubmit_TouchesExistingCase(t *testing.T) {
	store := newMockStore()
	store.companies["company-1"] = &domain.Company{ID: "company-1", RNC: "1-31-24567-8", RNCNormalized: "131245678"}
	svc := newService(store, nil)

	result, err := svc.Apply(context.Background(), &domain.StepRequest{
		Step:      domain.StepCompanyInfo,
		CaseID:    "case-1",
		CompanyID: "company-1",
		Data:      domain.StepData{CompanyName: "Comercial Altagracia SRL", RNC: "1-31-24567-8"},
	}, "user-1")
	if err != nil {
		t.Fatalf("expected no error on resubmit with own rnc, got %v", err)
	}
	if result.CompanyID != "company-1" || result.CaseID != "case-1" {
		t.Errorf("expected same ids back, got %+v", result)
	}
	if len(store.touchedCases) != 1 {
		t.Errorf("expected existing case to be touched once, got %d", len(store.touchedCases))
	}
}

func TestApply_CompanyInfo_DuplicateRNC(t *testing.T) {
	store := newMockStore()
	store.companies["other"] = &domain.Company{ID: "other", RNC: "131245678", RNCNormalized: "131245678"}
	svc := newService(store, nil)

	_, err := svc.Apply(context.Background(), &domain.StepRequest{
		Step: domain.StepCompanyInfo,
		// punctuated form must collide with the stored digits-only form
		Data: domain.StepData{CompanyName: "Otra Empresa SRL", RNC: "1-31-24567-8"},
	}, "")
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, ok := conflict.Conflicts["rnc"]; !ok {
		t.Errorf("expected conflicts map to carry 'rnc', got %v", conflict.Conflicts)
	}
}

func TestApply_CompanyInfo_DuplicateRace_StoreWins(t *testing.T) {
	// Pre-check sees nothing, but the insert hits the unique constraint:
	// the client must get the same conflict shape as the pre-check.
	store := newMockStore()
	store.insertCompanyErr = &domain.ErrDuplicate{Key: "companies_rnc_normalized_key"}
	svc := newService(store, nil)

	_, err := svc.Apply(context.Background(), &domain.StepRequest{
		Step: domain.StepCompanyInfo,
		Data: domain.StepData{CompanyName: "Empresa SRL", RNC: "131245678"},
	}, "")
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ErrConflict from the write path, got %v", err)
	}
	if conflict.Conflicts["rnc"] == "" {
		t.Errorf("expected rnc conflict, got %v", conflict.Conflicts)
	}
}

func TestApply_UnknownStep(t *testing.T) {
	svc := newService(newMockStore(), nil)

	_, err := svc.Apply(context.Background(), &domain.StepRequest{Step: "bank_details"}, "")
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if validation.Field != "step" {
		t.Errorf("expected field 'step', got '%s'", validation.Field)
	}
}

func TestApply_Address_MissingCompanyID(t *testing.T) {
	svc := newService(newMockStore(), nil)

	_, err := svc.Apply(context.Background(), &domain.StepRequest{
		Step: domain.StepCompanyAddress,
		Data: domain.StepData{AddressLine: "Calle 5 #12"},
	}, "")
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if validation.Field != "companyId" {
		t.Errorf("expected field 'companyId', got '%s'", validation.Field)
	}
}

func TestApply_Address_AppendsRow(t *testing.T) {
	store := newMockStore()
	svc := newService(store, nil)

	req := &domain.StepRequest{
		Step:      domain.StepCompanyAddress,
		CaseID:    "case-1",
		CompanyID: "company-1",
		Data:      domain.StepData{AddressLine: "Calle 5 #12", City: "Santo Domingo"},
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.Apply(context.Background(), req, ""); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}
	if store.addressRows != 2 {
		t.Errorf("expected 2 address rows (append-only), got %d", store.addressRows)
	}
}

func TestApply_Owner_DuplicateOwnershipIsSuccess(t *testing.T) {
	store := newMockStore()
	store.upsertOwnershipErr = &domain.ErrDuplicate{Key: "ownerships_company_id_person_id_key"}
	svc := newService(store, nil)

	result, err := svc.Apply(context.Background(), &domain.StepRequest{
		Step:      domain.StepOwner,
		CaseID:    "case-1",
		CompanyID: "company-1",
		Data:      domain.StepData{OwnerName: "María Fernández", DocumentNumber: "001-1234567-8", OwnershipPct: 60},
	}, "")
	if err != nil {
		t.Fatalf("expected duplicate ownership to be treated as success, got %v", err)
	}
	if result.PersonID != "person-1" {
		t.Errorf("expected personId 'person-1', got '%s'", result.PersonID)
	}
}

func TestApply_Owner_InvalidPct(t *testing.T) {
	svc := newService(newMockStore(), nil)

	_, err := svc.Apply(context.Background(), &domain.StepRequest{
		Step:      domain.StepOwner,
		CompanyID: "company-1",
		Data:      domain.StepData{OwnerName: "María Fernández", OwnershipPct: 120},
	}, "")
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestApply_FollowUp_TransitionsAndProvisions(t *testing.T) {
	store := newMockStore()
	svc := newService(store, nil)

	result, err := svc.Apply(context.Background(), &domain.StepRequest{
		Step:      domain.StepFollowUp,
		CaseID:    "case-1",
		CompanyID: "company-1",
		Data:      domain.StepData{Notes: "listo para revisión"},
	}, "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if store.caseStatus != domain.CaseStatusPendingReview {
		t.Errorf("expected case status 'pending_review', got '%s'", store.caseStatus)
	}
	if len(store.insertedAccts) != 1 {
		t.Fatalf("expected 1 provisioned account, got %d", len(store.insertedAccts))
	}
	acc := store.insertedAccts[0]
	if acc.Currency != "DOP" || acc.AccountType != "checking" {
		t.Errorf("expected DOP checking account, got %s %s", acc.Currency, acc.AccountType)
	}
	if acc.Status != domain.AccountStatusPendingActivation {
		t.Errorf("expected status 'pending_activation', got '%s'", acc.Status)
	}
	if len(acc.AccountNumber) != 10 {
		t.Errorf("expected 10-digit account number, got '%s'", acc.AccountNumber)
	}
	if result.CaseID != "case-1" {
		t.Errorf("expected caseId back, got '%s'", result.CaseID)
	}
}

func TestApply_FollowUp_ProvisioningFailureIsSwallowed(t *testing.T) {
	store := newMockStore()
	store.insertAccountErr = errors.New("connection refused")
	svc := newService(store, nil)

	_, err := svc.Apply(context.Background(), &domain.StepRequest{
		Step:      domain.StepFollowUp,
		CaseID:    "case-1",
		CompanyID: "company-1",
	}, "")
	if err != nil {
		t.Fatalf("provisioning failure must not fail the step, got %v", err)
	}
	if store.caseStatus != domain.CaseStatusPendingReview {
		t.Errorf("expected case transition to survive, got status '%s'", store.caseStatus)
	}
}

func TestApply_FollowUp_CaseTransitionFailure(t *testing.T) {
	store := newMockStore()
	store.updateCaseStatusErr = errors.New("timeout")
	svc := newService(store, nil)

	_, err := svc.Apply(context.Background(), &domain.StepRequest{
		Step:   domain.StepFollowUp,
		CaseID: "case-1",
	}, "")
	var storeErr *domain.ErrStore
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
	if storeErr.Error() != "No se pudo guardar, intenta de nuevo" {
		t.Errorf("unexpected client message: %q", storeErr.Error())
	}
}

func TestApply_FollowUp_StaleCaseIsNotFound(t *testing.T) {
	// A caseId pointing at a row the store no longer has must not report
	// success or hide behind the generic store error.
	store := newMockStore()
	store.updateCaseStatusErr = &domain.ErrNotFound{Resource: "case", ID: "stale-case"}
	svc := newService(store, nil)

	_, err := svc.Apply(context.Background(), &domain.StepRequest{
		Step:   domain.StepFollowUp,
		CaseID: "stale-case",
	}, "")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if notFound.ID != "stale-case" {
		t.Errorf("expected the miss to name the case, got %+v", notFound)
	}
}

func TestProvisionAccount_ExistingIsNoop(t *testing.T) {
	store := newMockStore()
	store.account = &domain.Account{ID: "acct-0", CompanyID: "company-1", AccountNumber: "1234567890"}
	svc := newService(store, nil)

	acc, err := svc.ProvisionAccount(context.Background(), "company-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if acc.ID != "acct-0" {
		t.Errorf("expected the existing account back, got '%s'", acc.ID)
	}
	if len(store.insertedAccts) != 0 {
		t.Errorf("expected no new account, got %d", len(store.insertedAccts))
	}
}

func TestProvisionAccount_NumberCollisionYieldsNoAccount(t *testing.T) {
	store := newMockStore()
	store.insertAccountErr = &domain.ErrDuplicate{Key: "accounts_account_number_key"}
	svc := newService(store, nil)

	acc, err := svc.ProvisionAccount(context.Background(), "company-1")
	if err != nil {
		t.Fatalf("collision is benign, got %v", err)
	}
	if acc != nil {
		t.Errorf("expected no account on collision, got %+v", acc)
	}
}

func TestRegisterDocument(t *testing.T) {
	store := newMockStore()
	svc := newService(store, nil)

	doc, err := svc.RegisterDocument(context.Background(), &domain.DocumentRequest{
		CompanyID:   "company-1",
		Kind:        "mercantile_registry",
		FileName:    "registro.pdf",
		StoragePath: "kyb/company-1/registro.pdf",
	}, "user-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if doc.ID != "doc-1" {
		t.Errorf("expected document id 'doc-1', got '%s'", doc.ID)
	}

	_, err = svc.RegisterDocument(context.Background(), &domain.DocumentRequest{Kind: "passport"}, "")
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation for missing companyId, got %v", err)
	}
}
