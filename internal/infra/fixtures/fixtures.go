// Package fixtures provides a seeded, read-only demo dataset implementing
// the backoffice read port. It replaces the store when Supabase is not
// configured so the dashboard can run standalone. All data is generated at
// startup from a fixed seed; the repository is immutable afterwards and
// therefore safe for concurrent reads.
package fixtures

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/larimar/onboarding-bfa-go/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var companyNames = []string{
	"Comercial Altagracia SRL",
	"Distribuidora del Este SRL",
	"Inversiones Mirador SAS",
	"Agroindustrial Cibao SRL",
	"Servicios Logísticos Ozama SRL",
	"Constructora La Romana SAS",
	"Tecnología Quisqueya SRL",
	"Importadora del Caribe SRL",
	"Panificadora San Juan SRL",
	"Transporte Duarte SAS",
	"Farmacéutica Colonial SRL",
	"Textiles Santiago SRL",
}

var ownerNames = []string{
	"María Fernández", "José Rodríguez", "Ana Martínez", "Pedro Gómez",
	"Carmen Reyes", "Luis Peralta", "Rosa Jiménez", "Rafael Castillo",
}

var industries = []string{"retail", "logistics", "construction", "technology", "agriculture", "manufacturing"}
var provinces = []string{"Distrito Nacional", "Santiago", "La Romana", "San Cristóbal", "La Vega"}
var volumes = []string{"0-10k", "10k-50k", "50k-250k", "250k+"}
var statuses = []string{
	domain.CaseStatusCollecting,
	domain.CaseStatusPendingReview,
	domain.CaseStatusPendingReview,
	domain.CaseStatusApproved,
	domain.CaseStatusRejected,
}

// Repository holds the generated dataset.
type Repository struct {
	cases      []domain.Case
	companies  map[string]*domain.Company
	addresses  map[string][]domain.CompanyAddress
	owners     map[string][]domain.OwnerDetail
	activities map[string][]domain.ExpectedActivity
	documents  map[string][]domain.Document
	accounts   map[string]*domain.Account
	byCaseID   map[string]*domain.Case
}

// New generates the demo dataset from the given seed. The same seed always
// produces the same dataset.
func New(seed int64) *Repository {
	rnd := rand.New(rand.NewSource(seed))
	repo := &Repository{
		companies:  make(map[string]*domain.Company),
		addresses:  make(map[string][]domain.CompanyAddress),
		owners:     make(map[string][]domain.OwnerDetail),
		activities: make(map[string][]domain.ExpectedActivity),
		documents:  make(map[string][]domain.Document),
		accounts:   make(map[string]*domain.Account),
		byCaseID:   make(map[string]*domain.Case),
	}

	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	for i, name := range companyNames {
		companyID := newID(rnd)
		rncDigits := fmt.Sprintf("1%08d", rnd.Intn(100_000_000))
		company := &domain.Company{
			ID:            companyID,
			Name:          name,
			RNC:           fmt.Sprintf("%s-%s-%s", rncDigits[:3], rncDigits[3:8], rncDigits[8:]),
			RNCNormalized: rncDigits,
			Country:       "DO",
			Phone:         fmt.Sprintf("+1809%07d", rnd.Intn(10_000_000)),
			Industry:      industries[rnd.Intn(len(industries))],
		}
		repo.companies[companyID] = company

		created := base.Add(time.Duration(i*17) * time.Hour)
		// round-robin so every status is always represented
		status := statuses[i%len(statuses)]
		cs := domain.Case{
			ID:        newID(rnd),
			CompanyID: companyID,
			Status:    status,
			CreatedAt: created,
			UpdatedAt: created.Add(time.Duration(rnd.Intn(72)) * time.Hour),
		}
		if status == domain.CaseStatusApproved || status == domain.CaseStatusRejected {
			cs.Reviewer = "demo-operator"
			if status == domain.CaseStatusRejected {
				cs.DecisionReason = "Documentación incompleta"
			}
		}
		repo.cases = append(repo.cases, cs)
		repo.byCaseID[cs.ID] = &repo.cases[len(repo.cases)-1]

		repo.addresses[companyID] = []domain.CompanyAddress{{
			ID:         newID(rnd),
			CompanyID:  companyID,
			Line:       fmt.Sprintf("Calle %d #%d", rnd.Intn(50)+1, rnd.Intn(200)+1),
			City:       "Santo Domingo",
			Province:   provinces[rnd.Intn(len(provinces))],
			PostalCode: fmt.Sprintf("1%04d", rnd.Intn(10_000)),
			Country:    "DO",
		}}

		nOwners := 1 + rnd.Intn(2)
		for o := 0; o < nOwners; o++ {
			score := 0.7 + rnd.Float64()*0.3
			person := &domain.Person{
				ID:             newID(rnd),
				FullName:       ownerNames[rnd.Intn(len(ownerNames))],
				DocumentNumber: fmt.Sprintf("%011d", rnd.Int63n(100_000_000_000)),
				PEP:            rnd.Intn(10) == 0,
				LivenessScore:  &score,
			}
			pct := 100.0 / float64(nOwners)
			repo.owners[companyID] = append(repo.owners[companyID], domain.OwnerDetail{
				Ownership: domain.Ownership{
					ID:           newID(rnd),
					CompanyID:    companyID,
					PersonID:     person.ID,
					OwnershipPct: pct,
					IsUBO:        pct >= 25,
				},
				Person: person,
			})
		}

		repo.activities[companyID] = []domain.ExpectedActivity{{
			ID:            newID(rnd),
			CompanyID:     companyID,
			MonthlyVolume: volumes[rnd.Intn(len(volumes))],
			Countries:     []string{"DO", "US"},
			FundingSource: "operating_revenue",
		}}

		repo.documents[companyID] = []domain.Document{{
			ID:          newID(rnd),
			CompanyID:   companyID,
			Kind:        "mercantile_registry",
			FileName:    "registro-mercantil.pdf",
			StoragePath: fmt.Sprintf("kyb/%s/registro-mercantil.pdf", companyID),
		}}

		// Cases past follow_up have an account
		if status != domain.CaseStatusCollecting {
			repo.accounts[companyID] = &domain.Account{
				ID:            newID(rnd),
				CompanyID:     companyID,
				AccountNumber: fmt.Sprintf("%d", 1_000_000_000+rnd.Int63n(9_000_000_000)),
				AccountType:   "checking",
				Currency:      "DOP",
				DailyLimit:    500_000,
				MonthlyLimit:  5_000_000,
				Status:        domain.AccountStatusPendingActivation,
			}
		}
	}

	sort.Slice(repo.cases, func(i, j int) bool {
		return repo.cases[i].UpdatedAt.After(repo.cases[j].UpdatedAt)
	})
	// re-point after the sort moved elements
	for i := range repo.cases {
		repo.byCaseID[repo.cases[i].ID] = &repo.cases[i]
	}
	return repo
}

func newID(rnd *rand.Rand) string {
	id, err := uuid.NewRandomFromReader(rnd)
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// ListCases returns a page of cases, newest first, optionally filtered by status.
func (r *Repository) ListCases(ctx context.Context, status string, page, pageSize int) ([]domain.CaseSummary, error) {
	var filtered []domain.CaseSummary
	for _, cs := range r.cases {
		if status != "" && cs.Status != status {
			continue
		}
		summary := domain.CaseSummary{Case: cs}
		if company, ok := r.companies[cs.CompanyID]; ok {
			summary.CompanyName = company.Name
			summary.CompanyRNC = company.RNC
		}
		filtered = append(filtered, summary)
	}

	start := (page - 1) * pageSize
	if start >= len(filtered) {
		return []domain.CaseSummary{}, nil
	}
	end := start + pageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], nil
}

func (r *Repository) GetCase(ctx context.Context, caseID string) (*domain.Case, error) {
	cs, ok := r.byCaseID[caseID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "case", ID: caseID}
	}
	copied := *cs
	return &copied, nil
}

func (r *Repository) GetCompany(ctx context.Context, companyID string) (*domain.Company, error) {
	company, ok := r.companies[companyID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "company", ID: companyID}
	}
	copied := *company
	return &copied, nil
}

func (r *Repository) ListAddresses(ctx context.Context, companyID string) ([]domain.CompanyAddress, error) {
	return r.addresses[companyID], nil
}

func (r *Repository) ListOwners(ctx context.Context, companyID string) ([]domain.OwnerDetail, error) {
	return r.owners[companyID], nil
}

func (r *Repository) ListActivities(ctx context.Context, companyID string) ([]domain.ExpectedActivity, error) {
	return r.activities[companyID], nil
}

func (r *Repository) ListDocuments(ctx context.Context, companyID string) ([]domain.Document, error) {
	return r.documents[companyID], nil
}

func (r *Repository) GetAccountByCompany(ctx context.Context, companyID string) (*domain.Account, error) {
	acc, ok := r.accounts[companyID]
	if !ok {
		return nil, nil
	}
	copied := *acc
	return &copied, nil
}

// ============================================================
// Demo operator
// ============================================================

// Operators is a single-operator store so the backoffice login works in
// demo mode.
type Operators struct {
	operator domain.Operator
}

// NewOperators creates the demo operator store. The password is hashed at
// startup; credentials are meant for local demos only.
func NewOperators(email, password string) (*Operators, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &Operators{operator: domain.Operator{
		ID:           "demo-operator",
		Email:        email,
		Name:         "Operador Demo",
		Role:         "reviewer",
		PasswordHash: string(hash),
	}}, nil
}

func (o *Operators) GetOperatorByEmail(ctx context.Context, email string) (*domain.Operator, error) {
	if email != o.operator.Email {
		return nil, nil
	}
	copied := o.operator
	return &copied, nil
}
