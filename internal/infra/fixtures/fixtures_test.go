package fixtures

import (
	"context"
	"testing"

	"github.com/larimar/onboarding-bfa-go/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

func TestNew_SameSeedSameDataset(t *testing.T) {
	a := New(7)
	b := New(7)

	casesA, _ := a.ListCases(context.Background(), "", 1, 100)
	casesB, _ := b.ListCases(context.Background(), "", 1, 100)
	if len(casesA) != len(casesB) {
		t.Fatalf("datasets differ in size: %d vs %d", len(casesA), len(casesB))
	}
	for i := range casesA {
		if casesA[i].Case.ID != casesB[i].Case.ID {
			t.Fatalf("case %d differs: %s vs %s", i, casesA[i].Case.ID, casesB[i].Case.ID)
		}
		if casesA[i].CompanyRNC != casesB[i].CompanyRNC {
			t.Fatalf("case %d RNC differs: %s vs %s", i, casesA[i].CompanyRNC, casesB[i].CompanyRNC)
		}
	}
}

func TestNew_EveryStatusRepresented(t *testing.T) {
	repo := New(1)

	for _, status := range []string{
		domain.CaseStatusCollecting,
		domain.CaseStatusPendingReview,
		domain.CaseStatusApproved,
		domain.CaseStatusRejected,
	} {
		cases, err := repo.ListCases(context.Background(), status, 1, 1)
		if err != nil {
			t.Fatalf("list %s: %v", status, err)
		}
		if len(cases) == 0 {
			t.Errorf("expected at least one case in status '%s'", status)
		}
	}
}

func TestListCases_NewestFirstAndPaged(t *testing.T) {
	repo := New(42)

	all, err := repo.ListCases(context.Background(), "", 1, 100)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != len(companyNames) {
		t.Fatalf("expected %d cases, got %d", len(companyNames), len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Case.UpdatedAt.After(all[i-1].Case.UpdatedAt) {
			t.Fatal("expected newest-first ordering")
		}
	}

	beyond, err := repo.ListCases(context.Background(), "", 99, 10)
	if err != nil {
		t.Fatalf("list beyond last page: %v", err)
	}
	if len(beyond) != 0 {
		t.Errorf("expected empty page past the end, got %d", len(beyond))
	}
}

func TestGetCase_ReturnsCopy(t *testing.T) {
	repo := New(42)
	cases, _ := repo.ListCases(context.Background(), "", 1, 1)
	id := cases[0].Case.ID

	first, err := repo.GetCase(context.Background(), id)
	if err != nil {
		t.Fatalf("get case: %v", err)
	}
	first.Status = "tampered"

	second, _ := repo.GetCase(context.Background(), id)
	if second.Status == "tampered" {
		t.Error("expected GetCase to return a copy")
	}
}

func TestAccounts_OnlyPastCollecting(t *testing.T) {
	repo := New(42)
	ctx := context.Background()

	all, _ := repo.ListCases(ctx, "", 1, 100)
	for _, cs := range all {
		acc, err := repo.GetAccountByCompany(ctx, cs.Case.CompanyID)
		if err != nil {
			t.Fatalf("get account: %v", err)
		}
		if cs.Case.Status == domain.CaseStatusCollecting {
			if acc != nil {
				t.Errorf("collecting case %s must not have an account", cs.Case.ID)
			}
			continue
		}
		if acc == nil {
			t.Errorf("case %s in status '%s' has no account", cs.Case.ID, cs.Case.Status)
			continue
		}
		if acc.Currency != "DOP" || acc.AccountType != "checking" {
			t.Errorf("unexpected account %s/%s", acc.Currency, acc.AccountType)
		}
		if acc.Status != domain.AccountStatusPendingActivation {
			t.Errorf("expected pending_activation, got '%s'", acc.Status)
		}
		if len(acc.AccountNumber) != 10 {
			t.Errorf("expected a 10 digit account number, got '%s'", acc.AccountNumber)
		}
	}
}

func TestOwners_PercentagesAddUpAndResolvePeople(t *testing.T) {
	repo := New(42)
	ctx := context.Background()

	for companyID := range repo.companies {
		owners, err := repo.ListOwners(ctx, companyID)
		if err != nil {
			t.Fatalf("list owners: %v", err)
		}
		if len(owners) == 0 {
			t.Fatalf("company %s has no owners", companyID)
		}
		var total float64
		for _, o := range owners {
			total += o.Ownership.OwnershipPct
			if o.Person == nil {
				t.Fatalf("owner %s has no resolved person", o.Ownership.ID)
			}
		}
		if total < 99.9 || total > 100.1 {
			t.Errorf("company %s ownership adds up to %.2f", companyID, total)
		}
	}
}

func TestOperators_DemoLoginContract(t *testing.T) {
	ops, err := NewOperators("demo@larimar.do", "demo1234")
	if err != nil {
		t.Fatalf("new operators: %v", err)
	}

	op, err := ops.GetOperatorByEmail(context.Background(), "demo@larimar.do")
	if err != nil || op == nil {
		t.Fatalf("expected the demo operator, got %v / %v", op, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte("demo1234")); err != nil {
		t.Errorf("stored hash does not match the password: %v", err)
	}

	// unknown emails are (nil, nil), same as the real store
	missing, err := ops.GetOperatorByEmail(context.Background(), "nadie@larimar.do")
	if err != nil {
		t.Fatalf("expected no error for an unknown email, got %v", err)
	}
	if missing != nil {
		t.Error("expected nil operator for an unknown email")
	}
}
