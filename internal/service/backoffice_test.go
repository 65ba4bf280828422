package service_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/larimar/onboarding-bfa-go/internal/domain"
	"github.com/larimar/onboarding-bfa-go/internal/infra/cache"
	"github.com/larimar/onboarding-bfa-go/internal/infra/fixtures"
	"github.com/larimar/onboarding-bfa-go/internal/infra/observability"
	"github.com/larimar/onboarding-bfa-go/internal/port"
	"github.com/larimar/onboarding-bfa-go/internal/service"

	"go.uber.org/zap"
)

type mockDecider struct {
	caseID string
	status string
	err    error
}

func (m *mockDecider) UpdateCaseStatus(_ context.Context, caseID, status, _, _ string) error {
	if m.err != nil {
		return m.err
	}
	m.caseID = caseID
	m.status = status
	return nil
}

// spyCache wraps the real cache and records prefix invalidations.
type spyCache struct {
	*cache.InMemory[[]domain.CaseSummary]
	deletedPrefixes []string
}

func (s *spyCache) DeletePrefix(prefix string) {
	s.deletedPrefixes = append(s.deletedPrefixes, prefix)
	s.InMemory.DeletePrefix(prefix)
}

func newBackoffice(decider *mockDecider) (*service.BackofficeService, *fixtures.Repository, *spyCache) {
	repo := fixtures.New(42)
	spy := &spyCache{InMemory: cache.New[[]domain.CaseSummary](time.Minute)}
	var dec port.CaseDecider
	if decider != nil {
		dec = decider
	}
	return service.NewBackofficeService(repo, dec, spy, observability.NewMetrics(), zap.NewNop()), repo, spy
}

func pendingCaseID(t *testing.T, repo *fixtures.Repository) string {
	t.Helper()
	cases, err := repo.ListCases(context.Background(), domain.CaseStatusPendingReview, 1, 1)
	if err != nil || len(cases) == 0 {
		t.Fatalf("seed must contain a pending_review case: %v", err)
	}
	return cases[0].Case.ID
}

func TestListCases_FilterAndPagination(t *testing.T) {
	svc, _, _ := newBackoffice(nil)

	all, err := svc.ListCases(context.Background(), "", 1, 50)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(all) == 0 {
		t.Fatal("expected seeded cases")
	}
	for i := 1; i < len(all); i++ {
		if all[i].Case.UpdatedAt.After(all[i-1].Case.UpdatedAt) {
			t.Fatal("expected newest-first ordering")
		}
	}

	pending, err := svc.ListCases(context.Background(), domain.CaseStatusPendingReview, 1, 50)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, cs := range pending {
		if cs.Case.Status != domain.CaseStatusPendingReview {
			t.Errorf("status filter leaked case in status '%s'", cs.Case.Status)
		}
	}

	page1, _ := svc.ListCases(context.Background(), "", 1, 2)
	page2, _ := svc.ListCases(context.Background(), "", 2, 2)
	if len(page1) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page1))
	}
	if len(page2) > 0 && page2[0].Case.ID == page1[0].Case.ID {
		t.Error("expected distinct pages")
	}
}

func TestListCases_FormatsRNCForDisplay(t *testing.T) {
	svc, _, _ := newBackoffice(nil)

	cases, err := svc.ListCases(context.Background(), "", 1, 10)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := regexp.MustCompile(`^\d{3}-\d{5}-\d$`)
	for _, cs := range cases {
		if !want.MatchString(cs.CompanyRNC) {
			t.Errorf("expected display RNC, got '%s'", cs.CompanyRNC)
		}
	}
}

func TestListCases_SecondCallHitsCache(t *testing.T) {
	svc, _, spy := newBackoffice(nil)

	first, err := svc.ListCases(context.Background(), "", 1, 10)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := svc.ListCases(context.Background(), "", 1, 10)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(first) != len(second) {
		t.Errorf("cached result differs: %d vs %d", len(first), len(second))
	}
	if _, ok := spy.Get("cases::1:10"); !ok {
		t.Error("expected the listing to be cached")
	}
}

func TestGetCaseDetail_AggregatesEverything(t *testing.T) {
	svc, repo, _ := newBackoffice(nil)
	caseID := pendingCaseID(t, repo)

	detail, err := svc.GetCaseDetail(context.Background(), caseID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if detail.Company == nil {
		t.Fatal("expected company")
	}
	if len(detail.Addresses) == 0 {
		t.Error("expected at least one address")
	}
	if len(detail.Owners) == 0 {
		t.Error("expected at least one owner")
	}
	for _, o := range detail.Owners {
		if o.Person == nil {
			t.Error("expected resolved person on owner")
		}
	}
	if len(detail.Activities) == 0 {
		t.Error("expected expected-activity rows")
	}
	if detail.Account == nil {
		t.Error("expected a provisioned account on a pending case")
	}
}

func TestGetCaseDetail_NotFound(t *testing.T) {
	svc, _, _ := newBackoffice(nil)

	_, err := svc.GetCaseDetail(context.Background(), "no-such-case")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDecide_DemoModeForbidden(t *testing.T) {
	svc, repo, _ := newBackoffice(nil)
	caseID := pendingCaseID(t, repo)

	err := svc.Decide(context.Background(), caseID, "op-1", &domain.DecisionRequest{Decision: domain.CaseStatusApproved})
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ErrForbidden without a decider, got %v", err)
	}
}

func TestDecide_InvalidDecision(t *testing.T) {
	svc, repo, _ := newBackoffice(&mockDecider{})
	caseID := pendingCaseID(t, repo)

	err := svc.Decide(context.Background(), caseID, "op-1", &domain.DecisionRequest{Decision: "maybe"})
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestDecide_OnlyPendingCases(t *testing.T) {
	svc, repo, _ := newBackoffice(&mockDecider{})

	approved, err := repo.ListCases(context.Background(), domain.CaseStatusApproved, 1, 1)
	if err != nil || len(approved) == 0 {
		t.Fatalf("seed must contain an approved case: %v", err)
	}

	err = svc.Decide(context.Background(), approved[0].Case.ID, "op-1", &domain.DecisionRequest{Decision: domain.CaseStatusRejected})
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation for a decided case, got %v", err)
	}
}

func TestDecide_RecordsDecisionAndInvalidatesCache(t *testing.T) {
	decider := &mockDecider{}
	svc, repo, spy := newBackoffice(decider)
	caseID := pendingCaseID(t, repo)

	// warm the listing cache
	if _, err := svc.ListCases(context.Background(), "", 1, 10); err != nil {
		t.Fatalf("list: %v", err)
	}

	err := svc.Decide(context.Background(), caseID, "op-1", &domain.DecisionRequest{
		Decision: domain.CaseStatusApproved,
		Reason:   "documentación completa",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if decider.caseID != caseID || decider.status != domain.CaseStatusApproved {
		t.Errorf("decision not recorded: %+v", decider)
	}
	if len(spy.deletedPrefixes) == 0 {
		t.Fatal("expected listing cache invalidation")
	}
	if _, ok := spy.Get("cases::1:10"); ok {
		t.Error("expected cached listing to be evicted")
	}
}
