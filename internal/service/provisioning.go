package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/larimar/onboarding-bfa-go/internal/domain"

	"go.uber.org/zap"
)

// Account provisioning: the finalization side effect of follow_up.

const (
	accountType     = "checking"
	accountCurrency = "DOP"
)

// ProvisionAccount creates the initial deposit account for a company,
// exactly once. Retried finalizations find the existing account and
// no-op. A unique-constraint collision on the generated number is logged
// as benign and yields no account; the number is not regenerated here,
// remediation is a backoffice concern.
func (s *OnboardingService) ProvisionAccount(ctx context.Context, companyID string) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Onboarding.ProvisionAccount")
	defer span.End()

	existing, err := s.store.GetAccountByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("account lookup: %w", err)
	}
	if existing != nil {
		s.metrics.IncrProvisioning("noop")
		s.logger.Debug("account already provisioned",
			zap.String("company_id", companyID),
			zap.String("account_id", existing.ID),
		)
		return existing, nil
	}

	acc := &domain.Account{
		CompanyID:     companyID,
		AccountNumber: newAccountNumber(),
		AccountType:   accountType,
		Currency:      accountCurrency,
		Balance:       0,
		DailyLimit:    0,
		MonthlyLimit:  0,
		Status:        domain.AccountStatusPendingActivation,
	}

	id, err := s.store.InsertAccount(ctx, acc)
	if err != nil {
		var dup *domain.ErrDuplicate
		if errors.As(err, &dup) {
			s.metrics.IncrProvisioning("collision")
			s.logger.Warn("account number collision, skipping provisioning",
				zap.String("company_id", companyID),
				zap.String("account_number", acc.AccountNumber),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	acc.ID = id
	s.metrics.IncrProvisioning("created")
	s.logger.Info("account provisioned",
		zap.String("company_id", companyID),
		zap.String("account_id", id),
	)
	return acc, nil
}

// newAccountNumber draws a 10-digit number (first digit nonzero, so the
// length band is fixed).
func newAccountNumber() string {
	return fmt.Sprintf("%d", 1_000_000_000+rand.Int63n(9_000_000_000))
}
