package periods

import (
	"context"
	"errors"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

// Service answers period-control queries. Pure reads, no side effects.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// FindOpenByDate returns the open period covering the date.
func (s *Service) FindOpenByDate(ctx context.Context, orgID int64, date time.Time) (Period, error) {
	return s.repo.FindOpenByDate(ctx, orgID, date)
}

// IsDateInOpenPeriod reports whether postings dated at the supplied date
// would be accepted for the organization.
func (s *Service) IsDateInOpenPeriod(ctx context.Context, orgID int64, date time.Time) (bool, error) {
	_, err := s.repo.FindOpenByDate(ctx, orgID, date)
	if err != nil {
		if ledger.KindOf(err) == ledger.KindPeriod {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CurrentPeriod prefers an open period containing today and falls back
// to the most recently ended open period, so month-end closing flows
// keep working for a few days after rollover.
func (s *Service) CurrentPeriod(ctx context.Context, orgID int64) (Period, error) {
	today := s.now()
	p, err := s.repo.FindOpenByDate(ctx, orgID, today)
	if err == nil {
		return p, nil
	}
	var lerr *ledger.Error
	if !errors.As(err, &lerr) || lerr.Kind != ledger.KindPeriod {
		return Period{}, err
	}
	return s.repo.LastEndedOpen(ctx, orgID, today)
}

// CurrentFiscalYear resolves the fiscal year covering today, used by the
// numbering service for the fiscal-year prefix segment.
func (s *Service) CurrentFiscalYear(ctx context.Context, orgID int64) (FiscalYear, error) {
	return s.repo.FiscalYearByDate(ctx, orgID, s.now())
}
