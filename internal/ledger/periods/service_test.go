package periods

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

type memoryPeriodRepo struct {
	periods     []Period
	fiscalYears []FiscalYear
}

func (r *memoryPeriodRepo) FindOpenByDate(ctx context.Context, orgID int64, date time.Time) (Period, error) {
	for _, p := range r.periods {
		if p.OrgID == orgID && p.Status == PeriodStatusOpen && p.Contains(date) {
			return p, nil
		}
	}
	return Period{}, ledger.E(ledger.KindPeriod, "no open period covers %s", date.Format("2006-01-02"))
}

func (r *memoryPeriodRepo) LastEndedOpen(ctx context.Context, orgID int64, before time.Time) (Period, error) {
	var best *Period
	for i, p := range r.periods {
		if p.OrgID != orgID || p.Status != PeriodStatusOpen || !p.EndDate.Before(before) {
			continue
		}
		if best == nil || p.EndDate.After(best.EndDate) {
			best = &r.periods[i]
		}
	}
	if best == nil {
		return Period{}, ledger.E(ledger.KindPeriod, "no open period for organization %d", orgID)
	}
	return *best, nil
}

func (r *memoryPeriodRepo) FiscalYearByDate(ctx context.Context, orgID int64, date time.Time) (FiscalYear, error) {
	for _, fy := range r.fiscalYears {
		if fy.OrgID == orgID && !date.Before(fy.StartDate) && !date.After(fy.EndDate) {
			return fy, nil
		}
	}
	return FiscalYear{}, ledger.E(ledger.KindPeriod, "no fiscal year covers %s", date.Format("2006-01-02"))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testRepo() *memoryPeriodRepo {
	return &memoryPeriodRepo{
		periods: []Period{
			{ID: 1, OrgID: 1, Code: "2026-02", StartDate: day(2026, 2, 1), EndDate: day(2026, 2, 28), Status: PeriodStatusOpen},
			{ID: 2, OrgID: 1, Code: "2026-03", StartDate: day(2026, 3, 1), EndDate: day(2026, 3, 31), Status: PeriodStatusClosed},
			{ID: 3, OrgID: 2, Code: "2026-03", StartDate: day(2026, 3, 1), EndDate: day(2026, 3, 31), Status: PeriodStatusOpen},
		},
		fiscalYears: []FiscalYear{
			{ID: 1, OrgID: 1, Code: "FY26", StartDate: day(2026, 1, 1), EndDate: day(2026, 12, 31)},
		},
	}
}

func TestIsDateInOpenPeriod(t *testing.T) {
	svc := NewService(testRepo())

	open, err := svc.IsDateInOpenPeriod(context.Background(), 1, day(2026, 2, 14))
	require.NoError(t, err)
	require.True(t, open)

	// Closed period.
	open, err = svc.IsDateInOpenPeriod(context.Background(), 1, day(2026, 3, 14))
	require.NoError(t, err)
	require.False(t, open)

	// Another organization's open period does not leak across.
	open, err = svc.IsDateInOpenPeriod(context.Background(), 1, day(2026, 3, 14))
	require.NoError(t, err)
	require.False(t, open)
}

func TestCurrentPeriodPrefersToday(t *testing.T) {
	svc := NewService(testRepo())
	svc.WithNow(func() time.Time { return day(2026, 2, 10) })

	p, err := svc.CurrentPeriod(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "2026-02", p.Code)
}

func TestCurrentPeriodFallsBackToLastEndedOpen(t *testing.T) {
	// Today is in March, which is closed; February is still open so
	// month-end flows keep working after rollover.
	svc := NewService(testRepo())
	svc.WithNow(func() time.Time { return day(2026, 3, 3) })

	p, err := svc.CurrentPeriod(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "2026-02", p.Code)
}

func TestCurrentPeriodErrorsWhenNothingOpen(t *testing.T) {
	svc := NewService(&memoryPeriodRepo{})
	svc.WithNow(func() time.Time { return day(2026, 3, 3) })

	_, err := svc.CurrentPeriod(context.Background(), 1)
	require.Error(t, err)
	require.Equal(t, ledger.KindPeriod, ledger.KindOf(err))
}

func TestCurrentFiscalYear(t *testing.T) {
	svc := NewService(testRepo())
	svc.WithNow(func() time.Time { return day(2026, 6, 1) })

	fy, err := svc.CurrentFiscalYear(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "FY26", fy.Code)
}
