package periods

import (
	"time"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

// PeriodStatus enumerates valid period states.
type PeriodStatus string

const (
	PeriodStatusOpen       PeriodStatus = "OPEN"
	PeriodStatusClosed     PeriodStatus = "CLOSED"
	PeriodStatusAdjustment PeriodStatus = "ADJUSTMENT"
)

// FiscalYear bounds a set of accounting periods for an organization.
// Fiscal years never overlap within an organization.
type FiscalYear struct {
	ID        int64
	OrgID     int64
	Code      string
	StartDate time.Time
	EndDate   time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Period represents one posting window inside a fiscal year.
// Periods never overlap within a fiscal year.
type Period struct {
	ID           int64        `json:"id"`
	OrgID        int64        `json:"org_id"`
	FiscalYearID int64        `json:"fiscal_year_id"`
	Code         string       `json:"code"`
	StartDate    time.Time    `json:"start_date"`
	EndDate      time.Time    `json:"end_date"`
	Status       PeriodStatus `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (p Period) EntityKind() ledger.EntityKind { return ledger.EntityPeriod }
func (p Period) EntityID() int64               { return p.ID }

// Contains reports whether the date falls inside the period window.
func (p Period) Contains(date time.Time) bool {
	d := date.Truncate(24 * time.Hour)
	return !d.Before(p.StartDate) && !d.After(p.EndDate)
}
