package gl

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Row is one append-only general ledger record projected from a posted
// journal line. Rows are never edited in place; a correction is a new
// reversing journal projecting new rows.
type Row struct {
	ID              int64
	OrgID           int64
	JournalID       int64
	JournalLineID   int64
	AccountID       int64
	PeriodID        int64
	Date            time.Time
	Currency        string
	ExchangeRate    decimal.Decimal
	Debit           decimal.Decimal
	Credit          decimal.Decimal
	BaseDebit       decimal.Decimal
	BaseCredit      decimal.Decimal
	DepartmentID    *int64
	ProjectID       *int64
	CostCenterID    *int64
	SourceModule    string
	SourceReference uuid.UUID
	CreatedAt       time.Time
}

// SourceJournal is the header context a projection needs.
type SourceJournal struct {
	JournalID    int64
	OrgID        int64
	PeriodID     int64
	Number       string
	Date         time.Time
	Currency     string
	ExchangeRate decimal.Decimal
	SourceModule string
	SourceRef    uuid.UUID
}

// SourceLine is one posted line to project.
type SourceLine struct {
	LineID       int64
	AccountID    int64
	Debit        decimal.Decimal
	Credit       decimal.Decimal
	DepartmentID *int64
	ProjectID    *int64
	CostCenterID *int64
}
