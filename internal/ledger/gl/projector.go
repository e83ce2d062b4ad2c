package gl

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

// Projector derives GL rows from posted journal lines. Pure
// computation; persistence happens in the caller's transaction.
type Projector struct {
	scales ledger.Scales
}

func NewProjector(scales ledger.Scales) *Projector {
	return &Projector{scales: scales}
}

// Project emits one row per line, converting transaction-currency
// amounts to base currency with the header exchange rate.
func (p *Projector) Project(j SourceJournal, lines []SourceLine, now time.Time) []Row {
	rate := j.ExchangeRate
	if rate.IsZero() {
		rate = decimal.NewFromInt(1)
	}
	rows := make([]Row, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, Row{
			OrgID:           j.OrgID,
			JournalID:       j.JournalID,
			JournalLineID:   line.LineID,
			AccountID:       line.AccountID,
			PeriodID:        j.PeriodID,
			Date:            j.Date,
			Currency:        j.Currency,
			ExchangeRate:    rate,
			Debit:           line.Debit,
			Credit:          line.Credit,
			BaseDebit:       p.scales.RoundAmount(line.Debit.Mul(rate)),
			BaseCredit:      p.scales.RoundAmount(line.Credit.Mul(rate)),
			DepartmentID:    line.DepartmentID,
			ProjectID:       line.ProjectID,
			CostCenterID:    line.CostCenterID,
			SourceModule:    j.SourceModule,
			SourceReference: j.SourceRef,
			CreatedAt:       now,
		})
	}
	return rows
}
