package gl

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestProjectOneRowPerLine(t *testing.T) {
	p := NewProjector(ledger.DefaultScales())
	ref := uuid.New()
	now := time.Now()
	dept := int64(7)

	j := SourceJournal{
		JournalID:    10,
		OrgID:        1,
		PeriodID:     3,
		Date:         time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Currency:     "EUR",
		ExchangeRate: dec("1.085"),
		SourceModule: "GL",
		SourceRef:    ref,
	}
	lines := []SourceLine{
		{LineID: 100, AccountID: 5, Debit: dec("250.00"), DepartmentID: &dept},
		{LineID: 101, AccountID: 6, Credit: dec("250.00")},
	}

	rows := p.Project(j, lines, now)
	require.Len(t, rows, 2)

	require.Equal(t, int64(10), rows[0].JournalID)
	require.Equal(t, int64(100), rows[0].JournalLineID)
	require.Equal(t, int64(3), rows[0].PeriodID)
	require.Equal(t, "GL", rows[0].SourceModule)
	require.Equal(t, ref, rows[0].SourceReference)
	require.Equal(t, &dept, rows[0].DepartmentID)

	// 250.00 * 1.085 = 271.25 in base currency.
	require.True(t, rows[0].BaseDebit.Equal(dec("271.25")), "got %s", rows[0].BaseDebit)
	require.True(t, rows[0].BaseCredit.IsZero())
	require.True(t, rows[1].BaseCredit.Equal(dec("271.25")), "got %s", rows[1].BaseCredit)
	require.True(t, rows[1].Debit.IsZero())
}

func TestProjectDefaultsZeroRateToOne(t *testing.T) {
	p := NewProjector(ledger.DefaultScales())

	rows := p.Project(SourceJournal{JournalID: 1}, []SourceLine{{LineID: 1, Debit: dec("42.50")}}, time.Now())
	require.Len(t, rows, 1)
	require.True(t, rows[0].ExchangeRate.Equal(dec("1")))
	require.True(t, rows[0].BaseDebit.Equal(dec("42.50")))
}

func TestProjectRoundsBaseAmounts(t *testing.T) {
	p := NewProjector(ledger.DefaultScales())

	j := SourceJournal{JournalID: 1, ExchangeRate: dec("0.333333")}
	rows := p.Project(j, []SourceLine{{LineID: 1, Debit: dec("100")}}, time.Now())
	// 100 * 0.333333 = 33.3333 at the amount scale.
	require.True(t, rows[0].BaseDebit.Equal(dec("33.3333")), "got %s", rows[0].BaseDebit)
}
