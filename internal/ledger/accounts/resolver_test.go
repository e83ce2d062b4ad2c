package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

type staticLookup struct {
	accounts   []Account
	dimensions []Dimension
}

func (l staticLookup) AccountByID(_ context.Context, orgID, id int64) (Account, error) {
	for _, a := range l.accounts {
		if a.OrgID == orgID && a.ID == id {
			return a, nil
		}
	}
	return Account{}, ledger.E(ledger.KindNotFound, "account %d not found", id)
}

func (l staticLookup) AccountByCode(_ context.Context, orgID int64, code string) (Account, error) {
	for _, a := range l.accounts {
		if a.OrgID == orgID && a.Code == code {
			return a, nil
		}
	}
	return Account{}, ledger.E(ledger.KindNotFound, "account %q not found", code)
}

func (l staticLookup) AccountByName(_ context.Context, orgID int64, name string) (Account, error) {
	for _, a := range l.accounts {
		if a.OrgID == orgID && a.Name == name {
			return a, nil
		}
	}
	return Account{}, ledger.E(ledger.KindNotFound, "account %q not found", name)
}

func (l staticLookup) DimensionByID(_ context.Context, orgID int64, kind DimensionKind, id int64) (Dimension, error) {
	for _, d := range l.dimensions {
		if d.OrgID == orgID && d.Kind == kind && d.ID == id {
			return d, nil
		}
	}
	return Dimension{}, ledger.E(ledger.KindNotFound, "%s %d not found", kind, id)
}

func (l staticLookup) DimensionByCode(_ context.Context, orgID int64, kind DimensionKind, code string) (Dimension, error) {
	for _, d := range l.dimensions {
		if d.OrgID == orgID && d.Kind == kind && d.Code == code {
			return d, nil
		}
	}
	return Dimension{}, ledger.E(ledger.KindNotFound, "%s %q not found", kind, code)
}

func (l staticLookup) DimensionByName(_ context.Context, orgID int64, kind DimensionKind, name string) (Dimension, error) {
	for _, d := range l.dimensions {
		if d.OrgID == orgID && d.Kind == kind && d.Name == name {
			return d, nil
		}
	}
	return Dimension{}, ledger.E(ledger.KindNotFound, "%s %q not found", kind, name)
}

func testLookup() staticLookup {
	return staticLookup{
		accounts: []Account{
			{ID: 42, OrgID: 1, Code: "1000", Name: "Petty Cash", IsActive: true},
			{ID: 43, OrgID: 1, Code: "4000", Name: "Sales Revenue", IsActive: true},
			{ID: 44, OrgID: 1, Code: "9999", Name: "Suspense", IsActive: false},
		},
		dimensions: []Dimension{
			{ID: 7, OrgID: 1, Kind: DimensionDepartment, Code: "OPS", Name: "Operations", IsActive: true},
		},
	}
}

func TestResolveAccountByNumericID(t *testing.T) {
	acc, err := ResolveAccount(context.Background(), testLookup(), 1, "42")
	require.NoError(t, err)
	require.Equal(t, "1000", acc.Code)
}

func TestResolveAccountByDisplayString(t *testing.T) {
	lk := testLookup()

	acc, err := ResolveAccount(context.Background(), lk, 1, "1000 — Petty Cash")
	require.NoError(t, err)
	require.Equal(t, int64(42), acc.ID)

	// Plain hyphen separators occur in imported data too.
	acc, err = ResolveAccount(context.Background(), lk, 1, "4000 - Sales Revenue")
	require.NoError(t, err)
	require.Equal(t, int64(43), acc.ID)
}

func TestResolveAccountFallsBackToName(t *testing.T) {
	acc, err := ResolveAccount(context.Background(), testLookup(), 1, "Sales Revenue")
	require.NoError(t, err)
	require.Equal(t, int64(43), acc.ID)
}

func TestResolveAccountRejectsInactive(t *testing.T) {
	_, err := ResolveAccount(context.Background(), testLookup(), 1, "9999")
	require.Equal(t, ledger.KindLine, ledger.KindOf(err))
}

func TestResolveAccountUnknownIsLineError(t *testing.T) {
	_, err := ResolveAccount(context.Background(), testLookup(), 1, "No Such Account")
	require.Equal(t, ledger.KindLine, ledger.KindOf(err))

	_, err = ResolveAccount(context.Background(), testLookup(), 1, "  ")
	require.Equal(t, ledger.KindLine, ledger.KindOf(err))
}

func TestResolveDimension(t *testing.T) {
	lk := testLookup()

	dim, err := ResolveDimension(context.Background(), lk, 1, DimensionDepartment, "OPS")
	require.NoError(t, err)
	require.Equal(t, int64(7), dim.ID)

	dim, err = ResolveDimension(context.Background(), lk, 1, DimensionDepartment, "Operations")
	require.NoError(t, err)
	require.Equal(t, int64(7), dim.ID)

	_, err = ResolveDimension(context.Background(), lk, 1, DimensionProject, "OPS")
	require.Equal(t, ledger.KindLine, ledger.KindOf(err))
}
