package accounts

import (
	"context"
	"strconv"
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

// Lookup is the narrow read surface the resolver needs. The voucher
// transaction repository implements it so resolution sees in-flight
// data; the pool-backed Repository implements it for ad-hoc callers.
type Lookup interface {
	AccountByID(ctx context.Context, orgID, id int64) (Account, error)
	AccountByCode(ctx context.Context, orgID int64, code string) (Account, error)
	AccountByName(ctx context.Context, orgID int64, name string) (Account, error)
	DimensionByID(ctx context.Context, orgID int64, kind DimensionKind, id int64) (Dimension, error)
	DimensionByCode(ctx context.Context, orgID int64, kind DimensionKind, code string) (Dimension, error)
	DimensionByName(ctx context.Context, orgID int64, kind DimensionKind, name string) (Dimension, error)
}

// ResolveAccount accepts either a numeric id or a human-entered
// "CODE — Name" display string, matching by code first then name.
// Only active accounts in the caller's organization resolve.
func ResolveAccount(ctx context.Context, lk Lookup, orgID int64, ref string) (Account, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Account{}, ledger.E(ledger.KindLine, "account reference is empty")
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		acc, err := lk.AccountByID(ctx, orgID, id)
		if err != nil {
			return Account{}, err
		}
		return requireActive(acc)
	}
	code, name := splitDisplay(ref)
	if acc, err := lk.AccountByCode(ctx, orgID, code); err == nil {
		return requireActive(acc)
	} else if ledger.KindOf(err) != ledger.KindNotFound {
		return Account{}, err
	}
	lookupName := name
	if lookupName == "" {
		lookupName = ref
	}
	acc, err := lk.AccountByName(ctx, orgID, lookupName)
	if err != nil {
		if ledger.KindOf(err) == ledger.KindNotFound {
			return Account{}, ledger.E(ledger.KindLine, "account %q not found", ref)
		}
		return Account{}, err
	}
	return requireActive(acc)
}

// ResolveDimension resolves a department/project/cost-center reference
// the same code-or-name way. A supplied reference that fails to resolve
// is an error, never silently dropped.
func ResolveDimension(ctx context.Context, lk Lookup, orgID int64, kind DimensionKind, ref string) (Dimension, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Dimension{}, ledger.E(ledger.KindLine, "%s reference is empty", strings.ToLower(string(kind)))
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return lk.DimensionByID(ctx, orgID, kind, id)
	}
	code, name := splitDisplay(ref)
	if dim, err := lk.DimensionByCode(ctx, orgID, kind, code); err == nil {
		return dim, nil
	} else if ledger.KindOf(err) != ledger.KindNotFound {
		return Dimension{}, err
	}
	lookupName := name
	if lookupName == "" {
		lookupName = ref
	}
	dim, err := lk.DimensionByName(ctx, orgID, kind, lookupName)
	if err != nil {
		if ledger.KindOf(err) == ledger.KindNotFound {
			return Dimension{}, ledger.E(ledger.KindLine, "%s %q not found", strings.ToLower(string(kind)), ref)
		}
		return Dimension{}, err
	}
	return dim, nil
}

func requireActive(acc Account) (Account, error) {
	if !acc.IsActive {
		return Account{}, ledger.E(ledger.KindLine, "account %s is inactive", acc.Code)
	}
	return acc, nil
}

// splitDisplay pulls the code out of "CODE — Name" style strings. Both
// the em-dash and plain hyphen separators occur in imported data.
func splitDisplay(ref string) (code, name string) {
	for _, sep := range []string{" — ", " - "} {
		if idx := strings.Index(ref, sep); idx > 0 {
			return strings.TrimSpace(ref[:idx]), strings.TrimSpace(ref[idx+len(sep):])
		}
	}
	return strings.TrimSpace(ref), ""
}
