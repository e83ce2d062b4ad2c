package voucher

import (
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/ledger/accounts"
)

// validateAmounts enforces the line invariant: exactly one of
// debit/credit strictly positive, never both, never neither, and no
// negative amounts.
func validateAmounts(lineNo int, in LineInput) error {
	if in.Debit.Sign() < 0 || in.Credit.Sign() < 0 {
		return ledger.E(ledger.KindLine, "line %d: negative amount", lineNo)
	}
	debit := in.Debit.Sign() > 0
	credit := in.Credit.Sign() > 0
	if debit && credit {
		return ledger.E(ledger.KindLine, "line %d: cannot carry both debit and credit", lineNo)
	}
	if !debit && !credit {
		return ledger.E(ledger.KindLine, "line %d: requires a debit or a credit", lineNo)
	}
	return nil
}

// validateRequiredDimensions enforces the account's dimension flags
// against the resolved line.
func validateRequiredDimensions(lineNo int, acc accounts.Account, line Line) error {
	if acc.RequireDepartment && line.DepartmentID == nil {
		return ledger.E(ledger.KindLine, "line %d: account %s requires a department", lineNo, acc.Code)
	}
	if acc.RequireProject && line.ProjectID == nil {
		return ledger.E(ledger.KindLine, "line %d: account %s requires a project", lineNo, acc.Code)
	}
	if acc.RequireCostCenter && line.CostCenterID == nil {
		return ledger.E(ledger.KindLine, "line %d: account %s requires a cost center", lineNo, acc.Code)
	}
	return nil
}
