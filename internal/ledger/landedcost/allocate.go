package landedcost

import (
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

// Allocate spreads totalCost across the targets proportionally to the
// basis measure. Each share is rounded at the cash scale and the last
// target absorbs the rounding residual, so the allocated amounts always
// sum to totalCost exactly.
func Allocate(totalCost decimal.Decimal, targets []TargetLine, basis Basis, scales ledger.Scales) ([]decimal.Decimal, error) {
	if len(targets) == 0 {
		return nil, ledger.E(ledger.KindLandedCost, "no target lines to allocate over")
	}
	if totalCost.Sign() <= 0 {
		return nil, ledger.E(ledger.KindLandedCost, "total cost must be positive")
	}

	weights := make([]decimal.Decimal, len(targets))
	totalWeight := decimal.Zero
	for i, t := range targets {
		w, err := measure(t, basis)
		if err != nil {
			return nil, err
		}
		if w.Sign() < 0 {
			return nil, ledger.E(ledger.KindLandedCost, "target line %d has a negative %s measure", t.ID, basis)
		}
		weights[i] = w
		totalWeight = totalWeight.Add(w)
	}
	if totalWeight.Sign() == 0 {
		return nil, ledger.E(ledger.KindLandedCost, "all target lines have zero %s measure", basis)
	}

	out := make([]decimal.Decimal, len(targets))
	allocated := decimal.Zero
	for i := range targets {
		if i == len(targets)-1 {
			out[i] = totalCost.Sub(allocated)
			break
		}
		share := scales.RoundCash(totalCost.Mul(weights[i]).Div(totalWeight))
		out[i] = share
		allocated = allocated.Add(share)
	}
	return out, nil
}

func measure(t TargetLine, basis Basis) (decimal.Decimal, error) {
	switch basis {
	case BasisValue:
		return t.ExtendedCost, nil
	case BasisQuantity:
		return t.Quantity, nil
	case BasisWeight:
		return t.Weight, nil
	default:
		return decimal.Zero, ledger.E(ledger.KindLandedCost, "unknown allocation basis %q", basis)
	}
}
