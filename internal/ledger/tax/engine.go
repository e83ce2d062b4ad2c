package tax

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

// RuleSource loads the effective rule set for an organization and date.
type RuleSource interface {
	RuleSet(ctx context.Context, orgID int64, date time.Time) (RuleSet, error)
}

// Engine resolves applicable tax codes and computes compound or flat
// amounts. Resolution order is significant: it feeds straight into
// calculation and reordering changes compound results.
type Engine struct {
	source RuleSource
	scales ledger.Scales
}

func NewEngine(source RuleSource, scales ledger.Scales) *Engine {
	return &Engine{source: source, scales: scales}
}

// ResolveApplicableTaxes returns the ordered, de-duplicated list of tax
// codes applying to the transaction context.
func (e *Engine) ResolveApplicableTaxes(ctx context.Context, tc Context) ([]Code, error) {
	set, err := e.source.RuleSet(ctx, tc.OrgID, tc.Date)
	if err != nil {
		return nil, err
	}

	var matched []Rule
	for _, r := range set.Rules {
		if !r.IsActive || !r.effectiveAt(tc.Date) || !r.matches(tc) {
			continue
		}
		matched = append(matched, r)
	}
	// Stable ordering: ascending priority, id as tie-break.
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Priority != matched[j].Priority {
			return matched[i].Priority < matched[j].Priority
		}
		return matched[i].ID < matched[j].ID
	})

	seen := make(map[int64]bool)
	var out []Code
	appendCode := func(id int64) {
		if seen[id] {
			return
		}
		seen[id] = true
		code, ok := set.Codes[id]
		if !ok || !code.effectiveAt(tc.Date) {
			return
		}
		out = append(out, code)
	}
	for _, r := range matched {
		for _, id := range r.CodeIDs {
			appendCode(id)
		}
		for _, id := range r.GroupCodeIDs {
			appendCode(id)
		}
	}
	return out, nil
}

// CodeByID loads one tax code effective at the date, for lines that
// name their code directly instead of going through rule resolution.
func (e *Engine) CodeByID(ctx context.Context, orgID, codeID int64, date time.Time) (Code, error) {
	set, err := e.source.RuleSet(ctx, orgID, date)
	if err != nil {
		return Code{}, err
	}
	code, ok := set.Codes[codeID]
	if !ok {
		return Code{}, ledger.E(ledger.KindLine, "tax code %d not found", codeID)
	}
	if !code.effectiveAt(date) {
		return Code{}, ledger.E(ledger.KindLine, "tax code %s not effective at %s", code.Code, date.Format("2006-01-02"))
	}
	return code, nil
}

// CalculateLineTaxes walks the ordered code list accumulating a running
// prior-tax total. Flat codes tax the original base; compound codes tax
// base plus prior taxes. Amounts round half-up at the tax scale.
func (e *Engine) CalculateLineTaxes(base decimal.Decimal, codes []Code, date time.Time) []LineTax {
	priorTaxTotal := decimal.Zero
	out := make([]LineTax, 0, len(codes))
	for _, code := range codes {
		if !code.effectiveAt(date) {
			continue
		}
		taxable := base
		if code.IsCompound {
			taxable = base.Add(priorTaxTotal)
		}
		amount := e.scales.RoundTax(taxable.Mul(code.Rate).Div(decimal.NewFromInt(100)))
		priorTaxTotal = priorTaxTotal.Add(amount)
		out = append(out, LineTax{
			CodeID:   code.ID,
			Code:     code.Code,
			Sequence: len(out) + 1,
			Base:     taxable,
			Amount:   amount,
		})
	}
	return out
}

// TotalTax sums a breakdown.
func TotalTax(breakdown []LineTax) decimal.Decimal {
	total := decimal.Zero
	for _, lt := range breakdown {
		total = total.Add(lt.Amount)
	}
	return total
}
