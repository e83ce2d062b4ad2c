// Package ledger holds the cross-cutting types of the posting engine:
// the error taxonomy, decimal scale configuration and entity references.
package ledger

import "github.com/shopspring/decimal"

// Scales carries the numeric precision the engine rounds to. The values
// are configuration, not assumptions; see app.Config.
type Scales struct {
	Rate   int32
	Amount int32
	Tax    int32
	Cash   int32
}

// DefaultScales matches the precision observed in existing ledger data.
func DefaultScales() Scales {
	return Scales{Rate: 6, Amount: 4, Tax: 2, Cash: 2}
}

// RoundAmount rounds a monetary amount half-up at the amount scale.
func (s Scales) RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(s.Amount)
}

// RoundTax rounds a tax amount half-up at the tax scale.
func (s Scales) RoundTax(d decimal.Decimal) decimal.Decimal {
	return d.Round(s.Tax)
}

// RoundCash rounds a payable amount half-up at the cash scale.
func (s Scales) RoundCash(d decimal.Decimal) decimal.Decimal {
	return d.Round(s.Cash)
}

// RoundRate rounds an exchange rate at the rate scale.
func (s Scales) RoundRate(d decimal.Decimal) decimal.Decimal {
	return d.Round(s.Rate)
}
