package tax

import (
	"time"

	"github.com/shopspring/decimal"
)

// Code carries a tax rate. Compound codes tax a base that already
// includes the taxes calculated before them.
type Code struct {
	ID            int64           `json:"id"`
	OrgID         int64           `json:"org_id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Rate          decimal.Decimal `json:"rate"`
	IsCompound    bool            `json:"is_compound"`
	EffectiveFrom time.Time       `json:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to"`
}

// Rule selects applicable codes by wildcard-matching transaction-context
// dimensions. A blank dimension matches any context value.
type Rule struct {
	ID            int64      `json:"id"`
	OrgID         int64      `json:"org_id"`
	Priority      int        `json:"priority"`
	IsActive      bool       `json:"is_active"`
	EntryMode     string     `json:"entry_mode"`
	CountryCode   string     `json:"country_code"`
	StateCode     string     `json:"state_code"`
	City          string     `json:"city"`
	Category      string     `json:"category"`
	CustomerType  string     `json:"customer_type"`
	VendorType    string     `json:"vendor_type"`
	IndustryCode  string     `json:"industry_code"`
	EffectiveFrom time.Time  `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to"`
	CodeIDs       []int64    `json:"code_ids"`
	GroupCodeIDs  []int64    `json:"group_code_ids"`
}

// Context describes one transaction for tax resolution.
type Context struct {
	OrgID        int64
	EntryMode    string
	CountryCode  string
	StateCode    string
	City         string
	Category     string
	CustomerType string
	VendorType   string
	IndustryCode string
	Date         time.Time
}

// LineTax is one row of the per-line tax breakdown.
type LineTax struct {
	CodeID   int64           `json:"code_id"`
	Code     string          `json:"code"`
	Sequence int             `json:"sequence"`
	Base     decimal.Decimal `json:"base"`
	Amount   decimal.Decimal `json:"amount"`
}

// RuleSet is the date-filtered reference data the engine evaluates.
type RuleSet struct {
	Rules []Rule         `json:"rules"`
	Codes map[int64]Code `json:"codes"`
}

func (c Code) effectiveAt(date time.Time) bool {
	if date.Before(c.EffectiveFrom) {
		return false
	}
	if c.EffectiveTo != nil && date.After(*c.EffectiveTo) {
		return false
	}
	return true
}

func (r Rule) effectiveAt(date time.Time) bool {
	if date.Before(r.EffectiveFrom) {
		return false
	}
	if r.EffectiveTo != nil && date.After(*r.EffectiveTo) {
		return false
	}
	return true
}

// matches applies wildcard dimension matching against the context.
func (r Rule) matches(tc Context) bool {
	dims := []struct{ rule, ctx string }{
		{r.EntryMode, tc.EntryMode},
		{r.CountryCode, tc.CountryCode},
		{r.StateCode, tc.StateCode},
		{r.City, tc.City},
		{r.Category, tc.Category},
		{r.CustomerType, tc.CustomerType},
		{r.VendorType, tc.VendorType},
		{r.IndustryCode, tc.IndustryCode},
	}
	for _, d := range dims {
		if d.rule != "" && d.rule != d.ctx {
			return false
		}
	}
	return true
}
