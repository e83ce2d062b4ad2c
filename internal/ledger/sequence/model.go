package sequence

import (
	"time"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

// RestartFrequency controls when a counter resets.
type RestartFrequency string

const (
	RestartYearly  RestartFrequency = "YEARLY"
	RestartMonthly RestartFrequency = "MONTHLY"
	RestartDaily   RestartFrequency = "DAILY"
)

// RestartRule resets the counter when the trigger date derived from the
// effective date differs from the last applied trigger.
type RestartRule struct {
	Frequency   RestartFrequency
	RestartFrom int64
}

// OverrideRule swaps prefix/suffix inside a date window.
type OverrideRule struct {
	FromDate time.Time
	ToDate   time.Time
	Prefix   string
	Suffix   string
}

// Config is the numbering configuration for one (organization,
// document-type) pair. SequenceNext is the single source of truth for
// the next number and is mutated exclusively under a row lock.
type Config struct {
	ID            int64
	OrgID         int64
	DocType       string
	Prefix        string
	Suffix        string
	Width         int
	StartNumber   int64
	SequenceNext  int64
	UseFiscalYear bool
	Restart       *RestartRule
	LastTrigger   *time.Time
	Overrides     []OverrideRule
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (c Config) EntityKind() ledger.EntityKind { return ledger.EntitySequence }
func (c Config) EntityID() int64               { return c.ID }

// TriggerFor derives the restart trigger date for an effective date.
func (r RestartRule) TriggerFor(date time.Time) time.Time {
	switch r.Frequency {
	case RestartMonthly:
		return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	case RestartDaily:
		return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(date.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
}

// templateFor resolves the prefix/suffix pair effective at the date,
// preferring a matching date-windowed override.
func (c Config) templateFor(date time.Time) (string, string) {
	for _, o := range c.Overrides {
		if !date.Before(o.FromDate) && !date.After(o.ToDate) {
			return o.Prefix, o.Suffix
		}
	}
	return c.Prefix, c.Suffix
}
