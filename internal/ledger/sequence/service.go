package sequence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

// maxAttempts bounds the collision retry loop. Collisions only occur
// against imported data, so the budget is generous.
const maxAttempts = 1000

// fiscalYearToken marks where the fiscal-year code is substituted.
const fiscalYearToken = "{FY}"

// Tx exposes the numbering operations that must run inside the caller's
// transaction. The config row lock is held for the whole
// read-modify-write window.
type Tx interface {
	GetConfigForUpdate(ctx context.Context, configID int64) (Config, error)
	UpdateCounter(ctx context.Context, configID int64, next int64, trigger *time.Time) error
}

// CollisionCheck reports whether a candidate number is already used.
type CollisionCheck func(ctx context.Context, candidate string) (bool, error)

// Request carries the inputs for one number allocation.
type Request struct {
	ConfigID       int64
	EffectiveDate  time.Time
	FiscalYearCode string
	Collision      CollisionCheck
}

// Service generates collision-free, gap-tolerant document numbers.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Next allocates the next document number under the config row lock.
// Gaps are acceptable, duplicates never are: after the retry budget the
// call fails rather than returning a number that might collide.
func (s *Service) Next(ctx context.Context, tx Tx, req Request) (string, error) {
	cfg, err := tx.GetConfigForUpdate(ctx, req.ConfigID)
	if err != nil {
		return "", err
	}

	seq := cfg.SequenceNext
	if seq < cfg.StartNumber {
		seq = cfg.StartNumber
	}

	var trigger *time.Time
	if cfg.Restart != nil {
		t := cfg.Restart.TriggerFor(req.EffectiveDate)
		if cfg.LastTrigger == nil || !cfg.LastTrigger.Equal(t) {
			seq = cfg.Restart.RestartFrom
			trigger = &t
		}
	}

	prefix, suffix := cfg.templateFor(req.EffectiveDate)
	if cfg.UseFiscalYear {
		prefix = strings.ReplaceAll(prefix, fiscalYearToken, req.FiscalYearCode)
		suffix = strings.ReplaceAll(suffix, fiscalYearToken, req.FiscalYearCode)
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate := prefix + pad(seq, cfg.Width) + suffix
		taken := false
		if req.Collision != nil {
			taken, err = req.Collision(ctx, candidate)
			if err != nil {
				return "", err
			}
		}
		if !taken {
			if err := tx.UpdateCounter(ctx, cfg.ID, seq+1, trigger); err != nil {
				return "", err
			}
			return candidate, nil
		}
		seq++
	}
	return "", ledger.E(ledger.KindNumbering, "unable to generate unique number for config %d after %d attempts", cfg.ID, maxAttempts)
}

func pad(seq int64, width int) string {
	if width <= 0 {
		return fmt.Sprintf("%d", seq)
	}
	return fmt.Sprintf("%0*d", width, seq)
}
