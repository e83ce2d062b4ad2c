package sequence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

type memorySeqTx struct {
	mu      sync.Mutex
	configs map[int64]Config
}

func newMemorySeqTx(cfgs ...Config) *memorySeqTx {
	tx := &memorySeqTx{configs: make(map[int64]Config)}
	for _, c := range cfgs {
		tx.configs[c.ID] = c
	}
	return tx
}

func (t *memorySeqTx) GetConfigForUpdate(ctx context.Context, configID int64) (Config, error) {
	t.mu.Lock()
	cfg, ok := t.configs[configID]
	if !ok {
		t.mu.Unlock()
		return Config{}, ledger.E(ledger.KindConfig, "sequence config %d not found", configID)
	}
	return cfg, nil
}

func (t *memorySeqTx) UpdateCounter(ctx context.Context, configID int64, next int64, trigger *time.Time) error {
	cfg := t.configs[configID]
	cfg.SequenceNext = next
	if trigger != nil {
		cfg.LastTrigger = trigger
	}
	t.configs[configID] = cfg
	t.mu.Unlock()
	return nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextPadsAndIncrements(t *testing.T) {
	tx := newMemorySeqTx(Config{ID: 1, Prefix: "JV-", Width: 5, StartNumber: 1, SequenceNext: 42})
	svc := NewService()

	got, err := svc.Next(context.Background(), tx, Request{ConfigID: 1, EffectiveDate: date(2026, 3, 10)})
	require.NoError(t, err)
	require.Equal(t, "JV-00042", got)
	require.Equal(t, int64(43), tx.configs[1].SequenceNext)
}

func TestNextFloorsAtStartNumber(t *testing.T) {
	tx := newMemorySeqTx(Config{ID: 1, Width: 3, StartNumber: 100, SequenceNext: 7})
	svc := NewService()

	got, err := svc.Next(context.Background(), tx, Request{ConfigID: 1, EffectiveDate: date(2026, 3, 10)})
	require.NoError(t, err)
	require.Equal(t, "100", got)
}

func TestNextRestartsOnNewTrigger(t *testing.T) {
	jan := date(2026, 1, 1)
	tx := newMemorySeqTx(Config{
		ID: 1, Prefix: "INV-", Width: 4, StartNumber: 1, SequenceNext: 557,
		Restart:     &RestartRule{Frequency: RestartYearly, RestartFrom: 1},
		LastTrigger: &jan,
	})
	svc := NewService()

	// Same trigger year: keep counting.
	got, err := svc.Next(context.Background(), tx, Request{ConfigID: 1, EffectiveDate: date(2026, 6, 1)})
	require.NoError(t, err)
	require.Equal(t, "INV-0557", got)

	// New year: reset to restart_from, remember the new trigger.
	got, err = svc.Next(context.Background(), tx, Request{ConfigID: 1, EffectiveDate: date(2027, 1, 5)})
	require.NoError(t, err)
	require.Equal(t, "INV-0001", got)
	require.Equal(t, date(2027, 1, 1), *tx.configs[1].LastTrigger)
}

func TestNextAppliesDateWindowedOverride(t *testing.T) {
	tx := newMemorySeqTx(Config{
		ID: 1, Prefix: "STD-", Width: 3, StartNumber: 1, SequenceNext: 9,
		Overrides: []OverrideRule{{
			FromDate: date(2026, 4, 1), ToDate: date(2026, 4, 30), Prefix: "APR-",
		}},
	})
	svc := NewService()

	got, err := svc.Next(context.Background(), tx, Request{ConfigID: 1, EffectiveDate: date(2026, 4, 15)})
	require.NoError(t, err)
	require.Equal(t, "APR-009", got)

	got, err = svc.Next(context.Background(), tx, Request{ConfigID: 1, EffectiveDate: date(2026, 5, 1)})
	require.NoError(t, err)
	require.Equal(t, "STD-010", got)
}

func TestNextSubstitutesFiscalYearToken(t *testing.T) {
	tx := newMemorySeqTx(Config{ID: 1, Prefix: "JV/{FY}/", Width: 4, StartNumber: 1, SequenceNext: 12, UseFiscalYear: true})
	svc := NewService()

	got, err := svc.Next(context.Background(), tx, Request{ConfigID: 1, EffectiveDate: date(2026, 7, 1), FiscalYearCode: "FY26"})
	require.NoError(t, err)
	require.Equal(t, "JV/FY26/0012", got)
}

func TestNextSkipsCollisions(t *testing.T) {
	tx := newMemorySeqTx(Config{ID: 1, Width: 3, StartNumber: 1, SequenceNext: 5})
	svc := NewService()

	taken := map[string]bool{"005": true, "006": true}
	got, err := svc.Next(context.Background(), tx, Request{
		ConfigID:      1,
		EffectiveDate: date(2026, 3, 1),
		Collision: func(_ context.Context, candidate string) (bool, error) {
			return taken[candidate], nil
		},
	})
	require.NoError(t, err)
	require.Equal(t, "007", got)
	require.Equal(t, int64(8), tx.configs[1].SequenceNext)
}

func TestNextFailsAfterRetryBudget(t *testing.T) {
	tx := newMemorySeqTx(Config{ID: 1, Width: 3, StartNumber: 1, SequenceNext: 1})
	svc := NewService()

	_, err := svc.Next(context.Background(), tx, Request{
		ConfigID:      1,
		EffectiveDate: date(2026, 3, 1),
		Collision: func(_ context.Context, _ string) (bool, error) {
			return true, nil
		},
	})
	require.Error(t, err)
	require.Equal(t, ledger.KindNumbering, ledger.KindOf(err))
}

func TestNextConcurrentCallersNeverShareANumber(t *testing.T) {
	tx := newMemorySeqTx(Config{ID: 1, Width: 4, StartNumber: 1, SequenceNext: 1})
	svc := NewService()

	const callers = 50
	results := make(chan string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := svc.Next(context.Background(), tx, Request{ConfigID: 1, EffectiveDate: date(2026, 3, 1)})
			require.NoError(t, err)
			results <- got
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for n := range results {
		require.False(t, seen[n], "number %s issued twice", n)
		seen[n] = true
	}
	require.Len(t, seen, callers)
}
