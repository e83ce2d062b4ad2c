package sequence

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

// Repository allocates numbers in a standalone transaction for callers
// that are not already inside one. The voucher orchestrator instead runs
// the same Tx operations on its own transaction.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &PgTx{Tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// PgTx implements Tx over a pgx transaction. Exported so the voucher
// repository can reuse it inside its own transaction boundary.
type PgTx struct {
	Tx pgx.Tx
}

// GetConfigForUpdate loads the config row under FOR UPDATE; the lock is
// released only when the enclosing transaction ends.
func (t *PgTx) GetConfigForUpdate(ctx context.Context, configID int64) (Config, error) {
	var cfg Config
	var restartFreq *string
	var restartFrom *int64
	err := t.Tx.QueryRow(ctx, `SELECT id, org_id, doc_type, prefix, suffix, width, start_number, sequence_next,
use_fiscal_year, restart_frequency, restart_from, last_trigger, created_at, updated_at
FROM document_sequences WHERE id=$1 FOR UPDATE`, configID).
		Scan(&cfg.ID, &cfg.OrgID, &cfg.DocType, &cfg.Prefix, &cfg.Suffix, &cfg.Width, &cfg.StartNumber, &cfg.SequenceNext,
			&cfg.UseFiscalYear, &restartFreq, &restartFrom, &cfg.LastTrigger, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Config{}, ledger.E(ledger.KindConfig, "document sequence %d not found", configID)
		}
		return Config{}, err
	}
	if restartFreq != nil && restartFrom != nil {
		cfg.Restart = &RestartRule{Frequency: RestartFrequency(*restartFreq), RestartFrom: *restartFrom}
	}
	rows, err := t.Tx.Query(ctx, `SELECT from_date, to_date, prefix, suffix
FROM document_sequence_overrides WHERE sequence_id=$1 ORDER BY from_date`, configID)
	if err != nil {
		return Config{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var o OverrideRule
		if err := rows.Scan(&o.FromDate, &o.ToDate, &o.Prefix, &o.Suffix); err != nil {
			return Config{}, err
		}
		cfg.Overrides = append(cfg.Overrides, o)
	}
	return cfg, rows.Err()
}

func (t *PgTx) UpdateCounter(ctx context.Context, configID int64, next int64, trigger *time.Time) error {
	if trigger != nil {
		_, err := t.Tx.Exec(ctx, `UPDATE document_sequences SET sequence_next=$2, last_trigger=$3, updated_at=NOW() WHERE id=$1`, configID, next, *trigger)
		return err
	}
	_, err := t.Tx.Exec(ctx, `UPDATE document_sequences SET sequence_next=$2, updated_at=NOW() WHERE id=$1`, configID, next)
	return err
}
