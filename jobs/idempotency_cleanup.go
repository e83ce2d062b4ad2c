package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyCleaner clears idempotency keys on journals past the
// retention window. Keys only need to live long enough to absorb
// client retries; clearing them frees the (org, key) unique slot for
// reuse.
type IdempotencyCleaner struct {
	pool      *pgxpool.Pool
	retention time.Duration
	logger    *slog.Logger
}

func NewIdempotencyCleaner(pool *pgxpool.Pool, retention time.Duration, logger *slog.Logger) *IdempotencyCleaner {
	return &IdempotencyCleaner{pool: pool, retention: retention, logger: logger}
}

// Handle processes TaskIdempotencyCleanup tasks.
func (c *IdempotencyCleaner) Handle(ctx context.Context, t *asynq.Task) error {
	retention := c.retention
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err == nil && payload.Retention > 0 {
		retention = payload.Retention
	}
	cutoff := time.Now().Add(-retention)
	tag, err := c.pool.Exec(ctx, `
		UPDATE journals
		SET idempotency_key = NULL, updated_at = NOW()
		WHERE idempotency_key IS NOT NULL
		  AND status IN ('POSTED', 'REVERSED', 'REJECTED')
		  AND created_at < $1`, cutoff)
	if err != nil {
		return err
	}
	c.logger.Info("idempotency keys cleared",
		slog.Int64("count", tag.RowsAffected()),
		slog.Time("cutoff", cutoff))
	return nil
}
