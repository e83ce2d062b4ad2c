package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGLIntegrity scans posted journals for balance violations.
	TaskGLIntegrity = "gl:integrity"
	// TaskIdempotencyCleanup clears idempotency keys past retention.
	TaskIdempotencyCleanup = "ledger:idempotency_cleanup"
)

// GLIntegrityPayload configures one integrity scan run.
type GLIntegrityPayload struct {
	RequestedAt time.Time `json:"requested_at"`
}

// NewGLIntegrityTask constructs an Asynq task.
func NewGLIntegrityTask() (*asynq.Task, error) {
	data, err := json.Marshal(GLIntegrityPayload{RequestedAt: time.Now()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGLIntegrity, data), nil
}

// IdempotencyCleanupPayload carries the retention window for one run.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewIdempotencyCleanupTask constructs an Asynq task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
