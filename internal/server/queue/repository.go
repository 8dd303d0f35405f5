package queue

import (
	"context"
	"time"
)

// Repository is the durable job store backing the Queue.
type Repository interface {
	// Enqueue inserts a new PENDING job. If idempotencyKey is non-nil and a
	// job with the same (queue, idempotencyKey) already exists, Enqueue
	// coalesces into the existing row and returns it unchanged instead of
	// inserting a duplicate (spec §4's "idempotency-key coalescing").
	Enqueue(ctx context.Context, queue string, payload []byte, runAt time.Time, maxAttempts int, idempotencyKey *string) (*Job, error)

	// Claim row-locks and returns up to limit PENDING jobs on queue whose
	// RunAt has passed, marking them RUNNING and incrementing Attempts. Uses
	// SELECT ... FOR UPDATE SKIP LOCKED plus a PENDING-guarded UPDATE so
	// concurrent workers never double-claim.
	Claim(ctx context.Context, queue string, asOf time.Time, limit int) ([]*Job, error)

	// Complete marks a RUNNING job DONE.
	Complete(ctx context.Context, jobID string) error

	// Retry records lastErr and reschedules the job to RunAt = asOf +
	// backoff, returning it to PENDING. Attempts is left as Claim set it.
	Retry(ctx context.Context, jobID string, asOf time.Time, backoff time.Duration, lastErr string) error

	// DeadLetter moves an exhausted job to the dead_letters table and marks
	// the original DEAD.
	DeadLetter(ctx context.Context, job *Job, lastErr string) error
}
