package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/eternalsentinel/sentinel/internal/clock"
	"github.com/eternalsentinel/sentinel/internal/logging"
)

// Handler processes one job's decoded payload. Any non-nil return value
// reschedules the job with backoff until its Attempts reach MaxAttempts,
// after which the job is dead-lettered.
type Handler func(ctx context.Context, payload []byte) error

// Runner polls one queue and dispatches claimed jobs to a Handler, capping
// in-flight jobs at Concurrency via a weighted semaphore — grounded on the
// teacher's worker-pool-free style plus golang.org/x/sync/semaphore, which
// the rest of the retrieval pack reaches for to bound fan-out.
type Runner struct {
	Queue       string
	Repo        Repository
	Handler     Handler
	Concurrency int64
	BaseBackoff time.Duration
	PollEvery   time.Duration
	Clock       clock.Clock
	Logger      logging.Logger
}

// Run polls the queue until ctx is cancelled, claiming up to Concurrency
// jobs at a time and running each Handler in its own goroutine.
func (r *Runner) Run(ctx context.Context) error {
	sem := semaphore.NewWeighted(r.Concurrency)
	ticker := time.NewTicker(r.PollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Wait for in-flight handlers to finish before returning.
			_ = sem.Acquire(context.Background(), r.Concurrency)
			return ctx.Err()
		case <-ticker.C:
			r.claimAndDispatch(ctx, sem)
		}
	}
}

func (r *Runner) claimAndDispatch(ctx context.Context, sem *semaphore.Weighted) {
	jobs, err := r.Repo.Claim(ctx, r.Queue, r.Clock.Now(), int(r.Concurrency))
	if err != nil {
		r.Logger.Error(ctx, "queue: claim failed", "queue", r.Queue, "err", err)
		return
	}

	for _, job := range jobs {
		job := job
		if err := sem.Acquire(ctx, 1); err != nil {
			return
		}
		go func() {
			defer sem.Release(1)
			r.runOne(ctx, job)
		}()
	}
}

func (r *Runner) runOne(ctx context.Context, job *Job) {
	err := r.Handler(ctx, job.Payload)
	if err == nil {
		if err := r.Repo.Complete(ctx, job.ID); err != nil {
			r.Logger.Error(ctx, "queue: complete failed", "jobId", job.ID, "err", err)
		}
		return
	}

	if job.Attempts >= job.MaxAttempts {
		if dlErr := r.Repo.DeadLetter(ctx, job, err.Error()); dlErr != nil {
			r.Logger.Error(ctx, "queue: dead-letter failed", "jobId", job.ID, "err", dlErr)
		}
		r.Logger.Warn(ctx, "queue: job dead-lettered", "jobId", job.ID, "queue", r.Queue, "attempts", job.Attempts)
		return
	}

	delay := BackoffForAttempt(r.BaseBackoff, job.Attempts)
	if retryErr := r.Repo.Retry(ctx, job.ID, r.Clock.Now(), delay, err.Error()); retryErr != nil {
		r.Logger.Error(ctx, "queue: retry failed", "jobId", job.ID, "err", retryErr)
	}
}

// EncodePayload is a small json.Marshal wrapper used by callers enqueuing
// typed job payloads.
func EncodePayload(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("queue: encode payload: %w", err)
	}
	return b, nil
}

// DecodePayload is the matching json.Unmarshal wrapper for Handlers.
func DecodePayload(b []byte, v any) error {
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("queue: decode payload: %w", err)
	}
	return nil
}
