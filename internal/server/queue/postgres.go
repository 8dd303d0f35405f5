package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eternalsentinel/sentinel/internal/dbx"
	"github.com/google/uuid"
)

// PostgresRepository is the C2 Postgres-backed implementation of Repository.
// db is used for every read/write so the repository can be constructed
// against either a top-level *sql.DB (workers, enqueue from HTTP handlers)
// or an ambient *sql.Tx (the Scheduler enqueues a job in the same
// transaction as the state-store write that caused it, per spec §4.4 step
// 1). rawDB is only used by DeadLetter, which always opens its own
// transaction and is therefore only ever called on a top-level instance.
type PostgresRepository struct {
	db    dbx.DBTX
	rawDB *sql.DB
}

// NewPostgresRepository constructs a top-level repository, backed by a
// *sql.DB, that can also dead-letter jobs.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, rawDB: db}
}

// NewTxRepository constructs a repository bound to an ambient transaction,
// so its writes commit atomically with the caller's other state-store
// writes. DeadLetter is not valid on a repository built this way.
func NewTxRepository(tx dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: tx}
}

func (r *PostgresRepository) Enqueue(ctx context.Context, queue string, payload []byte, runAt time.Time, maxAttempts int, idempotencyKey *string) (*Job, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO jobs (id, queue, payload, run_at, status, max_attempts, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (queue, idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING
		RETURNING id, queue, payload, run_at, status, attempts, max_attempts, idempotency_key, last_error, created_at, updated_at
	`
	j, err := r.scanOne(ctx, query, id, queue, payload, runAt, StatusPending, maxAttempts, idempotencyKey)
	if err == nil {
		return j, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("queue: enqueue: %w", err)
	}

	// Conflict: coalesce into the existing row for this idempotency key.
	existing, err := r.getByIdempotencyKey(ctx, queue, idempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("queue: enqueue coalesce lookup: %w", err)
	}
	return existing, nil
}

func (r *PostgresRepository) getByIdempotencyKey(ctx context.Context, queue string, idempotencyKey *string) (*Job, error) {
	query := `
		SELECT id, queue, payload, run_at, status, attempts, max_attempts, idempotency_key, last_error, created_at, updated_at
		FROM jobs WHERE queue = $1 AND idempotency_key = $2
	`
	return r.scanOne(ctx, query, queue, idempotencyKey)
}

func (r *PostgresRepository) scanOne(ctx context.Context, query string, args ...any) (*Job, error) {
	j := &Job{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&j.ID, &j.Queue, &j.Payload, &j.RunAt, &j.Status, &j.Attempts, &j.MaxAttempts,
		&j.IdempotencyKey, &j.LastError, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (r *PostgresRepository) Claim(ctx context.Context, queue string, asOf time.Time, limit int) ([]*Job, error) {
	query := `
		SELECT id, queue, payload, run_at, status, attempts, max_attempts, idempotency_key, last_error, created_at, updated_at
		FROM jobs
		WHERE queue = $1 AND status = $2 AND run_at <= $3
		ORDER BY run_at ASC
		LIMIT $4
		FOR UPDATE SKIP LOCKED
	`
	rows, err := r.db.QueryContext(ctx, query, queue, StatusPending, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("queue: claim: %w", err)
	}
	defer rows.Close()

	var claimed []*Job
	for rows.Next() {
		j := &Job{}
		if err := rows.Scan(
			&j.ID, &j.Queue, &j.Payload, &j.RunAt, &j.Status, &j.Attempts, &j.MaxAttempts,
			&j.IdempotencyKey, &j.LastError, &j.CreatedAt, &j.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("queue: scan claimed job: %w", err)
		}
		claimed = append(claimed, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("queue: claim rows: %w", err)
	}

	out := claimed[:0]
	for _, j := range claimed {
		res, err := r.db.ExecContext(ctx, `UPDATE jobs SET status = $2, attempts = attempts + 1, updated_at = now() WHERE id = $1 AND status = 'PENDING'`,
			j.ID, StatusRunning)
		if err != nil {
			return nil, fmt.Errorf("queue: mark claimed running: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("queue: mark claimed running rows affected: %w", err)
		}
		if n == 0 {
			// Another claimer marked this job RUNNING first.
			continue
		}
		j.Status = StatusRunning
		j.Attempts++
		out = append(out, j)
	}

	return out, nil
}

func (r *PostgresRepository) Complete(ctx context.Context, jobID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE jobs SET status = $2, updated_at = now() WHERE id = $1`, jobID, StatusDone)
	if err != nil {
		return fmt.Errorf("queue: complete: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Retry(ctx context.Context, jobID string, asOf time.Time, backoff time.Duration, lastErr string) error {
	query := `
		UPDATE jobs SET status = $2, run_at = $3, last_error = $4, updated_at = now()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, jobID, StatusPending, asOf.Add(backoff), lastErr)
	if err != nil {
		return fmt.Errorf("queue: retry: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeadLetter(ctx context.Context, job *Job, lastErr string) error {
	if r.rawDB == nil {
		return fmt.Errorf("queue: DeadLetter requires a top-level repository, not one bound to an ambient transaction")
	}
	return dbx.WithTx(ctx, r.rawDB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO dead_letters (id, queue, payload, attempts, last_error, original_job_id)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.NewString(), job.Queue, job.Payload, job.Attempts, lastErr, job.ID); err != nil {
			return fmt.Errorf("queue: insert dead letter: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE jobs SET status = $2, last_error = $3, updated_at = now() WHERE id = $1`,
			job.ID, StatusDead, lastErr); err != nil {
			return fmt.Errorf("queue: mark job dead: %w", err)
		}
		return nil
	})
}
