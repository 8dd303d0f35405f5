// Package scheduler is the Scheduler (C4): a single-instance periodic
// sweeper gated by a distributed lease on a reserved row, grounded on the
// teacher's app.go goroutine-plus-signal-channel shutdown shape and on
// dbx.WithTx for each subscan's transactional row selection. No teacher
// file runs a periodic sweep. The lease is a single conditional UPDATE on a
// reserved scheduler_lease row, not a SELECT ... FOR UPDATE SKIP LOCKED probe.
package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// acquireLease attempts to become (or renew) the sole active sweeper by
// claiming the singleton scheduler_lease row. It succeeds if the row is
// unheld, expired, or already held by holderID, and extends expiresAt to
// now+ttl in the same statement.
func acquireLease(ctx context.Context, db *sql.DB, holderID string, now time.Time, ttl time.Duration) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE scheduler_lease
		SET holder_id = $1, expires_at = $2
		WHERE id = 1 AND (holder_id IS NULL OR holder_id = $1 OR expires_at < $3)
	`, holderID, now.Add(ttl), now)
	if err != nil {
		return false, fmt.Errorf("scheduler: acquire lease: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("scheduler: acquire lease rows affected: %w", err)
	}
	return n == 1, nil
}

// releaseLease gives up the lease early (used on graceful shutdown) so a
// peer instance doesn't have to wait out the full TTL.
func releaseLease(ctx context.Context, db *sql.DB, holderID string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE scheduler_lease SET holder_id = NULL, expires_at = NULL
		WHERE id = 1 AND holder_id = $1
	`, holderID)
	if err != nil {
		return fmt.Errorf("scheduler: release lease: %w", err)
	}
	return nil
}
