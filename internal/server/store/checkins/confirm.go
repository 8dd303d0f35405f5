package checkins

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eternalsentinel/sentinel/internal/apperrors"
	"github.com/eternalsentinel/sentinel/internal/clock"
	"github.com/eternalsentinel/sentinel/internal/dbx"
	"github.com/eternalsentinel/sentinel/internal/server/store/auditlog"
	"github.com/eternalsentinel/sentinel/internal/server/store/models"
	"github.com/eternalsentinel/sentinel/internal/server/store/pollingconfigs"
)

// ConfirmCheckIn is the one compound, cross-table transactional operation in
// the State Store (spec §4.1 "Confirming a check-in"). Given a check-in
// token it atomically, within a single transaction:
//
//  1. loads and row-locks the CheckIn by token (FOR UPDATE)
//  2. rejects it if already resolved or past ExpiresAt
//  3. marks it CONFIRMED and stamps RespondedAt
//  4. row-locks and loads the owning PollingConfig, rejecting if it is
//     already TRIGGERED (terminal; Confirm has no cell for it)
//  5. resets CurrentMissedCheckIns to 0, clears TriggeredAt, returns Status
//     to ACTIVE, and advances NextCheckInDue by one cadence from now
//  6. appends a CHECK_IN_CONFIRMED AuditLog row
//
// All of it commits together or none of it does: a crash between steps
// never leaves a CONFIRMED check-in paired with an un-reset escalation
// state, which is the one invariant this function exists to hold (spec
// §4.3's transition table assumes Confirm is atomic).
func ConfirmCheckIn(ctx context.Context, db *sql.DB, c clock.Clock, token string) (*models.CheckIn, *models.PollingConfig, error) {
	var checkIn *models.CheckIn
	var config *models.PollingConfig

	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		ciRepo := NewPostgresRepository(tx)
		cfgRepo := pollingconfigs.NewPostgresRepository(tx)
		auditRepo := auditlog.NewPostgresRepository(tx)

		found, err := ciRepo.getByTokenForUpdate(ctx, token)
		if err != nil {
			return err
		}

		now := c.Now()
		if found.Status != models.CheckInPending {
			return apperrors.ErrAlreadyResolved
		}
		if now.After(found.ExpiresAt) {
			return apperrors.ErrExpired
		}

		found.Status = models.CheckInConfirmed
		found.RespondedAt = &now
		if _, err := tx.ExecContext(ctx, `
			UPDATE check_ins SET status = $2, responded_at = $3 WHERE id = $1
		`, found.ID, found.Status, found.RespondedAt); err != nil {
			return fmt.Errorf("store: confirm check-in: %w", err)
		}

		cfg, err := cfgRepo.GetByUserIDForUpdate(ctx, found.UserID)
		if err != nil {
			return err
		}
		if cfg.Status == models.StatusTriggered {
			return apperrors.ErrAlreadyResolved
		}

		cfg.CurrentMissedCheckIns = 0
		cfg.TriggeredAt = nil
		cfg.Status = models.StatusActive
		cfg.LastCheckInAt = &now
		cfg.NextCheckInDue = now.Add(models.DurationForInterval(cfg.Interval))

		if err := cfgRepo.Update(ctx, cfg); err != nil {
			return err
		}

		if err := auditRepo.Append(ctx, &models.AuditLog{
			UserID: found.UserID,
			Kind:   models.AuditCheckInConfirmed,
			Detail: map[string]any{"checkInId": found.ID},
		}); err != nil {
			return fmt.Errorf("store: append confirm audit: %w", err)
		}

		checkIn, config = found, cfg
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return checkIn, config, nil
}

// getByTokenForUpdate loads a CheckIn by token with a row lock so a racing
// Scheduler "expired check-ins" sweep cannot mark it MISSED concurrently.
func (r *PostgresRepository) getByTokenForUpdate(ctx context.Context, token string) (*models.CheckIn, error) {
	return r.scanOne(ctx, `
		SELECT id, user_id, token, status, sent_via, sent_at, responded_at, expires_at
		FROM check_ins WHERE token = $1 FOR UPDATE
	`, token)
}
