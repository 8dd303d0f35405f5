package scheduler

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eternalsentinel/sentinel/internal/clock"
	"github.com/eternalsentinel/sentinel/internal/dbx"
	"github.com/eternalsentinel/sentinel/internal/logging"
	"github.com/eternalsentinel/sentinel/internal/randx"
	"github.com/eternalsentinel/sentinel/internal/server/queue"
	"github.com/eternalsentinel/sentinel/internal/server/store/auditlog"
	"github.com/eternalsentinel/sentinel/internal/server/store/checkins"
	"github.com/eternalsentinel/sentinel/internal/server/store/models"
	"github.com/eternalsentinel/sentinel/internal/server/store/pollingconfigs"
	"github.com/eternalsentinel/sentinel/internal/server/store/trustees"
	"github.com/eternalsentinel/sentinel/internal/server/store/users"
)

const batchSize = 100

// Sweeper runs the three bounded subscans of spec §4.4 plus a fourth
// reconciliation subscan for unnotified access grants, each restartable
// and idempotent because C2's idempotency keys coalesce duplicate enqueues
// from overlapping sweeps.
type Sweeper struct {
	DB     *sql.DB
	Clock  clock.Clock
	Logger logging.Logger
}

// Sweep runs all four subscans once.
func (s *Sweeper) Sweep(ctx context.Context) error {
	if err := s.sweepDueCheckIns(ctx); err != nil {
		return fmt.Errorf("scheduler: due check-ins: %w", err)
	}
	if err := s.sweepExpiredCheckIns(ctx); err != nil {
		return fmt.Errorf("scheduler: expired check-ins: %w", err)
	}
	if err := s.sweepTerminalGraceTimeouts(ctx); err != nil {
		return fmt.Errorf("scheduler: terminal grace timeouts: %w", err)
	}
	if err := s.sweepUnnotifiedAccessGrants(ctx); err != nil {
		return fmt.Errorf("scheduler: unnotified access grants: %w", err)
	}
	return nil
}

// sweepDueCheckIns is spec §4.4 step 1.
func (s *Sweeper) sweepDueCheckIns(ctx context.Context) error {
	now := s.Clock.Now()

	return dbx.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		cfgRepo := pollingconfigs.NewPostgresRepository(tx)
		ciRepo := checkins.NewPostgresRepository(tx)
		jobRepo := queue.NewTxRepository(tx)

		due, err := cfgRepo.DueForCheckIn(ctx, now, batchSize)
		if err != nil {
			return err
		}

		for _, cfg := range due {
			token, err := randx.MakeURLSafeToken(32)
			if err != nil {
				return fmt.Errorf("generate check-in token: %w", err)
			}

			ci, err := ciRepo.Create(ctx, &models.CheckIn{
				UserID:    cfg.UserID,
				Token:     token,
				Status:    models.CheckInPending,
				SentVia:   channelsFor(cfg),
				SentAt:    now,
				ExpiresAt: now.Add(models.WindowForInterval(cfg.Interval)),
			})
			if err != nil {
				return fmt.Errorf("create check-in for user %s: %w", cfg.UserID, err)
			}

			cfg.NextCheckInDue = now.Add(models.DurationForInterval(cfg.Interval))
			if err := cfgRepo.Update(ctx, cfg); err != nil {
				return fmt.Errorf("advance next check-in due for user %s: %w", cfg.UserID, err)
			}

			payload, err := queue.EncodePayload(queue.CheckinPayload{CheckInID: ci.ID})
			if err != nil {
				return err
			}
			if _, err := jobRepo.Enqueue(ctx, queue.CheckinQueue, payload, now, 3, queue.CheckinIdempotencyKey(ci.ID)); err != nil {
				return fmt.Errorf("enqueue checkin job for %s: %w", ci.ID, err)
			}
		}
		return nil
	})
}

func channelsFor(cfg *models.PollingConfig) []models.Channel {
	var chans []models.Channel
	if cfg.EmailEnabled {
		chans = append(chans, models.ChannelEmail)
	}
	if cfg.SMSEnabled {
		chans = append(chans, models.ChannelSMS)
	}
	return chans
}

// sweepExpiredCheckIns is spec §4.4 step 2.
func (s *Sweeper) sweepExpiredCheckIns(ctx context.Context) error {
	now := s.Clock.Now()

	return dbx.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		ciRepo := checkins.NewPostgresRepository(tx)
		cfgRepo := pollingconfigs.NewPostgresRepository(tx)
		jobRepo := queue.NewTxRepository(tx)

		expired, err := ciRepo.Expired(ctx, now, batchSize)
		if err != nil {
			return err
		}

		for _, ci := range expired {
			if err := ciRepo.MarkMissed(ctx, ci.ID); err != nil {
				s.Logger.Warn(ctx, "scheduler: check-in already resolved, skipping", "checkInId", ci.ID)
				continue
			}

			cfg, err := cfgRepo.GetByUserID(ctx, ci.UserID)
			if err != nil {
				return fmt.Errorf("load polling config for user %s: %w", ci.UserID, err)
			}

			if cfg.Status == models.StatusPaused || cfg.Status == models.StatusTriggered {
				continue
			}

			level := nextEscalationLevel(cfg.Status)
			payload, err := queue.EncodePayload(queue.EscalationPayload{
				UserID:              cfg.UserID,
				Level:               level,
				ExpectedMissedCount: cfg.CurrentMissedCheckIns,
			})
			if err != nil {
				return err
			}
			key := queue.EscalationIdempotencyKey(cfg.UserID, level, cfg.CurrentMissedCheckIns)
			if _, err := jobRepo.Enqueue(ctx, queue.EscalationQueue, payload, now, 3, key); err != nil {
				return fmt.Errorf("enqueue escalation job for %s: %w", cfg.UserID, err)
			}
		}
		return nil
	})
}

func nextEscalationLevel(s models.PollingStatus) int {
	switch s {
	case models.StatusActive:
		return 1
	case models.StatusGrace1:
		return 2
	default: // GRACE_2, GRACE_3
		return 3
	}
}

// sweepTerminalGraceTimeouts is spec §4.4 step 3.
func (s *Sweeper) sweepTerminalGraceTimeouts(ctx context.Context) error {
	now := s.Clock.Now()

	return dbx.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		cfgRepo := pollingconfigs.NewPostgresRepository(tx)
		jobRepo := queue.NewTxRepository(tx)

		timedOut, err := cfgRepo.TimedOutGrace3(ctx, now, batchSize)
		if err != nil {
			return err
		}

		for _, cfg := range timedOut {
			payload, err := queue.EncodePayload(queue.ReleasePayload{UserID: cfg.UserID})
			if err != nil {
				return err
			}
			if _, err := jobRepo.Enqueue(ctx, queue.ReleaseQueue, payload, now, 5, queue.ReleaseIdempotencyKey(cfg.UserID)); err != nil {
				return fmt.Errorf("enqueue release job for %s: %w", cfg.UserID, err)
			}
		}
		return nil
	})
}

// sweepUnnotifiedAccessGrants is the reconciliation subscan: a trustee whose
// AccessToken was minted by the release worker (C7) but who has no
// ACCESS_NOTIFIED audit row never got its notification delivered, most
// likely because the process crashed between the release transaction's
// commit and its post-commit email/sms enqueue. Re-enqueueing here is safe
// because the access token itself is only ever minted once, inside that
// same commit.
func (s *Sweeper) sweepUnnotifiedAccessGrants(ctx context.Context) error {
	now := s.Clock.Now()

	return dbx.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		trusteeRepo := trustees.NewPostgresRepository(tx)
		userRepo := users.NewPostgresRepository(tx)
		auditRepo := auditlog.NewPostgresRepository(tx)
		jobRepo := queue.NewTxRepository(tx)

		pending, err := trusteeRepo.PendingNotification(ctx, batchSize)
		if err != nil {
			return err
		}

		for _, t := range pending {
			user, err := userRepo.GetByID(ctx, t.UserID)
			if err != nil {
				return fmt.Errorf("load user %s for trustee notification reconciliation: %w", t.UserID, err)
			}

			accessURL := fmt.Sprintf("/trustee/access?token=%s", *t.AccessToken)
			body, err := queue.EncodePayload(queue.EmailPayload{
				To:      t.Email,
				Subject: fmt.Sprintf("%s has granted you access", user.DisplayName),
				HTML:    fmt.Sprintf(`<p>%s has granted you vault access: %s</p>`, user.DisplayName, accessURL),
				Text:    fmt.Sprintf("%s has granted you vault access: %s", user.DisplayName, accessURL),
			})
			if err != nil {
				return err
			}
			if _, err := jobRepo.Enqueue(ctx, queue.EmailQueue, body, now, 5, nil); err != nil {
				return fmt.Errorf("enqueue reconciled trustee access email for %s: %w", t.ID, err)
			}

			if err := auditRepo.Append(ctx, &models.AuditLog{
				UserID: t.UserID,
				Kind:   models.AuditAccessNotified,
				Detail: map[string]any{"trusteeId": t.ID},
			}); err != nil {
				return fmt.Errorf("append access-notified audit for %s: %w", t.ID, err)
			}
		}
		return nil
	})
}
