package workers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eternalsentinel/sentinel/internal/clock"
	"github.com/eternalsentinel/sentinel/internal/dbx"
	"github.com/eternalsentinel/sentinel/internal/logging"
	"github.com/eternalsentinel/sentinel/internal/randx"
	"github.com/eternalsentinel/sentinel/internal/server/escalation"
	"github.com/eternalsentinel/sentinel/internal/server/queue"
	"github.com/eternalsentinel/sentinel/internal/server/store/auditlog"
	"github.com/eternalsentinel/sentinel/internal/server/store/checkins"
	"github.com/eternalsentinel/sentinel/internal/server/store/models"
	"github.com/eternalsentinel/sentinel/internal/server/store/pollingconfigs"
)

// EscalationWorker consumes the escalation queue (spec §4.6): applies one
// Miss transition to the user's PollingConfig, transactionally, and enqueues
// the follow-up grace-period check-in (plus, on reaching GRACE_3, the
// delayed release job).
type EscalationWorker struct {
	DB     *sql.DB
	Clock  clock.Clock
	Logger logging.Logger
}

// HandleEscalation is a queue.Handler for queue.EscalationQueue.
func (w *EscalationWorker) HandleEscalation(ctx context.Context, payload []byte) error {
	var p queue.EscalationPayload
	if err := queue.DecodePayload(payload, &p); err != nil {
		return fmt.Errorf("workers: decode escalation payload: %w", err)
	}

	return dbx.WithTx(ctx, w.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		cfgRepo := pollingconfigs.NewPostgresRepository(tx)
		ciRepo := checkins.NewPostgresRepository(tx)
		jobRepo := queue.NewTxRepository(tx)
		auditRepo := auditlog.NewPostgresRepository(tx)

		cfg, err := cfgRepo.GetByUserIDForUpdate(ctx, p.UserID)
		if err != nil {
			return fmt.Errorf("workers: load polling config for user %s: %w", p.UserID, err)
		}

		now := w.Clock.Now()
		ev := escalation.Miss(p.ExpectedMissedCount)
		next, effects := escalation.Step(*cfg, ev, now)

		if next.Status == cfg.Status && next.CurrentMissedCheckIns == cfg.CurrentMissedCheckIns {
			// Stale or noop transition (race-cancel or paused/triggered
			// config) — apply whatever audit effect Step still emitted and
			// commit without touching CheckIns or the queue further.
			return applyAuditEffects(ctx, auditRepo, p.UserID, effects)
		}

		if err := cfgRepo.Update(ctx, &next); err != nil {
			return fmt.Errorf("workers: update polling config for user %s: %w", p.UserID, err)
		}

		var audits []escalation.Effect
		for _, eff := range effects {
			switch eff.Kind {
			case escalation.EffectCreateGracePeriodCheckIn:
				token, err := randx.MakeURLSafeToken(32)
				if err != nil {
					return fmt.Errorf("workers: generate grace-period check-in token: %w", err)
				}
				ci, err := ciRepo.Create(ctx, &models.CheckIn{
					UserID:    p.UserID,
					Token:     token,
					Status:    models.CheckInPending,
					SentVia:   channelsFor(&next),
					SentAt:    now,
					ExpiresAt: now.Add(eff.ExpiresIn),
				})
				if err != nil {
					return fmt.Errorf("workers: create grace-period check-in: %w", err)
				}
				body, err := queue.EncodePayload(queue.CheckinPayload{CheckInID: ci.ID})
				if err != nil {
					return err
				}
				if _, err := jobRepo.Enqueue(ctx, queue.CheckinQueue, body, now, 3, queue.CheckinIdempotencyKey(ci.ID)); err != nil {
					return fmt.Errorf("workers: enqueue grace-period checkin job: %w", err)
				}

			case escalation.EffectEnqueueReleaseAt:
				body, err := queue.EncodePayload(queue.ReleasePayload{UserID: p.UserID})
				if err != nil {
					return err
				}
				if _, err := jobRepo.Enqueue(ctx, queue.ReleaseQueue, body, eff.RunAt, 5, queue.ReleaseIdempotencyKey(p.UserID)); err != nil {
					return fmt.Errorf("workers: enqueue release job: %w", err)
				}

			case escalation.EffectAppendAudit:
				audits = append(audits, eff)
			}
		}

		// Audit rows are appended last, after the check-in and any release job.
		for _, eff := range audits {
			if err := auditRepo.Append(ctx, &models.AuditLog{
				UserID: p.UserID,
				Kind:   eff.AuditKind,
				Detail: map[string]any{"level": p.Level, "status": string(next.Status)},
			}); err != nil {
				return fmt.Errorf("workers: append escalation audit: %w", err)
			}
		}

		return nil
	})
}

func applyAuditEffects(ctx context.Context, auditRepo auditlog.Repository, userID string, effects []escalation.Effect) error {
	for _, eff := range effects {
		if eff.Kind != escalation.EffectAppendAudit {
			continue
		}
		if err := auditRepo.Append(ctx, &models.AuditLog{
			UserID: userID,
			Kind:   eff.AuditKind,
		}); err != nil {
			return fmt.Errorf("workers: append stale-escalation audit: %w", err)
		}
	}
	return nil
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
