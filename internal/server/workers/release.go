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
	"github.com/eternalsentinel/sentinel/internal/server/store/letters"
	"github.com/eternalsentinel/sentinel/internal/server/store/models"
	"github.com/eternalsentinel/sentinel/internal/server/store/pollingconfigs"
	"github.com/eternalsentinel/sentinel/internal/server/store/trustees"
	"github.com/eternalsentinel/sentinel/internal/server/store/users"
)

// auditAppender is the subset of auditlog.Repository notifyAfterCommit
// needs; satisfied by both *auditlog.PostgresRepository and test fakes.
type auditAppender interface {
	Append(ctx context.Context, e *models.AuditLog) error
}

// ReleaseWorker consumes the release queue (spec §4.7), run at queue
// concurrency 1 within each process (not across replicas): it runs the death
// protocol at most once per user, guarded by the PollingConfig row lock and
// the TRIGGERED status itself.
type ReleaseWorker struct {
	DB            *sql.DB
	Clock         clock.Clock
	Users         users.Repository
	Letters       letters.Repository
	Queue         queue.Repository
	Audit         auditAppender
	PublicBaseURL string
	Logger        logging.Logger
}

// HandleRelease is a queue.Handler for queue.ReleaseQueue.
func (w *ReleaseWorker) HandleRelease(ctx context.Context, payload []byte) error {
	var p queue.ReleasePayload
	if err := queue.DecodePayload(payload, &p); err != nil {
		return fmt.Errorf("workers: decode release payload: %w", err)
	}

	var (
		granted          []*models.Trustee
		ready            []*models.FinalLetter
		alreadyTriggered bool
	)

	err := dbx.WithTx(ctx, w.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		cfgRepo := pollingconfigs.NewPostgresRepository(tx)
		trusteeRepo := trustees.NewPostgresRepository(tx)
		letterRepo := letters.NewPostgresRepository(tx)
		auditRepo := auditlog.NewPostgresRepository(tx)

		cfg, err := cfgRepo.GetByUserIDForUpdate(ctx, p.UserID)
		if err != nil {
			return fmt.Errorf("workers: load polling config for user %s: %w", p.UserID, err)
		}

		if cfg.Status == models.StatusTriggered {
			alreadyTriggered = true
			return nil
		}

		now := w.Clock.Now()
		ev := escalation.GraceTimeout()
		if p.ForcedByAdmin {
			ev = escalation.AdminTrigger()
		}
		next, _ := escalation.Step(*cfg, ev, now)
		if next.Status != models.StatusTriggered {
			// Not yet eligible under Step's own rules (e.g. not GRACE_3 and
			// not admin-forced); nothing to do.
			return nil
		}

		all, err := trusteeRepo.ListByUser(ctx, p.UserID)
		if err != nil {
			return fmt.Errorf("workers: list trustees for user %s: %w", p.UserID, err)
		}
		for _, t := range all {
			if t.Status != models.TrusteeVerified && t.Status != models.TrusteeActive {
				continue
			}
			token, err := randx.MakeURLSafeToken(48)
			if err != nil {
				return fmt.Errorf("workers: generate trustee access token: %w", err)
			}
			t.AccessToken = &token
			t.Status = models.TrusteeActive
			t.AccessGrantedAt = &now
			accessExpiresAt := now.AddDate(0, 0, 30)
			t.AccessExpiresAt = &accessExpiresAt
			if err := trusteeRepo.Update(ctx, t); err != nil {
				return fmt.Errorf("workers: grant trustee access for %s: %w", t.ID, err)
			}
			if err := auditRepo.Append(ctx, &models.AuditLog{
				UserID: p.UserID,
				Kind:   models.AuditAccessGranted,
				Detail: map[string]any{"trusteeId": t.ID},
			}); err != nil {
				return fmt.Errorf("workers: append access-granted audit for %s: %w", t.ID, err)
			}
			granted = append(granted, t)
		}

		readyLetters, err := letterRepo.ListReadyForUser(ctx, p.UserID)
		if err != nil {
			return fmt.Errorf("workers: list ready letters for user %s: %w", p.UserID, err)
		}
		ready = readyLetters

		if err := cfgRepo.Update(ctx, &next); err != nil {
			return fmt.Errorf("workers: mark polling config triggered for user %s: %w", p.UserID, err)
		}

		if err := auditRepo.Append(ctx, &models.AuditLog{
			UserID: p.UserID,
			Kind:   models.AuditDeathProtocolTriggered,
			Detail: map[string]any{
				"trusteesNotified": len(granted),
				"lettersQueued":    len(ready),
			},
		}); err != nil {
			return fmt.Errorf("workers: append death-protocol audit for user %s: %w", p.UserID, err)
		}

		return nil
	})
	if err != nil {
		return err
	}
	if alreadyTriggered {
		return nil
	}

	return w.notifyAfterCommit(ctx, p.UserID, granted, ready)
}

// notifyAfterCommit enqueues the trustee/letter notifications named by
// spec §4.7 step 8, strictly after the state transition has committed so a
// crash here never re-grants access or re-mints a token on redelivery. Each
// letter is marked DELIVERED in its own follow-up transaction keyed by
// letter id, so a crash mid-loop only leaves the remaining letters
// un-marked rather than re-granting anything.
func (w *ReleaseWorker) notifyAfterCommit(ctx context.Context, userID string, granted []*models.Trustee, ready []*models.FinalLetter) error {
	user, err := w.Users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("workers: load user %s for release notifications: %w", userID, err)
	}

	for _, t := range granted {
		accessURL := fmt.Sprintf("%s/trustee/access?token=%s", w.PublicBaseURL, *t.AccessToken)
		body, err := queue.EncodePayload(queue.EmailPayload{
			To:      t.Email,
			Subject: fmt.Sprintf("%s has granted you access", user.DisplayName),
			HTML:    fmt.Sprintf(`<p>%s has granted you vault access: <a href="%s">%s</a></p>`, user.DisplayName, accessURL, accessURL),
			Text:    fmt.Sprintf("%s has granted you vault access: %s", user.DisplayName, accessURL),
		})
		if err != nil {
			return err
		}
		if _, err := w.Queue.Enqueue(ctx, queue.EmailQueue, body, w.Clock.Now(), 5, nil); err != nil {
			return fmt.Errorf("workers: enqueue trustee access email for %s: %w", t.ID, err)
		}
		if err := w.Audit.Append(ctx, &models.AuditLog{
			UserID: userID,
			Kind:   models.AuditAccessNotified,
			Detail: map[string]any{"trusteeId": t.ID},
		}); err != nil {
			return fmt.Errorf("workers: append access-notified audit for %s: %w", t.ID, err)
		}
		if t.Phone != nil {
			smsBody, err := queue.EncodePayload(queue.SmsPayload{
				To:      *t.Phone,
				Message: fmt.Sprintf("%s has granted you vault access: %s", user.DisplayName, accessURL),
			})
			if err != nil {
				return err
			}
			if _, err := w.Queue.Enqueue(ctx, queue.SmsQueue, smsBody, w.Clock.Now(), 5, nil); err != nil {
				return fmt.Errorf("workers: enqueue trustee access sms for %s: %w", t.ID, err)
			}
		}
	}

	for _, l := range ready {
		body, err := queue.EncodePayload(queue.EmailPayload{
			To:      l.RecipientEmail,
			Subject: l.Subject,
			HTML:    fmt.Sprintf("<p>A final letter from %s is attached to this delivery.</p>", user.DisplayName),
			Text:    fmt.Sprintf("A final letter from %s is attached to this delivery.", user.DisplayName),
		})
		if err != nil {
			return err
		}
		if _, err := w.Queue.Enqueue(ctx, queue.EmailQueue, body, w.Clock.Now(), 5, nil); err != nil {
			return fmt.Errorf("workers: enqueue final letter email for %s: %w", l.ID, err)
		}
		if err := w.Letters.MarkDelivered(ctx, l.ID); err != nil {
			return fmt.Errorf("workers: mark letter %s delivered: %w", l.ID, err)
		}
	}

	return nil
}
