// Package workers hosts the three queue consumers that turn escalation
// decisions into notifications and, in the release worker's case, the
// death protocol itself: C5 (check-in), C6 (escalation), C7 (release).
// Grounded on the teacher's grpc/handler.go call shape (a thin handler
// delegating to a *Service) and dbx.WithTx for per-job transactions.
package workers

import (
	"context"
	"errors"
	"fmt"

	"github.com/eternalsentinel/sentinel/internal/apperrors"
	"github.com/eternalsentinel/sentinel/internal/clock"
	"github.com/eternalsentinel/sentinel/internal/logging"
	"github.com/eternalsentinel/sentinel/internal/server/queue"
	"github.com/eternalsentinel/sentinel/internal/server/store/checkins"
	"github.com/eternalsentinel/sentinel/internal/server/store/models"
	"github.com/eternalsentinel/sentinel/internal/server/store/pollingconfigs"
	"github.com/eternalsentinel/sentinel/internal/server/store/users"
)

// ErrNoPhoneNumber is returned by the check-in worker when an SMS-enabled
// user has no phone number on file. It is treated like any other
// transient failure by the queue: retried up to maxAttempts, then
// dead-lettered (Open Question decision #2).
var ErrNoPhoneNumber = errors.New("workers: user has no phone number for sms")

// CheckinWorker consumes the checkin queue (spec §4.5): it never mutates
// PollingConfig or CheckIn state, it only fans the already-created PENDING
// CheckIn out to the enabled notification channels.
type CheckinWorker struct {
	CheckIns       checkins.Repository
	PollingConfigs pollingconfigs.Repository
	Users          users.Repository
	Queue          queue.Repository
	Clock          clock.Clock
	PublicBaseURL  string
	Logger         logging.Logger
}

// HandleCheckin is a queue.Handler for queue.CheckinQueue.
func (w *CheckinWorker) HandleCheckin(ctx context.Context, payload []byte) error {
	var p queue.CheckinPayload
	if err := queue.DecodePayload(payload, &p); err != nil {
		return fmt.Errorf("workers: decode checkin payload: %w", err)
	}

	ci, err := w.CheckIns.GetByID(ctx, p.CheckInID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			w.Logger.Warn(ctx, "workers: checkin job for missing check-in, acknowledging", "checkInId", p.CheckInID)
			return nil
		}
		return fmt.Errorf("workers: load check-in %s: %w", p.CheckInID, err)
	}
	if ci.Status != models.CheckInPending {
		return nil
	}

	cfg, err := w.PollingConfigs.GetByUserID(ctx, ci.UserID)
	if err != nil {
		return fmt.Errorf("workers: load polling config for user %s: %w", ci.UserID, err)
	}
	if cfg.Status == models.StatusPaused {
		return nil
	}

	user, err := w.Users.GetByID(ctx, ci.UserID)
	if err != nil {
		return fmt.Errorf("workers: load user %s: %w", ci.UserID, err)
	}

	checkInURL := fmt.Sprintf("%s/checkin/status?token=%s", w.PublicBaseURL, ci.Token)
	now := w.Clock.Now()

	for _, channel := range ci.SentVia {
		switch channel {
		case models.ChannelEmail:
			body, err := queue.EncodePayload(queue.EmailPayload{
				To:      user.Email,
				Subject: "Please confirm you're okay",
				HTML:    fmt.Sprintf(`<p>Hi %s, please confirm: <a href="%s">%s</a></p>`, user.DisplayName, checkInURL, checkInURL),
				Text:    fmt.Sprintf("Hi %s, please confirm: %s", user.DisplayName, checkInURL),
			})
			if err != nil {
				return err
			}
			if _, err := w.Queue.Enqueue(ctx, queue.EmailQueue, body, now, 5, nil); err != nil {
				return fmt.Errorf("workers: enqueue check-in email for %s: %w", ci.ID, err)
			}
		case models.ChannelSMS:
			if user.Phone == nil {
				return ErrNoPhoneNumber
			}
			body, err := queue.EncodePayload(queue.SmsPayload{
				To:      *user.Phone,
				Message: fmt.Sprintf("Please confirm you're okay: %s", checkInURL),
			})
			if err != nil {
				return err
			}
			if _, err := w.Queue.Enqueue(ctx, queue.SmsQueue, body, now, 5, nil); err != nil {
				return fmt.Errorf("workers: enqueue check-in sms for %s: %w", ci.ID, err)
			}
		}
	}

	return nil
}
