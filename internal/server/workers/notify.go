package workers

import (
	"context"
	"fmt"

	"github.com/eternalsentinel/sentinel/internal/server/queue"
	"github.com/eternalsentinel/sentinel/internal/server/transports"
)

// NotifyWorker drains the email and sms queues against the Emailer/SMSSender
// boundary (spec §6's "Transports (outbound, pluggable)"). Split from the
// domain workers (C5/C6/C7) because it has no state-store transaction of
// its own — it is pure dispatch, retried/dead-lettered by the queue like
// everything else.
type NotifyWorker struct {
	Emailer transports.Emailer
	SMS     transports.SMSSender
}

// HandleEmail is a queue.Handler for queue.EmailQueue.
func (w *NotifyWorker) HandleEmail(ctx context.Context, payload []byte) error {
	var p queue.EmailPayload
	if err := queue.DecodePayload(payload, &p); err != nil {
		return fmt.Errorf("workers: decode email payload: %w", err)
	}
	return w.Emailer.SendEmail(ctx, p.To, p.Subject, p.HTML, p.Text)
}

// HandleSMS is a queue.Handler for queue.SmsQueue.
func (w *NotifyWorker) HandleSMS(ctx context.Context, payload []byte) error {
	var p queue.SmsPayload
	if err := queue.DecodePayload(payload, &p); err != nil {
		return fmt.Errorf("workers: decode sms payload: %w", err)
	}
	return w.SMS.SendSMS(ctx, p.To, p.Message)
}
