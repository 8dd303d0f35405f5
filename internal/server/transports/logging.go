package transports

import (
	"context"

	"github.com/eternalsentinel/sentinel/internal/logging"
)

// LoggingEmailer and LoggingSMSSender record every send at Info level
// instead of contacting a real provider, per spec §1's non-goal on real
// transports. They never fail, so the email/sms workers always complete —
// exercising the queue's success path end to end even with no provider
// configured.
type LoggingEmailer struct {
	Logger logging.Logger
}

func NewLoggingEmailer(logger logging.Logger) *LoggingEmailer {
	return &LoggingEmailer{Logger: logger}
}

func (e *LoggingEmailer) SendEmail(ctx context.Context, to, subject, html, text string) error {
	e.Logger.Info(ctx, "transports: email sent", "to", to, "subject", subject)
	return nil
}

type LoggingSMSSender struct {
	Logger logging.Logger
}

func NewLoggingSMSSender(logger logging.Logger) *LoggingSMSSender {
	return &LoggingSMSSender{Logger: logger}
}

func (s *LoggingSMSSender) SendSMS(ctx context.Context, to, message string) error {
	s.Logger.Info(ctx, "transports: sms sent", "to", to)
	return nil
}
