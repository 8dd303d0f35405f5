// Package transports defines the outbound notification boundary (spec §6):
// Emailer and SMSSender. Real email/SMS delivery is out of scope (spec §1
// non-goals), so the only implementation shipped here is a logging stub —
// the interfaces exist so the Email/SMS workers have something concrete to
// call and a production deployment has a seam to plug a real provider into.
package transports

import "context"

// Emailer sends an email and reports whether it was accepted for delivery.
type Emailer interface {
	SendEmail(ctx context.Context, to, subject, html, text string) error
}

// SMSSender sends a text message and reports whether it was accepted.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}
