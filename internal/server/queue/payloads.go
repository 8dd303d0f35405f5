package queue

import "fmt"

// CheckinPayload is the checkin queue's job payload: dispatch the
// notification for an already-created CheckIn (spec §4.5).
type CheckinPayload struct {
	CheckInID string `json:"checkInId"`
}

// EscalationPayload is the escalation queue's job payload (spec §4.6).
// ExpectedMissedCount guards against a stale escalation racing a
// since-arrived Confirm (spec §4.3's race-cancel mechanism).
type EscalationPayload struct {
	UserID              string `json:"userId"`
	Level               int    `json:"level"`
	ExpectedMissedCount int    `json:"expectedMissedCount"`
}

// ReleasePayload is the release queue's job payload (spec §4.7).
// ForcedByAdmin distinguishes an admin-forced trigger from a natural
// GRACE_3 timeout, so the worker can record the right audit kind.
type ReleasePayload struct {
	UserID        string `json:"userId"`
	ForcedByAdmin bool   `json:"forcedByAdmin"`
}

// EmailPayload is the email queue's job payload (spec §6 transports).
type EmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// SmsPayload is the sms queue's job payload (spec §6 transports).
type SmsPayload struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

func idempotencyKey(s string) *string { return &s }

// CheckinIdempotencyKey returns the idempotency key for a checkin job.
func CheckinIdempotencyKey(checkInID string) *string {
	return idempotencyKey("checkin:" + checkInID)
}

// EscalationIdempotencyKey returns the idempotency key for an escalation
// job: "escalation:<userId>:<level>:<missedCountAtEnqueue>".
func EscalationIdempotencyKey(userID string, level int, missedCount int) *string {
	return idempotencyKey(fmt.Sprintf("escalation:%s:%d:%d", userID, level, missedCount))
}

// ReleaseIdempotencyKey returns the idempotency key for a release job:
// "release:<userId>".
func ReleaseIdempotencyKey(userID string) *string {
	return idempotencyKey("release:" + userID)
}
