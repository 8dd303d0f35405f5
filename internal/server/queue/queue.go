// Package queue is the durable Job Queue (C2): a Postgres-backed,
// at-least-once delayed job queue with idempotency-key coalescing and
// exponential backoff. No teacher file implements a queue; this is
// grounded on the teacher's dbx.WithTx transactional idiom for
// claim-and-lock ("SELECT ... FOR UPDATE SKIP LOCKED") and gives the
// teacher's sethvargo/go-retry dependency — carried in go.mod behind a
// never-implemented helper — its first real use, computing backoff delays.
package queue

import (
	"time"
)

// Status is a Job's lifecycle state.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusRunning Status = "RUNNING"
	StatusDone    Status = "DONE"
	StatusDead    Status = "DEAD"
)

// Job is one unit of durable, delayed work (spec §4's background jobs:
// check-in reminders, escalation advances, release/death-protocol runs).
type Job struct {
	ID             string
	Queue          string
	Payload        []byte
	RunAt          time.Time
	Status         Status
	Attempts       int
	MaxAttempts    int
	IdempotencyKey *string
	LastError      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DeadLetter is a Job that exhausted MaxAttempts, archived for inspection.
type DeadLetter struct {
	ID            string
	Queue         string
	Payload       []byte
	Attempts      int
	LastError     string
	OriginalJobID string
	CreatedAt     time.Time
}

// Queue names. ReleaseQueue's Runner runs at ReleaseConcurrency (1), a cap
// held by an in-process semaphore: it serializes release jobs within one
// process, not across replicas. At-most-once release per user rests on the
// release worker's (C7) row lock and TRIGGERED check (spec §4.7). The other
// queues run at WorkerConcurrency.
const (
	CheckinQueue    = "checkin"
	EscalationQueue = "escalation"
	ReleaseQueue    = "release"
	EmailQueue      = "email"
	SmsQueue        = "sms"
)
