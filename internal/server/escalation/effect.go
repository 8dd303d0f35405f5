package escalation

import (
	"time"

	"github.com/eternalsentinel/sentinel/internal/server/store/models"
)

// EffectKind discriminates Effect variants (spec §4.3).
type EffectKind string

const (
	EffectScheduleNextCheckIn     EffectKind = "SCHEDULE_NEXT_CHECK_IN"
	EffectCreateGracePeriodCheckIn EffectKind = "CREATE_GRACE_PERIOD_CHECK_IN"
	EffectEnqueueEscalation       EffectKind = "ENQUEUE_ESCALATION"
	EffectEnqueueReleaseAt        EffectKind = "ENQUEUE_RELEASE_AT"
	EffectNotifyUser              EffectKind = "NOTIFY_USER"
	EffectAppendAudit              EffectKind = "APPEND_AUDIT"
)

// Effect is one side-effect descriptor Step emits for its caller to apply.
// Step itself performs no I/O; the Escalation Worker (C6) and the admin
// force-check-in handler interpret these against the queue and store. The
// Release Worker (C7) uses only the config Step returns.
type Effect struct {
	Kind EffectKind

	// CreateGracePeriodCheckIn / ScheduleNextCheckIn
	ExpiresIn time.Duration

	// EnqueueEscalation
	Level               int
	ExpectedMissedCount int
	RunAt               time.Time

	// NotifyUser / AppendAudit
	AuditKind models.AuditEventKind
}

func scheduleNextCheckIn(interval time.Duration) Effect {
	return Effect{Kind: EffectScheduleNextCheckIn, ExpiresIn: interval}
}

func createGracePeriodCheckIn(gracePeriod time.Duration) Effect {
	return Effect{Kind: EffectCreateGracePeriodCheckIn, ExpiresIn: gracePeriod}
}

func enqueueEscalation(level int, expectedMissedCount int, runAt time.Time) Effect {
	return Effect{Kind: EffectEnqueueEscalation, Level: level, ExpectedMissedCount: expectedMissedCount, RunAt: runAt}
}

func enqueueReleaseAt(runAt time.Time) Effect {
	return Effect{Kind: EffectEnqueueReleaseAt, RunAt: runAt}
}

func notifyUser(kind models.AuditEventKind) Effect {
	return Effect{Kind: EffectNotifyUser, AuditKind: kind}
}

func appendAudit(kind models.AuditEventKind) Effect {
	return Effect{Kind: EffectAppendAudit, AuditKind: kind}
}
