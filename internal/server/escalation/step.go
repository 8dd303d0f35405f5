package escalation

import (
	"time"

	"github.com/eternalsentinel/sentinel/internal/server/store/models"
)

// Step is the pure transition function of spec §4.3. It is total and
// deterministic: every (status, event) pair either produces a new config
// and effects, or returns cfg unchanged with a nil effect slice ("—" cells
// in the transition table). now is passed in rather than read from a clock
// so the function has no hidden inputs.
func Step(cfg models.PollingConfig, ev Event, now time.Time) (models.PollingConfig, []Effect) {
	switch ev.Kind() {
	case KindConfirm:
		return stepConfirm(cfg, now)
	case KindMiss:
		return stepMiss(cfg, ev, now)
	case KindGraceTimeout:
		return stepGraceTimeout(cfg, now)
	case KindAdminForceCheckIn:
		return stepAdminForceCheckIn(cfg, now)
	case KindAdminTrigger:
		return stepAdminTrigger(cfg, now)
	case KindPause:
		return stepPause(cfg)
	case KindResume:
		return stepResume(cfg, now)
	default:
		return cfg, nil
	}
}

func reset(cfg models.PollingConfig, now time.Time) models.PollingConfig {
	cfg.CurrentMissedCheckIns = 0
	cfg.Status = models.StatusActive
	cfg.LastCheckInAt = &now
	cfg.NextCheckInDue = now.Add(models.DurationForInterval(cfg.Interval))
	return cfg
}

func isGraceOrActive(s models.PollingStatus) bool {
	switch s {
	case models.StatusActive, models.StatusGrace1, models.StatusGrace2, models.StatusGrace3:
		return true
	default:
		return false
	}
}

// stepConfirm: Confirm resets ACTIVE/GRACE_1/GRACE_2/GRACE_3 to ACTIVE; a
// noop from PAUSED or TRIGGERED.
func stepConfirm(cfg models.PollingConfig, now time.Time) (models.PollingConfig, []Effect) {
	if !isGraceOrActive(cfg.Status) {
		return cfg, nil
	}
	cfg = reset(cfg, now)
	return cfg, []Effect{
		scheduleNextCheckIn(models.DurationForInterval(cfg.Interval)),
		appendAudit(models.AuditCheckInConfirmed),
	}
}

// nextGraceStatus returns the status one level more urgent than cfg.Status,
// and the grace period duration guarding that level (GRACE_3 stays GRACE_3).
// For any status with no next level under Miss it returns (cfg.Status, 0).
func nextGraceStatus(cfg models.PollingConfig) (models.PollingStatus, time.Duration) {
	switch cfg.Status {
	case models.StatusActive:
		return models.StatusGrace1, time.Duration(cfg.GracePeriod1Days) * 24 * time.Hour
	case models.StatusGrace1:
		return models.StatusGrace2, time.Duration(cfg.GracePeriod2Days) * 24 * time.Hour
	case models.StatusGrace2, models.StatusGrace3:
		return models.StatusGrace3, time.Duration(cfg.GracePeriod3Days) * 24 * time.Hour
	default:
		return cfg.Status, 0
	}
}

// stepMiss: fresh misses escalate one level (or stay at GRACE_3) and
// miss++; stale misses (expectedMissedCount != currentMissedCheckIns) are a
// noop because the user already confirmed (or another escalation already
// applied) after this escalation was enqueued. A noop from PAUSED or
// TRIGGERED regardless of staleness.
func stepMiss(cfg models.PollingConfig, ev Event, now time.Time) (models.PollingConfig, []Effect) {
	if !isGraceOrActive(cfg.Status) {
		return cfg, nil
	}

	stale := ev.ExpectedMissedCount != cfg.CurrentMissedCheckIns
	if stale {
		return cfg, []Effect{appendAudit(models.AuditEscalationSkippedStale)}
	}

	newStatus, gracePeriod := nextGraceStatus(cfg)
	cfg.Status = newStatus
	cfg.CurrentMissedCheckIns++

	effects := []Effect{
		createGracePeriodCheckIn(gracePeriod),
		appendAudit(models.AuditEscalationLevel),
	}
	if newStatus == models.StatusGrace3 {
		effects = append(effects, enqueueReleaseAt(now.Add(gracePeriod)))
	}
	return cfg, effects
}

// stepGraceTimeout: only GRACE_3 times out, to TRIGGERED. Called by the
// Release Worker (C7) from inside its own transaction once it has
// confirmed the config is not already TRIGGERED.
func stepGraceTimeout(cfg models.PollingConfig, now time.Time) (models.PollingConfig, []Effect) {
	if cfg.Status != models.StatusGrace3 {
		return cfg, nil
	}
	cfg.Status = models.StatusTriggered
	cfg.TriggeredAt = &now
	return cfg, nil
}

// stepAdminForceCheckIn: resets ACTIVE/GRACE_1/GRACE_2/GRACE_3/PAUSED to
// ACTIVE; a noop from TRIGGERED (terminal per spec §3 invariant).
func stepAdminForceCheckIn(cfg models.PollingConfig, now time.Time) (models.PollingConfig, []Effect) {
	if cfg.Status == models.StatusTriggered {
		return cfg, nil
	}
	cfg = reset(cfg, now)
	return cfg, []Effect{
		scheduleNextCheckIn(models.DurationForInterval(cfg.Interval)),
		appendAudit(models.AuditAdminForceCheckIn),
	}
}

// stepAdminTrigger: forces ACTIVE/GRACE_1/GRACE_2/GRACE_3 straight to
// TRIGGERED. Called by the Release Worker (C7), not the HTTP handler
// directly, so the transition and the job's actual effects (trustee
// grants, letter delivery) commit in the same transaction — see
// workers/release.go.
func stepAdminTrigger(cfg models.PollingConfig, now time.Time) (models.PollingConfig, []Effect) {
	if !isGraceOrActive(cfg.Status) {
		return cfg, nil
	}
	cfg.Status = models.StatusTriggered
	cfg.TriggeredAt = &now
	return cfg, []Effect{appendAudit(models.AuditAdminTrigger)}
}

// stepPause: ACTIVE/GRACE_1/GRACE_2/GRACE_3 → PAUSED, missed count and
// nextCheckInDue untouched so Resume can pick up where it left off. A noop
// from PAUSED or TRIGGERED.
func stepPause(cfg models.PollingConfig) (models.PollingConfig, []Effect) {
	if !isGraceOrActive(cfg.Status) {
		return cfg, nil
	}
	cfg.Status = models.StatusPaused
	return cfg, []Effect{appendAudit(models.AuditPaused)}
}

// stepResume: PAUSED → ACTIVE, reset, reschedule. A noop from any other
// status.
func stepResume(cfg models.PollingConfig, now time.Time) (models.PollingConfig, []Effect) {
	if cfg.Status != models.StatusPaused {
		return cfg, nil
	}
	cfg = reset(cfg, now)
	return cfg, []Effect{
		scheduleNextCheckIn(models.DurationForInterval(cfg.Interval)),
		appendAudit(models.AuditResumed),
	}
}
