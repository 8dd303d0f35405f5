package queue

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// BackoffForAttempt returns the delay before the (1-indexed) attempt-th
// retry of a job, given the queue's configured base delay. It uses
// go-retry's exponential backoff, capped at one hour and jittered by 20%
// so that many jobs failing at once don't all wake up on the same tick.
func BackoffForAttempt(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	b := retry.NewExponential(base)
	b = retry.WithCappedDuration(time.Hour, b)
	b = retry.WithJitterPercent(20, b)

	var d time.Duration
	for i := 0; i < attempt; i++ {
		next, stop := b.Next()
		if stop {
			return time.Hour
		}
		d = next
	}
	return d
}
