// Package pollingconfigs is the PollingConfig slice of the State Store (C1).
package pollingconfigs

import (
	"context"
	"time"

	"github.com/eternalsentinel/sentinel/internal/server/store/models"
)

// Repository persists PollingConfig rows. There is exactly one row per user.
type Repository interface {
	Create(ctx context.Context, c *models.PollingConfig) (*models.PollingConfig, error)
	GetByUserID(ctx context.Context, userID string) (*models.PollingConfig, error)

	// DueForCheckIn returns ACTIVE configs whose NextCheckInDue has passed,
	// used by the Scheduler's "due check-ins" subscan (spec §4.4 step 1).
	DueForCheckIn(ctx context.Context, asOf time.Time, limit int) ([]*models.PollingConfig, error)

	// TimedOutGrace3 returns GRACE_3 configs whose grace period 3 window has
	// elapsed since the last transition, used by the Scheduler's "terminal
	// grace timeouts" subscan (spec §4.4 step 3).
	TimedOutGrace3(ctx context.Context, asOf time.Time, limit int) ([]*models.PollingConfig, error)

	// Update persists the full row, used after every Escalation Step
	// transition (spec §4.3).
	Update(ctx context.Context, c *models.PollingConfig) error

	Delete(ctx context.Context, userID string) error
}
