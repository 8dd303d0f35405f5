// Package checkins is the CheckIn slice of the State Store (C1). It also
// hosts ConfirmCheckIn, the one compound, multi-table transactional
// operation in the store (spec §4.1): confirming a check-in token must
// atomically mark the CheckIn CONFIRMED, clear the owning PollingConfig's
// missed-count and escalation state, and append an audit row, or none of it
// happens.
package checkins

import (
	"context"
	"time"

	"github.com/eternalsentinel/sentinel/internal/server/store/models"
)

// Repository persists CheckIn rows.
type Repository interface {
	Create(ctx context.Context, c *models.CheckIn) (*models.CheckIn, error)
	GetByToken(ctx context.Context, token string) (*models.CheckIn, error)
	GetByID(ctx context.Context, id string) (*models.CheckIn, error)

	// ListPending returns a user's outstanding PENDING check-ins, newest
	// first, used by the manual check-in endpoint (POST /checkin).
	ListPending(ctx context.Context, userID string) ([]*models.CheckIn, error)

	// Expired returns PENDING check-ins whose ExpiresAt has passed, used by
	// the Scheduler's "expired check-ins" subscan (spec §4.4 step 2).
	Expired(ctx context.Context, asOf time.Time, limit int) ([]*models.CheckIn, error)

	// MarkMissed transitions a single PENDING check-in to MISSED. Used by
	// the Scheduler only after ConfirmCheckIn has had its chance to win the
	// race (spec §4.3 Miss event).
	MarkMissed(ctx context.Context, id string) error
}
