// Package trustees is the Trustee slice of the State Store (C1).
package trustees

import (
	"context"

	"github.com/eternalsentinel/sentinel/internal/server/store/models"
)

// Repository persists Trustee rows.
type Repository interface {
	Create(ctx context.Context, t *models.Trustee) (*models.Trustee, error)
	GetByID(ctx context.Context, id string) (*models.Trustee, error)
	GetByAccessToken(ctx context.Context, token string) (*models.Trustee, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Trustee, error)
	Update(ctx context.Context, t *models.Trustee) error
	Delete(ctx context.Context, id string) error

	// PendingNotification returns trustees that hold an access token but
	// have no matching ACCESS_NOTIFIED audit row, used by the Scheduler's
	// reconciliation subscan to re-enqueue a notification that was granted
	// but never got its follow-up email/sms sent (e.g. a crash between the
	// release worker's commit and its post-commit enqueue).
	PendingNotification(ctx context.Context, limit int) ([]*models.Trustee, error)
}
