// Package letters is the FinalLetter slice of the State Store (C1).
package letters

import (
	"context"

	"github.com/eternalsentinel/sentinel/internal/server/store/models"
)

// Repository persists FinalLetter rows.
type Repository interface {
	Create(ctx context.Context, l *models.FinalLetter) (*models.FinalLetter, error)
	GetByID(ctx context.Context, id string) (*models.FinalLetter, error)
	ListByUser(ctx context.Context, userID string) ([]*models.FinalLetter, error)
	// ListReadyForUser returns a user's READY letters, used by the release
	// worker (C7) when running the death protocol (spec §4.7).
	ListReadyForUser(ctx context.Context, userID string) ([]*models.FinalLetter, error)
	MarkDelivered(ctx context.Context, id string) error
}
