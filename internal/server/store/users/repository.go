// Package users is the User slice of the State Store (C1).
package users

import (
	"context"

	"github.com/eternalsentinel/sentinel/internal/server/store/models"
)

// Repository persists User rows.
type Repository interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Delete cascades to the user's PollingConfig, CheckIns, Trustees, and
	// FinalLetters per spec §3's "Deletion cascades".
	Delete(ctx context.Context, id string) error
}
