// Package vaultitems is the VaultItem slice of the State Store (C1).
package vaultitems

import (
	"context"

	"github.com/eternalsentinel/sentinel/internal/server/store/models"
)

// Repository persists a user's opaque vault items.
type Repository interface {
	Create(ctx context.Context, item *models.VaultItem) (*models.VaultItem, error)
	ListByUser(ctx context.Context, userID string) ([]*models.VaultItem, error)
	Delete(ctx context.Context, id string) error
}
