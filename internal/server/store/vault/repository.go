// Package vault is the Vault slice of the State Store (C1): the opaque
// master-key material a trustee receives verbatim at release time. The core
// never derives or inspects it (spec §1's client-side-encryption non-goal).
package vault

import (
	"context"

	"github.com/eternalsentinel/sentinel/internal/server/store/models"
)

// Repository persists the single Vault row a user may own.
type Repository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Vault, error)

	// Upsert creates or replaces the user's vault row. A user has at most
	// one vault (spec §3), so this is keyed on user_id alone.
	Upsert(ctx context.Context, v *models.Vault) error
}
