// Package auditlog is the append-only AuditLog slice of the State Store
// (C1, spec §3/§8). Rows are never updated or deleted by application code.
package auditlog

import (
	"context"

	"github.com/eternalsentinel/sentinel/internal/server/store/models"
)

// Repository appends and lists AuditLog rows.
type Repository interface {
	Append(ctx context.Context, e *models.AuditLog) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.AuditLog, error)
}
