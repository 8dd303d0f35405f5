package auditlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/eternalsentinel/sentinel/internal/dbx"
	"github.com/eternalsentinel/sentinel/internal/server/store/models"
	"github.com/google/uuid"
)

// PostgresRepository is the C1 Postgres-backed implementation of Repository.
// Detail is stored as jsonb; the column is write-once per row.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, e *models.AuditLog) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	detail, err := json.Marshal(e.Detail)
	if err != nil {
		return fmt.Errorf("store: marshal audit detail: %w", err)
	}
	query := `
		INSERT INTO audit_log (id, user_id, kind, detail)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	if err := r.db.QueryRowContext(ctx, query, e.ID, e.UserID, e.Kind, detail).Scan(&e.CreatedAt); err != nil {
		return fmt.Errorf("store: append audit log: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, user_id, kind, detail, created_at
		FROM audit_log WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list audit log: %w", err)
	}
	defer rows.Close()

	var out []*models.AuditLog
	for rows.Next() {
		e := &models.AuditLog{}
		var detail []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Kind, &detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan audit log: %w", err)
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &e.Detail); err != nil {
				return nil, fmt.Errorf("store: unmarshal audit detail: %w", err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: audit log rows: %w", err)
	}
	return out, nil
}
