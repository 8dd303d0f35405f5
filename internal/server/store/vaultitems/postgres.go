package vaultitems

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eternalsentinel/sentinel/internal/dbx"
	"github.com/eternalsentinel/sentinel/internal/server/store/models"
	"github.com/google/uuid"
)

// PostgresRepository is the C1 Postgres-backed implementation of Repository.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, item *models.VaultItem) (*models.VaultItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	query := `
		INSERT INTO vault_items (id, user_id, type, name, encrypted_data, nonce, metadata, storage_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query, item.ID, item.UserID, item.Type, item.Name, item.EncryptedData, item.Nonce, item.Metadata, item.StorageKey).Scan(&item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: create vault item: %w", err)
	}
	return item, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.VaultItem, error) {
	query := `SELECT id, user_id, type, name, encrypted_data, nonce, metadata, storage_key, created_at FROM vault_items WHERE user_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list vault items: %w", err)
	}
	defer rows.Close()

	var out []*models.VaultItem
	for rows.Next() {
		it := &models.VaultItem{}
		var storageKey sql.NullString
		if err := rows.Scan(&it.ID, &it.UserID, &it.Type, &it.Name, &it.EncryptedData, &it.Nonce, &it.Metadata, &storageKey, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan vault item: %w", err)
		}
		if storageKey.Valid {
			it.StorageKey = &storageKey.String
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: vault item rows: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM vault_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: delete vault item: %w", err)
	}
	return nil
}
