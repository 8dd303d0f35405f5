package vault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eternalsentinel/sentinel/internal/apperrors"
	"github.com/eternalsentinel/sentinel/internal/dbx"
	"github.com/eternalsentinel/sentinel/internal/server/store/models"
)

// PostgresRepository is the C1 Postgres-backed implementation of Repository.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*models.Vault, error) {
	query := `SELECT user_id, encrypted_master_key, master_key_salt, master_key_nonce, updated_at FROM vaults WHERE user_id = $1`
	v := &models.Vault{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&v.UserID, &v.EncryptedMasterKey, &v.MasterKeySalt, &v.MasterKeyNonce, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("store: get vault by user id: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, v *models.Vault) error {
	query := `
		INSERT INTO vaults (user_id, encrypted_master_key, master_key_salt, master_key_nonce)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			encrypted_master_key = EXCLUDED.encrypted_master_key,
			master_key_salt = EXCLUDED.master_key_salt,
			master_key_nonce = EXCLUDED.master_key_nonce,
			updated_at = now()
		RETURNING updated_at
	`
	if err := r.db.QueryRowContext(ctx, query, v.UserID, v.EncryptedMasterKey, v.MasterKeySalt, v.MasterKeyNonce).Scan(&v.UpdatedAt); err != nil {
		return fmt.Errorf("store: upsert vault: %w", err)
	}
	return nil
}
