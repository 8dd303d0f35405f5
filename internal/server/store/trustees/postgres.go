package trustees

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eternalsentinel/sentinel/internal/apperrors"
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

const selectColumns = `id, user_id, name, email, phone, relationship, status,
	verification_token, verified_at, access_token, access_granted_at, access_expires_at`

func (r *PostgresRepository) Create(ctx context.Context, t *models.Trustee) (*models.Trustee, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	query := `
		INSERT INTO trustees (id, user_id, name, email, phone, relationship, status, verification_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query, t.ID, t.UserID, t.Name, t.Email, t.Phone, t.Relationship, t.Status, t.VerificationToken)
	if err != nil {
		return nil, fmt.Errorf("store: create trustee: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Trustee, error) {
	return r.scanOne(ctx, `SELECT `+selectColumns+` FROM trustees WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByAccessToken(ctx context.Context, token string) (*models.Trustee, error) {
	return r.scanOne(ctx, `SELECT `+selectColumns+` FROM trustees WHERE access_token = $1`, token)
}

func (r *PostgresRepository) scanOne(ctx context.Context, query string, arg any) (*models.Trustee, error) {
	t := &models.Trustee{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&t.ID, &t.UserID, &t.Name, &t.Email, &t.Phone, &t.Relationship, &t.Status,
		&t.VerificationToken, &t.VerifiedAt, &t.AccessToken, &t.AccessGrantedAt, &t.AccessExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("store: get trustee: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Trustee, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM trustees WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list trustees: %w", err)
	}
	defer rows.Close()

	var out []*models.Trustee
	for rows.Next() {
		t := &models.Trustee{}
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Name, &t.Email, &t.Phone, &t.Relationship, &t.Status,
			&t.VerificationToken, &t.VerifiedAt, &t.AccessToken, &t.AccessGrantedAt, &t.AccessExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("store: scan trustee: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: trustee rows: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Update(ctx context.Context, t *models.Trustee) error {
	query := `
		UPDATE trustees SET
			name = $2, email = $3, phone = $4, relationship = $5, status = $6,
			verification_token = $7, verified_at = $8,
			access_token = $9, access_granted_at = $10, access_expires_at = $11
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		t.ID, t.Name, t.Email, t.Phone, t.Relationship, t.Status,
		t.VerificationToken, t.VerifiedAt, t.AccessToken, t.AccessGrantedAt, t.AccessExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("store: update trustee: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update trustee rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM trustees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: delete trustee: %w", err)
	}
	return nil
}

func (r *PostgresRepository) PendingNotification(ctx context.Context, limit int) ([]*models.Trustee, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM trustees
		WHERE access_token IS NOT NULL
		AND NOT EXISTS (
			SELECT 1 FROM audit_log
			WHERE audit_log.user_id = trustees.user_id
			AND audit_log.kind = $1
			AND audit_log.detail->>'trusteeId' = trustees.id::text
		)
		ORDER BY access_granted_at ASC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, models.AuditAccessNotified, limit)
	if err != nil {
		return nil, fmt.Errorf("store: pending notification trustees: %w", err)
	}
	defer rows.Close()

	var out []*models.Trustee
	for rows.Next() {
		t := &models.Trustee{}
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Name, &t.Email, &t.Phone, &t.Relationship, &t.Status,
			&t.VerificationToken, &t.VerifiedAt, &t.AccessToken, &t.AccessGrantedAt, &t.AccessExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("store: scan pending notification trustee: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: pending notification trustee rows: %w", err)
	}
	return out, nil
}
