package letters

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
// EncryptedBody and Nonce are opaque blobs round-tripped as bytea; the core
// never inspects or decrypts them.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `id, user_id, recipient_name, recipient_email, subject, encrypted_body, nonce, status, delivered_at`

func (r *PostgresRepository) Create(ctx context.Context, l *models.FinalLetter) (*models.FinalLetter, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	query := `
		INSERT INTO final_letters (id, user_id, recipient_name, recipient_email, subject, encrypted_body, nonce, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query, l.ID, l.UserID, l.RecipientName, l.RecipientEmail, l.Subject, l.EncryptedBody, l.Nonce, l.Status)
	if err != nil {
		return nil, fmt.Errorf("store: create final letter: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.FinalLetter, error) {
	l := &models.FinalLetter{}
	err := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM final_letters WHERE id = $1`, id).Scan(
		&l.ID, &l.UserID, &l.RecipientName, &l.RecipientEmail, &l.Subject, &l.EncryptedBody, &l.Nonce, &l.Status, &l.DeliveredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("store: get final letter: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.FinalLetter, error) {
	return r.list(ctx, `SELECT `+selectColumns+` FROM final_letters WHERE user_id = $1`, userID)
}

func (r *PostgresRepository) ListReadyForUser(ctx context.Context, userID string) ([]*models.FinalLetter, error) {
	return r.list(ctx, `SELECT `+selectColumns+` FROM final_letters WHERE user_id = $1 AND status = $2`, userID, models.LetterReady)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.FinalLetter, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list final letters: %w", err)
	}
	defer rows.Close()

	var out []*models.FinalLetter
	for rows.Next() {
		l := &models.FinalLetter{}
		if err := rows.Scan(&l.ID, &l.UserID, &l.RecipientName, &l.RecipientEmail, &l.Subject, &l.EncryptedBody, &l.Nonce, &l.Status, &l.DeliveredAt); err != nil {
			return nil, fmt.Errorf("store: scan final letter: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: final letter rows: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) MarkDelivered(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE final_letters SET status = $2, delivered_at = now() WHERE id = $1`, id, models.LetterDelivered)
	if err != nil {
		return fmt.Errorf("store: mark letter delivered: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: mark letter delivered rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
