package checkins

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

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

func (r *PostgresRepository) Create(ctx context.Context, c *models.CheckIn) (*models.CheckIn, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	query := `
		INSERT INTO check_ins (id, user_id, token, status, sent_via, sent_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.UserID, c.Token, c.Status, channelsToString(c.SentVia), c.SentAt, c.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("store: create check-in: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*models.CheckIn, error) {
	return r.scanOne(ctx, `SELECT id, user_id, token, status, sent_via, sent_at, responded_at, expires_at FROM check_ins WHERE token = $1`, token)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.CheckIn, error) {
	return r.scanOne(ctx, `SELECT id, user_id, token, status, sent_via, sent_at, responded_at, expires_at FROM check_ins WHERE id = $1`, id)
}

func (r *PostgresRepository) scanOne(ctx context.Context, query string, arg any) (*models.CheckIn, error) {
	c := &models.CheckIn{}
	var sentVia string
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&c.ID, &c.UserID, &c.Token, &c.Status, &sentVia, &c.SentAt, &c.RespondedAt, &c.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("store: get check-in: %w", err)
	}
	c.SentVia = stringToChannels(sentVia)
	return c, nil
}

func (r *PostgresRepository) ListPending(ctx context.Context, userID string) ([]*models.CheckIn, error) {
	query := `
		SELECT id, user_id, token, status, sent_via, sent_at, responded_at, expires_at
		FROM check_ins WHERE user_id = $1 AND status = $2 ORDER BY sent_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID, models.CheckInPending)
	if err != nil {
		return nil, fmt.Errorf("store: list pending check-ins: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func (r *PostgresRepository) Expired(ctx context.Context, asOf time.Time, limit int) ([]*models.CheckIn, error) {
	query := `
		SELECT id, user_id, token, status, sent_via, sent_at, responded_at, expires_at
		FROM check_ins
		WHERE status = $1 AND expires_at <= $2
		ORDER BY expires_at ASC
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	`
	rows, err := r.db.QueryContext(ctx, query, models.CheckInPending, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("store: expired check-ins: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]*models.CheckIn, error) {
	var out []*models.CheckIn
	for rows.Next() {
		c := &models.CheckIn{}
		var sentVia string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Token, &c.Status, &sentVia, &c.SentAt, &c.RespondedAt, &c.ExpiresAt); err != nil {
			return nil, fmt.Errorf("store: scan check-in: %w", err)
		}
		c.SentVia = stringToChannels(sentVia)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: check-in rows: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) MarkMissed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE check_ins SET status = $2 WHERE id = $1 AND status = $3
	`, id, models.CheckInMissed, models.CheckInPending)
	if err != nil {
		return fmt.Errorf("store: mark check-in missed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: mark check-in missed rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

func channelsToString(chans []models.Channel) string {
	parts := make([]string, len(chans))
	for i, c := range chans {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}

func stringToChannels(s string) []models.Channel {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]models.Channel, len(parts))
	for i, p := range parts {
		out[i] = models.Channel(p)
	}
	return out
}
