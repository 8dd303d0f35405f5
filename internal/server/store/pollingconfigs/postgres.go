package pollingconfigs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eternalsentinel/sentinel/internal/apperrors"
	"github.com/eternalsentinel/sentinel/internal/dbx"
	"github.com/eternalsentinel/sentinel/internal/server/store/models"
	"github.com/google/uuid"
)

// PostgresRepository is the C1 Postgres-backed implementation of Repository,
// grounded on the same raw-SQL-over-DBTX shape as store/users.PostgresRepository.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.PollingConfig) (*models.PollingConfig, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	query := `
		INSERT INTO polling_configs (
			id, user_id, interval, email_enabled, sms_enabled,
			grace_period_1_days, grace_period_2_days, grace_period_3_days,
			missed_check_ins_before_trigger, current_missed_check_ins,
			last_check_in_at, next_check_in_due, status, triggered_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		c.ID, c.UserID, c.Interval, c.EmailEnabled, c.SMSEnabled,
		c.GracePeriod1Days, c.GracePeriod2Days, c.GracePeriod3Days,
		c.MissedCheckInsBeforeTrigger, c.CurrentMissedCheckIns,
		c.LastCheckInAt, c.NextCheckInDue, c.Status, c.TriggeredAt,
	).Scan(&c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: create polling config: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*models.PollingConfig, error) {
	query := `
		SELECT id, user_id, interval, email_enabled, sms_enabled,
			grace_period_1_days, grace_period_2_days, grace_period_3_days,
			missed_check_ins_before_trigger, current_missed_check_ins,
			last_check_in_at, next_check_in_due, status, triggered_at, updated_at
		FROM polling_configs WHERE user_id = $1
	`
	c := &models.PollingConfig{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&c.ID, &c.UserID, &c.Interval, &c.EmailEnabled, &c.SMSEnabled,
		&c.GracePeriod1Days, &c.GracePeriod2Days, &c.GracePeriod3Days,
		&c.MissedCheckInsBeforeTrigger, &c.CurrentMissedCheckIns,
		&c.LastCheckInAt, &c.NextCheckInDue, &c.Status, &c.TriggeredAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("store: get polling config by user id: %w", err)
	}
	return c, nil
}

// GetByUserIDForUpdate loads a PollingConfig by user with a row lock, used by
// checkins.ConfirmCheckIn to serialize against a concurrent Scheduler sweep
// escalating the same user.
func (r *PostgresRepository) GetByUserIDForUpdate(ctx context.Context, userID string) (*models.PollingConfig, error) {
	query := `
		SELECT id, user_id, interval, email_enabled, sms_enabled,
			grace_period_1_days, grace_period_2_days, grace_period_3_days,
			missed_check_ins_before_trigger, current_missed_check_ins,
			last_check_in_at, next_check_in_due, status, triggered_at, updated_at
		FROM polling_configs WHERE user_id = $1 FOR UPDATE
	`
	c := &models.PollingConfig{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&c.ID, &c.UserID, &c.Interval, &c.EmailEnabled, &c.SMSEnabled,
		&c.GracePeriod1Days, &c.GracePeriod2Days, &c.GracePeriod3Days,
		&c.MissedCheckInsBeforeTrigger, &c.CurrentMissedCheckIns,
		&c.LastCheckInAt, &c.NextCheckInDue, &c.Status, &c.TriggeredAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("store: get polling config by user id for update: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) DueForCheckIn(ctx context.Context, asOf time.Time, limit int) ([]*models.PollingConfig, error) {
	query := `
		SELECT id, user_id, interval, email_enabled, sms_enabled,
			grace_period_1_days, grace_period_2_days, grace_period_3_days,
			missed_check_ins_before_trigger, current_missed_check_ins,
			last_check_in_at, next_check_in_due, status, triggered_at, updated_at
		FROM polling_configs
		WHERE status = $1 AND next_check_in_due <= $2
		ORDER BY next_check_in_due ASC
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	`
	rows, err := r.db.QueryContext(ctx, query, models.StatusActive, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("store: due for check-in: %w", err)
	}
	defer rows.Close()

	var out []*models.PollingConfig
	for rows.Next() {
		c := &models.PollingConfig{}
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.Interval, &c.EmailEnabled, &c.SMSEnabled,
			&c.GracePeriod1Days, &c.GracePeriod2Days, &c.GracePeriod3Days,
			&c.MissedCheckInsBeforeTrigger, &c.CurrentMissedCheckIns,
			&c.LastCheckInAt, &c.NextCheckInDue, &c.Status, &c.TriggeredAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("store: scan polling config: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: due for check-in rows: %w", err)
	}
	return out, nil
}

// TimedOutGrace3 selects GRACE_3 configs whose grace period 3 window has
// elapsed since updated_at (the timestamp of the GRACE_2 → GRACE_3
// transition), matching spec §4.4 step 3's
// "updatedAt + gracePeriod3 < now" condition.
func (r *PostgresRepository) TimedOutGrace3(ctx context.Context, asOf time.Time, limit int) ([]*models.PollingConfig, error) {
	query := `
		SELECT id, user_id, interval, email_enabled, sms_enabled,
			grace_period_1_days, grace_period_2_days, grace_period_3_days,
			missed_check_ins_before_trigger, current_missed_check_ins,
			last_check_in_at, next_check_in_due, status, triggered_at, updated_at
		FROM polling_configs
		WHERE status = $1 AND updated_at + (grace_period_3_days * interval '1 day') < $2
		ORDER BY updated_at ASC
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	`
	rows, err := r.db.QueryContext(ctx, query, models.StatusGrace3, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("store: timed out grace 3: %w", err)
	}
	defer rows.Close()

	var out []*models.PollingConfig
	for rows.Next() {
		c := &models.PollingConfig{}
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.Interval, &c.EmailEnabled, &c.SMSEnabled,
			&c.GracePeriod1Days, &c.GracePeriod2Days, &c.GracePeriod3Days,
			&c.MissedCheckInsBeforeTrigger, &c.CurrentMissedCheckIns,
			&c.LastCheckInAt, &c.NextCheckInDue, &c.Status, &c.TriggeredAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("store: scan timed out polling config: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: timed out grace 3 rows: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Update(ctx context.Context, c *models.PollingConfig) error {
	query := `
		UPDATE polling_configs SET
			interval = $2, email_enabled = $3, sms_enabled = $4,
			grace_period_1_days = $5, grace_period_2_days = $6, grace_period_3_days = $7,
			missed_check_ins_before_trigger = $8, current_missed_check_ins = $9,
			last_check_in_at = $10, next_check_in_due = $11, status = $12, triggered_at = $13,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		c.ID, c.Interval, c.EmailEnabled, c.SMSEnabled,
		c.GracePeriod1Days, c.GracePeriod2Days, c.GracePeriod3Days,
		c.MissedCheckInsBeforeTrigger, c.CurrentMissedCheckIns,
		c.LastCheckInAt, c.NextCheckInDue, c.Status, c.TriggeredAt,
	).Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("store: update polling config: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM polling_configs WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("store: delete polling config: %w", err)
	}
	return nil
}
