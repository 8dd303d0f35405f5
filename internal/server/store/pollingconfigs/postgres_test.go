package pollingconfigs

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/eternalsentinel/sentinel/internal/apperrors"
	"github.com/eternalsentinel/sentinel/internal/server/store/models"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO polling_configs`).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	c := &models.PollingConfig{
		UserID:                      "u1",
		Interval:                    models.IntervalWeekly,
		GracePeriod1Days:            7,
		GracePeriod2Days:            14,
		GracePeriod3Days:            7,
		MissedCheckInsBeforeTrigger: 3,
		NextCheckInDue:              time.Now().Add(7 * 24 * time.Hour),
		Status:                      models.StatusActive,
	}
	got, err := repo.Create(context.Background(), c)
	require.NoError(t, err)
	require.NotEmpty(t, got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByUserID_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM polling_configs WHERE user_id`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUserID(context.Background(), "missing")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDueForCheckIn_ReturnsRows(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "interval", "email_enabled", "sms_enabled",
		"grace_period_1_days", "grace_period_2_days", "grace_period_3_days",
		"missed_check_ins_before_trigger", "current_missed_check_ins",
		"last_check_in_at", "next_check_in_due", "status", "triggered_at", "updated_at",
	}).AddRow(
		"pc1", "u1", "WEEKLY", true, false,
		7, 14, 7, 3, 0, nil, now, "ACTIVE", nil, now,
	)
	mock.ExpectQuery(`SELECT .* FROM polling_configs`).
		WithArgs(models.StatusActive, now, 10).
		WillReturnRows(rows)

	got, err := repo.DueForCheckIn(context.Background(), now, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "u1", got[0].UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimedOutGrace3_ReturnsRows(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "interval", "email_enabled", "sms_enabled",
		"grace_period_1_days", "grace_period_2_days", "grace_period_3_days",
		"missed_check_ins_before_trigger", "current_missed_check_ins",
		"last_check_in_at", "next_check_in_due", "status", "triggered_at", "updated_at",
	}).AddRow(
		"pc1", "u1", "WEEKLY", true, false,
		7, 14, 7, 3, 3, nil, now, "GRACE_3", nil, now,
	)
	mock.ExpectQuery(`SELECT .* FROM polling_configs`).
		WithArgs(models.StatusGrace3, now, 10).
		WillReturnRows(rows)

	got, err := repo.TimedOutGrace3(context.Background(), now, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "u1", got[0].UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`UPDATE polling_configs SET`).
		WillReturnError(sql.ErrNoRows)

	err := repo.Update(context.Background(), &models.PollingConfig{ID: "pc1"})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`DELETE FROM polling_configs WHERE user_id`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), "u1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
