package workers

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/eternalsentinel/sentinel/internal/clock"
	"github.com/eternalsentinel/sentinel/internal/logging"
	"github.com/eternalsentinel/sentinel/internal/server/queue"
	"github.com/stretchr/testify/require"
)

func newEscalationWorkerWithMock(t *testing.T, now time.Time) (*EscalationWorker, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return &EscalationWorker{DB: db, Clock: clock.NewManual(now), Logger: logger}, mock
}

func pollingConfigRow(now time.Time, status string, missed int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "interval", "email_enabled", "sms_enabled",
		"grace_period_1_days", "grace_period_2_days", "grace_period_3_days",
		"missed_check_ins_before_trigger", "current_missed_check_ins",
		"last_check_in_at", "next_check_in_due", "status", "triggered_at", "updated_at",
	}).AddRow("pc1", "u1", "WEEKLY", true, false, 7, 14, 7, 3, missed, nil, now, status, nil, now)
}

func TestEscalationWorker_HandleEscalation_FreshMissEscalatesAndEnqueues(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w, mock := newEscalationWorkerWithMock(t, now)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM polling_configs WHERE user_id`).WillReturnRows(pollingConfigRow(now, "ACTIVE", 0))
	mock.ExpectQuery(`UPDATE polling_configs SET`).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))
	mock.ExpectExec(`INSERT INTO check_ins`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO jobs`).WillReturnRows(
		sqlmock.NewRows([]string{
			"id", "queue", "payload", "run_at", "status", "attempts", "max_attempts",
			"idempotency_key", "last_error", "created_at", "updated_at",
		}).AddRow("j1", "checkin", []byte(`{}`), now, "PENDING", 0, 3, "checkin:ci1", nil, now, now),
	)
	mock.ExpectQuery(`INSERT INTO audit_log`).WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectCommit()

	payload, err := queue.EncodePayload(queue.EscalationPayload{UserID: "u1", Level: 1, ExpectedMissedCount: 0})
	require.NoError(t, err)

	err = w.HandleEscalation(context.Background(), payload)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEscalationWorker_HandleEscalation_StaleMissIsNoop(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w, mock := newEscalationWorkerWithMock(t, now)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM polling_configs WHERE user_id`).WillReturnRows(pollingConfigRow(now, "GRACE_1", 1))
	mock.ExpectQuery(`INSERT INTO audit_log`).WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectCommit()

	payload, err := queue.EncodePayload(queue.EscalationPayload{UserID: "u1", Level: 1, ExpectedMissedCount: 0})
	require.NoError(t, err)

	err = w.HandleEscalation(context.Background(), payload)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEscalationWorker_HandleEscalation_StaleMissAfterConfirmResetIsNoop(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w, mock := newEscalationWorkerWithMock(t, now)

	mock.ExpectBegin()
	// u1 already confirmed back to ACTIVE/missed=0 since this job (carrying
	// the pre-confirm expectedMissedCount=1) was enqueued.
	mock.ExpectQuery(`SELECT .* FROM polling_configs WHERE user_id`).WillReturnRows(pollingConfigRow(now, "ACTIVE", 0))
	mock.ExpectQuery(`INSERT INTO audit_log`).WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectCommit()

	payload, err := queue.EncodePayload(queue.EscalationPayload{UserID: "u1", Level: 1, ExpectedMissedCount: 1})
	require.NoError(t, err)

	err = w.HandleEscalation(context.Background(), payload)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEscalationWorker_HandleEscalation_Grace3EnqueuesRelease(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w, mock := newEscalationWorkerWithMock(t, now)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM polling_configs WHERE user_id`).WillReturnRows(pollingConfigRow(now, "GRACE_2", 2))
	mock.ExpectQuery(`UPDATE polling_configs SET`).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))
	mock.ExpectExec(`INSERT INTO check_ins`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO jobs`).WillReturnRows(
		sqlmock.NewRows([]string{
			"id", "queue", "payload", "run_at", "status", "attempts", "max_attempts",
			"idempotency_key", "last_error", "created_at", "updated_at",
		}).AddRow("j1", "checkin", []byte(`{}`), now, "PENDING", 0, 3, "checkin:ci1", nil, now, now),
	)
	mock.ExpectQuery(`INSERT INTO jobs`).WillReturnRows(
		sqlmock.NewRows([]string{
			"id", "queue", "payload", "run_at", "status", "attempts", "max_attempts",
			"idempotency_key", "last_error", "created_at", "updated_at",
		}).AddRow("j2", "release", []byte(`{}`), now, "PENDING", 0, 5, "release:u1", nil, now, now),
	)
	mock.ExpectQuery(`INSERT INTO audit_log`).WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectCommit()

	payload, err := queue.EncodePayload(queue.EscalationPayload{UserID: "u1", Level: 3, ExpectedMissedCount: 2})
	require.NoError(t, err)

	err = w.HandleEscalation(context.Background(), payload)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
