package trustees

import (
	"context"
	"database/sql"
	"testing"

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

	mock.ExpectExec(`INSERT INTO trustees`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tr := &models.Trustee{UserID: "u1", Name: "Sam", Email: "sam@example.com", Relationship: "Sibling", Status: models.TrusteePending}
	got, err := repo.Create(context.Background(), tr)
	require.NoError(t, err)
	require.NotEmpty(t, got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByAccessToken_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM trustees WHERE access_token`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByAccessToken(context.Background(), "missing")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE trustees SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Trustee{ID: "t1"})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingNotification_ReturnsRows(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	token := "tok-access"
	mock.ExpectQuery(`SELECT .* FROM trustees WHERE access_token IS NOT NULL`).
		WithArgs(models.AuditAccessNotified, 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "name", "email", "phone", "relationship", "status",
			"verification_token", "verified_at", "access_token", "access_granted_at", "access_expires_at",
		}).AddRow("t1", "u1", "Bob", "bob@example.com", nil, "sibling", "ACTIVE", nil, nil, token, nil, nil))

	got, err := repo.PendingNotification(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "t1", got[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
