package vaultitems

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
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

func TestCreate_GeneratesIDAndReturnsCreatedAt(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO vault_items`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	item := &models.VaultItem{
		UserID:        "u1",
		Type:          "note",
		Name:          "bank pin",
		EncryptedData: []byte("ct"),
		Nonce:         []byte("nonce"),
		Metadata:      "",
	}
	out, err := repo.Create(context.Background(), item)
	require.NoError(t, err)
	require.NotEmpty(t, out.ID)
	require.Equal(t, now, out.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_KeepsSuppliedID(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO vault_items`).
		WithArgs("fixed-id", "u1", "note", "bank pin", []byte("ct"), []byte("nonce"), "", nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	item := &models.VaultItem{
		ID:            "fixed-id",
		UserID:        "u1",
		Type:          "note",
		Name:          "bank pin",
		EncryptedData: []byte("ct"),
		Nonce:         []byte("nonce"),
	}
	out, err := repo.Create(context.Background(), item)
	require.NoError(t, err)
	require.Equal(t, "fixed-id", out.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListByUser_ReturnsRows(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "user_id", "type", "name", "encrypted_data", "nonce", "metadata", "storage_key", "created_at"}).
		AddRow("i1", "u1", "note", "bank pin", []byte("ct1"), []byte("n1"), "", nil, now).
		AddRow("i2", "u1", "file", "passport scan", nil, nil, "application/pdf", "vault/u1/2026/1/1/abc", now)

	mock.ExpectQuery(`SELECT .* FROM vault_items WHERE user_id`).
		WithArgs("u1").
		WillReturnRows(rows)

	items, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "i1", items[0].ID)
	require.Nil(t, items[0].StorageKey)
	require.Equal(t, "application/pdf", items[1].Metadata)
	require.NotNil(t, items[1].StorageKey)
	require.Equal(t, "vault/u1/2026/1/1/abc", *items[1].StorageKey)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`DELETE FROM vault_items WHERE id`).
		WithArgs("i1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), "i1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
