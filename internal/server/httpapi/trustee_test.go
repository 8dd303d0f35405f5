package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eternalsentinel/sentinel/internal/clock"
	"github.com/eternalsentinel/sentinel/internal/server/store/models"
	"github.com/stretchr/testify/require"
)

func TestHandleTrusteeAccessStatus_OK(t *testing.T) {
	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	expiresAt := now.Add(30 * 24 * time.Hour)
	token := "tok-a"
	m := newFakeManager()
	m.users["u1"] = &models.User{ID: "u1", DisplayName: "Alice"}
	m.trustees["t1"] = &models.Trustee{ID: "t1", UserID: "u1", Name: "Bob", AccessToken: &token, AccessExpiresAt: &expiresAt}

	s := &Server{Store: m, Clock: clock.NewManual(now)}
	req := httptest.NewRequest(http.MethodGet, "/trustee/access?token=tok-a", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp trusteeAccessStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Bob", resp.TrusteeName)
	require.Equal(t, "Alice", resp.UserName)
}

func TestHandleTrusteeAccessGrant_ReturnsVault(t *testing.T) {
	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	expiresAt := now.Add(30 * 24 * time.Hour)
	token := "tok-a"
	m := newFakeManager()
	m.trustees["t1"] = &models.Trustee{ID: "t1", UserID: "u1", Name: "Bob", AccessToken: &token, AccessExpiresAt: &expiresAt}
	m.vaults["u1"] = &models.Vault{UserID: "u1", EncryptedMasterKey: []byte("ct"), MasterKeySalt: []byte("salt"), MasterKeyNonce: []byte("nonce")}
	m.vaultItems["u1"] = []*models.VaultItem{
		{ID: "i1", UserID: "u1", Type: "note", Name: "bank pin", EncryptedData: []byte("ed"), Nonce: []byte("n"), CreatedAt: now},
	}

	s := &Server{Store: m, Clock: clock.NewManual(now)}
	body, _ := json.Marshal(trusteeAccessGrantRequest{AccessToken: "tok-a"})
	req := httptest.NewRequest(http.MethodPost, "/trustee/access", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp trusteeVaultResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Vault.Items, 1)
	require.Equal(t, "bank pin", resp.Vault.Items[0].Name)
	require.Equal(t, []byte("ct"), resp.Vault.EncryptedMasterKey)
}

func TestHandleTrusteeAccessGrant_ResolvesBlobBackedItemDownloadURL(t *testing.T) {
	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	expiresAt := now.Add(30 * 24 * time.Hour)
	token := "tok-a"
	storageKey := "vault/u1/2026/8/3/blob"
	m := newFakeManager()
	m.trustees["t1"] = &models.Trustee{ID: "t1", UserID: "u1", Name: "Bob", AccessToken: &token, AccessExpiresAt: &expiresAt}
	m.vaultItems["u1"] = []*models.VaultItem{
		{ID: "i1", UserID: "u1", Type: "file", Name: "passport scan", Metadata: "application/pdf", StorageKey: &storageKey, CreatedAt: now},
	}

	s := &Server{Store: m, VaultStore: &fakeVaultStore{}, Clock: clock.NewManual(now)}
	body, _ := json.Marshal(trusteeAccessGrantRequest{AccessToken: "tok-a"})
	req := httptest.NewRequest(http.MethodPost, "/trustee/access", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp trusteeVaultResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Vault.Items, 1)
	require.Contains(t, resp.Vault.Items[0].DownloadURL, storageKey)
	require.Empty(t, resp.Vault.Items[0].EncryptedData)
}

func TestHandleTrusteeAccessGrant_Expired(t *testing.T) {
	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	expiresAt := now.Add(-time.Hour)
	token := "tok-a"
	m := newFakeManager()
	m.trustees["t1"] = &models.Trustee{ID: "t1", UserID: "u1", Name: "Bob", AccessToken: &token, AccessExpiresAt: &expiresAt}

	s := &Server{Store: m, Clock: clock.NewManual(now)}
	body, _ := json.Marshal(trusteeAccessGrantRequest{AccessToken: "tok-a"})
	req := httptest.NewRequest(http.MethodPost, "/trustee/access", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body2 map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body2))
	require.Equal(t, true, body2["expired"])
}

func TestHandleTrusteeAccessGrant_NoVaultReturnsEmptyItems(t *testing.T) {
	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	expiresAt := now.Add(time.Hour)
	token := "tok-a"
	m := newFakeManager()
	m.trustees["t1"] = &models.Trustee{ID: "t1", UserID: "u1", Name: "Bob", AccessToken: &token, AccessExpiresAt: &expiresAt}

	s := &Server{Store: m, Clock: clock.NewManual(now)}
	body, _ := json.Marshal(trusteeAccessGrantRequest{AccessToken: "tok-a"})
	req := httptest.NewRequest(http.MethodPost, "/trustee/access", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp trusteeVaultResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Vault.Items)
	require.Empty(t, resp.Vault.EncryptedMasterKey)
}
