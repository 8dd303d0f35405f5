package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandleVaultUploadURL_OK(t *testing.T) {
	m := newFakeManager()
	s := &Server{Store: m, VaultStore: &fakeVaultStore{}}

	req := httptest.NewRequest(http.MethodPost, "/vault/upload-url", nil)
	req.Header.Set("X-User-Id", "u1")
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp vaultUploadURLResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "vault/u1/fake-key", resp.StorageKey)
	require.NotEmpty(t, resp.UploadURL)
}

func TestHandleVaultUploadURL_MissingUser(t *testing.T) {
	s := &Server{Store: newFakeManager(), VaultStore: &fakeVaultStore{}}

	req := httptest.NewRequest(http.MethodPost, "/vault/upload-url", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleVaultUploadURL_StoreUnconfigured(t *testing.T) {
	s := &Server{Store: newFakeManager()}

	req := httptest.NewRequest(http.MethodPost, "/vault/upload-url", nil)
	req.Header.Set("X-User-Id", "u1")
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
