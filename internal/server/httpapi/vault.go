package httpapi

import (
	"net/http"

	"github.com/eternalsentinel/sentinel/internal/apperrors"
)

// handleVaultUploadURL serves POST /vault/upload-url: mints a storage key
// and a time-limited presigned PUT URL a client can upload a large
// client-encrypted vault blob to directly, bypassing this service for the
// bytes themselves. Trusts X-User-Id the same way handleManualCheckin does
// (see that handler's comment on the end-user auth boundary).
func (s *Server) handleVaultUploadURL(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}
	if s.VaultStore == nil {
		writeError(w, apperrors.ErrStoreUnavailable)
		return
	}

	key, url, err := s.VaultStore.PresignedPutURL(r.Context(), userID)
	if err != nil {
		writeError(w, apperrors.ErrStoreUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, vaultUploadURLResponse{StorageKey: key, UploadURL: url})
}
