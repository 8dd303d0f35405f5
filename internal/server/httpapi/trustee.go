package httpapi

import (
	"errors"
	"net/http"

	"github.com/eternalsentinel/sentinel/internal/apperrors"
)

// handleTrusteeAccessStatus serves GET /trustee/access?token=A (spec §6),
// public, no auth.
func (s *Server) handleTrusteeAccessStatus(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, apperrors.ErrValidation)
		return
	}

	t, err := s.Store.Trustees().GetByAccessToken(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	user, err := s.Store.Users().GetByID(r.Context(), t.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, trusteeAccessStatusResponse{
		TrusteeName:     t.Name,
		UserName:        user.DisplayName,
		AccessExpiresAt: t.AccessExpiresAt,
	})
}

// handleTrusteeAccessGrant serves POST /trustee/access (spec §6): returns
// the opaque vault verbatim if the trustee's access window is still open,
// else Expired.
func (s *Server) handleTrusteeAccessGrant(w http.ResponseWriter, r *http.Request) {
	var req trusteeAccessGrantRequest
	if err := decodeJSON(r, &req); err != nil || req.AccessToken == "" {
		writeError(w, apperrors.ErrValidation)
		return
	}

	t, err := s.Store.Trustees().GetByAccessToken(r.Context(), req.AccessToken)
	if err != nil {
		writeError(w, err)
		return
	}
	if t.AccessExpiresAt == nil || s.Clock.Now().After(*t.AccessExpiresAt) {
		writeError(w, apperrors.ErrExpired)
		return
	}

	vault, err := s.Store.Vaults().GetByUserID(r.Context(), t.UserID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		writeError(w, err)
		return
	}
	items, err := s.Store.VaultItems().ListByUser(r.Context(), t.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	resolveDownloadURL := func(storageKey string) string {
		if s.VaultStore == nil {
			return ""
		}
		url, err := s.VaultStore.PresignedGetURL(r.Context(), storageKey)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn(r.Context(), "trustee: presign vault item download failed", "error", err.Error())
			}
			return ""
		}
		return url
	}

	writeJSON(w, http.StatusOK, trusteeVaultResponse{
		Vault:           vaultResponseFrom(vault, items, resolveDownloadURL),
		AccessExpiresAt: *t.AccessExpiresAt,
	})
}
