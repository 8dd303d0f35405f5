package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eternalsentinel/sentinel/internal/apperrors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.ErrValidation
	}
	return nil
}

// writeError maps the taxonomy of spec §7 onto an HTTP response: Validation
// →400, Not found→404, Conflict→400 with a machine-readable reason,
// Expired→400 with expired=true, Transient→503, Fatal→500. Internal
// messages never reach the response body.
func writeError(w http.ResponseWriter, err error) {
	status, reason := statusFor(err)
	body := map[string]any{"error": reason}
	if errors.Is(err, apperrors.ErrExpired) {
		body["expired"] = true
	}
	writeJSON(w, status, body)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrExpired):
		return http.StatusBadRequest, "expired"
	case errors.Is(err, apperrors.ErrAlreadyTriggered):
		return http.StatusBadRequest, "already_triggered"
	case errors.Is(err, apperrors.ErrAlreadyResolved):
		return http.StatusBadRequest, "already_resolved"
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusBadRequest, "conflict"
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperrors.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
