package httpapi

import (
	"errors"
	"net/http"

	"github.com/eternalsentinel/sentinel/internal/apperrors"
	"github.com/eternalsentinel/sentinel/internal/server/store/checkins"
	"github.com/eternalsentinel/sentinel/internal/server/store/models"
)

// handleCheckinStatus serves GET /checkin/status?token=T (spec §6), public,
// no auth.
func (s *Server) handleCheckinStatus(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, apperrors.ErrValidation)
		return
	}

	ci, err := s.Store.CheckIns().GetByToken(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	user, err := s.Store.Users().GetByID(r.Context(), ci.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	isExpired := ci.Status == models.CheckInPending && s.Clock.Now().After(ci.ExpiresAt)
	writeJSON(w, http.StatusOK, checkinStatusResponse{
		Status:    string(ci.Status),
		ExpiresAt: ci.ExpiresAt,
		IsExpired: isExpired,
		UserName:  user.DisplayName,
	})
}

// handleCheckinConfirm serves POST /checkin/confirm (spec §6), public, no
// auth, idempotent at the token level.
func (s *Server) handleCheckinConfirm(w http.ResponseWriter, r *http.Request) {
	var req checkinConfirmRequest
	if err := decodeJSON(r, &req); err != nil || req.Token == "" {
		writeError(w, apperrors.ErrValidation)
		return
	}

	_, cfg, err := checkins.ConfirmCheckIn(r.Context(), s.Store.Conn(), s.Clock, req.Token)
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyResolved) {
			if resp, ok := s.idempotentConfirmResponse(r, req.Token); ok {
				writeJSON(w, http.StatusOK, resp)
				return
			}
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, checkinConfirmResponse{NextCheckInDue: cfg.NextCheckInDue})
}

// idempotentConfirmResponse handles the repeated-CONFIRMED case named in
// spec §6: a second confirm of an already-CONFIRMED token returns the
// current status rather than an error.
func (s *Server) idempotentConfirmResponse(r *http.Request, token string) (checkinConfirmResponse, bool) {
	ci, err := s.Store.CheckIns().GetByToken(r.Context(), token)
	if err != nil || ci.Status != models.CheckInConfirmed {
		return checkinConfirmResponse{}, false
	}
	cfg, err := s.Store.PollingConfigs().GetByUserID(r.Context(), ci.UserID)
	if err != nil {
		return checkinConfirmResponse{}, false
	}
	return checkinConfirmResponse{NextCheckInDue: cfg.NextCheckInDue}, true
}

// handleManualCheckin serves POST /checkin (spec §6): "authenticated"
// means a session cookie in the original design, but end-user
// authentication is an out-of-scope external collaborator (spec §1); the
// pragmatic trust boundary here is an externally supplied X-User-Id
// header, set by whatever session-validating proxy sits in front of this
// service, mirroring how internal/server/auth only covers the ADMIN
// surface and leaves end-user auth unaddressed by design.
func (s *Server) handleManualCheckin(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}

	pending, err := s.Store.CheckIns().ListPending(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(pending) == 0 {
		cfg, err := s.Store.PollingConfigs().GetByUserID(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, checkinConfirmResponse{NextCheckInDue: cfg.NextCheckInDue})
		return
	}

	_, cfg, err := checkins.ConfirmCheckIn(r.Context(), s.Store.Conn(), s.Clock, pending[0].Token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkinConfirmResponse{NextCheckInDue: cfg.NextCheckInDue})
}
