package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/eternalsentinel/sentinel/internal/apperrors"
	"github.com/eternalsentinel/sentinel/internal/dbx"
	"github.com/eternalsentinel/sentinel/internal/server/auth"
	"github.com/eternalsentinel/sentinel/internal/server/escalation"
	"github.com/eternalsentinel/sentinel/internal/server/queue"
	"github.com/eternalsentinel/sentinel/internal/server/store/auditlog"
	"github.com/eternalsentinel/sentinel/internal/server/store/models"
	"github.com/eternalsentinel/sentinel/internal/server/store/pollingconfigs"
)

// requireAdmin gates a handler behind an ADMIN-role bearer token (spec §6
// "Administrative override"). Grounded on auth.VerifyAdminToken.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, apperrors.ErrUnauthorized)
			return
		}
		if _, err := auth.VerifyAdminToken(token, s.JWTSecret); err != nil {
			writeError(w, err)
			return
		}
		next(w, r)
	}
}

// handleAdminCheckin serves POST /admin/checkin (spec §6): forces an
// AdminForceCheckIn transition on the target user's PollingConfig,
// transactionally, the same shape as checkins.ConfirmCheckIn but driven by
// the escalation.AdminForceCheckIn event instead of a check-in token.
func (s *Server) handleAdminCheckin(w http.ResponseWriter, r *http.Request) {
	var req adminCheckinRequest
	if err := decodeJSON(r, &req); err != nil || req.UserID == "" {
		writeError(w, apperrors.ErrValidation)
		return
	}

	var next models.PollingConfig
	err := dbx.WithTx(r.Context(), s.Store.Conn(), nil, func(ctx context.Context, tx dbx.DBTX) error {
		cfgRepo := pollingconfigs.NewPostgresRepository(tx)
		auditRepo := auditlog.NewPostgresRepository(tx)

		cfg, err := cfgRepo.GetByUserIDForUpdate(ctx, req.UserID)
		if err != nil {
			return err
		}

		now := s.Clock.Now()
		n, effects := escalation.Step(*cfg, escalation.AdminForceCheckIn(), now)
		if effects == nil {
			// Only TRIGGERED is a noop under AdminForceCheckIn.
			return apperrors.ErrAlreadyTriggered
		}

		if err := cfgRepo.Update(ctx, &n); err != nil {
			return err
		}
		for _, eff := range effects {
			if eff.Kind != escalation.EffectAppendAudit {
				continue
			}
			if err := auditRepo.Append(ctx, &models.AuditLog{UserID: req.UserID, Kind: eff.AuditKind}); err != nil {
				return err
			}
		}
		next = n
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkinConfirmResponse{NextCheckInDue: next.NextCheckInDue})
}

// handleAdminTrigger serves POST /admin/trigger (spec §6): enqueues
// release:<userId> with zero delay and ForcedByAdmin=true, so the Release
// Worker (C7) applies escalation.AdminTrigger and runs the death protocol
// itself — the handler does no state-machine work of its own.
func (s *Server) handleAdminTrigger(w http.ResponseWriter, r *http.Request) {
	var req adminTriggerRequest
	if err := decodeJSON(r, &req); err != nil || req.UserID == "" {
		writeError(w, apperrors.ErrValidation)
		return
	}

	cfg, err := s.Store.PollingConfigs().GetByUserID(r.Context(), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if cfg.Status == models.StatusTriggered {
		writeError(w, apperrors.ErrAlreadyTriggered)
		return
	}

	body, err := queue.EncodePayload(queue.ReleasePayload{UserID: req.UserID, ForcedByAdmin: true})
	if err != nil {
		writeError(w, apperrors.ErrInternal)
		return
	}
	if _, err := s.Queue.Enqueue(r.Context(), queue.ReleaseQueue, body, s.Clock.Now(), 5, queue.ReleaseIdempotencyKey(req.UserID)); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"triggered": true})
}
