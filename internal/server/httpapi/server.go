// Package httpapi is the HTTP external interface of the Liveness-and-Release
// Core (spec §6): check-in confirmation, administrative override, and
// trustee access, all plain JSON over net/http.ServeMux. No third-party
// router appears anywhere in the retrieval pack's web servers, so this
// follows the pack's own stdlib-mux idiom rather than reaching for one.
package httpapi

import (
	"context"
	"net/http"

	"github.com/eternalsentinel/sentinel/internal/clock"
	"github.com/eternalsentinel/sentinel/internal/logging"
	"github.com/eternalsentinel/sentinel/internal/server/queue"
	"github.com/eternalsentinel/sentinel/internal/server/store"
)

// vaultBlobStore is the subset of *vaultstore.Store the HTTP surface needs,
// kept as a local interface so handler tests can fake it without touching
// S3.
type vaultBlobStore interface {
	PresignedPutURL(ctx context.Context, userID string) (key string, url string, err error)
	PresignedGetURL(ctx context.Context, key string) (string, error)
}

// Server hosts the handlers of spec §6 against a state store and job queue.
type Server struct {
	Store         store.Manager
	Queue         queue.Repository
	VaultStore    vaultBlobStore
	Clock         clock.Clock
	Logger        logging.Logger
	JWTSecret     []byte
	PublicBaseURL string
}

// Routes builds the ServeMux of spec §6's external interfaces.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /checkin/status", s.handleCheckinStatus)
	mux.HandleFunc("POST /checkin/confirm", s.handleCheckinConfirm)
	mux.HandleFunc("POST /checkin", s.handleManualCheckin)

	mux.HandleFunc("POST /admin/checkin", s.requireAdmin(s.handleAdminCheckin))
	mux.HandleFunc("POST /admin/trigger", s.requireAdmin(s.handleAdminTrigger))

	mux.HandleFunc("GET /trustee/access", s.handleTrusteeAccessStatus)
	mux.HandleFunc("POST /trustee/access", s.handleTrusteeAccessGrant)

	mux.HandleFunc("POST /vault/upload-url", s.handleVaultUploadURL)

	return mux
}
