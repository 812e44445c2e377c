// Package api exposes the sync service over HTTP. Handlers are thin
// wrappers over the app service; caller identity arrives in the X-User-ID
// header set by the fronting auth layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/mailbridge/mailbridge/internal/app"
	"github.com/mailbridge/mailbridge/internal/provider"
	"github.com/mailbridge/mailbridge/internal/provider/nylas"
	"github.com/mailbridge/mailbridge/internal/store"
)

const userHeader = "X-User-ID"

// Exchanger trades an OAuth authorization code for a provider grant.
type Exchanger interface {
	ExchangeCode(ctx context.Context, code, clientID, redirectURI string) (*nylas.Grant, error)
}

// Server routes HTTP requests to the app service.
type Server struct {
	svc       *app.Service
	exchanger Exchanger
	clientID  string
	redirect  string
	log       *logrus.Logger
}

// NewServer creates a Server. exchanger may be nil when code exchange is
// not configured; connect then requires an explicit grant id.
func NewServer(svc *app.Service, exchanger Exchanger, clientID, redirectURI string, log *logrus.Logger) *Server {
	return &Server{
		svc:       svc,
		exchanger: exchanger,
		clientID:  clientID,
		redirect:  redirectURI,
		log:       log,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/accounts", s.withUser(s.handleConnect))
	mux.HandleFunc("GET /api/accounts", s.withUser(s.handleListAccounts))
	mux.HandleFunc("GET /api/accounts/{id}", s.withUser(s.handleGetAccount))
	mux.HandleFunc("DELETE /api/accounts/{id}", s.withUser(s.handleDeleteAccount))
	mux.HandleFunc("POST /api/accounts/{id}/set-default", s.withUser(s.handleSetDefault))

	mux.HandleFunc("GET /api/accounts/{id}/folders", s.withUser(s.handleRemoteFolders))
	mux.HandleFunc("POST /api/accounts/{id}/folders/sync", s.withUser(s.handleCatalogSync))
	mux.HandleFunc("GET /api/accounts/{id}/folder-mappings", s.withUser(s.handleListMappings))
	mux.HandleFunc("POST /api/accounts/{id}/folder-mappings", s.withUser(s.handleUpdateMappings))
	mux.HandleFunc("GET /api/accounts/{id}/mapped-folders", s.withUser(s.handleMappedFolders))

	mux.HandleFunc("POST /api/accounts/{id}/sync", s.withUser(s.handleSync))
	mux.HandleFunc("GET /api/accounts/{id}/sync-runs", s.withUser(s.handleSyncRuns))

	mux.HandleFunc("GET /api/emails", s.withUser(s.handleListEmails))
	mux.HandleFunc("GET /api/emails/{id}", s.withUser(s.handleGetEmail))
	mux.HandleFunc("PATCH /api/emails/{id}", s.withUser(s.handlePatchEmail))
	mux.HandleFunc("DELETE /api/emails/{id}", s.withUser(s.handleDeleteEmail))
	mux.HandleFunc("POST /api/emails/send", s.withUser(s.handleSendEmail))

	return mux
}

type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

func (s *Server) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(userHeader)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing "+userHeader+" header")
			return
		}
		next(w, r, userID)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service failures onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, provider.ErrAuthRequired):
		writeError(w, http.StatusUnauthorized, "provider authentication required")
	default:
		s.log.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}
