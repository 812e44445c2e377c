package api

import (
	"net/http"

	"github.com/mailbridge/mailbridge/internal/app"
	"github.com/mailbridge/mailbridge/internal/domain"
	"github.com/mailbridge/mailbridge/internal/store"
	"github.com/mailbridge/mailbridge/internal/sync"
)

type connectRequest struct {
	Code         string `json:"code,omitempty"`
	GrantID      string `json:"grant_id,omitempty"`
	EmailAddress string `json:"email_address,omitempty"`
	Provider     string `json:"provider"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request, userID string) {
	var req connectRequest
	if !decodeBody(w, r, &req) {
		return
	}

	kind := domain.ProviderKind(req.Provider)
	if kind == "" {
		kind = domain.ProviderGoogle
	}

	grantID := req.GrantID
	email := req.EmailAddress
	if req.Code != "" {
		if s.exchanger == nil {
			writeError(w, http.StatusBadRequest, "code exchange not configured")
			return
		}
		grant, err := s.exchanger.ExchangeCode(r.Context(), req.Code, s.clientID, s.redirect)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		grantID = grant.GrantID
		email = grant.Email
	}
	if grantID == "" || email == "" {
		writeError(w, http.StatusBadRequest, "grant_id and email_address (or code) are required")
		return
	}

	acct, err := s.svc.Connect(r.Context(), userID, email, grantID, kind)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountJSON(acct))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request, userID string) {
	accounts, err := s.svc.Store().ListAccounts(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]accountJSON, 0, len(accounts))
	for i := range accounts {
		out = append(out, toAccountJSON(&accounts[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request, userID string) {
	acct, err := s.svc.Store().GetAccountForUser(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountJSON(acct))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request, userID string) {
	if err := s.svc.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetDefault(w http.ResponseWriter, r *http.Request, userID string) {
	if err := s.svc.SetDefault(r.Context(), userID, r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoteFolders(w http.ResponseWriter, r *http.Request, userID string) {
	folders, err := s.svc.RemoteFolders(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]remoteFolderJSON, 0, len(folders))
	for _, f := range folders {
		out = append(out, toRemoteFolderJSON(f))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCatalogSync(w http.ResponseWriter, r *http.Request, userID string) {
	if err := s.svc.SyncCatalog(r.Context(), userID, r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listMappings(w http.ResponseWriter, r *http.Request, userID string, enabledOnly bool) {
	mappings, err := s.svc.FolderMappings(r.Context(), userID, r.PathValue("id"), enabledOnly)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]mappingJSON, 0, len(mappings))
	for i := range mappings {
		out = append(out, toMappingJSON(&mappings[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request, userID string) {
	s.listMappings(w, r, userID, false)
}

func (s *Server) handleMappedFolders(w http.ResponseWriter, r *http.Request, userID string) {
	s.listMappings(w, r, userID, true)
}

type mappingUpdateRequest struct {
	Mappings []struct {
		ID                string  `json:"id"`
		Enabled           *bool   `json:"enabled,omitempty"`
		BidirectionalSync *bool   `json:"bidirectional_sync,omitempty"`
		DisplayName       *string `json:"display_name,omitempty"`
	} `json:"mappings"`
}

func (s *Server) handleUpdateMappings(w http.ResponseWriter, r *http.Request, userID string) {
	var req mappingUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Mappings) == 0 {
		writeError(w, http.StatusBadRequest, "mappings list is empty")
		return
	}

	updates := make([]app.MappingUpdate, 0, len(req.Mappings))
	for _, m := range req.Mappings {
		if m.ID == "" {
			writeError(w, http.StatusBadRequest, "mapping id is required")
			return
		}
		updates = append(updates, app.MappingUpdate{
			ID: m.ID,
			Policy: store.FolderPolicyUpdate{
				Enabled:           m.Enabled,
				BidirectionalSync: m.BidirectionalSync,
				DisplayName:       m.DisplayName,
			},
		})
	}

	if err := s.svc.UpdateFolderMappings(r.Context(), userID, r.PathValue("id"), updates); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type syncRequest struct {
	SyncOnlyMapped bool     `json:"sync_only_mapped"`
	FolderIDs      []string `json:"folder_ids,omitempty"`
	Limit          int      `json:"limit,omitempty"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request, userID string) {
	var req syncRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	result, err := s.svc.SyncMessages(r.Context(), userID, r.PathValue("id"), sync.Options{
		FolderIDs:      req.FolderIDs,
		Limit:          req.Limit,
		SyncOnlyMapped: req.SyncOnlyMapped,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSyncResultJSON(result))
}

func (s *Server) handleSyncRuns(w http.ResponseWriter, r *http.Request, userID string) {
	limit := queryInt(r, "limit", 20)
	runs, err := s.svc.SyncRuns(r.Context(), userID, r.PathValue("id"), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]syncRunJSON, 0, len(runs))
	for i := range runs {
		out = append(out, toSyncRunJSON(&runs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}
