package api

import (
	"net/http"
	"strconv"

	"github.com/mailbridge/mailbridge/internal/provider"
	"github.com/mailbridge/mailbridge/internal/store"
	"github.com/mailbridge/mailbridge/internal/sync"
)

const defaultEmailPageSize = 50

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func (s *Server) handleListEmails(w http.ResponseWriter, r *http.Request, userID string) {
	q := r.URL.Query()
	opts := store.ListEmailOptions{
		UserID:          userID,
		AccountID:       q.Get("account_id"),
		FolderMappingID: q.Get("folder_id"),
		UnreadOnly:      q.Get("unread") == "true",
		StarredOnly:     q.Get("starred") == "true",
		Limit:           queryInt(r, "limit", defaultEmailPageSize),
		Offset:          queryInt(r, "offset", 0),
	}

	emails, err := s.svc.ListEmails(r.Context(), opts)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]emailJSON, 0, len(emails))
	for i := range emails {
		out = append(out, toEmailJSON(&emails[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetEmail(w http.ResponseWriter, r *http.Request, userID string) {
	email, err := s.svc.GetEmail(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmailJSON(email))
}

type patchEmailRequest struct {
	FolderID *string `json:"folder_id,omitempty"`
	Unread   *bool   `json:"unread,omitempty"`
	Starred  *bool   `json:"starred,omitempty"`
}

func (s *Server) handlePatchEmail(w http.ResponseWriter, r *http.Request, userID string) {
	var req patchEmailRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.FolderID == nil && req.Unread == nil && req.Starred == nil {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}
	emailID := r.PathValue("id")

	if req.FolderID != nil {
		if err := s.svc.MoveEmail(r.Context(), userID, emailID, *req.FolderID); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
	}
	if req.Unread != nil || req.Starred != nil {
		update := sync.StatusUpdate{Unread: req.Unread, Starred: req.Starred}
		if err := s.svc.UpdateEmailStatus(r.Context(), userID, emailID, update); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
	}

	email, err := s.svc.GetEmail(r.Context(), userID, emailID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmailJSON(email))
}

func (s *Server) handleDeleteEmail(w http.ResponseWriter, r *http.Request, userID string) {
	if err := s.svc.DeleteEmail(r.Context(), userID, r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sendRequest struct {
	AccountID string        `json:"account_id"`
	To        []addressJSON `json:"to"`
	CC        []addressJSON `json:"cc,omitempty"`
	BCC       []addressJSON `json:"bcc,omitempty"`
	Subject   string        `json:"subject"`
	Body      string        `json:"body"`
}

func (s *Server) handleSendEmail(w http.ResponseWriter, r *http.Request, userID string) {
	var req sendRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AccountID == "" || len(req.To) == 0 {
		writeError(w, http.StatusBadRequest, "account_id and to are required")
		return
	}

	sent, err := s.svc.SendEmail(r.Context(), userID, req.AccountID, provider.Draft{
		To:      fromAddressJSON(req.To),
		CC:      fromAddressJSON(req.CC),
		BCC:     fromAddressJSON(req.BCC),
		Subject: req.Subject,
		Body:    req.Body,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":        sent.ID,
		"thread_id": sent.ThreadID,
	})
}
