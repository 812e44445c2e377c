package nylas

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mailbridge/mailbridge/internal/domain"
	"github.com/mailbridge/mailbridge/internal/provider"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{APIKey: "test-key", BaseURL: srv.URL, HTTPClient: srv.Client()})
}

func TestListFolders(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/grants/grant-1/folders" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"request_id": "req-1",
			"data": []map[string]any{
				{"id": "f-1", "name": "Inbox", "attributes": []string{"inbox"}, "total_count": 12, "unread_count": 3},
				{"id": "f-2", "name": "Receipts", "parent_id": "f-1"},
			},
		})
	})

	folders, err := client.ListFolders(context.Background(), "grant-1")
	if err != nil {
		t.Fatalf("ListFolders() error: %v", err)
	}
	if len(folders) != 2 {
		t.Fatalf("folders = %d, want 2", len(folders))
	}
	if folders[0].ID != "f-1" || folders[0].TotalCount != 12 || folders[0].UnreadCount != 3 {
		t.Errorf("folder[0] = %+v", folders[0])
	}
	if folders[0].Attributes[0] != "inbox" {
		t.Errorf("attributes = %v", folders[0].Attributes)
	}
	if folders[1].ParentID != "f-1" {
		t.Errorf("ParentID = %q, want f-1", folders[1].ParentID)
	}
}

func TestListMessages_QueryParams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("in") != "f-1" || q.Get("limit") != "25" || q.Get("offset") != "50" {
			t.Errorf("query = %v", q)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{
				"id":       "m-1",
				"subject":  "hello",
				"date":     1700000000,
				"unread":   true,
				"from":     []map[string]any{{"name": "Ana", "email": "ana@example.com"}},
				"snippet":  "hello there",
				"starred":  false,
				"thread_id": "t-1",
			}},
		})
	})

	messages, err := client.ListMessages(context.Background(), "grant-1", provider.ListMessageOptions{
		FolderID: "f-1", Limit: 25, Offset: 50,
	})
	if err != nil {
		t.Fatalf("ListMessages() error: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(messages))
	}
	m := messages[0]
	if m.ID != "m-1" || m.ThreadID != "t-1" || m.UnixSeconds != 1700000000 || !m.Unread {
		t.Errorf("message = %+v", m)
	}
	if len(m.From) != 1 || m.From[0].Email != "ana@example.com" {
		t.Errorf("From = %v", m.From)
	}
}

func TestListMessages_OmittedUnreadDefaultsTrue(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": "m-1", "subject": "no unread field", "date": 1700000000},
				{"id": "m-2", "subject": "explicitly read", "date": 1700000100, "unread": false},
			},
		})
	})

	messages, err := client.ListMessages(context.Background(), "grant-1", provider.ListMessageOptions{FolderID: "f-1"})
	if err != nil {
		t.Fatalf("ListMessages() error: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(messages))
	}
	if !messages[0].Unread {
		t.Error("message without an unread field mapped as read, want unread")
	}
	if messages[1].Unread {
		t.Error("unread=false mapped as unread, want read")
	}
}

func TestUpdateMessage_SendsOnlySetFields(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %q, want PUT", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"id": "m-1"}})
	})

	unread := false
	err := client.UpdateMessage(context.Background(), "grant-1", "m-1", provider.MessageUpdate{Unread: &unread})
	if err != nil {
		t.Fatalf("UpdateMessage() error: %v", err)
	}
	if v, ok := body["unread"]; !ok || v != false {
		t.Errorf("body unread = %v, want false", v)
	}
	if _, ok := body["starred"]; ok {
		t.Error("body carries starred, want omitted")
	}
	if _, ok := body["folders"]; ok {
		t.Error("body carries folders, want omitted")
	}
}

func TestUpdateMessage_EmptyUpdateSkipsCall(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	if err := client.UpdateMessage(context.Background(), "grant-1", "m-1", provider.MessageUpdate{}); err != nil {
		t.Fatalf("UpdateMessage() error: %v", err)
	}
	if called {
		t.Error("empty update hit the API")
	}
}

func TestSendMessage_DraftThenSend(t *testing.T) {
	var paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": "d-1", "thread_id": "t-9"},
		})
	})

	sent, err := client.SendMessage(context.Background(), "grant-1", provider.Draft{
		To:      []domain.Address{{Email: "to@example.com"}},
		Subject: "hi",
		Body:    "body",
	})
	if err != nil {
		t.Fatalf("SendMessage() error: %v", err)
	}
	if sent.ID != "d-1" || sent.ThreadID != "t-9" {
		t.Errorf("sent = %+v", sent)
	}

	want := []string{
		"POST /v3/grants/grant-1/drafts",
		"POST /v3/grants/grant-1/drafts/d-1",
	}
	if len(paths) != len(want) {
		t.Fatalf("calls = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("call[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, provider.ErrAuthRequired},
		{"forbidden", http.StatusForbidden, provider.ErrAuthRequired},
		{"not found", http.StatusNotFound, provider.ErrMessageNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := client.GetMessage(context.Background(), "grant-1", "m-1")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerErrorCarriesMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"type": "invalid_request_error", "message": "bad folder id"},
		})
	})

	_, err := client.ListMessages(context.Background(), "grant-1", provider.ListMessageOptions{FolderID: "nope"})
	if err == nil {
		t.Fatal("want error")
	}
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want *apiError", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("Status = %d", apiErr.Status)
	}
	if apiErr.Body.Error.Message != "bad folder id" {
		t.Errorf("Message = %q", apiErr.Body.Error.Message)
	}
}

func TestExchangeCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/connect/token" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["grant_type"] != "authorization_code" || body["code"] != "abc" {
			t.Errorf("body = %v", body)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"grant_id": "grant-9",
			"email":    "me@example.com",
		})
	})

	grant, err := client.ExchangeCode(context.Background(), "abc", "client-1", "https://app.example.com/callback")
	if err != nil {
		t.Fatalf("ExchangeCode() error: %v", err)
	}
	if grant.GrantID != "grant-9" || grant.Email != "me@example.com" {
		t.Errorf("grant = %+v", grant)
	}
}
