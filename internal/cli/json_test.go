package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/mailbridge/mailbridge/internal/domain"
	"github.com/mailbridge/mailbridge/internal/sync"
)

func TestToJSONAccounts(t *testing.T) {
	synced := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	accounts := []domain.Account{
		{
			ID:           "acct-1",
			EmailAddress: "user@example.com",
			Provider:     domain.ProviderGoogle,
			Status:       domain.AccountActive,
			IsDefault:    true,
			LastSyncedAt: &synced,
			CreatedAt:    time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:           "acct-2",
			EmailAddress: "other@example.com",
			Provider:     domain.ProviderIMAP,
			Status:       domain.AccountActive,
			CreatedAt:    time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC),
		},
	}

	got := toJSONAccounts(accounts)

	if len(got) != 2 {
		t.Fatalf("got %d accounts, want 2", len(got))
	}
	if got[0].ID != "acct-1" {
		t.Errorf("got ID %q, want %q", got[0].ID, "acct-1")
	}
	if got[0].Provider != "google" {
		t.Errorf("got provider %q, want %q", got[0].Provider, "google")
	}
	if got[0].LastSyncedAt != "2026-02-01T10:00:00Z" {
		t.Errorf("got last_synced_at %q, want RFC3339 timestamp", got[0].LastSyncedAt)
	}
	if got[1].LastSyncedAt != "" {
		t.Errorf("got last_synced_at %q for never-synced account, want empty", got[1].LastSyncedAt)
	}

	// Verify JSON round-trip.
	var buf bytes.Buffer
	if err := fprintJSON(&buf, got); err != nil {
		t.Fatalf("fprintJSON() error = %v", err)
	}
	var parsed []jsonAccount
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("round-trip: got %d accounts, want 2", len(parsed))
	}
	if parsed[1].EmailAddress != "other@example.com" {
		t.Errorf("round-trip: got email %q, want %q", parsed[1].EmailAddress, "other@example.com")
	}
}

func TestToJSONAccounts_Empty(t *testing.T) {
	got := toJSONAccounts(nil)
	if len(got) != 0 {
		t.Errorf("got %d accounts for nil input, want 0", len(got))
	}

	var buf bytes.Buffer
	if err := fprintJSON(&buf, got); err != nil {
		t.Fatalf("fprintJSON() error = %v", err)
	}
	if got := buf.String(); got != "[]\n" {
		t.Errorf("got %q, want %q", got, "[]\n")
	}
}

func TestToJSONMappings(t *testing.T) {
	mappings := []domain.FolderMapping{
		{
			ID:                "fm-1",
			RemoteFolderID:    "INBOX",
			DisplayName:       "Inbox",
			Category:          domain.FolderSystem,
			Enabled:           true,
			BidirectionalSync: true,
			TotalCount:        40,
			UnreadCount:       3,
		},
		{
			ID:             "fm-2",
			RemoteFolderID: "Label_7",
			DisplayName:    "Receipts",
			Category:       domain.FolderCustom,
		},
	}

	got := toJSONMappings(mappings)

	if len(got) != 2 {
		t.Fatalf("got %d mappings, want 2", len(got))
	}
	if got[0].Category != "system" || !got[0].BidirectionalSync {
		t.Errorf("got %+v, want bidirectional system folder", got[0])
	}
	if got[0].UnreadCount != 3 {
		t.Errorf("got unread_count %d, want 3", got[0].UnreadCount)
	}
	if got[1].Category != "custom" || got[1].Enabled {
		t.Errorf("got %+v, want disabled custom folder", got[1])
	}
}

func TestToJSONSyncResult(t *testing.T) {
	got := toJSONSyncResult(&sync.Result{
		Partial:       true,
		FoldersSynced: 2,
		EmailsSynced:  17,
		Errors:        []string{"folder Spam: boom"},
	})

	if got.Success {
		t.Error("got success=true, want false")
	}
	if !got.Partial {
		t.Error("got partial=false, want true")
	}
	if got.EmailsSynced != 17 {
		t.Errorf("got emails_synced %d, want 17", got.EmailsSynced)
	}
	if len(got.Errors) != 1 {
		t.Fatalf("got %d errors, want 1", len(got.Errors))
	}
}

func TestToJSONSyncRuns(t *testing.T) {
	completed := time.Date(2026, 3, 10, 14, 31, 0, 0, time.UTC)
	runs := []domain.SyncRun{
		{
			ID:            "run-1",
			Kind:          domain.SyncInitial,
			Status:        domain.SyncCompleted,
			FoldersSynced: 4,
			EmailsSynced:  120,
			StartedAt:     time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC),
			CompletedAt:   &completed,
		},
		{
			ID:        "run-2",
			Kind:      domain.SyncIncremental,
			Status:    domain.SyncStarted,
			StartedAt: time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
		},
	}

	got := toJSONSyncRuns(runs)

	if len(got) != 2 {
		t.Fatalf("got %d runs, want 2", len(got))
	}
	if got[0].Kind != "initial" || got[0].CompletedAt != "2026-03-10T14:31:00Z" {
		t.Errorf("got %+v, want completed initial run", got[0])
	}
	if got[1].CompletedAt != "" {
		t.Errorf("got completed_at %q for in-flight run, want empty", got[1].CompletedAt)
	}
}
