package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mailbridge/mailbridge/internal/domain"
	"github.com/mailbridge/mailbridge/internal/store"
)

func seedFolders(t *testing.T, db *DB, accountID string) {
	t.Helper()
	mappings := []domain.FolderMapping{
		{
			ID: "fm-inbox", AccountID: accountID, RemoteFolderID: "r-inbox",
			RemoteFolderName: "INBOX", DisplayName: "Inbox",
			Category: domain.FolderSystem, Attributes: []string{"inbox"},
			Enabled: true, BidirectionalSync: true, SortOrder: 1,
		},
		{
			ID: "fm-trash", AccountID: accountID, RemoteFolderID: "r-trash",
			RemoteFolderName: "Trash", DisplayName: "Trash",
			Category: domain.FolderSystem, Attributes: []string{"trash"},
			Enabled: false, BidirectionalSync: true, SortOrder: 6,
		},
		{
			ID: "fm-proj", AccountID: accountID, RemoteFolderID: "r-proj",
			RemoteFolderName: "Projects", DisplayName: "Projects",
			Category: domain.FolderCustom,
			Enabled:  true, SortOrder: 999,
		},
	}
	if err := db.UpsertFolderMappings(context.Background(), mappings); err != nil {
		t.Fatalf("seedFolders: %v", err)
	}
}

func countFolderRows(t *testing.T, db *DB) int {
	t.Helper()
	var n int
	if err := db.db.QueryRow(`SELECT COUNT(*) FROM folder_mappings`).Scan(&n); err != nil {
		t.Fatalf("count folder_mappings: %v", err)
	}
	return n
}

func TestUpsertFolderMappings_IdempotentByRemoteID(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db, "acc-1", "user-1")
	seedFolders(t, db, "acc-1")

	before := countFolderRows(t, db)

	// A second catalog sync generates fresh local ids but the same remote
	// folder ids; row count must not change.
	mappings := []domain.FolderMapping{
		{
			ID: "fm-other", AccountID: "acc-1", RemoteFolderID: "r-inbox",
			RemoteFolderName: "INBOX", DisplayName: "Inbox renamed",
			Category: domain.FolderSystem, Attributes: []string{"inbox"},
			Enabled: true, BidirectionalSync: true, SortOrder: 1,
		},
	}
	if err := db.UpsertFolderMappings(context.Background(), mappings); err != nil {
		t.Fatalf("UpsertFolderMappings() error: %v", err)
	}

	if after := countFolderRows(t, db); after != before {
		t.Errorf("row count changed %d -> %d after re-sync", before, after)
	}

	got, err := db.GetFolderMapping(context.Background(), "fm-inbox")
	if err != nil {
		t.Fatalf("GetFolderMapping() error: %v", err)
	}
	if got.DisplayName != "Inbox renamed" {
		t.Errorf("DisplayName = %q, want updated value", got.DisplayName)
	}
}

func TestListFolderMappings_Filters(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db, "acc-1", "user-1")
	seedFolders(t, db, "acc-1")
	ctx := context.Background()

	all, err := db.ListFolderMappings(ctx, store.ListFolderOptions{AccountID: "acc-1"})
	if err != nil {
		t.Fatalf("ListFolderMappings() error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d mappings, want 3", len(all))
	}
	// Ordered by sort_order then display name.
	if all[0].ID != "fm-inbox" || all[1].ID != "fm-trash" || all[2].ID != "fm-proj" {
		t.Errorf("unexpected order: %s, %s, %s", all[0].ID, all[1].ID, all[2].ID)
	}

	enabled, err := db.ListFolderMappings(ctx, store.ListFolderOptions{
		AccountID: "acc-1", EnabledOnly: true,
	})
	if err != nil {
		t.Fatalf("ListFolderMappings(enabled) error: %v", err)
	}
	if len(enabled) != 2 {
		t.Errorf("got %d enabled mappings, want 2", len(enabled))
	}

	selected, err := db.ListFolderMappings(ctx, store.ListFolderOptions{
		AccountID: "acc-1", EnabledOnly: true, RemoteFolderIDs: []string{"r-proj"},
	})
	if err != nil {
		t.Fatalf("ListFolderMappings(selected) error: %v", err)
	}
	if len(selected) != 1 || selected[0].ID != "fm-proj" {
		t.Errorf("selected = %v, want only fm-proj", selected)
	}
}

func TestUpdateFolderMappingPolicy(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db, "acc-1", "user-1")
	seedFolders(t, db, "acc-1")
	ctx := context.Background()

	enabled := false
	name := "Project Inbox"
	err := db.UpdateFolderMappingPolicy(ctx, "fm-proj", store.FolderPolicyUpdate{
		Enabled: &enabled, DisplayName: &name,
	})
	if err != nil {
		t.Fatalf("UpdateFolderMappingPolicy() error: %v", err)
	}

	got, err := db.GetFolderMapping(ctx, "fm-proj")
	if err != nil {
		t.Fatalf("GetFolderMapping() error: %v", err)
	}
	if got.Enabled {
		t.Error("Enabled = true, want false")
	}
	if got.DisplayName != "Project Inbox" {
		t.Errorf("DisplayName = %q", got.DisplayName)
	}
	if got.BidirectionalSync {
		t.Error("BidirectionalSync changed by an update that omitted it")
	}

	// Empty update is a no-op.
	if err := db.UpdateFolderMappingPolicy(ctx, "fm-proj", store.FolderPolicyUpdate{}); err != nil {
		t.Fatalf("empty update error: %v", err)
	}

	err = db.UpdateFolderMappingPolicy(ctx, "missing", store.FolderPolicyUpdate{Enabled: &enabled})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestUpdateFolderSyncState(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db, "acc-1", "user-1")
	seedFolders(t, db, "acc-1")
	ctx := context.Background()

	syncedAt := time.Date(2026, 2, 14, 8, 0, 0, 0, time.UTC)
	if err := db.UpdateFolderSyncState(ctx, "fm-inbox", syncedAt, 42); err != nil {
		t.Fatalf("UpdateFolderSyncState() error: %v", err)
	}

	got, err := db.GetFolderMapping(ctx, "fm-inbox")
	if err != nil {
		t.Fatalf("GetFolderMapping() error: %v", err)
	}
	if got.TotalCount != 42 {
		t.Errorf("TotalCount = %d, want 42", got.TotalCount)
	}
	if got.LastSyncedAt == nil || !got.LastSyncedAt.Equal(syncedAt) {
		t.Errorf("LastSyncedAt = %v, want %v", got.LastSyncedAt, syncedAt)
	}
	if got.Attributes == nil || got.Attributes[0] != "inbox" {
		t.Errorf("Attributes = %v, want [inbox]", got.Attributes)
	}
}
