package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mailbridge/mailbridge/internal/domain"
	"github.com/mailbridge/mailbridge/internal/store"
)

func TestUpsertAccount_ReconnectKeepsSingleRow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	acct := &domain.Account{
		ID:           "acc-1",
		UserID:       "user-1",
		EmailAddress: "alice@example.com",
		GrantID:      "grant-old",
		Provider:     domain.ProviderGoogle,
		Status:       domain.AccountActive,
	}
	if err := db.UpsertAccount(ctx, acct); err != nil {
		t.Fatalf("UpsertAccount() error: %v", err)
	}

	// Reconnecting the same mailbox refreshes the grant in place.
	acct.ID = "acc-2"
	acct.GrantID = "grant-new"
	if err := db.UpsertAccount(ctx, acct); err != nil {
		t.Fatalf("UpsertAccount() reconnect error: %v", err)
	}

	accounts, err := db.ListAccounts(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListAccounts() error: %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("got %d accounts, want 1", len(accounts))
	}
	if accounts[0].ID != "acc-1" {
		t.Errorf("ID = %q, want original %q", accounts[0].ID, "acc-1")
	}
	if accounts[0].GrantID != "grant-new" {
		t.Errorf("GrantID = %q, want %q", accounts[0].GrantID, "grant-new")
	}
}

func TestGetAccountForUser_WrongUser(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db, "acc-1", "user-1")

	_, err := db.GetAccountForUser(context.Background(), "acc-1", "user-2")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetAccountForUser() error = %v, want ErrNotFound", err)
	}
}

func TestSetDefaultAccount_UnsetThenSet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedAccount(t, db, "acc-1", "user-1")
	seedAccount(t, db, "acc-2", "user-1")

	if err := db.UnsetDefaultAccounts(ctx, "user-1"); err != nil {
		t.Fatalf("UnsetDefaultAccounts() error: %v", err)
	}
	if err := db.SetDefaultAccount(ctx, "acc-1"); err != nil {
		t.Fatalf("SetDefaultAccount() error: %v", err)
	}
	if err := db.UnsetDefaultAccounts(ctx, "user-1"); err != nil {
		t.Fatalf("UnsetDefaultAccounts() error: %v", err)
	}
	if err := db.SetDefaultAccount(ctx, "acc-2"); err != nil {
		t.Fatalf("SetDefaultAccount() error: %v", err)
	}

	accounts, err := db.ListAccounts(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListAccounts() error: %v", err)
	}
	defaults := 0
	for _, a := range accounts {
		if a.IsDefault {
			defaults++
			if a.ID != "acc-2" {
				t.Errorf("default account = %q, want acc-2", a.ID)
			}
		}
	}
	if defaults != 1 {
		t.Errorf("got %d default accounts, want 1", defaults)
	}
}

func TestSetAccountStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedAccount(t, db, "acc-1", "user-1")

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := db.SetAccountStatus(ctx, "acc-1", domain.AccountSyncing, nil); err != nil {
		t.Fatalf("SetAccountStatus() error: %v", err)
	}
	if err := db.SetAccountStatus(ctx, "acc-1", domain.AccountActive, &now); err != nil {
		t.Fatalf("SetAccountStatus() error: %v", err)
	}

	got, err := db.GetAccount(ctx, "acc-1")
	if err != nil {
		t.Fatalf("GetAccount() error: %v", err)
	}
	if got.Status != domain.AccountActive {
		t.Errorf("Status = %q, want active", got.Status)
	}
	if got.LastSyncedAt == nil || !got.LastSyncedAt.Equal(now) {
		t.Errorf("LastSyncedAt = %v, want %v", got.LastSyncedAt, now)
	}
}

func TestDeleteAccount_Cascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedAccount(t, db, "acc-1", "user-1")

	if err := db.UpsertFolderMappings(ctx, []domain.FolderMapping{{
		ID: "fm-1", AccountID: "acc-1", RemoteFolderID: "INBOX",
		RemoteFolderName: "Inbox", DisplayName: "Inbox",
		Category: domain.FolderSystem, Enabled: true, SortOrder: 1,
	}}); err != nil {
		t.Fatalf("UpsertFolderMappings() error: %v", err)
	}
	if err := db.UpsertEmails(ctx, []domain.Email{{
		ID: "em-1", AccountID: "acc-1", FolderMappingID: "fm-1",
		MessageID: "msg-1", ThreadID: "msg-1", Subject: "hi",
		Date: time.Now(), Unread: true,
	}}); err != nil {
		t.Fatalf("UpsertEmails() error: %v", err)
	}

	if err := db.DeleteAccount(ctx, "acc-1"); err != nil {
		t.Fatalf("DeleteAccount() error: %v", err)
	}

	if _, err := db.GetFolderMapping(ctx, "fm-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("folder mapping survived account delete: %v", err)
	}
	if _, err := db.GetEmail(ctx, "em-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("email survived account delete: %v", err)
	}
}

func TestDeleteAccount_NotFound(t *testing.T) {
	db := newTestDB(t)
	err := db.DeleteAccount(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("DeleteAccount() error = %v, want ErrNotFound", err)
	}
}
