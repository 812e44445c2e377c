package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mailbridge/mailbridge/internal/domain"
	"github.com/mailbridge/mailbridge/internal/provider"
	"github.com/mailbridge/mailbridge/internal/store"
	"github.com/mailbridge/mailbridge/internal/sync"
)

func seedOwnedEmail(t *testing.T, s store.Store, id, accountID string) {
	t.Helper()
	if err := s.UpsertEmails(context.Background(), []domain.Email{{
		ID:        id,
		AccountID: accountID,
		MessageID: "msg-" + id,
		ThreadID:  "thread-" + id,
		Subject:   "subject",
		Date:      time.Now(),
		Unread:    true,
	}}); err != nil {
		t.Fatalf("seedOwnedEmail: %v", err)
	}
}

func TestGetEmail_OwnershipEnforced(t *testing.T) {
	svc, db := newTestService(t, &stubClient{})
	ctx := context.Background()

	acct, _ := svc.Connect(ctx, "user-1", "me@example.com", "grant-1", domain.ProviderGoogle)
	seedOwnedEmail(t, db, "em-1", acct.ID)

	if _, err := svc.GetEmail(ctx, "user-1", "em-1"); err != nil {
		t.Fatalf("GetEmail() error: %v", err)
	}
	if _, err := svc.GetEmail(ctx, "user-2", "em-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetEmail() for other user = %v, want ErrNotFound", err)
	}
}

func TestDeleteEmail_LocalOnly(t *testing.T) {
	svc, db := newTestService(t, &stubClient{})
	ctx := context.Background()

	acct, _ := svc.Connect(ctx, "user-1", "me@example.com", "grant-1", domain.ProviderGoogle)
	seedOwnedEmail(t, db, "em-1", acct.ID)

	if err := svc.DeleteEmail(ctx, "user-1", "em-1"); err != nil {
		t.Fatalf("DeleteEmail() error: %v", err)
	}
	if _, err := db.GetEmail(ctx, "em-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("email still present after delete: %v", err)
	}
}

func TestUpdateEmailStatus_ThroughService(t *testing.T) {
	svc, db := newTestService(t, &stubClient{})
	ctx := context.Background()

	acct, _ := svc.Connect(ctx, "user-1", "me@example.com", "grant-1", domain.ProviderGoogle)
	seedOwnedEmail(t, db, "em-1", acct.ID)

	unread := false
	if err := svc.UpdateEmailStatus(ctx, "user-1", "em-1", sync.StatusUpdate{Unread: &unread}); err != nil {
		t.Fatalf("UpdateEmailStatus() error: %v", err)
	}
	got, err := db.GetEmail(ctx, "em-1")
	if err != nil {
		t.Fatalf("GetEmail() error: %v", err)
	}
	if got.Unread {
		t.Error("Unread = true, want false")
	}
}

func TestUpdateFolderMappings_RejectsForeignMapping(t *testing.T) {
	client := &stubClient{folders: []provider.RemoteFolder{
		{ID: "r-inbox", Name: "Inbox", Attributes: []string{"inbox"}},
	}}
	svc, db := newTestService(t, client)
	ctx := context.Background()

	a, _ := svc.Connect(ctx, "user-1", "a@example.com", "g-a", domain.ProviderGoogle)
	b, _ := svc.Connect(ctx, "user-1", "b@example.com", "g-b", domain.ProviderGoogle)

	aMappings, err := db.ListFolderMappings(ctx, store.ListFolderOptions{AccountID: a.ID})
	if err != nil || len(aMappings) == 0 {
		t.Fatalf("mappings for a: %v (%v)", aMappings, err)
	}

	enabled := false
	err = svc.UpdateFolderMappings(ctx, "user-1", b.ID, []MappingUpdate{
		{ID: aMappings[0].ID, Policy: store.FolderPolicyUpdate{Enabled: &enabled}},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("cross-account update error = %v, want ErrNotFound", err)
	}

	// The mapping is untouched.
	got, err := db.GetFolderMapping(ctx, aMappings[0].ID)
	if err != nil {
		t.Fatalf("GetFolderMapping() error: %v", err)
	}
	if !got.Enabled {
		t.Error("mapping disabled by a rejected update")
	}
}

func TestUpdateFolderMappings_AppliesPolicy(t *testing.T) {
	client := &stubClient{folders: []provider.RemoteFolder{
		{ID: "r-proj", Name: "Projects"},
	}}
	svc, db := newTestService(t, client)
	ctx := context.Background()

	acct, _ := svc.Connect(ctx, "user-1", "me@example.com", "grant-1", domain.ProviderGoogle)
	mappings, err := db.ListFolderMappings(ctx, store.ListFolderOptions{AccountID: acct.ID})
	if err != nil || len(mappings) != 1 {
		t.Fatalf("mappings: %v (%v)", mappings, err)
	}

	bidi := true
	name := "Client Projects"
	err = svc.UpdateFolderMappings(ctx, "user-1", acct.ID, []MappingUpdate{
		{ID: mappings[0].ID, Policy: store.FolderPolicyUpdate{BidirectionalSync: &bidi, DisplayName: &name}},
	})
	if err != nil {
		t.Fatalf("UpdateFolderMappings() error: %v", err)
	}

	got, err := db.GetFolderMapping(ctx, mappings[0].ID)
	if err != nil {
		t.Fatalf("GetFolderMapping() error: %v", err)
	}
	if !got.BidirectionalSync || got.DisplayName != "Client Projects" {
		t.Errorf("mapping = %+v", got)
	}
}

func TestSendEmail(t *testing.T) {
	svc, _ := newTestService(t, &stubClient{})
	ctx := context.Background()

	acct, _ := svc.Connect(ctx, "user-1", "me@example.com", "grant-1", domain.ProviderGoogle)

	sent, err := svc.SendEmail(ctx, "user-1", acct.ID, provider.Draft{
		To:      []domain.Address{{Email: "to@example.com"}},
		Subject: "hi",
		Body:    "body",
	})
	if err != nil {
		t.Fatalf("SendEmail() error: %v", err)
	}
	if sent == nil {
		t.Fatal("sent = nil")
	}

	if _, err := svc.SendEmail(ctx, "user-2", acct.ID, provider.Draft{}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("SendEmail() for other user = %v, want ErrNotFound", err)
	}
}

func TestRemoteFolders(t *testing.T) {
	client := &stubClient{folders: []provider.RemoteFolder{
		{ID: "r-1", Name: "Inbox", Attributes: []string{"inbox"}},
		{ID: "r-2", Name: "Sent", Attributes: []string{"sent"}},
	}}
	svc, _ := newTestService(t, client)
	ctx := context.Background()

	acct, _ := svc.Connect(ctx, "user-1", "me@example.com", "grant-1", domain.ProviderGoogle)

	folders, err := svc.RemoteFolders(ctx, "user-1", acct.ID)
	if err != nil {
		t.Fatalf("RemoteFolders() error: %v", err)
	}
	if len(folders) != 2 {
		t.Errorf("folders = %d, want 2", len(folders))
	}
}
