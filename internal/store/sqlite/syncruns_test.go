package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/mailbridge/mailbridge/internal/domain"
)

func TestSyncRunLifecycle(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db, "acc-1", "user-1")
	ctx := context.Background()

	started := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	run := &domain.SyncRun{
		ID:        "run-1",
		AccountID: "acc-1",
		Kind:      domain.SyncInitial,
		Status:    domain.SyncStarted,
		StartedAt: started,
	}
	if err := db.CreateSyncRun(ctx, run); err != nil {
		t.Fatalf("CreateSyncRun() error: %v", err)
	}

	completed := started.Add(30 * time.Second)
	run.Status = domain.SyncCompleted
	run.FoldersSynced = 2
	run.EmailsSynced = 57
	run.Errors = []string{"folder Projects: remote fetch failed"}
	run.CompletedAt = &completed
	if err := db.FinalizeSyncRun(ctx, run); err != nil {
		t.Fatalf("FinalizeSyncRun() error: %v", err)
	}

	runs, err := db.ListSyncRuns(ctx, "acc-1", 10)
	if err != nil {
		t.Fatalf("ListSyncRuns() error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	got := runs[0]
	if got.Status != domain.SyncCompleted {
		t.Errorf("Status = %q, want completed", got.Status)
	}
	if got.FoldersSynced != 2 || got.EmailsSynced != 57 {
		t.Errorf("counts = (%d, %d), want (2, 57)", got.FoldersSynced, got.EmailsSynced)
	}
	if len(got.Errors) != 1 {
		t.Errorf("Errors = %v, want one entry", got.Errors)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(completed) {
		t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, completed)
	}
}

func TestListSyncRuns_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db, "acc-1", "user-1")
	ctx := context.Background()

	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-1", "run-2", "run-3"} {
		if err := db.CreateSyncRun(ctx, &domain.SyncRun{
			ID:        id,
			AccountID: "acc-1",
			Kind:      domain.SyncIncremental,
			Status:    domain.SyncStarted,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("CreateSyncRun(%s) error: %v", id, err)
		}
	}

	runs, err := db.ListSyncRuns(ctx, "acc-1", 2)
	if err != nil {
		t.Fatalf("ListSyncRuns() error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != "run-3" || runs[1].ID != "run-2" {
		t.Errorf("order = %s, %s; want run-3, run-2", runs[0].ID, runs[1].ID)
	}
}
