package domain

import "time"

type SyncKind string

const (
	SyncInitial     SyncKind = "initial"
	SyncIncremental SyncKind = "incremental"
)

type SyncRunStatus string

const (
	SyncStarted   SyncRunStatus = "started"
	SyncCompleted SyncRunStatus = "completed"
)

// SyncRun records one sync invocation for observability and retry
// diagnosis. Created as started at entry, finalized once at exit.
type SyncRun struct {
	ID            string
	AccountID     string
	Kind          SyncKind
	Status        SyncRunStatus
	FoldersSynced int
	EmailsSynced  int
	Errors        []string
	StartedAt     time.Time
	CompletedAt   *time.Time
}
