package store

import (
	"context"
	"errors"
	"time"

	"github.com/mailbridge/mailbridge/internal/domain"
)

// ErrNotFound is returned when a referenced row does not exist or is not
// visible to the caller.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for the application. Every sync
// write path is an upsert under a unique key so that retries and
// re-syncs converge instead of duplicating rows.
type Store interface {
	// Accounts
	UpsertAccount(ctx context.Context, account *domain.Account) error
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	GetAccountForUser(ctx context.Context, id, userID string) (*domain.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]domain.Account, error)
	DeleteAccount(ctx context.Context, id string) error
	SetAccountStatus(ctx context.Context, id string, status domain.AccountStatus, lastSyncedAt *time.Time) error
	UnsetDefaultAccounts(ctx context.Context, userID string) error
	SetDefaultAccount(ctx context.Context, id string) error

	// Folder mappings
	UpsertFolderMappings(ctx context.Context, mappings []domain.FolderMapping) error
	GetFolderMapping(ctx context.Context, id string) (*domain.FolderMapping, error)
	ListFolderMappings(ctx context.Context, opts ListFolderOptions) ([]domain.FolderMapping, error)
	UpdateFolderMappingPolicy(ctx context.Context, id string, update FolderPolicyUpdate) error
	UpdateFolderSyncState(ctx context.Context, id string, syncedAt time.Time, totalCount int) error

	// Emails
	UpsertEmails(ctx context.Context, emails []domain.Email) error
	GetEmail(ctx context.Context, id string) (*domain.Email, error)
	GetEmailByMessageID(ctx context.Context, messageID string) (*domain.Email, error)
	ListEmails(ctx context.Context, opts ListEmailOptions) ([]domain.Email, error)
	DeleteEmail(ctx context.Context, id string) error
	SetEmailFolder(ctx context.Context, emailID, folderMappingID string) error
	SetEmailStatus(ctx context.Context, emailID string, unread, starred *bool) error

	// Sync runs
	CreateSyncRun(ctx context.Context, run *domain.SyncRun) error
	FinalizeSyncRun(ctx context.Context, run *domain.SyncRun) error
	ListSyncRuns(ctx context.Context, accountID string, limit int) ([]domain.SyncRun, error)

	// Lifecycle
	Close() error
}

// FolderPolicyUpdate carries a partial change to a mapping's user-facing
// policy. Nil fields are left unchanged.
type FolderPolicyUpdate struct {
	Enabled           *bool
	BidirectionalSync *bool
	DisplayName       *string
}

// ListFolderOptions configures folder mapping queries. Results are ordered
// by sort order, then display name.
type ListFolderOptions struct {
	AccountID       string
	EnabledOnly     bool
	RemoteFolderIDs []string
}

// ListEmailOptions configures email listing queries. Results are ordered by
// date descending. UserID restricts results to accounts owned by that user.
type ListEmailOptions struct {
	UserID          string
	AccountID       string
	FolderMappingID string
	UnreadOnly      bool
	StarredOnly     bool
	Limit           int
	Offset          int
}
