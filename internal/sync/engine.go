package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mailbridge/mailbridge/internal/domain"
	"github.com/mailbridge/mailbridge/internal/provider"
	"github.com/mailbridge/mailbridge/internal/store"
)

// defaultMessageLimit caps per-folder fetches when the caller does not
// supply a limit.
const defaultMessageLimit = 100

// Options selects what a message sync processes.
type Options struct {
	// FolderIDs restricts the run to these remote folder ids. Empty means
	// every enabled folder mapping.
	FolderIDs []string
	// Limit caps messages fetched per folder. Zero means the default.
	Limit int
	// SyncOnlyMapped marks the run as an initial sync of the mapped
	// folder set rather than an incremental pass.
	SyncOnlyMapped bool
}

// Result is the outcome of one sync run. Success is true only when every
// processed folder succeeded; Partial distinguishes "some folders synced,
// some failed" from total failure, since partial progress is persisted
// either way.
type Result struct {
	Success       bool
	Partial       bool
	FoldersSynced int
	EmailsSynced  int
	Errors        []string
}

// Engine pulls messages for an account's enabled folders into the local
// email store, recording each invocation in the sync run ledger. Runs for
// the same account are serialized.
type Engine struct {
	store       store.Store
	clients     provider.Registry
	log         *logrus.Logger
	locks       *keyedMutex
	callTimeout time.Duration
}

// NewEngine creates an Engine. callTimeout bounds each provider call;
// zero disables the bound.
func NewEngine(s store.Store, clients provider.Registry, log *logrus.Logger, callTimeout time.Duration) *Engine {
	return &Engine{
		store:       s,
		clients:     clients,
		log:         log,
		locks:       newKeyedMutex(),
		callTimeout: callTimeout,
	}
}

// Sync fetches messages for the selected folder mappings and upserts them
// by message id. Folders are processed independently: one folder's
// failure is recorded as an error string and does not abort the others.
// An empty selection is a successful no-op.
func (e *Engine) Sync(ctx context.Context, account *domain.Account, opts Options) (*Result, error) {
	unlock := e.locks.Lock(account.ID)
	defer unlock()

	client, err := e.clients.For(account.Provider)
	if err != nil {
		return nil, err
	}

	kind := domain.SyncIncremental
	if opts.SyncOnlyMapped {
		kind = domain.SyncInitial
	}

	run := &domain.SyncRun{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		Kind:      kind,
		Status:    domain.SyncStarted,
		StartedAt: time.Now().UTC(),
	}
	if err := e.store.CreateSyncRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record sync run: %w", err)
	}

	mappings, err := e.store.ListFolderMappings(ctx, store.ListFolderOptions{
		AccountID:       account.ID,
		EnabledOnly:     true,
		RemoteFolderIDs: opts.FolderIDs,
	})
	if err != nil {
		err = fmt.Errorf("failed to select folder mappings: %w", err)
		e.finalizeFailedRun(ctx, run, err)
		return nil, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultMessageLimit
	}

	result := &Result{}
	for i := range mappings {
		folder := &mappings[i]
		count, err := e.syncFolder(ctx, client, account, folder, limit)
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("folder %s: %v", folder.DisplayName, err))
			e.log.WithFields(logrus.Fields{
				"account": account.ID,
				"folder":  folder.DisplayName,
			}).WithError(err).Warn("folder sync failed")
			continue
		}
		result.FoldersSynced++
		result.EmailsSynced += count
	}

	result.Success = len(result.Errors) == 0
	result.Partial = !result.Success && result.FoldersSynced > 0

	completed := time.Now().UTC()
	run.Status = domain.SyncCompleted
	run.FoldersSynced = result.FoldersSynced
	run.EmailsSynced = result.EmailsSynced
	run.Errors = result.Errors
	run.CompletedAt = &completed
	if err := e.store.FinalizeSyncRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to finalize sync run: %w", err)
	}

	e.log.WithFields(logrus.Fields{
		"account": account.ID,
		"folders": result.FoldersSynced,
		"emails":  result.EmailsSynced,
		"errors":  len(result.Errors),
	}).Info("message sync complete")
	return result, nil
}

// finalizeFailedRun closes out a run that failed before any folder was
// processed, so the ledger never holds a permanently started row.
func (e *Engine) finalizeFailedRun(ctx context.Context, run *domain.SyncRun, cause error) {
	completed := time.Now().UTC()
	run.Status = domain.SyncCompleted
	run.Errors = []string{cause.Error()}
	run.CompletedAt = &completed
	if err := e.store.FinalizeSyncRun(ctx, run); err != nil {
		e.log.WithField("run", run.ID).WithError(err).Warn("failed to finalize sync run")
	}
}

// syncFolder fetches one folder's messages and upserts the batch. It
// returns the number of emails persisted.
func (e *Engine) syncFolder(ctx context.Context, client provider.Client, account *domain.Account, folder *domain.FolderMapping, limit int) (int, error) {
	callCtx := ctx
	if e.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.callTimeout)
		defer cancel()
	}

	messages, err := client.ListMessages(callCtx, account.GrantID, provider.ListMessageOptions{
		FolderID: folder.RemoteFolderID,
		Limit:    limit,
	})
	if err != nil {
		return 0, fmt.Errorf("remote fetch failed: %w", err)
	}

	if len(messages) > 0 {
		emails := make([]domain.Email, 0, len(messages))
		for i := range messages {
			emails = append(emails, mapRemoteMessage(&messages[i], account.ID, folder.ID))
		}
		if err := e.store.UpsertEmails(ctx, emails); err != nil {
			return 0, fmt.Errorf("persist failed: %w", err)
		}
	}

	if err := e.store.UpdateFolderSyncState(ctx, folder.ID, time.Now().UTC(), len(messages)); err != nil {
		return 0, fmt.Errorf("failed to update folder state: %w", err)
	}
	return len(messages), nil
}

// SyncMessage refreshes a single message from the provider, preserving the
// stored folder assignment when the message is already mirrored.
func (e *Engine) SyncMessage(ctx context.Context, account *domain.Account, messageID string) error {
	client, err := e.clients.For(account.Provider)
	if err != nil {
		return err
	}

	msg, err := client.GetMessage(ctx, account.GrantID, messageID)
	if err != nil {
		return fmt.Errorf("failed to fetch message %s: %w", messageID, err)
	}

	email := mapRemoteMessage(msg, account.ID, "")
	if existing, err := e.store.GetEmailByMessageID(ctx, messageID); err == nil {
		email.FolderMappingID = existing.FolderMappingID
	}

	if err := e.store.UpsertEmails(ctx, []domain.Email{email}); err != nil {
		return fmt.Errorf("failed to persist message %s: %w", messageID, err)
	}
	return nil
}

// mapRemoteMessage converts a provider message into a local email record.
// Provider timestamps are seconds since epoch and become absolute times
// here; they are never stored raw.
func mapRemoteMessage(msg *provider.RemoteMessage, accountID, folderMappingID string) domain.Email {
	subject := msg.Subject
	if subject == "" {
		subject = "(No Subject)"
	}
	threadID := msg.ThreadID
	if threadID == "" {
		threadID = msg.ID
	}

	return domain.Email{
		ID:              uuid.NewString(),
		AccountID:       accountID,
		FolderMappingID: folderMappingID,
		MessageID:       msg.ID,
		ThreadID:        threadID,
		Subject:         subject,
		From:            msg.From,
		To:              msg.To,
		CC:              msg.CC,
		BCC:             msg.BCC,
		Body:            msg.Body,
		Snippet:         msg.Snippet,
		Date:            time.Unix(msg.UnixSeconds, 0).UTC(),
		Unread:          msg.Unread,
		Starred:         msg.Starred,
		HasAttachments:  len(msg.Attachments) > 0,
		Attachments:     msg.Attachments,
	}
}
