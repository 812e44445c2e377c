package app

import (
	"context"
	"fmt"

	"github.com/mailbridge/mailbridge/internal/domain"
	"github.com/mailbridge/mailbridge/internal/provider"
	"github.com/mailbridge/mailbridge/internal/store"
	"github.com/mailbridge/mailbridge/internal/sync"
)

// RemoteFolders returns the live folder list from the provider, without
// touching the local catalog.
func (s *Service) RemoteFolders(ctx context.Context, userID, accountID string) ([]provider.RemoteFolder, error) {
	acct, err := s.store.GetAccountForUser(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}
	client, err := s.clients.For(acct.Provider)
	if err != nil {
		return nil, err
	}
	return client.ListFolders(ctx, acct.GrantID)
}

// FolderMappings returns the account's mappings, optionally only the
// enabled ones.
func (s *Service) FolderMappings(ctx context.Context, userID, accountID string, enabledOnly bool) ([]domain.FolderMapping, error) {
	if _, err := s.store.GetAccountForUser(ctx, accountID, userID); err != nil {
		return nil, err
	}
	return s.store.ListFolderMappings(ctx, store.ListFolderOptions{
		AccountID:   accountID,
		EnabledOnly: enabledOnly,
	})
}

// MappingUpdate targets one folder mapping in a bulk policy change.
type MappingUpdate struct {
	ID     string
	Policy store.FolderPolicyUpdate
}

// UpdateFolderMappings applies policy changes to the account's mappings.
// Each target is checked to belong to the account before writing.
func (s *Service) UpdateFolderMappings(ctx context.Context, userID, accountID string, updates []MappingUpdate) error {
	if _, err := s.store.GetAccountForUser(ctx, accountID, userID); err != nil {
		return err
	}
	for _, u := range updates {
		mapping, err := s.store.GetFolderMapping(ctx, u.ID)
		if err != nil {
			return err
		}
		if mapping.AccountID != accountID {
			return store.ErrNotFound
		}
		if err := s.store.UpdateFolderMappingPolicy(ctx, u.ID, u.Policy); err != nil {
			return fmt.Errorf("failed to update mapping %s: %w", u.ID, err)
		}
	}
	return nil
}

// ListEmails returns locally mirrored emails for the user.
func (s *Service) ListEmails(ctx context.Context, opts store.ListEmailOptions) ([]domain.Email, error) {
	return s.store.ListEmails(ctx, opts)
}

// GetEmail returns one email if it belongs to one of the user's accounts.
func (s *Service) GetEmail(ctx context.Context, userID, emailID string) (*domain.Email, error) {
	email, err := s.store.GetEmail(ctx, emailID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetAccountForUser(ctx, email.AccountID, userID); err != nil {
		return nil, err
	}
	return email, nil
}

// DeleteEmail removes a locally mirrored email. The remote copy is left
// alone.
func (s *Service) DeleteEmail(ctx context.Context, userID, emailID string) error {
	if _, err := s.GetEmail(ctx, userID, emailID); err != nil {
		return err
	}
	return s.store.DeleteEmail(ctx, emailID)
}

// MoveEmail reassigns an email to another folder mapping, propagating to
// the provider when the destination mapping syncs bidirectionally.
func (s *Service) MoveEmail(ctx context.Context, userID, emailID, folderMappingID string) error {
	if _, err := s.GetEmail(ctx, userID, emailID); err != nil {
		return err
	}
	return s.propagator.MoveToFolder(ctx, emailID, folderMappingID)
}

// UpdateEmailStatus applies a read/starred change, propagating to the
// provider when the email's folder syncs bidirectionally.
func (s *Service) UpdateEmailStatus(ctx context.Context, userID, emailID string, update sync.StatusUpdate) error {
	if _, err := s.GetEmail(ctx, userID, emailID); err != nil {
		return err
	}
	return s.propagator.UpdateStatus(ctx, emailID, update)
}

// SendEmail composes and sends a message through the account's provider.
func (s *Service) SendEmail(ctx context.Context, userID, accountID string, draft provider.Draft) (*provider.SentMessage, error) {
	acct, err := s.store.GetAccountForUser(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}
	client, err := s.clients.For(acct.Provider)
	if err != nil {
		return nil, err
	}
	sent, err := client.SendMessage(ctx, acct.GrantID, draft)
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}
	return sent, nil
}

// SyncRuns returns the account's recent sync ledger entries.
func (s *Service) SyncRuns(ctx context.Context, userID, accountID string, limit int) ([]domain.SyncRun, error) {
	if _, err := s.store.GetAccountForUser(ctx, accountID, userID); err != nil {
		return nil, err
	}
	return s.store.ListSyncRuns(ctx, accountID, limit)
}
