package sync

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mailbridge/mailbridge/internal/domain"
	"github.com/mailbridge/mailbridge/internal/provider"
	"github.com/mailbridge/mailbridge/internal/store"
)

// Cataloger mirrors a remote mailbox's folder hierarchy into local folder
// mappings.
type Cataloger struct {
	store   store.Store
	clients provider.Registry
	log     *logrus.Logger
}

// NewCataloger creates a Cataloger backed by the given store and provider
// clients.
func NewCataloger(s store.Store, clients provider.Registry, log *logrus.Logger) *Cataloger {
	return &Cataloger{store: s, clients: clients, log: log}
}

// SyncFolders fetches the account's full remote folder list and upserts a
// folder mapping for each, keyed by (account, remote folder id). System
// folders get bidirectional sync and a fixed sort order; custom folders
// are enabled but pull-only. Mappings for remote folders that no longer
// exist are left untouched. The operation is atomic: a remote fetch or
// persistence failure writes nothing.
func (c *Cataloger) SyncFolders(ctx context.Context, account *domain.Account) error {
	client, err := c.clients.For(account.Provider)
	if err != nil {
		return err
	}

	folders, err := client.ListFolders(ctx, account.GrantID)
	if err != nil {
		return fmt.Errorf("failed to list remote folders: %w", err)
	}
	if len(folders) == 0 {
		c.log.WithField("account", account.ID).Info("no remote folders found")
		return nil
	}

	mappings := make([]domain.FolderMapping, 0, len(folders))
	for _, f := range folders {
		category := domain.CategorizeFolder(f.Attributes)
		isSystem := category == domain.FolderSystem

		displayName := f.DisplayName
		if displayName == "" {
			displayName = f.Name
		}

		sortOrder := 999
		if isSystem {
			sortOrder = domain.FolderSortOrder(f.Attributes)
		}

		mappings = append(mappings, domain.FolderMapping{
			ID:                uuid.NewString(),
			AccountID:         account.ID,
			RemoteFolderID:    f.ID,
			RemoteFolderName:  f.Name,
			DisplayName:       displayName,
			ParentID:          f.ParentID,
			Category:          category,
			Attributes:        f.Attributes,
			Enabled:           true,
			BidirectionalSync: isSystem,
			TotalCount:        f.TotalCount,
			UnreadCount:       f.UnreadCount,
			SortOrder:         sortOrder,
		})
	}

	if err := c.store.UpsertFolderMappings(ctx, mappings); err != nil {
		return fmt.Errorf("failed to persist folder mappings: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"account": account.ID,
		"folders": len(mappings),
	}).Info("folder catalog synced")
	return nil
}
