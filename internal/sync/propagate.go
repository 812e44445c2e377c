package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mailbridge/mailbridge/internal/domain"
	"github.com/mailbridge/mailbridge/internal/provider"
	"github.com/mailbridge/mailbridge/internal/store"
)

// StatusUpdate carries a partial read/starred mutation. Nil fields are
// left unchanged locally and omitted from the remote call.
type StatusUpdate struct {
	Unread  *bool
	Starred *bool
}

// Propagator applies local email mutations and pushes them back to the
// remote mailbox when the owning folder mapping has bidirectional sync
// enabled. The local write always lands first; a remote failure leaves
// the stores divergent until the next sync pass reconciles them.
type Propagator struct {
	store   store.Store
	clients provider.Registry
	log     *logrus.Logger
}

// NewPropagator creates a Propagator backed by the given store and
// provider clients.
func NewPropagator(s store.Store, clients provider.Registry, log *logrus.Logger) *Propagator {
	return &Propagator{store: s, clients: clients, log: log}
}

// MoveToFolder reassigns the email to the given folder mapping. The
// destination mapping's bidirectional flag decides whether the move is
// forwarded to the provider.
func (p *Propagator) MoveToFolder(ctx context.Context, emailID, folderMappingID string) error {
	email, err := p.store.GetEmail(ctx, emailID)
	if err != nil {
		return err
	}
	dest, err := p.store.GetFolderMapping(ctx, folderMappingID)
	if err != nil {
		return err
	}
	account, err := p.store.GetAccount(ctx, email.AccountID)
	if err != nil {
		return err
	}

	if err := p.store.SetEmailFolder(ctx, emailID, dest.ID); err != nil {
		return err
	}

	if !dest.BidirectionalSync {
		return nil
	}

	client, err := p.clients.For(account.Provider)
	if err != nil {
		return err
	}
	err = client.UpdateMessage(ctx, account.GrantID, email.MessageID, provider.MessageUpdate{
		Folders: []string{dest.RemoteFolderID},
	})
	if err != nil {
		p.log.WithFields(logrus.Fields{
			"email":  emailID,
			"folder": dest.ID,
		}).WithError(err).Warn("remote folder move failed; local move kept")
		return fmt.Errorf("remote folder move failed: %w", err)
	}
	return nil
}

// UpdateStatus applies a read/starred mutation. The email's current folder
// mapping's bidirectional flag decides whether the change is forwarded to
// the provider; only the supplied fields are sent.
func (p *Propagator) UpdateStatus(ctx context.Context, emailID string, update StatusUpdate) error {
	email, err := p.store.GetEmail(ctx, emailID)
	if err != nil {
		return err
	}
	account, err := p.store.GetAccount(ctx, email.AccountID)
	if err != nil {
		return err
	}

	var folder *domain.FolderMapping
	if email.FolderMappingID != "" {
		folder, err = p.store.GetFolderMapping(ctx, email.FolderMappingID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}

	if err := p.store.SetEmailStatus(ctx, emailID, update.Unread, update.Starred); err != nil {
		return err
	}

	if folder == nil || !folder.BidirectionalSync {
		return nil
	}

	client, err := p.clients.For(account.Provider)
	if err != nil {
		return err
	}
	err = client.UpdateMessage(ctx, account.GrantID, email.MessageID, provider.MessageUpdate{
		Unread:  update.Unread,
		Starred: update.Starred,
	})
	if err != nil {
		p.log.WithField("email", emailID).WithError(err).
			Warn("remote status update failed; local update kept")
		return fmt.Errorf("remote status update failed: %w", err)
	}
	return nil
}
