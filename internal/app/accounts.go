package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mailbridge/mailbridge/internal/domain"
	"github.com/mailbridge/mailbridge/internal/provider"
	"github.com/mailbridge/mailbridge/internal/store"
	"github.com/mailbridge/mailbridge/internal/sync"
)

// Service orchestrates account lifecycle and sync operations on behalf of
// the API and CLI layers. All dependencies are injected; the process
// bootstrap owns their lifecycle.
type Service struct {
	store      store.Store
	clients    provider.Registry
	cataloger  *sync.Cataloger
	engine     *sync.Engine
	propagator *sync.Propagator
	log        *logrus.Logger
}

// NewService creates a Service.
func NewService(s store.Store, clients provider.Registry, cataloger *sync.Cataloger, engine *sync.Engine, propagator *sync.Propagator, log *logrus.Logger) *Service {
	return &Service{
		store:      s,
		clients:    clients,
		cataloger:  cataloger,
		engine:     engine,
		propagator: propagator,
		log:        log,
	}
}

// Store exposes the persistence layer for read paths.
func (s *Service) Store() store.Store {
	return s.store
}

// Connect registers (or refreshes) a mailbox for the user and kicks off a
// folder catalog sync. A catalog failure is not fatal to the connection:
// it is logged and the user can retry later.
func (s *Service) Connect(ctx context.Context, userID, emailAddress, grantID string, kind domain.ProviderKind) (*domain.Account, error) {
	acct := &domain.Account{
		ID:           uuid.NewString(),
		UserID:       userID,
		EmailAddress: emailAddress,
		GrantID:      grantID,
		Provider:     kind,
		Status:       domain.AccountActive,
	}
	if err := s.store.UpsertAccount(ctx, acct); err != nil {
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	// Reconnects keep the original row id; reload the canonical record.
	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	for i := range accounts {
		if accounts[i].EmailAddress == emailAddress {
			acct = &accounts[i]
			break
		}
	}

	if err := s.cataloger.SyncFolders(ctx, acct); err != nil {
		s.log.WithField("account", acct.ID).WithError(err).
			Warn("initial folder catalog sync failed")
	}
	return acct, nil
}

// SetDefault makes the account the user's default mailbox, clearing the
// flag on every other account first so at most one row carries it.
func (s *Service) SetDefault(ctx context.Context, userID, accountID string) error {
	if _, err := s.store.GetAccountForUser(ctx, accountID, userID); err != nil {
		return err
	}
	if err := s.store.UnsetDefaultAccounts(ctx, userID); err != nil {
		return err
	}
	return s.store.SetDefaultAccount(ctx, accountID)
}

// Delete removes the account and everything mirrored under it. When the
// deleted account was the default, one surviving account is promoted.
func (s *Service) Delete(ctx context.Context, userID, accountID string) error {
	acct, err := s.store.GetAccountForUser(ctx, accountID, userID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteAccount(ctx, accountID); err != nil {
		return err
	}

	if acct.IsDefault {
		remaining, err := s.store.ListAccounts(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list remaining accounts: %w", err)
		}
		if len(remaining) > 0 {
			if err := s.store.UnsetDefaultAccounts(ctx, userID); err != nil {
				return err
			}
			if err := s.store.SetDefaultAccount(ctx, remaining[0].ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// SyncCatalog refreshes the account's folder mappings from the provider.
func (s *Service) SyncCatalog(ctx context.Context, userID, accountID string) error {
	acct, err := s.store.GetAccountForUser(ctx, accountID, userID)
	if err != nil {
		return err
	}
	return s.cataloger.SyncFolders(ctx, acct)
}

// SyncMessages runs a message sync for the account, transitioning the
// advisory status field around the run.
func (s *Service) SyncMessages(ctx context.Context, userID, accountID string, opts sync.Options) (*sync.Result, error) {
	acct, err := s.store.GetAccountForUser(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetAccountStatus(ctx, accountID, domain.AccountSyncing, nil); err != nil {
		return nil, err
	}

	result, err := s.engine.Sync(ctx, acct, opts)
	now := time.Now().UTC()
	if err != nil {
		if serr := s.store.SetAccountStatus(ctx, accountID, domain.AccountError, nil); serr != nil {
			s.log.WithField("account", accountID).WithError(serr).Warn("failed to record error status")
		}
		return nil, err
	}

	status := domain.AccountActive
	if !result.Success {
		status = domain.AccountError
	}
	if serr := s.store.SetAccountStatus(ctx, accountID, status, &now); serr != nil {
		s.log.WithField("account", accountID).WithError(serr).Warn("failed to record sync status")
	}
	return result, nil
}
