package domain

import "time"

type ProviderKind string

const (
	ProviderGoogle    ProviderKind = "google"
	ProviderMicrosoft ProviderKind = "microsoft"
	ProviderIMAP      ProviderKind = "imap"
)

type AccountStatus string

const (
	AccountActive       AccountStatus = "active"
	AccountSyncing      AccountStatus = "syncing"
	AccountError        AccountStatus = "error"
	AccountDisconnected AccountStatus = "disconnected"
)

// Account is one connected mailbox. GrantID is the opaque provider-issued
// credential authorizing API access to that mailbox.
type Account struct {
	ID           string
	UserID       string
	EmailAddress string
	GrantID      string
	Provider     ProviderKind
	Status       AccountStatus
	IsDefault    bool
	LastSyncedAt *time.Time
	CreatedAt    time.Time
}
