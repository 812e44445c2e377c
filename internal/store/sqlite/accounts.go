package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mailbridge/mailbridge/internal/domain"
	"github.com/mailbridge/mailbridge/internal/store"
)

// UpsertAccount inserts or updates an account, keyed by
// (user_id, email_address) so that reconnecting a mailbox refreshes the
// grant instead of creating a duplicate row.
func (s *DB) UpsertAccount(ctx context.Context, acct *domain.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, email_address, grant_id, provider, status, is_default)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, email_address) DO UPDATE SET
			grant_id   = excluded.grant_id,
			provider   = excluded.provider,
			status     = excluded.status,
			updated_at = CURRENT_TIMESTAMP`,
		acct.ID, acct.UserID, acct.EmailAddress, acct.GrantID,
		acct.Provider, acct.Status, acct.IsDefault,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}
	return nil
}

const accountColumns = `id, user_id, email_address, grant_id, provider, status, is_default, last_synced_at, created_at`

func scanAccount(row interface{ Scan(...any) error }) (*domain.Account, error) {
	var a domain.Account
	var lastSynced sql.NullTime
	err := row.Scan(
		&a.ID, &a.UserID, &a.EmailAddress, &a.GrantID, &a.Provider,
		&a.Status, &a.IsDefault, &lastSynced, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastSynced.Valid {
		t := lastSynced.Time
		a.LastSyncedAt = &t
	}
	return &a, nil
}

func (s *DB) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", id, err)
	}
	return a, nil
}

// GetAccountForUser returns the account only when it is owned by userID.
func (s *DB) GetAccountForUser(ctx context.Context, id, userID string) (*domain.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ? AND user_id = ?`, id, userID)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", id, err)
	}
	return a, nil
}

func (s *DB) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// DeleteAccount removes an account; folder mappings, emails, and sync runs
// cascade via foreign keys.
func (s *DB) DeleteAccount(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SetAccountStatus updates the advisory status field, and the last-synced
// timestamp when syncedAt is non-nil.
func (s *DB) SetAccountStatus(ctx context.Context, id string, status domain.AccountStatus, syncedAt *time.Time) error {
	var err error
	if syncedAt != nil {
		_, err = s.db.ExecContext(ctx,
			`UPDATE accounts SET status = ?, last_synced_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			status, syncedAt.UTC(), id)
	} else {
		_, err = s.db.ExecContext(ctx,
			`UPDATE accounts SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			status, id)
	}
	if err != nil {
		return fmt.Errorf("failed to set account %s status=%s: %w", id, status, err)
	}
	return nil
}

// UnsetDefaultAccounts clears the default flag on every account for the
// user. Callers pair it with SetDefaultAccount to keep at most one default.
func (s *DB) UnsetDefaultAccounts(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET is_default = FALSE WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to unset default accounts: %w", err)
	}
	return nil
}

func (s *DB) SetDefaultAccount(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET is_default = TRUE WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to set default account %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}
