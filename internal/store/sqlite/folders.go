package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mailbridge/mailbridge/internal/domain"
	"github.com/mailbridge/mailbridge/internal/store"
)

// UpsertFolderMappings inserts or updates a batch of folder mappings in a
// single transaction, keyed by (account_id, remote_folder_id). The batch
// is atomic: a failure persists nothing.
func (s *DB) UpsertFolderMappings(ctx context.Context, mappings []domain.FolderMapping) error {
	if len(mappings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range mappings {
		m := &mappings[i]
		attrsJSON, err := json.Marshal(m.Attributes)
		if err != nil {
			return fmt.Errorf("failed to marshal folder attributes: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO folder_mappings (id, account_id, remote_folder_id, remote_folder_name,
				display_name, parent_id, category, attributes, enabled, bidirectional_sync,
				total_count, unread_count, sort_order)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(account_id, remote_folder_id) DO UPDATE SET
				remote_folder_name = excluded.remote_folder_name,
				display_name       = excluded.display_name,
				parent_id          = excluded.parent_id,
				category           = excluded.category,
				attributes         = excluded.attributes,
				enabled            = excluded.enabled,
				bidirectional_sync = excluded.bidirectional_sync,
				total_count        = excluded.total_count,
				unread_count       = excluded.unread_count,
				sort_order         = excluded.sort_order,
				updated_at         = CURRENT_TIMESTAMP`,
			m.ID, m.AccountID, m.RemoteFolderID, m.RemoteFolderName,
			m.DisplayName, nullString(m.ParentID), m.Category, string(attrsJSON),
			m.Enabled, m.BidirectionalSync, m.TotalCount, m.UnreadCount, m.SortOrder,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert folder mapping %s: %w", m.RemoteFolderID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit folder mappings: %w", err)
	}
	return nil
}

const folderColumns = `id, account_id, remote_folder_id, remote_folder_name, display_name,
	parent_id, category, attributes, enabled, bidirectional_sync, total_count, unread_count,
	sort_order, last_synced_at`

func scanFolderMapping(row interface{ Scan(...any) error }) (*domain.FolderMapping, error) {
	var m domain.FolderMapping
	var parentID sql.NullString
	var attrsJSON sql.NullString
	var lastSynced sql.NullTime
	err := row.Scan(
		&m.ID, &m.AccountID, &m.RemoteFolderID, &m.RemoteFolderName, &m.DisplayName,
		&parentID, &m.Category, &attrsJSON, &m.Enabled, &m.BidirectionalSync,
		&m.TotalCount, &m.UnreadCount, &m.SortOrder, &lastSynced,
	)
	if err != nil {
		return nil, err
	}
	m.ParentID = parentID.String
	if attrsJSON.Valid && attrsJSON.String != "" {
		if err := json.Unmarshal([]byte(attrsJSON.String), &m.Attributes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal folder attributes: %w", err)
		}
	}
	if lastSynced.Valid {
		t := lastSynced.Time
		m.LastSyncedAt = &t
	}
	return &m, nil
}

func (s *DB) GetFolderMapping(ctx context.Context, id string) (*domain.FolderMapping, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+folderColumns+` FROM folder_mappings WHERE id = ?`, id)
	m, err := scanFolderMapping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get folder mapping %s: %w", id, err)
	}
	return m, nil
}

// ListFolderMappings returns folder mappings for an account ordered by
// sort order, then display name.
func (s *DB) ListFolderMappings(ctx context.Context, opts store.ListFolderOptions) ([]domain.FolderMapping, error) {
	query := `SELECT ` + folderColumns + ` FROM folder_mappings WHERE account_id = ?`
	args := []any{opts.AccountID}

	if opts.EnabledOnly {
		query += ` AND enabled = TRUE`
	}
	if len(opts.RemoteFolderIDs) > 0 {
		query += ` AND remote_folder_id IN (?` + strings.Repeat(", ?", len(opts.RemoteFolderIDs)-1) + `)`
		for _, id := range opts.RemoteFolderIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY sort_order, display_name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list folder mappings: %w", err)
	}
	defer rows.Close()

	var mappings []domain.FolderMapping
	for rows.Next() {
		m, err := scanFolderMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan folder mapping: %w", err)
		}
		mappings = append(mappings, *m)
	}
	return mappings, rows.Err()
}

// UpdateFolderMappingPolicy applies a partial policy change to a mapping.
func (s *DB) UpdateFolderMappingPolicy(ctx context.Context, id string, update store.FolderPolicyUpdate) error {
	var sets []string
	var args []any
	if update.Enabled != nil {
		sets = append(sets, "enabled = ?")
		args = append(args, *update.Enabled)
	}
	if update.BidirectionalSync != nil {
		sets = append(sets, "bidirectional_sync = ?")
		args = append(args, *update.BidirectionalSync)
	}
	if update.DisplayName != nil {
		sets = append(sets, "display_name = ?")
		args = append(args, *update.DisplayName)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE folder_mappings SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update folder mapping %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpdateFolderSyncState advances a folder's last-synced timestamp and
// cached total count after a successful per-folder sync.
func (s *DB) UpdateFolderSyncState(ctx context.Context, id string, syncedAt time.Time, totalCount int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE folder_mappings
		SET last_synced_at = ?, total_count = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		syncedAt.UTC(), totalCount, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update folder %s sync state: %w", id, err)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
