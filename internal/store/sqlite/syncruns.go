package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mailbridge/mailbridge/internal/domain"
)

// CreateSyncRun records the start of a sync invocation.
func (s *DB) CreateSyncRun(ctx context.Context, run *domain.SyncRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, account_id, kind, status, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.AccountID, run.Kind, run.Status, run.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create sync run: %w", err)
	}
	return nil
}

// FinalizeSyncRun writes the aggregate counts, error list, status, and
// completion timestamp. Called exactly once per run.
func (s *DB) FinalizeSyncRun(ctx context.Context, run *domain.SyncRun) error {
	var errsJSON any
	if len(run.Errors) > 0 {
		data, err := json.Marshal(run.Errors)
		if err != nil {
			return fmt.Errorf("failed to marshal sync errors: %w", err)
		}
		errsJSON = string(data)
	}

	var completedAt any
	if run.CompletedAt != nil {
		completedAt = run.CompletedAt.UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE sync_runs
		SET status = ?, folders_synced = ?, emails_synced = ?, errors = ?, completed_at = ?
		WHERE id = ?`,
		run.Status, run.FoldersSynced, run.EmailsSynced, errsJSON, completedAt, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize sync run %s: %w", run.ID, err)
	}
	return nil
}

// ListSyncRuns returns the most recent sync runs for an account.
func (s *DB) ListSyncRuns(ctx context.Context, accountID string, limit int) ([]domain.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, kind, status, folders_synced, emails_synced, errors, started_at, completed_at
		FROM sync_runs WHERE account_id = ?
		ORDER BY started_at DESC LIMIT ?`,
		accountID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.SyncRun
	for rows.Next() {
		var r domain.SyncRun
		var errsJSON sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(
			&r.ID, &r.AccountID, &r.Kind, &r.Status, &r.FoldersSynced,
			&r.EmailsSynced, &errsJSON, &r.StartedAt, &completedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		if errsJSON.Valid && errsJSON.String != "" {
			if err := json.Unmarshal([]byte(errsJSON.String), &r.Errors); err != nil {
				return nil, fmt.Errorf("failed to unmarshal sync errors: %w", err)
			}
		}
		if completedAt.Valid {
			t := completedAt.Time
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
