package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mailbridge/mailbridge/internal/domain"
	"github.com/mailbridge/mailbridge/internal/sync"
)

// printJSON writes v to stdout as indented JSON, the --json rendering of
// every command.
func printJSON(v any) error {
	return fprintJSON(os.Stdout, v)
}

func fprintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Account JSON types (account connect, account list)
// ---------------------------------------------------------------------------

type jsonAccount struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
	Provider     string `json:"provider"`
	Status       string `json:"status"`
	IsDefault    bool   `json:"is_default"`
	LastSyncedAt string `json:"last_synced_at,omitempty"`
	CreatedAt    string `json:"created_at"`
}

func toJSONAccount(a *domain.Account) jsonAccount {
	out := jsonAccount{
		ID:           a.ID,
		EmailAddress: a.EmailAddress,
		Provider:     string(a.Provider),
		Status:       string(a.Status),
		IsDefault:    a.IsDefault,
		CreatedAt:    a.CreatedAt.Format(time.RFC3339),
	}
	if a.LastSyncedAt != nil {
		out.LastSyncedAt = a.LastSyncedAt.Format(time.RFC3339)
	}
	return out
}

func toJSONAccounts(accounts []domain.Account) []jsonAccount {
	out := make([]jsonAccount, 0, len(accounts))
	for i := range accounts {
		out = append(out, toJSONAccount(&accounts[i]))
	}
	return out
}

// ---------------------------------------------------------------------------
// Folder mapping JSON type (folders)
// ---------------------------------------------------------------------------

type jsonMapping struct {
	ID                string `json:"id"`
	RemoteFolderID    string `json:"remote_folder_id"`
	DisplayName       string `json:"display_name"`
	Category          string `json:"category"`
	Enabled           bool   `json:"enabled"`
	BidirectionalSync bool   `json:"bidirectional_sync"`
	TotalCount        int    `json:"total_count"`
	UnreadCount       int    `json:"unread_count"`
}

func toJSONMappings(mappings []domain.FolderMapping) []jsonMapping {
	out := make([]jsonMapping, 0, len(mappings))
	for _, m := range mappings {
		out = append(out, jsonMapping{
			ID:                m.ID,
			RemoteFolderID:    m.RemoteFolderID,
			DisplayName:       m.DisplayName,
			Category:          string(m.Category),
			Enabled:           m.Enabled,
			BidirectionalSync: m.BidirectionalSync,
			TotalCount:        m.TotalCount,
			UnreadCount:       m.UnreadCount,
		})
	}
	return out
}

// ---------------------------------------------------------------------------
// Sync JSON types (sync, sync runs)
// ---------------------------------------------------------------------------

type jsonSyncResult struct {
	Success       bool     `json:"success"`
	Partial       bool     `json:"partial"`
	FoldersSynced int      `json:"folders_synced"`
	EmailsSynced  int      `json:"emails_synced"`
	Errors        []string `json:"errors,omitempty"`
}

func toJSONSyncResult(r *sync.Result) jsonSyncResult {
	return jsonSyncResult{
		Success:       r.Success,
		Partial:       r.Partial,
		FoldersSynced: r.FoldersSynced,
		EmailsSynced:  r.EmailsSynced,
		Errors:        r.Errors,
	}
}

type jsonSyncRun struct {
	ID            string   `json:"id"`
	Kind          string   `json:"kind"`
	Status        string   `json:"status"`
	FoldersSynced int      `json:"folders_synced"`
	EmailsSynced  int      `json:"emails_synced"`
	Errors        []string `json:"errors,omitempty"`
	StartedAt     string   `json:"started_at"`
	CompletedAt   string   `json:"completed_at,omitempty"`
}

func toJSONSyncRuns(runs []domain.SyncRun) []jsonSyncRun {
	out := make([]jsonSyncRun, 0, len(runs))
	for _, r := range runs {
		run := jsonSyncRun{
			ID:            r.ID,
			Kind:          string(r.Kind),
			Status:        string(r.Status),
			FoldersSynced: r.FoldersSynced,
			EmailsSynced:  r.EmailsSynced,
			Errors:        r.Errors,
			StartedAt:     r.StartedAt.Format(time.RFC3339),
		}
		if r.CompletedAt != nil {
			run.CompletedAt = r.CompletedAt.Format(time.RFC3339)
		}
		out = append(out, run)
	}
	return out
}

// ---------------------------------------------------------------------------
// Action JSON type (connect, remove, set-default, folders-sync)
// ---------------------------------------------------------------------------

type jsonAction struct {
	OK        bool   `json:"ok"`
	Action    string `json:"action"`
	AccountID string `json:"account_id,omitempty"`
}
