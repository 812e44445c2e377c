package sqlite

import (
	"context"
	"testing"

	"github.com/mailbridge/mailbridge/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedAccount(t *testing.T, db *DB, id, userID string) {
	t.Helper()
	if err := db.UpsertAccount(context.Background(), &domain.Account{
		ID:           id,
		UserID:       userID,
		EmailAddress: id + "@example.com",
		GrantID:      "grant-" + id,
		Provider:     domain.ProviderGoogle,
		Status:       domain.AccountActive,
	}); err != nil {
		t.Fatalf("seedAccount: %v", err)
	}
}

func TestNew_CreatesTables(t *testing.T) {
	db := newTestDB(t)

	rows, err := db.db.QueryContext(context.Background(),
		"SELECT name FROM sqlite_master WHERE type='table' ORDER BY name")
	if err != nil {
		t.Fatalf("query sqlite_master error: %v", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan error: %v", err)
		}
		tables = append(tables, name)
	}

	expected := []string{"accounts", "emails", "folder_mappings", "sync_runs"}
	for _, exp := range expected {
		found := false
		for _, tbl := range tables {
			if tbl == exp {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected table %q not found in %v", exp, tables)
		}
	}
}
