package domain

import "testing"

func TestCategorizeFolder(t *testing.T) {
	tests := []struct {
		name       string
		attributes []string
		want       FolderCategory
	}{
		{"inbox attribute", []string{"inbox"}, FolderSystem},
		{"uppercase attribute", []string{"INBOX"}, FolderSystem},
		{"mixed with custom first", []string{"Projects", "Sent"}, FolderSystem},
		{"custom only", []string{"Projects"}, FolderCustom},
		{"no attributes", nil, FolderCustom},
		{"all mail", []string{"all"}, FolderSystem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategorizeFolder(tt.attributes); got != tt.want {
				t.Errorf("CategorizeFolder(%v) = %q, want %q", tt.attributes, got, tt.want)
			}
		})
	}
}

func TestFolderSortOrder(t *testing.T) {
	tests := []struct {
		name       string
		attributes []string
		want       int
	}{
		{"inbox first", []string{"inbox"}, 1},
		{"sent", []string{"SENT"}, 2},
		{"drafts", []string{"drafts"}, 3},
		{"archive", []string{"archive"}, 4},
		{"spam", []string{"spam"}, 5},
		{"trash", []string{"trash"}, 6},
		{"all", []string{"all"}, 7},
		{"unknown attribute", []string{"Receipts"}, 999},
		{"empty", nil, 999},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FolderSortOrder(tt.attributes); got != tt.want {
				t.Errorf("FolderSortOrder(%v) = %d, want %d", tt.attributes, got, tt.want)
			}
		})
	}
}
