package domain

import (
	"strings"
	"time"
)

type FolderCategory string

const (
	FolderSystem FolderCategory = "system"
	FolderCustom FolderCategory = "custom"
)

// FolderMapping pairs a remote mailbox folder with its app-local display
// identity and sync policy. Unique per (account, remote folder).
type FolderMapping struct {
	ID                string
	AccountID         string
	RemoteFolderID    string
	RemoteFolderName  string
	DisplayName       string
	ParentID          string
	Category          FolderCategory
	Attributes        []string
	Enabled           bool
	BidirectionalSync bool
	TotalCount        int
	UnreadCount       int
	SortOrder         int
	LastSyncedAt      *time.Time
}

// systemAttributes is the provider attribute vocabulary marking well-known
// folder roles.
var systemAttributes = map[string]int{
	"inbox":   1,
	"sent":    2,
	"drafts":  3,
	"archive": 4,
	"spam":    5,
	"trash":   6,
	"all":     7,
}

// unorderedSortOrder places custom folders after every system folder.
const unorderedSortOrder = 999

// CategorizeFolder returns FolderSystem if any attribute matches the
// well-known vocabulary (case-insensitive), FolderCustom otherwise.
func CategorizeFolder(attributes []string) FolderCategory {
	for _, attr := range attributes {
		if _, ok := systemAttributes[strings.ToLower(attr)]; ok {
			return FolderSystem
		}
	}
	return FolderCustom
}

// FolderSortOrder returns the fixed priority for a system folder's first
// recognized attribute, or unorderedSortOrder when no attribute matches.
func FolderSortOrder(attributes []string) int {
	if len(attributes) == 0 {
		return unorderedSortOrder
	}
	if order, ok := systemAttributes[strings.ToLower(attributes[0])]; ok {
		return order
	}
	return unorderedSortOrder
}
