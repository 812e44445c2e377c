package api

import (
	"time"

	"github.com/mailbridge/mailbridge/internal/domain"
	"github.com/mailbridge/mailbridge/internal/provider"
	"github.com/mailbridge/mailbridge/internal/sync"
)

type accountJSON struct {
	ID           string     `json:"id"`
	EmailAddress string     `json:"email_address"`
	Provider     string     `json:"provider"`
	Status       string     `json:"status"`
	IsDefault    bool       `json:"is_default"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toAccountJSON(a *domain.Account) accountJSON {
	return accountJSON{
		ID:           a.ID,
		EmailAddress: a.EmailAddress,
		Provider:     string(a.Provider),
		Status:       string(a.Status),
		IsDefault:    a.IsDefault,
		LastSyncedAt: a.LastSyncedAt,
		CreatedAt:    a.CreatedAt,
	}
}

type mappingJSON struct {
	ID                string     `json:"id"`
	AccountID         string     `json:"account_id"`
	RemoteFolderID    string     `json:"remote_folder_id"`
	RemoteFolderName  string     `json:"remote_folder_name"`
	DisplayName       string     `json:"display_name"`
	ParentID          string     `json:"parent_id,omitempty"`
	Category          string     `json:"category"`
	Attributes        []string   `json:"attributes,omitempty"`
	Enabled           bool       `json:"enabled"`
	BidirectionalSync bool       `json:"bidirectional_sync"`
	TotalCount        int        `json:"total_count"`
	UnreadCount       int        `json:"unread_count"`
	SortOrder         int        `json:"sort_order"`
	LastSyncedAt      *time.Time `json:"last_synced_at,omitempty"`
}

func toMappingJSON(m *domain.FolderMapping) mappingJSON {
	return mappingJSON{
		ID:                m.ID,
		AccountID:         m.AccountID,
		RemoteFolderID:    m.RemoteFolderID,
		RemoteFolderName:  m.RemoteFolderName,
		DisplayName:       m.DisplayName,
		ParentID:          m.ParentID,
		Category:          string(m.Category),
		Attributes:        m.Attributes,
		Enabled:           m.Enabled,
		BidirectionalSync: m.BidirectionalSync,
		TotalCount:        m.TotalCount,
		UnreadCount:       m.UnreadCount,
		SortOrder:         m.SortOrder,
		LastSyncedAt:      m.LastSyncedAt,
	}
}

type addressJSON struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

func toAddressJSON(addrs []domain.Address) []addressJSON {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]addressJSON, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, addressJSON{Name: a.Name, Email: a.Email})
	}
	return out
}

func fromAddressJSON(addrs []addressJSON) []domain.Address {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]domain.Address, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, domain.Address{Name: a.Name, Email: a.Email})
	}
	return out
}

type attachmentJSON struct {
	ID       string `json:"id,omitempty"`
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

type emailJSON struct {
	ID              string           `json:"id"`
	AccountID       string           `json:"account_id"`
	FolderMappingID string           `json:"folder_id,omitempty"`
	MessageID       string           `json:"message_id"`
	ThreadID        string           `json:"thread_id"`
	Subject         string           `json:"subject"`
	From            []addressJSON    `json:"from,omitempty"`
	To              []addressJSON    `json:"to,omitempty"`
	CC              []addressJSON    `json:"cc,omitempty"`
	BCC             []addressJSON    `json:"bcc,omitempty"`
	Body            string           `json:"body,omitempty"`
	Snippet         string           `json:"snippet,omitempty"`
	Date            time.Time        `json:"date"`
	Unread          bool             `json:"unread"`
	Starred         bool             `json:"starred"`
	HasAttachments  bool             `json:"has_attachments"`
	Attachments     []attachmentJSON `json:"attachments,omitempty"`
}

func toEmailJSON(e *domain.Email) emailJSON {
	out := emailJSON{
		ID:              e.ID,
		AccountID:       e.AccountID,
		FolderMappingID: e.FolderMappingID,
		MessageID:       e.MessageID,
		ThreadID:        e.ThreadID,
		Subject:         e.Subject,
		From:            toAddressJSON(e.From),
		To:              toAddressJSON(e.To),
		CC:              toAddressJSON(e.CC),
		BCC:             toAddressJSON(e.BCC),
		Body:            e.Body,
		Snippet:         e.Snippet,
		Date:            e.Date,
		Unread:          e.Unread,
		Starred:         e.Starred,
		HasAttachments:  e.HasAttachments,
	}
	for _, a := range e.Attachments {
		out.Attachments = append(out.Attachments, attachmentJSON{
			ID:       a.ID,
			Filename: a.Filename,
			MIMEType: a.MIMEType,
			Size:     a.Size,
		})
	}
	return out
}

type remoteFolderJSON struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name,omitempty"`
	ParentID    string   `json:"parent_id,omitempty"`
	Attributes  []string `json:"attributes,omitempty"`
	TotalCount  int      `json:"total_count"`
	UnreadCount int      `json:"unread_count"`
}

func toRemoteFolderJSON(f provider.RemoteFolder) remoteFolderJSON {
	return remoteFolderJSON{
		ID:          f.ID,
		Name:        f.Name,
		DisplayName: f.DisplayName,
		ParentID:    f.ParentID,
		Attributes:  f.Attributes,
		TotalCount:  f.TotalCount,
		UnreadCount: f.UnreadCount,
	}
}

type syncResultJSON struct {
	Success       bool     `json:"success"`
	Partial       bool     `json:"partial"`
	FoldersSynced int      `json:"folders_synced"`
	EmailsSynced  int      `json:"emails_synced"`
	Errors        []string `json:"errors,omitempty"`
}

func toSyncResultJSON(r *sync.Result) syncResultJSON {
	return syncResultJSON{
		Success:       r.Success,
		Partial:       r.Partial,
		FoldersSynced: r.FoldersSynced,
		EmailsSynced:  r.EmailsSynced,
		Errors:        r.Errors,
	}
}

type syncRunJSON struct {
	ID            string     `json:"id"`
	AccountID     string     `json:"account_id"`
	Kind          string     `json:"kind"`
	Status        string     `json:"status"`
	FoldersSynced int        `json:"folders_synced"`
	EmailsSynced  int        `json:"emails_synced"`
	Errors        []string   `json:"errors,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

func toSyncRunJSON(run *domain.SyncRun) syncRunJSON {
	return syncRunJSON{
		ID:            run.ID,
		AccountID:     run.AccountID,
		Kind:          string(run.Kind),
		Status:        string(run.Status),
		FoldersSynced: run.FoldersSynced,
		EmailsSynced:  run.EmailsSynced,
		Errors:        run.Errors,
		StartedAt:     run.StartedAt,
		CompletedAt:   run.CompletedAt,
	}
}
