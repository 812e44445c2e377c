package provider

import (
	"context"
	"errors"

	"github.com/mailbridge/mailbridge/internal/domain"
)

// ErrAuthRequired indicates the grant is missing, expired, or revoked.
// Callers surface it immediately; it is never retried.
var ErrAuthRequired = errors.New("provider authentication required")

// ErrMessageNotFound indicates the referenced remote message does not exist.
var ErrMessageNotFound = errors.New("remote message not found")

// RemoteFolder is a folder as reported by the remote mailbox.
type RemoteFolder struct {
	ID          string
	Name        string
	DisplayName string
	ParentID    string
	Attributes  []string
	TotalCount  int
	UnreadCount int
}

// RemoteMessage is a message as reported by the remote mailbox.
// UnixSeconds is the provider's seconds-since-epoch timestamp; it is
// converted to time.Time at the sync boundary, never stored raw.
type RemoteMessage struct {
	ID          string
	ThreadID    string
	Subject     string
	From        []domain.Address
	To          []domain.Address
	CC          []domain.Address
	BCC         []domain.Address
	Body        string
	Snippet     string
	UnixSeconds int64
	Unread      bool
	Starred     bool
	Attachments []domain.Attachment
}

// ListMessageOptions pages through one remote folder.
type ListMessageOptions struct {
	FolderID string
	Limit    int
	Offset   int
}

// MessageUpdate carries a partial mutation. Nil fields are left untouched
// on the remote message; Folders replaces the folder assignment when
// non-nil.
type MessageUpdate struct {
	Unread  *bool
	Starred *bool
	Folders []string
}

// Draft is an outgoing message.
type Draft struct {
	To      []domain.Address
	CC      []domain.Address
	BCC     []domain.Address
	Subject string
	Body    string
}

// SentMessage identifies a message after it has been sent.
type SentMessage struct {
	ID       string
	ThreadID string
}

// Client is the remote mailbox contract. A grant identifies one mailbox;
// the same client serves every account of its provider kind.
type Client interface {
	ListFolders(ctx context.Context, grant string) ([]RemoteFolder, error)
	ListMessages(ctx context.Context, grant string, opts ListMessageOptions) ([]RemoteMessage, error)
	GetMessage(ctx context.Context, grant, messageID string) (*RemoteMessage, error)
	UpdateMessage(ctx context.Context, grant, messageID string, update MessageUpdate) error
	SendMessage(ctx context.Context, grant string, draft Draft) (*SentMessage, error)
}
