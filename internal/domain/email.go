package domain

import "time"

type Address struct {
	Name  string
	Email string
}

func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return a.Name + " <" + a.Email + ">"
}

type Attachment struct {
	ID       string
	Filename string
	MIMEType string
	Size     int64
}

// Email is the local mirror of one provider message. MessageID is the
// provider's message id and is globally unique; re-sync updates in place.
// FolderMappingID is empty when the message is not mapped to a folder.
type Email struct {
	ID              string
	AccountID       string
	FolderMappingID string
	MessageID       string
	ThreadID        string
	Subject         string
	From            []Address
	To              []Address
	CC              []Address
	BCC             []Address
	Body            string
	Snippet         string
	Date            time.Time
	Unread          bool
	Starred         bool
	HasAttachments  bool
	Attachments     []Attachment
}
