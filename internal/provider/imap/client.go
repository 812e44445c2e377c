// Package imap adapts plain IMAP/SMTP servers to the remote mailbox
// contract. The grant is a JSON credential blob rather than an OAuth
// token; each call dials a fresh connection and logs out when done.
package imap

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/textproto"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"

	"github.com/mailbridge/mailbridge/internal/provider"
)

// credentials is the decoded grant for an IMAP account.
type credentials struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	SMTPHost string `json:"smtp_host"`
	SMTPPort int    `json:"smtp_port"`
}

func parseGrant(grant string) (*credentials, error) {
	var creds credentials
	if err := json.Unmarshal([]byte(grant), &creds); err != nil {
		return nil, fmt.Errorf("%w: malformed imap grant", provider.ErrAuthRequired)
	}
	if creds.Host == "" || creds.Username == "" {
		return nil, fmt.Errorf("%w: imap grant missing host or username", provider.ErrAuthRequired)
	}
	if creds.Port == 0 {
		creds.Port = 993
	}
	if creds.SMTPHost == "" {
		creds.SMTPHost = creds.Host
	}
	if creds.SMTPPort == 0 {
		creds.SMTPPort = 587
	}
	return &creds, nil
}

// Client implements the remote mailbox contract over IMAP and SMTP.
type Client struct {
	log *logrus.Logger
}

// New creates a Client.
func New(log *logrus.Logger) *Client {
	return &Client{log: log}
}

func (c *Client) dial(creds *credentials) (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", creds.Host, creds.Port)
	cl, err := client.DialTLS(addr, &tls.Config{
		ServerName: creds.Host,
		MinVersion: tls.VersionTLS12,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to imap server: %w", err)
	}
	if err := cl.Login(creds.Username, creds.Password); err != nil {
		cl.Logout()
		return nil, fmt.Errorf("%w: imap login failed: %v", provider.ErrAuthRequired, err)
	}
	return cl, nil
}

// ListFolders returns the account's mailboxes with their special-use
// attributes translated into the shared vocabulary.
func (c *Client) ListFolders(ctx context.Context, grant string) ([]provider.RemoteFolder, error) {
	creds, err := parseGrant(grant)
	if err != nil {
		return nil, err
	}
	cl, err := c.dial(creds)
	if err != nil {
		return nil, err
	}
	defer cl.Logout()

	mailboxes := make(chan *goimap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- cl.List("", "*", mailboxes)
	}()

	var folders []provider.RemoteFolder
	for m := range mailboxes {
		if hasAttribute(m.Attributes, goimap.NoSelectAttr) {
			continue
		}
		folders = append(folders, mapMailbox(m))
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to list mailboxes: %w", err)
	}
	return folders, nil
}

// ListMessages returns a page of messages from the mailbox, newest first.
func (c *Client) ListMessages(ctx context.Context, grant string, opts provider.ListMessageOptions) ([]provider.RemoteMessage, error) {
	creds, err := parseGrant(grant)
	if err != nil {
		return nil, err
	}
	cl, err := c.dial(creds)
	if err != nil {
		return nil, err
	}
	defer cl.Logout()

	folder := opts.FolderID
	if folder == "" {
		folder = "INBOX"
	}
	mbox, err := cl.Select(folder, true)
	if err != nil {
		return nil, fmt.Errorf("failed to select mailbox %s: %w", folder, err)
	}
	if mbox.Messages == 0 {
		return nil, nil
	}

	start, end, ok := pageRange(mbox.Messages, opts.Limit, opts.Offset)
	if !ok {
		return nil, nil
	}

	seqSet := new(goimap.SeqSet)
	seqSet.AddRange(start, end)

	section := &goimap.BodySectionName{Peek: true}
	items := []goimap.FetchItem{
		goimap.FetchEnvelope, goimap.FetchFlags, goimap.FetchInternalDate,
		goimap.FetchUid, section.FetchItem(),
	}

	messages := make(chan *goimap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- cl.Fetch(seqSet, items, messages)
	}()

	var out []provider.RemoteMessage
	for msg := range messages {
		out = append(out, mapFetchedMessage(folder, msg, section))
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	// Fetch yields ascending sequence numbers; callers expect newest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// GetMessage locates a message by its Message-Id header, searching every
// selectable mailbox.
func (c *Client) GetMessage(ctx context.Context, grant, messageID string) (*provider.RemoteMessage, error) {
	creds, err := parseGrant(grant)
	if err != nil {
		return nil, err
	}
	cl, err := c.dial(creds)
	if err != nil {
		return nil, err
	}
	defer cl.Logout()

	folder, uid, err := c.locate(cl, messageID)
	if err != nil {
		return nil, err
	}

	seqSet := new(goimap.SeqSet)
	seqSet.AddNum(uid)

	section := &goimap.BodySectionName{Peek: true}
	items := []goimap.FetchItem{
		goimap.FetchEnvelope, goimap.FetchFlags, goimap.FetchInternalDate,
		goimap.FetchUid, section.FetchItem(),
	}

	messages := make(chan *goimap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- cl.UidFetch(seqSet, items, messages)
	}()

	var found *provider.RemoteMessage
	for msg := range messages {
		mapped := mapFetchedMessage(folder, msg, section)
		found = &mapped
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch message %s: %w", messageID, err)
	}
	if found == nil {
		return nil, provider.ErrMessageNotFound
	}
	return found, nil
}

// UpdateMessage applies flag changes and an optional mailbox move to the
// message identified by its Message-Id header.
func (c *Client) UpdateMessage(ctx context.Context, grant, messageID string, update provider.MessageUpdate) error {
	creds, err := parseGrant(grant)
	if err != nil {
		return err
	}
	cl, err := c.dial(creds)
	if err != nil {
		return err
	}
	defer cl.Logout()

	folder, uid, err := c.locate(cl, messageID)
	if err != nil {
		return err
	}
	if _, err := cl.Select(folder, false); err != nil {
		return fmt.Errorf("failed to select mailbox %s: %w", folder, err)
	}

	seqSet := new(goimap.SeqSet)
	seqSet.AddNum(uid)

	var add, remove []interface{}
	if update.Unread != nil {
		if *update.Unread {
			remove = append(remove, goimap.SeenFlag)
		} else {
			add = append(add, goimap.SeenFlag)
		}
	}
	if update.Starred != nil {
		if *update.Starred {
			add = append(add, goimap.FlaggedFlag)
		} else {
			remove = append(remove, goimap.FlaggedFlag)
		}
	}

	if len(add) > 0 {
		item := goimap.FormatFlagsOp(goimap.AddFlags, true)
		if err := cl.UidStore(seqSet, item, add, nil); err != nil {
			return fmt.Errorf("failed to add flags on %s: %w", messageID, err)
		}
	}
	if len(remove) > 0 {
		item := goimap.FormatFlagsOp(goimap.RemoveFlags, true)
		if err := cl.UidStore(seqSet, item, remove, nil); err != nil {
			return fmt.Errorf("failed to remove flags on %s: %w", messageID, err)
		}
	}

	if len(update.Folders) > 0 {
		dest := update.Folders[0]
		if dest != folder {
			if err := cl.UidMove(seqSet, dest); err != nil {
				return fmt.Errorf("failed to move %s to %s: %w", messageID, dest, err)
			}
		}
	}
	return nil
}

// SendMessage submits the draft over SMTP.
func (c *Client) SendMessage(ctx context.Context, grant string, draft provider.Draft) (*provider.SentMessage, error) {
	creds, err := parseGrant(grant)
	if err != nil {
		return nil, err
	}
	id, err := sendSMTP(creds, draft)
	if err != nil {
		return nil, err
	}
	return &provider.SentMessage{ID: id}, nil
}

// locate finds the mailbox and UID holding the given Message-Id.
func (c *Client) locate(cl *client.Client, messageID string) (string, uint32, error) {
	mailboxes := make(chan *goimap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- cl.List("", "*", mailboxes)
	}()

	var names []string
	for m := range mailboxes {
		if hasAttribute(m.Attributes, goimap.NoSelectAttr) {
			continue
		}
		names = append(names, m.Name)
	}
	if err := <-done; err != nil {
		return "", 0, fmt.Errorf("failed to list mailboxes: %w", err)
	}

	criteria := goimap.NewSearchCriteria()
	criteria.Header = textproto.MIMEHeader{"Message-Id": {messageID}}

	for _, name := range names {
		if _, err := cl.Select(name, true); err != nil {
			c.log.WithField("mailbox", name).WithError(err).Debug("skipping unselectable mailbox")
			continue
		}
		uids, err := cl.UidSearch(criteria)
		if err != nil {
			c.log.WithField("mailbox", name).WithError(err).Debug("search failed")
			continue
		}
		if len(uids) > 0 {
			return name, uids[0], nil
		}
	}
	return "", 0, provider.ErrMessageNotFound
}

// Compile-time interface compliance check.
var _ provider.Client = (*Client)(nil)
