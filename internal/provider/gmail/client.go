// Package gmail adapts the Gmail API to the remote mailbox contract.
// Gmail has labels rather than folders; labels are presented as folders
// and moves become label rewrites.
package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/mailbridge/mailbridge/internal/provider"
)

const gmailUser = "me"

// Client implements the remote mailbox contract against the Gmail API.
// The grant id keys the OAuth token in the token store; a service is
// built per call so one client serves every Gmail account.
type Client struct {
	oauth  *oauth2.Config
	tokens TokenStore
}

// New creates a Client with the given OAuth client credentials.
func New(clientID, clientSecret string, tokens TokenStore) *Client {
	return &Client{
		oauth:  newOAuthConfig(clientID, clientSecret),
		tokens: tokens,
	}
}

func (c *Client) service(ctx context.Context, grant string) (*gmailapi.Service, error) {
	token, err := c.loadToken(grant)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrAuthRequired, err)
	}
	srv, err := gmailapi.NewService(ctx, option.WithTokenSource(c.oauth.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return srv, nil
}

// mapAPIError translates Gmail API failures into the shared sentinels.
func mapAPIError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 401, 403:
			return fmt.Errorf("%w: %v", provider.ErrAuthRequired, err)
		case 404:
			return fmt.Errorf("%w: %v", provider.ErrMessageNotFound, err)
		}
	}
	return err
}

// ListFolders returns the mailbox's labels as folders.
func (c *Client) ListFolders(ctx context.Context, grant string) ([]provider.RemoteFolder, error) {
	srv, err := c.service(ctx, grant)
	if err != nil {
		return nil, err
	}

	resp, err := srv.Users.Labels.List(gmailUser).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list gmail labels: %w", mapAPIError(err))
	}

	folders := make([]provider.RemoteFolder, 0, len(resp.Labels))
	for _, l := range resp.Labels {
		if !isFolderLabel(l.Id) {
			continue
		}
		folders = append(folders, mapLabel(l))
	}
	return folders, nil
}

// ListMessages returns a page of messages in the given label.
func (c *Client) ListMessages(ctx context.Context, grant string, opts provider.ListMessageOptions) ([]provider.RemoteMessage, error) {
	srv, err := c.service(ctx, grant)
	if err != nil {
		return nil, err
	}

	call := srv.Users.Messages.List(gmailUser)
	if opts.FolderID != "" {
		call = call.LabelIds(opts.FolderID)
	}
	if opts.Limit > 0 {
		call = call.MaxResults(int64(opts.Limit))
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list gmail messages: %w", mapAPIError(err))
	}

	messages := make([]provider.RemoteMessage, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		msg, err := srv.Users.Messages.Get(gmailUser, m.Id).
			Format("full").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("failed to get gmail message %s: %w", m.Id, mapAPIError(err))
		}
		messages = append(messages, mapMessage(msg))
	}
	return messages, nil
}

// GetMessage returns a single message by id.
func (c *Client) GetMessage(ctx context.Context, grant, messageID string) (*provider.RemoteMessage, error) {
	srv, err := c.service(ctx, grant)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get(gmailUser, messageID).
		Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get gmail message %s: %w", messageID, mapAPIError(err))
	}
	mapped := mapMessage(msg)
	return &mapped, nil
}

// UpdateMessage rewrites the message's labels to reflect the requested
// status flags and folder assignment.
func (c *Client) UpdateMessage(ctx context.Context, grant, messageID string, update provider.MessageUpdate) error {
	srv, err := c.service(ctx, grant)
	if err != nil {
		return err
	}

	var add, remove []string
	if update.Unread != nil {
		if *update.Unread {
			add = append(add, "UNREAD")
		} else {
			remove = append(remove, "UNREAD")
		}
	}
	if update.Starred != nil {
		if *update.Starred {
			add = append(add, "STARRED")
		} else {
			remove = append(remove, "STARRED")
		}
	}

	if update.Folders != nil {
		// A move replaces every folder label while leaving status labels
		// untouched. Current labels come from a metadata fetch.
		current, err := srv.Users.Messages.Get(gmailUser, messageID).
			Format("minimal").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to get gmail message %s: %w", messageID, mapAPIError(err))
		}
		want := make(map[string]struct{}, len(update.Folders))
		for _, id := range update.Folders {
			want[id] = struct{}{}
		}
		for _, id := range current.LabelIds {
			if _, keep := want[id]; !keep && isFolderLabel(id) {
				remove = append(remove, id)
			}
		}
		add = append(add, update.Folders...)
	}

	if len(add) == 0 && len(remove) == 0 {
		return nil
	}

	req := &gmailapi.ModifyMessageRequest{
		AddLabelIds:    add,
		RemoveLabelIds: remove,
	}
	if _, err := srv.Users.Messages.Modify(gmailUser, messageID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to modify labels on message %s: %w", messageID, mapAPIError(err))
	}
	return nil
}

// SendMessage composes and sends a message via the Gmail API.
func (c *Client) SendMessage(ctx context.Context, grant string, draft provider.Draft) (*provider.SentMessage, error) {
	srv, err := c.service(ctx, grant)
	if err != nil {
		return nil, err
	}

	raw := buildRawMessage(draft)
	encoded := base64.URLEncoding.EncodeToString([]byte(raw))

	msg := &gmailapi.Message{Raw: encoded}
	sent, err := srv.Users.Messages.Send(gmailUser, msg).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to send gmail message: %w", mapAPIError(err))
	}
	return &provider.SentMessage{ID: sent.Id, ThreadID: sent.ThreadId}, nil
}

// buildRawMessage constructs an RFC 2822 message from a draft.
func buildRawMessage(draft provider.Draft) string {
	var b strings.Builder

	to := make([]string, 0, len(draft.To))
	for _, a := range draft.To {
		to = append(to, a.String())
	}
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")

	if len(draft.CC) > 0 {
		cc := make([]string, 0, len(draft.CC))
		for _, a := range draft.CC {
			cc = append(cc, a.String())
		}
		b.WriteString("Cc: " + strings.Join(cc, ", ") + "\r\n")
	}

	if len(draft.BCC) > 0 {
		bcc := make([]string, 0, len(draft.BCC))
		for _, a := range draft.BCC {
			bcc = append(bcc, a.String())
		}
		b.WriteString("Bcc: " + strings.Join(bcc, ", ") + "\r\n")
	}

	b.WriteString("Subject: " + draft.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(draft.Body)

	return b.String()
}

// Compile-time interface compliance check.
var _ provider.Client = (*Client)(nil)
