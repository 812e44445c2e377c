// Package nylas talks to the Nylas v3 grants API. One client serves every
// account; the grant id selects the mailbox on each call.
package nylas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mailbridge/mailbridge/internal/domain"
	"github.com/mailbridge/mailbridge/internal/provider"
)

const defaultBaseURL = "https://api.us.nylas.com"

// Config carries the API credentials and endpoint.
type Config struct {
	APIKey string
	// BaseURL overrides the regional API endpoint. Empty means the US region.
	BaseURL string
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client implements the remote mailbox contract against the Nylas API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// New creates a Client from the given config.
func New(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{apiKey: cfg.APIKey, baseURL: base, http: hc}
}

type listResponse[T any] struct {
	RequestID string `json:"request_id"`
	Data      []T    `json:"data"`
}

type itemResponse[T any] struct {
	RequestID string `json:"request_id"`
	Data      T      `json:"data"`
}

type apiFolder struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	ParentID     string   `json:"parent_id"`
	Attributes   []string `json:"attributes"`
	TotalCount   int      `json:"total_count"`
	UnreadCount  int      `json:"unread_count"`
	SystemFolder bool     `json:"system_folder"`
}

type apiParticipant struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type apiAttachment struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type apiMessage struct {
	ID          string           `json:"id"`
	ThreadID    string           `json:"thread_id"`
	Subject     string           `json:"subject"`
	From        []apiParticipant `json:"from"`
	To          []apiParticipant `json:"to"`
	CC          []apiParticipant `json:"cc"`
	BCC         []apiParticipant `json:"bcc"`
	Body        string           `json:"body"`
	Snippet     string           `json:"snippet"`
	Date        int64            `json:"date"`
	// Unread is a pointer so an omitted field can be told apart from
	// false: messages without it are treated as unread.
	Unread  *bool `json:"unread"`
	Starred bool  `json:"starred"`
	Attachments []apiAttachment  `json:"attachments"`
}

// ListFolders returns the mailbox's folders.
func (c *Client) ListFolders(ctx context.Context, grant string) ([]provider.RemoteFolder, error) {
	var resp listResponse[apiFolder]
	path := fmt.Sprintf("/v3/grants/%s/folders", url.PathEscape(grant))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	folders := make([]provider.RemoteFolder, 0, len(resp.Data))
	for _, f := range resp.Data {
		folders = append(folders, provider.RemoteFolder{
			ID:          f.ID,
			Name:        f.Name,
			ParentID:    f.ParentID,
			Attributes:  f.Attributes,
			TotalCount:  f.TotalCount,
			UnreadCount: f.UnreadCount,
		})
	}
	return folders, nil
}

// ListMessages pages through one folder of the mailbox.
func (c *Client) ListMessages(ctx context.Context, grant string, opts provider.ListMessageOptions) ([]provider.RemoteMessage, error) {
	query := url.Values{}
	if opts.FolderID != "" {
		query.Set("in", opts.FolderID)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		query.Set("offset", strconv.Itoa(opts.Offset))
	}

	var resp listResponse[apiMessage]
	path := fmt.Sprintf("/v3/grants/%s/messages", url.PathEscape(grant))
	if err := c.do(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]provider.RemoteMessage, 0, len(resp.Data))
	for _, m := range resp.Data {
		messages = append(messages, mapMessage(m))
	}
	return messages, nil
}

// GetMessage fetches a single message by its provider id.
func (c *Client) GetMessage(ctx context.Context, grant, messageID string) (*provider.RemoteMessage, error) {
	var resp itemResponse[apiMessage]
	path := fmt.Sprintf("/v3/grants/%s/messages/%s", url.PathEscape(grant), url.PathEscape(messageID))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	msg := mapMessage(resp.Data)
	return &msg, nil
}

// UpdateMessage applies a partial mutation to the remote message. Nil
// fields are omitted from the request body.
func (c *Client) UpdateMessage(ctx context.Context, grant, messageID string, update provider.MessageUpdate) error {
	body := map[string]any{}
	if update.Unread != nil {
		body["unread"] = *update.Unread
	}
	if update.Starred != nil {
		body["starred"] = *update.Starred
	}
	if update.Folders != nil {
		body["folders"] = update.Folders
	}
	if len(body) == 0 {
		return nil
	}

	var resp itemResponse[apiMessage]
	path := fmt.Sprintf("/v3/grants/%s/messages/%s", url.PathEscape(grant), url.PathEscape(messageID))
	if err := c.do(ctx, http.MethodPut, path, nil, body, &resp); err != nil {
		return fmt.Errorf("failed to update message %s: %w", messageID, err)
	}
	return nil
}

// SendMessage creates a draft and sends it in two steps, matching the
// provider's draft lifecycle.
func (c *Client) SendMessage(ctx context.Context, grant string, draft provider.Draft) (*provider.SentMessage, error) {
	body := map[string]any{
		"to":      toParticipants(draft.To),
		"subject": draft.Subject,
		"body":    draft.Body,
	}
	if len(draft.CC) > 0 {
		body["cc"] = toParticipants(draft.CC)
	}
	if len(draft.BCC) > 0 {
		body["bcc"] = toParticipants(draft.BCC)
	}

	var created itemResponse[apiMessage]
	draftPath := fmt.Sprintf("/v3/grants/%s/drafts", url.PathEscape(grant))
	if err := c.do(ctx, http.MethodPost, draftPath, nil, body, &created); err != nil {
		return nil, fmt.Errorf("failed to create draft: %w", err)
	}

	var sent itemResponse[apiMessage]
	sendPath := fmt.Sprintf("/v3/grants/%s/drafts/%s", url.PathEscape(grant), url.PathEscape(created.Data.ID))
	if err := c.do(ctx, http.MethodPost, sendPath, nil, struct{}{}, &sent); err != nil {
		return nil, fmt.Errorf("failed to send draft %s: %w", created.Data.ID, err)
	}
	return &provider.SentMessage{ID: sent.Data.ID, ThreadID: sent.Data.ThreadID}, nil
}

// Grant identifies a connected mailbox after the code exchange.
type Grant struct {
	GrantID string `json:"grant_id"`
	Email   string `json:"email"`
}

// ExchangeCode trades an OAuth authorization code for a grant.
func (c *Client) ExchangeCode(ctx context.Context, code, clientID, redirectURI string) (*Grant, error) {
	body := map[string]any{
		"code":          code,
		"client_id":     clientID,
		"client_secret": c.apiKey,
		"redirect_uri":  redirectURI,
		"grant_type":    "authorization_code",
	}
	var grant Grant
	if err := c.do(ctx, http.MethodPost, "/v3/connect/token", nil, body, &grant); err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	return &grant, nil
}

// AuthURL builds the hosted authentication URL the user is redirected to.
func (c *Client) AuthURL(clientID, redirectURI string) string {
	query := url.Values{}
	query.Set("client_id", clientID)
	query.Set("redirect_uri", redirectURI)
	query.Set("response_type", "code")
	return c.baseURL + "/v3/connect/auth?" + query.Encode()
}

type apiError struct {
	Status int
	Body   struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
}

func (e *apiError) Error() string {
	if e.Body.Error.Message != "" {
		return fmt.Sprintf("nylas: %s (%s)", e.Body.Error.Message, e.Body.Error.Type)
	}
	return fmt.Sprintf("nylas: unexpected status %d", e.Status)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return provider.ErrAuthRequired
	case resp.StatusCode == http.StatusNotFound:
		return provider.ErrMessageNotFound
	case resp.StatusCode >= 400:
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr.Body)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func mapMessage(m apiMessage) provider.RemoteMessage {
	unread := true
	if m.Unread != nil {
		unread = *m.Unread
	}
	return provider.RemoteMessage{
		ID:          m.ID,
		ThreadID:    m.ThreadID,
		Subject:     m.Subject,
		From:        toAddresses(m.From),
		To:          toAddresses(m.To),
		CC:          toAddresses(m.CC),
		BCC:         toAddresses(m.BCC),
		Body:        m.Body,
		Snippet:     m.Snippet,
		UnixSeconds: m.Date,
		Unread:      unread,
		Starred:     m.Starred,
		Attachments: toAttachments(m.Attachments),
	}
}

func toAddresses(parts []apiParticipant) []domain.Address {
	if len(parts) == 0 {
		return nil
	}
	addrs := make([]domain.Address, 0, len(parts))
	for _, p := range parts {
		addrs = append(addrs, domain.Address{Name: p.Name, Email: p.Email})
	}
	return addrs
}

func toParticipants(addrs []domain.Address) []apiParticipant {
	parts := make([]apiParticipant, 0, len(addrs))
	for _, a := range addrs {
		parts = append(parts, apiParticipant{Name: a.Name, Email: a.Email})
	}
	return parts
}

func toAttachments(atts []apiAttachment) []domain.Attachment {
	if len(atts) == 0 {
		return nil
	}
	out := make([]domain.Attachment, 0, len(atts))
	for _, a := range atts {
		out = append(out, domain.Attachment{
			ID:       a.ID,
			Filename: a.Filename,
			MIMEType: a.ContentType,
			Size:     a.Size,
		})
	}
	return out
}
