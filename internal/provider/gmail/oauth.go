package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
)

// TokenStore persists OAuth tokens keyed by grant id.
type TokenStore interface {
	SaveSecret(name, secret string) error
	LoadSecret(name string) (string, error)
}

// No credentials are embedded in the binary. Users supply their own Google
// Cloud OAuth client via the config file's [gmail] section or the
// GMAIL_CLIENT_ID / GMAIL_CLIENT_SECRET environment variables.

func newOAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes: []string{
			gmailapi.GmailReadonlyScope,
			gmailapi.GmailSendScope,
			gmailapi.GmailModifyScope,
		},
		Endpoint: google.Endpoint,
	}
}

// HasCredentials reports whether an OAuth client has been configured.
func (c *Client) HasCredentials() bool {
	return c.oauth.ClientID != "" && c.oauth.ClientSecret != ""
}

// EnsureCredentials returns an error with setup instructions when no OAuth
// client has been configured.
func (c *Client) EnsureCredentials() error {
	if c.HasCredentials() {
		return nil
	}
	return fmt.Errorf("gmail OAuth credentials not configured; set them in the config file under [gmail] or via GMAIL_CLIENT_ID / GMAIL_CLIENT_SECRET env vars")
}

// Authenticate runs the browser OAuth flow and stores the resulting token
// under the grant id. The grant id is what the account record carries.
func (c *Client) Authenticate(ctx context.Context, grant string) error {
	if err := c.EnsureCredentials(); err != nil {
		return err
	}
	token, err := c.authenticate(ctx)
	if err != nil {
		return fmt.Errorf("failed to authenticate gmail: %w", err)
	}
	return c.saveToken(grant, token)
}

func (c *Client) saveToken(grant string, token *oauth2.Token) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode gmail token: %w", err)
	}
	if err := c.tokens.SaveSecret(tokenKey(grant), string(raw)); err != nil {
		return fmt.Errorf("failed to save gmail token: %w", err)
	}
	return nil
}

func (c *Client) loadToken(grant string) (*oauth2.Token, error) {
	raw, err := c.tokens.LoadSecret(tokenKey(grant))
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return nil, fmt.Errorf("failed to decode gmail token: %w", err)
	}
	return &token, nil
}

func tokenKey(grant string) string {
	return "gmail-token-" + grant
}

func (c *Client) authenticate(ctx context.Context) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	c.oauth.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d", port)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errCh <- fmt.Errorf("no code in callback: %s", r.URL.Query().Get("error"))
			fmt.Fprint(w, "Authentication failed. You can close this tab.")
			return
		}
		codeCh <- code
		fmt.Fprint(w, "Authentication successful! You can close this tab.")
	})

	server := &http.Server{Handler: mux}
	go server.Serve(listener)
	defer server.Shutdown(ctx)

	url := c.oauth.AuthCodeURL("state", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Printf("\nOpen this URL in your browser to authorize mailbridge:\n\n  %s\n\nWaiting for authorization...\n", url)

	select {
	case code := <-codeCh:
		token, err := c.oauth.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to exchange auth code: %w", err)
		}
		return token, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
