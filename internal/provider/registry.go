package provider

import (
	"fmt"

	"github.com/mailbridge/mailbridge/internal/domain"
)

// Registry resolves the API client for a provider kind. The process
// bootstrap registers one client per configured kind and injects the
// registry into every component that talks to a remote mailbox.
type Registry map[domain.ProviderKind]Client

// For returns the client registered for kind.
func (r Registry) For(kind domain.ProviderKind) (Client, error) {
	c, ok := r[kind]
	if !ok {
		return nil, fmt.Errorf("no client registered for provider %q", kind)
	}
	return c, nil
}
