// ABOUTME: Bearer-token provider that passes an opaque token through in
// ABOUTME: the Authorization header without inspecting it.

package auth

import "fmt"

// BearerProvider authenticates with an opaque bearer token. The token is
// never parsed; the backend validates it.
type BearerProvider struct {
	token string
}

// NewBearerProvider creates a provider for the given token.
func NewBearerProvider(token string) *BearerProvider {
	return &BearerProvider{token: token}
}

// GetAuthHeaders returns the Authorization header.
func (p *BearerProvider) GetAuthHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + p.token}
}

// Validate checks only that a token is present.
func (p *BearerProvider) Validate() error {
	if p.token == "" {
		return fmt.Errorf("%w: empty bearer token", ErrInvalidCredential)
	}
	return nil
}

// GetAccountID returns the empty string; bearer tokens are opaque and do
// not encode an account scope.
func (p *BearerProvider) GetAccountID() string {
	return ""
}
