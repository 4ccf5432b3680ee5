// ABOUTME: API-key provider for personal access tokens of the form
// ABOUTME: prefix.accountId.tokenId.signature with positional account extraction.

package auth

import (
	"fmt"
	"strings"
)

// APIKeyPrefix is the expected first segment of a personal access token.
const APIKeyPrefix = "pat"

// apiKeyHeader carries the key on outbound calls.
const apiKeyHeader = "x-api-key"

// APIKeyProvider authenticates with an opaque personal access token.
// Validation is purely structural; the backend is the authority on
// whether the key is live.
type APIKeyProvider struct {
	key string
}

// NewAPIKeyProvider creates a provider for the given key.
func NewAPIKeyProvider(key string) *APIKeyProvider {
	return &APIKeyProvider{key: key}
}

// GetAuthHeaders returns the x-api-key header.
func (p *APIKeyProvider) GetAuthHeaders() map[string]string {
	return map[string]string{apiKeyHeader: p.key}
}

// Validate checks the key shape: at least three dot-separated segments
// with the expected prefix.
func (p *APIKeyProvider) Validate() error {
	parts := strings.Split(p.key, ".")
	if len(parts) < 3 {
		return fmt.Errorf("%w: expected at least 3 dot-separated segments, got %d",
			ErrInvalidCredential, len(parts))
	}
	if parts[0] != APIKeyPrefix {
		return fmt.Errorf("%w: expected prefix %q", ErrInvalidCredential, APIKeyPrefix)
	}
	if parts[1] == "" {
		return fmt.Errorf("%w: empty account segment", ErrInvalidCredential)
	}
	return nil
}

// GetAccountID extracts the account id from the second segment of the
// key, or returns the empty string for a malformed key.
func (p *APIKeyProvider) GetAccountID() string {
	parts := strings.Split(p.key, ".")
	if len(parts) < 3 || parts[0] != APIKeyPrefix {
		return ""
	}
	return parts[1]
}
