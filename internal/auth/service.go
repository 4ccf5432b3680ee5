// ABOUTME: Service-token provider for east-west calls between trusted
// ABOUTME: services, with optional bcrypt pinning of the shared secret.

package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Headers carrying the service identity on outbound calls.
const (
	serviceNameHeader   = "X-Orbital-Service"
	serviceSecretHeader = "X-Orbital-Service-Secret"
)

// ServiceProvider authenticates internal service-to-service calls with a
// service name and shared secret. Only for trusted contexts; the secret
// travels in a header and the transport is expected to be private.
type ServiceProvider struct {
	name       string
	secret     string
	secretHash string // optional bcrypt hash the secret must match
	accountID  string
}

// NewServiceProvider creates a provider for the given service identity.
// accountID scopes the calls and may be empty for account-less services.
func NewServiceProvider(name, secret, accountID string) *ServiceProvider {
	return &ServiceProvider{name: name, secret: secret, accountID: accountID}
}

// WithSecretHash pins the expected secret to a bcrypt hash. Validate
// then rejects a configured secret that does not match the hash, which
// catches stale secrets before any call leaves the process.
func (p *ServiceProvider) WithSecretHash(hash string) *ServiceProvider {
	p.secretHash = hash
	return p
}

// GetAuthHeaders returns the service identity headers.
func (p *ServiceProvider) GetAuthHeaders() map[string]string {
	return map[string]string{
		serviceNameHeader:   p.name,
		serviceSecretHeader: p.secret,
	}
}

// Validate checks that name and secret are present and, when a hash is
// pinned, that the secret matches it.
func (p *ServiceProvider) Validate() error {
	if p.name == "" {
		return fmt.Errorf("%w: empty service name", ErrInvalidCredential)
	}
	if p.secret == "" {
		return fmt.Errorf("%w: empty service secret", ErrInvalidCredential)
	}
	if p.secretHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(p.secretHash), []byte(p.secret)); err != nil {
			return fmt.Errorf("%w: service secret does not match pinned hash", ErrInvalidCredential)
		}
	}
	return nil
}

// GetAccountID returns the configured account scope.
func (p *ServiceProvider) GetAccountID() string {
	return p.accountID
}
