// ABOUTME: Provider capability contract plus Principal and AuthSession types.
// ABOUTME: Concrete credential variants live in sibling files.

// Package auth implements the credential providers used for outbound
// calls to the Orbital platform. Every variant satisfies the same small
// Provider interface; callers never depend on the concrete type.
package auth

import (
	"errors"
	"time"
)

// Credential errors
var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrExpiredToken      = errors.New("token expired")
	ErrMissingClaim      = errors.New("missing required claim")
)

// PrincipalType classifies the authenticated identity.
type PrincipalType string

const (
	PrincipalUser    PrincipalType = "user"
	PrincipalService PrincipalType = "service"
	PrincipalAPIKey  PrincipalType = "api_key"
)

// Principal is the identity associated with a credential.
type Principal struct {
	Type      PrincipalType
	AccountID string
	OrgID     string
	ProjectID string
	// Identifier is the human-meaningful name of the principal: an email
	// for users, a service name for services, a token id for API keys.
	Identifier string
}

// AuthSession is a validated credential: the principal it names, the
// permissions it grants, and an optional expiry. Sessions are created
// once per validated credential and replaced, never mutated.
type AuthSession struct {
	Principal   Principal
	Permissions []string
	ExpiresAt   time.Time // zero means no expiry
}

// Valid reports whether the session may still be used. A session whose
// expiry is in the past is invalid for any subsequent use.
func (s *AuthSession) Valid() bool {
	if s == nil {
		return false
	}
	return s.ExpiresAt.IsZero() || time.Now().Before(s.ExpiresAt)
}

// Provider turns a credential into outbound headers and a validated
// account identity. The resilient client and tool handlers depend only
// on this interface, never on a concrete variant.
type Provider interface {
	// GetAuthHeaders returns the headers to inject into outbound calls.
	GetAuthHeaders() map[string]string
	// Validate checks the credential. Structural checks are local;
	// signed tokens are verified cryptographically.
	Validate() error
	// GetAccountID returns the account scope of the credential, or the
	// empty string if the credential does not encode one.
	GetAccountID() string
}
