// ABOUTME: Signed-token issuance and verification using HS256 JWTs.
// ABOUTME: Verification builds an AuthSession; expired or tampered tokens are rejected.

package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Custom claim names carried alongside the registered claim set.
const (
	claimPrincipalType = "principal_type"
	claimAccountID     = "account_id"
	claimOrgID         = "org_id"
	claimProjectID     = "project_id"
	claimPermissions   = "permissions"
)

// TokenService issues and verifies HS256-signed tokens with a shared
// secret.
type TokenService struct {
	secret []byte
	issuer string
}

// NewTokenService creates a token service. issuer is placed in the iss
// claim of issued tokens.
func NewTokenService(secret []byte, issuer string) *TokenService {
	return &TokenService{secret: secret, issuer: issuer}
}

// Issue signs a token for the given principal and permissions, expiring
// after expiresIn. A non-positive expiresIn produces an already-expired
// token, which Verify will reject.
func (s *TokenService) Issue(p Principal, permissions []string, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":              s.issuer,
		"sub":              p.Identifier,
		"iat":              now.Unix(),
		"exp":              now.Add(expiresIn).Unix(),
		claimPrincipalType: string(p.Type),
		claimAccountID:     p.AccountID,
		claimPermissions:   permissions,
	}
	if p.OrgID != "" {
		claims[claimOrgID] = p.OrgID
	}
	if p.ProjectID != "" {
		claims[claimProjectID] = p.ProjectID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify cryptographically validates signature and expiry, then builds
// an AuthSession from the claim set. An expired or tampered token is
// never accepted.
func (s *TokenService) Verify(tokenString string) (*AuthSession, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if !token.Valid {
		return nil, ErrInvalidCredential
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidCredential
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	accountID, ok := claims[claimAccountID].(string)
	if !ok || accountID == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingClaim, claimAccountID)
	}
	ptype, _ := claims[claimPrincipalType].(string)
	if ptype == "" {
		ptype = string(PrincipalUser)
	}

	session := &AuthSession{
		Principal: Principal{
			Type:       PrincipalType(ptype),
			AccountID:  accountID,
			Identifier: sub,
		},
	}
	if org, ok := claims[claimOrgID].(string); ok {
		session.Principal.OrgID = org
	}
	if proj, ok := claims[claimProjectID].(string); ok {
		session.Principal.ProjectID = proj
	}
	if rawPerms, ok := claims[claimPermissions].([]any); ok {
		perms := make([]string, 0, len(rawPerms))
		for _, p := range rawPerms {
			if s, ok := p.(string); ok {
				perms = append(perms, s)
			}
		}
		session.Permissions = perms
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		session.ExpiresAt = exp.Time
	}

	return session, nil
}

// SignedTokenProvider authenticates with a signed token verified by a
// TokenService. The session is built on first successful Validate and
// replaced wholesale on re-validation.
type SignedTokenProvider struct {
	token string
	svc   *TokenService

	mu      sync.Mutex
	session *AuthSession
}

// NewSignedTokenProvider creates a provider for the given token string.
func NewSignedTokenProvider(token string, svc *TokenService) *SignedTokenProvider {
	return &SignedTokenProvider{token: token, svc: svc}
}

// GetAuthHeaders returns the Authorization header carrying the token.
func (p *SignedTokenProvider) GetAuthHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + p.token}
}

// Validate verifies the token and caches the resulting session.
func (p *SignedTokenProvider) Validate() error {
	session, err := p.svc.Verify(p.token)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.session = session
	p.mu.Unlock()
	return nil
}

// GetAccountID returns the account id from the verified session,
// validating lazily if Validate has not run yet.
func (p *SignedTokenProvider) GetAccountID() string {
	if sess := p.Session(); sess != nil {
		return sess.Principal.AccountID
	}
	if err := p.Validate(); err != nil {
		return ""
	}
	return p.Session().Principal.AccountID
}

// Session returns the validated session, or nil if the token has not
// been (successfully) validated yet.
func (p *SignedTokenProvider) Session() *AuthSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}
