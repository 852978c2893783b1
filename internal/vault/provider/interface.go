// Package provider implements the narrow HTTP-client contracts the credential
// adapters consume: an OAuth2 token endpoint, a JWT issuance endpoint, and a
// session login/logout pair. Each is treated as an opaque remote procedure;
// only status-code and error-field branching happens here.
package provider

import (
	"context"
	"time"
)

// TokenResponse is the payload an OAuth2 token endpoint returns. RefreshToken
// is empty unless the provider rotated it.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// OAuthTokenClient is the contract for OAuth2 authorization-code providers.
type OAuthTokenClient interface {
	// Exchange trades an authorization code for access and refresh tokens.
	Exchange(ctx context.Context, code, redirectURI string) (*TokenResponse, error)

	// Refresh trades a refresh token for a new access token. The response
	// carries a new refresh token only when the provider rotated it.
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)

	// Probe performs the cheapest authenticated call the provider offers,
	// used by the daily validation sweep to detect silent revocation.
	Probe(ctx context.Context, accessToken string) error
}

// IssuedToken is a short-lived JWT together with the expiry read from its claims.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenIssuer is the contract for providers that re-derive a short-lived JWT
// from a stored ID/secret pair.
type TokenIssuer interface {
	IssueToken(ctx context.Context, id, secret string) (*IssuedToken, error)
}

// SessionCredentials is the login material for session-based providers.
type SessionCredentials struct {
	CompanyID string `json:"cid"`
	Username  string `json:"user"`
	Password  string `json:"pass"`
}

// SessionClient is the contract for providers with explicit login/logout
// session lifecycles.
type SessionClient interface {
	Login(ctx context.Context, creds SessionCredentials) (sessionID string, err error)
	Logout(ctx context.Context, sessionID string) error
}
