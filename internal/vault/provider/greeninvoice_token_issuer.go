package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	vaultDomain "github.com/connectkit/credvault/internal/vault/domain"
)

// fallbackTokenTTL is assumed when an issued JWT carries no exp claim.
const fallbackTokenTTL = 30 * time.Minute

// GreeninvoiceTokenIssuer re-derives short-lived JWTs from an API ID/secret
// pair via the account token endpoint.
type GreeninvoiceTokenIssuer struct {
	tokenURL   string
	httpClient *http.Client
}

// NewGreeninvoiceTokenIssuer creates a GreeninvoiceTokenIssuer.
func NewGreeninvoiceTokenIssuer(tokenURL string, cfg ClientConfig) *GreeninvoiceTokenIssuer {
	return &GreeninvoiceTokenIssuer{
		tokenURL:   tokenURL,
		httpClient: newHTTPClient(cfg),
	}
}

// IssueToken posts the ID/secret pair and returns the issued JWT with its
// expiry read from the exp claim.
func (g *GreeninvoiceTokenIssuer) IssueToken(
	ctx context.Context,
	id, secret string,
) (*IssuedToken, error) {
	payload, err := json.Marshal(map[string]string{"id": id, "secret": secret})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		g.tokenURL,
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vaultDomain.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf(
			"%w: token endpoint returned %d",
			vaultDomain.ErrTransientNetwork,
			resp.StatusCode,
		)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf(
			"%w: token endpoint returned %d",
			vaultDomain.ErrRefreshFailed,
			resp.StatusCode,
		)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if body.Token == "" {
		return nil, fmt.Errorf("%w: empty token in response", vaultDomain.ErrRefreshFailed)
	}

	return &IssuedToken{
		Token:     body.Token,
		ExpiresAt: tokenExpiry(body.Token, time.Now().UTC()),
	}, nil
}

// tokenExpiry reads the exp claim from the JWT. The issuer signed the token;
// we only need the clock, so the signature is not verified here.
func tokenExpiry(token string, now time.Time) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return now.Add(fallbackTokenTTL)
	}

	expiresAt, err := parsed.Claims.GetExpirationTime()
	if err != nil || expiresAt == nil {
		return now.Add(fallbackTokenTTL)
	}

	return expiresAt.Time
}
