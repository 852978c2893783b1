package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	vaultDomain "github.com/connectkit/credvault/internal/vault/domain"
)

// GoogleOAuthClient talks to Google's OAuth2 token endpoint and the Business
// Profile accounts endpoint used as the validation probe.
type GoogleOAuthClient struct {
	tokenURL     string
	probeURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// NewGoogleOAuthClient creates a GoogleOAuthClient.
func NewGoogleOAuthClient(
	tokenURL, probeURL, clientID, clientSecret string,
	cfg ClientConfig,
) *GoogleOAuthClient {
	return &GoogleOAuthClient{
		tokenURL:     tokenURL,
		probeURL:     probeURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   newHTTPClient(cfg),
	}
}

// Exchange trades an authorization code for access and refresh tokens.
func (g *GoogleOAuthClient) Exchange(
	ctx context.Context,
	code, redirectURI string,
) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"client_id":     {g.clientID},
		"client_secret": {g.clientSecret},
	}
	return g.postToken(ctx, form)
}

// Refresh trades a refresh token for a new access token.
func (g *GoogleOAuthClient) Refresh(
	ctx context.Context,
	refreshToken string,
) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {g.clientID},
		"client_secret": {g.clientSecret},
	}
	return g.postToken(ctx, form)
}

// Probe lists accounts as the cheapest authenticated call. The response body
// is discarded; only the status code matters.
func (g *GoogleOAuthClient) Probe(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.probeURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", vaultDomain.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return vaultDomain.ErrUnauthorizedToken
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: probe returned %d", vaultDomain.ErrTransientNetwork, resp.StatusCode)
	default:
		return fmt.Errorf("%w: probe returned %d", vaultDomain.ErrRefreshFailed, resp.StatusCode)
	}
}

// postToken posts a form to the token endpoint and decodes the response.
func (g *GoogleOAuthClient) postToken(
	ctx context.Context,
	form url.Values,
) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		g.tokenURL,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vaultDomain.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf(
			"%w: token endpoint returned %d",
			vaultDomain.ErrTransientNetwork,
			resp.StatusCode,
		)
	}
	if resp.StatusCode >= 400 {
		// The error body names the grant failure (invalid_grant and friends)
		// for operator logs; the token itself never appears in it.
		var oauthErr struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&oauthErr)
		return nil, fmt.Errorf(
			"%w: %s (%s)",
			vaultDomain.ErrRefreshFailed,
			oauthErr.Error,
			oauthErr.ErrorDescription,
		)
	}

	var token TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token in response", vaultDomain.ErrRefreshFailed)
	}

	return &token, nil
}
