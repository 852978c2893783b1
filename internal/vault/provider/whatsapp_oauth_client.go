package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	vaultDomain "github.com/connectkit/credvault/internal/vault/domain"
)

// WhatsAppOAuthClient talks to the Meta Graph API. Meta issues no refresh
// tokens; a long-lived user token is stored in the refresh slot and renewed by
// re-exchanging it with the fb_exchange_token grant. The exchange returns a
// fresh long-lived token, so every refresh rotates the stored one.
type WhatsAppOAuthClient struct {
	tokenURL   string
	probeURL   string
	appID      string
	appSecret  string
	httpClient *http.Client
}

// NewWhatsAppOAuthClient creates a WhatsAppOAuthClient.
func NewWhatsAppOAuthClient(
	tokenURL, probeURL, appID, appSecret string,
	cfg ClientConfig,
) *WhatsAppOAuthClient {
	return &WhatsAppOAuthClient{
		tokenURL:   tokenURL,
		probeURL:   probeURL,
		appID:      appID,
		appSecret:  appSecret,
		httpClient: newHTTPClient(cfg),
	}
}

// Exchange trades an authorization code for a long-lived token.
func (w *WhatsAppOAuthClient) Exchange(
	ctx context.Context,
	code, redirectURI string,
) (*TokenResponse, error) {
	query := url.Values{
		"client_id":     {w.appID},
		"client_secret": {w.appSecret},
		"redirect_uri":  {redirectURI},
		"code":          {code},
	}
	return w.getToken(ctx, query)
}

// Refresh re-exchanges the stored long-lived token for a fresh one. The
// response's access token doubles as the rotated refresh token.
func (w *WhatsAppOAuthClient) Refresh(
	ctx context.Context,
	refreshToken string,
) (*TokenResponse, error) {
	query := url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {w.appID},
		"client_secret":     {w.appSecret},
		"fb_exchange_token": {refreshToken},
	}

	token, err := w.getToken(ctx, query)
	if err != nil {
		return nil, err
	}

	token.RefreshToken = token.AccessToken
	return token, nil
}

// Probe fetches the token owner's profile as the cheapest authenticated call.
func (w *WhatsAppOAuthClient) Probe(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.probeURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := w.httpClient.Do(req)
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

// getToken calls the Graph token endpoint and decodes the response. Graph
// token calls are GET with query parameters, unlike the form POST most OAuth2
// providers use.
func (w *WhatsAppOAuthClient) getToken(
	ctx context.Context,
	query url.Values,
) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		w.tokenURL+"?"+query.Encode(),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}

	resp, err := w.httpClient.Do(req)
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
		// Graph wraps errors in an envelope; the message names the failure for
		// operator logs and never carries the token itself.
		var graphErr struct {
			Error struct {
				Message string `json:"message"`
				Type    string `json:"type"`
				Code    int    `json:"code"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&graphErr)
		return nil, fmt.Errorf(
			"%w: %s (type=%s code=%d)",
			vaultDomain.ErrRefreshFailed,
			graphErr.Error.Message,
			graphErr.Error.Type,
			graphErr.Error.Code,
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
