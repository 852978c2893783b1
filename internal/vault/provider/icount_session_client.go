package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	vaultDomain "github.com/connectkit/credvault/internal/vault/domain"
)

// ICountSessionClient drives the iCount session login/logout endpoints.
type ICountSessionClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewICountSessionClient creates an ICountSessionClient.
func NewICountSessionClient(baseURL string, cfg ClientConfig) *ICountSessionClient {
	return &ICountSessionClient{
		baseURL:    baseURL,
		httpClient: newHTTPClient(cfg),
	}
}

// Login authenticates and returns a session id bound to this login.
func (i *ICountSessionClient) Login(
	ctx context.Context,
	creds SessionCredentials,
) (string, error) {
	payload, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("failed to marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		i.baseURL+"/auth/login",
		bytes.NewReader(payload),
	)
	if err != nil {
		return "", fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", vaultDomain.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return "", fmt.Errorf(
			"%w: login returned %d",
			vaultDomain.ErrTransientNetwork,
			resp.StatusCode,
		)
	case resp.StatusCode >= 400:
		return "", fmt.Errorf("%w: login returned %d", vaultDomain.ErrRefreshFailed, resp.StatusCode)
	}

	// iCount reports failures inside a 200 body as status=false.
	var body struct {
		Status    bool   `json:"status"`
		SessionID string `json:"sid"`
		Reason    string `json:"reason"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	if !body.Status || body.SessionID == "" {
		return "", fmt.Errorf("%w: %s", vaultDomain.ErrRefreshFailed, body.Reason)
	}

	return body.SessionID, nil
}

// Logout releases a session id. Callers treat failures as non-critical.
func (i *ICountSessionClient) Logout(ctx context.Context, sessionID string) error {
	payload, err := json.Marshal(map[string]string{"sid": sessionID})
	if err != nil {
		return fmt.Errorf("failed to marshal logout request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		i.baseURL+"/auth/logout",
		bytes.NewReader(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to build logout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", vaultDomain.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("logout returned %d", resp.StatusCode)
	}

	return nil
}
