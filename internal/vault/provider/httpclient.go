package provider

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// ClientConfig configures the shared HTTP behavior of provider clients.
type ClientConfig struct {
	// Timeout is the per-call deadline. The vault imposes no other timeout;
	// this is the only place latency is bounded.
	Timeout time.Duration
	// RetryMax bounds transport-level retries. Retries happen only on
	// connection errors and 5xx responses, never on 4xx rejections.
	RetryMax int
}

// newHTTPClient builds a retrying HTTP client with a hard per-call timeout.
func newHTTPClient(cfg ClientConfig) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = cleanhttp.DefaultPooledClient()
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil

	return retryClient.StandardClient()
}
