// Package gtm is a thin authenticated client for the Tag Manager v2 REST
// API. It owns credentials, rate limiting and the retry policy for
// transient failures; it never interprets the semantic meaning of the
// payloads it sends; schema correctness is established before any call.
package gtm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"

	"github.com/deploymenttheory/go-gtm-composer/internal/config"
	"github.com/deploymenttheory/go-gtm-composer/internal/gtmerr"
	"github.com/deploymenttheory/go-gtm-composer/internal/logger"
)

// Default client settings
const (
	DefaultBaseURL           = "https://tagmanager.googleapis.com/tagmanager/v2"
	DefaultMaxRetries        = 3
	DefaultRetryDelay        = 5 * time.Second
	DefaultRequestsPerMinute = 15 // Tag Manager per-container quota
	DefaultRequestTimeout    = 30 * time.Second
)

// ClientConfig holds configuration for the Tag Manager client.
type ClientConfig struct {
	ServiceAccountFile string        // Path to the service account JSON key
	AccountID          string        // GTM account id
	ContainerID        string        // GTM container id (numeric)
	BaseURL            string        // API base URL
	MaxRetries         int           // Retry attempts for transient failures
	RetryDelay         time.Duration // Initial backoff delay, doubled per attempt
	RequestsPerMinute  int           // Client-side rate limit
	RequestTimeout     time.Duration // Per-request timeout
}

// Client wraps an authenticated HTTP client for one account/container.
type Client struct {
	httpClient *http.Client
	cfg        ClientConfig
	limiter    *rate.Limiter

	// Set by CreateWorkspace/GetOrCreateWorkspace; resource creation
	// hangs off this workspace.
	workspacePath string
	workspaceID   string
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient substitutes the transport, bypassing service-account
// authentication. Callers own the credentials on the provided client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithRetrySettings configures retry behavior.
func WithRetrySettings(maxRetries int, delay time.Duration) Option {
	return func(c *Client) {
		if maxRetries >= 0 {
			c.cfg.MaxRetries = maxRetries
		}
		if delay > 0 {
			c.cfg.RetryDelay = delay
		}
	}
}

// WithRateLimit sets the client-side request rate limit.
func WithRateLimit(requestsPerMinute int) Option {
	return func(c *Client) {
		if requestsPerMinute > 0 {
			c.cfg.RequestsPerMinute = requestsPerMinute
		}
	}
}

// NewClient builds an authenticated client. The service account key is
// read and exchanged for a JWT token source scoped to container edit
// access; credential problems surface as gtmerr.ErrAuth before any API
// call is made.
func NewClient(ctx context.Context, cfg ClientConfig, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	c := &Client{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(c.cfg.RequestsPerMinute)), 1)

	if c.httpClient == nil {
		httpClient, err := authenticate(ctx, cfg.ServiceAccountFile)
		if err != nil {
			return nil, err
		}
		c.httpClient = httpClient
		logger.LogInfo("Authenticated with the Tag Manager API", map[string]interface{}{
			"account":   cfg.AccountID,
			"container": cfg.ContainerID,
		})
	}
	c.httpClient.Timeout = c.cfg.RequestTimeout

	return c, nil
}

// authenticate exchanges the service account key for an OAuth2 transport
// restricted to the container edit scope.
func authenticate(ctx context.Context, serviceAccountFile string) (*http.Client, error) {
	data, err := os.ReadFile(serviceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("%w: reading service account file %s: %v",
			gtmerr.ErrAuth, serviceAccountFile, err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(data, config.TagManagerScope)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid service account key %s: %v",
			gtmerr.ErrAuth, serviceAccountFile, err)
	}

	return jwtConfig.Client(ctx), nil
}

// parent returns the accounts/{id}/containers/{id} path prefix.
func (c *Client) parent() string {
	return fmt.Sprintf("accounts/%s/containers/%s", c.cfg.AccountID, c.cfg.ContainerID)
}

// AccountID returns the configured account id.
func (c *Client) AccountID() string { return c.cfg.AccountID }

// ContainerID returns the configured container id.
func (c *Client) ContainerID() string { return c.cfg.ContainerID }

// apiError is the envelope the API wraps failures in.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// do issues one API call with rate limiting and bounded exponential
// backoff. Transient failure classes (timeouts, 429, 5xx) are retried;
// everything else is surfaced immediately.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encoding request body: %v", gtmerr.ErrAPIRequest, err)
		}
	}

	delay := c.cfg.RetryDelay
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			logger.LogWarn("Retrying Tag Manager API request", map[string]interface{}{
				"method":  method,
				"path":    path,
				"attempt": attempt + 1,
				"delay":   delay.String(),
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", gtmerr.ErrNetworkTimeout, ctx.Err())
			}
			delay *= 2
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", gtmerr.ErrNetworkTimeout, err)
		}

		lastErr = c.doOnce(ctx, method, path, payload, out)
		if lastErr == nil {
			return nil
		}
		if !gtmerr.Transient(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte, out interface{}) error {
	u := c.cfg.BaseURL + "/" + path
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("%w: building request: %v", gtmerr.ErrAPIRequest, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport-level failures (DNS, refused connections, timeouts)
		// are all treated as transient and retried.
		return fmt.Errorf("%w: %v", gtmerr.ErrNetworkTimeout, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", gtmerr.ErrNetworkTimeout, err)
	}

	if resp.StatusCode >= 400 {
		return classifyStatus(resp.StatusCode, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%w: decoding response: %v", gtmerr.ErrAPIRequest, err)
		}
	}
	return nil
}

// classifyStatus maps an HTTP failure status to the error taxonomy:
// transient classes get retried by do, the rest are final.
func classifyStatus(status int, body []byte) error {
	message := fmt.Sprintf("HTTP %d", status)
	var envelope apiError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		message = fmt.Sprintf("HTTP %d: %s", status, envelope.Error.Message)
	}

	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", gtmerr.ErrRateLimited, message)
	case status >= 500:
		return fmt.Errorf("%w: %s", gtmerr.ErrServerError, message)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", gtmerr.ErrAuth, message)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", gtmerr.ErrNotFound, message)
	case status == http.StatusConflict:
		return fmt.Errorf("%w: %s", gtmerr.ErrConflict, message)
	default:
		return fmt.Errorf("%w: %s", gtmerr.ErrAPIRequest, message)
	}
}
