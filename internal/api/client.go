// Package api implements the HTTP client for the agentdeck backend: the
// streaming agent endpoint and the session/file proxy endpoints.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apierrors "github.com/diogo/agentdeck/internal/errors"
)

// DefaultTimeout bounds the non-streaming proxy calls.
const DefaultTimeout = 30 * time.Second

// maxErrorBody limits how much of an error response is read for diagnostics.
const maxErrorBody = 4096

// Client talks to the agentdeck backend. Proxy calls share a bounded-timeout
// http.Client; the streaming submit uses a separate client without a global
// timeout, bounded by the request context instead.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
	logger       zerolog.Logger
}

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithTimeout sets the timeout for non-streaming calls.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying clients, mainly for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
		c.streamClient = hc
	}
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		// The agent stream stays open for the whole turn; only the
		// request context may bound it.
		streamClient: &http.Client{},
		logger:       zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// getJSON performs a GET against a backend endpoint and decodes the JSON
// reply into out.
func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apierrors.NewTransportError("GET "+endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.errorFromResponse(resp, endpoint)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

// errorFromResponse builds an APIError carrying the upstream status code and
// a bounded slice of the response body.
func (c *Client) errorFromResponse(resp *http.Response, endpoint string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = resp.Status
	}
	c.logger.Warn().Int("status", resp.StatusCode).Str("endpoint", endpoint).Msg("backend returned an error")
	return apierrors.NewAPIError(resp.StatusCode, endpoint, msg)
}
