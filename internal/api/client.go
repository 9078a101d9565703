package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/courier-client/internal/observability"
)

// TokenSource yields the current bearer token, "" when logged out. The
// transport reads it fresh on every request so a login or logout mid-flight
// takes effect on the next call without rebuilding clients.
type TokenSource interface {
	Token() string
}

type authTransport struct {
	base   http.RoundTripper
	tokens TokenSource
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if tok := t.tokens.Token(); tok != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return t.base.RoundTrip(req)
}

// Client is the typed surface over the delivery-marketplace REST API.
type Client struct {
	base string
	http *http.Client
	log  *slog.Logger
}

// NewClient returns the authenticated variant: every request carries
// Authorization iff a token is available from the source at send time.
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Transport: &authTransport{base: http.DefaultTransport, tokens: tokens},
			Timeout:   timeout,
		},
		log: log,
	}
}

// NewAnonClient is the unauthenticated variant for endpoints that precede
// login (login, registration).
func NewAnonClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// do issues one request. endpoint is the logical operation name used as the
// metric label; path params and query strings never reach the label, keeping
// its cardinality fixed.
func (c *Client) do(ctx context.Context, method, endpoint, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		observability.APIRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.APIRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return &TransportError{Err: err}
	}
	if resp.StatusCode >= 400 {
		observability.APIRequestsTotal.WithLabelValues(endpoint, "rejected").Inc()
		return &APIError{Status: resp.StatusCode, Message: messageFrom(b), Body: b}
	}
	observability.APIRequestsTotal.WithLabelValues(endpoint, "ok").Inc()

	if out != nil && len(b) > 0 {
		if err := json.Unmarshal(b, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
