// Package fetch performs the HTTP GETs behind key discovery and schema
// lookup. Every failure, including a non-2xx status or an undecodable JSON
// body, is a cred.KindTransport error.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	slogcontext "github.com/veqryn/slog-context"

	"xdao.co/cred/cred"
)

// DefaultTimeout bounds a single request when the Client has no http.Client.
const DefaultTimeout = 10 * time.Second

// MaxBodyBytes caps response bodies. Keys and schemas are a few KiB.
const MaxBodyBytes = 1 << 20

// Fetcher is the transport capability consumed by the resolver and schema sources.
type Fetcher interface {
	Text(ctx context.Context, url string) (string, error)
	JSON(ctx context.Context, url string, v any) error
}

// Client is the net/http Fetcher.
type Client struct {
	HTTP      *http.Client
	UserAgent string
}

var _ Fetcher = (*Client)(nil)

// New returns a Client with the given per-request timeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{HTTP: &http.Client{Timeout: timeout}, UserAgent: "xdao-cred"}
}

func (c *Client) httpClient() *http.Client {
	if c == nil || c.HTTP == nil {
		return &http.Client{Timeout: DefaultTimeout}
	}
	return c.HTTP
}

func (c *Client) get(ctx context.Context, url string, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, cred.WrapError(cred.KindTransport, "CRED-NET-001", "invalid request", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if c != nil && c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	start := time.Now()
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, cred.WrapError(cred.KindTransport, "CRED-NET-002", "request failed", err)
	}
	defer resp.Body.Close()

	slogcontext.FromCtx(ctx).DebugContext(ctx, "fetch",
		slog.String("url", url),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, cred.NewError(cred.KindTransport, "CRED-NET-003", fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, cred.WrapError(cred.KindTransport, "CRED-NET-004", "reading response body", err)
	}
	if len(body) > MaxBodyBytes {
		return nil, cred.NewError(cred.KindTransport, "CRED-NET-005", "response body too large")
	}
	return body, nil
}

// Text returns the response body of a GET as a string.
func (c *Client) Text(ctx context.Context, url string) (string, error) {
	body, err := c.get(ctx, url, "")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// JSON decodes the response body of a GET into v.
func (c *Client) JSON(ctx context.Context, url string, v any) error {
	body, err := c.get(ctx, url, "application/dns-json, application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return cred.WrapError(cred.KindTransport, "CRED-NET-006", "malformed JSON response", err)
	}
	return nil
}
