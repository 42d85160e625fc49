// Package vindata is a client for the paid third-party VIN decode provider,
// the tertiary fallback of the decode pipeline. Every call costs money, so
// the client runs behind a circuit breaker and never retries.
package vindata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vinlab/vinlab/pkg/fn"
	"github.com/vinlab/vinlab/pkg/resilience"
)

// Sentinel errors mapped from provider status codes.
var (
	ErrNotFound      = errors.New("vindata: vehicle not found")
	ErrInvalidFormat = errors.New("vindata: invalid VIN format")
	ErrNotConfigured = errors.New("vindata: api key not configured")
)

// Config configures the provider client.
type Config struct {
	// BaseURL is the provider decode endpoint. Required.
	BaseURL string
	// APIKey is the bearer token. An empty key disables the client.
	APIKey string
	// HTTPClient overrides the underlying client.
	HTTPClient *http.Client
}

// Client posts decode requests to the paid provider.
type Client struct {
	cfg     Config
	client  *http.Client
	breaker *resilience.Breaker
}

// New creates a provider client.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{
		cfg:    cfg,
		client: hc,
		breaker: resilience.NewBreaker(resilience.BreakerOpts{
			FailThreshold: 3,
			Timeout:       time.Minute,
		}),
	}
}

// Configured reports whether the client has credentials to call the provider.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != "" && c.cfg.BaseURL != ""
}

// Decode fetches raw decode fields for a VIN. The returned map uses the
// provider's own field names; the decode mapper normalizes them.
func (c *Client) Decode(ctx context.Context, vin string) (map[string]string, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	result := resilience.CallResult(c.breaker, ctx, func(ctx context.Context) fn.Result[map[string]string] {
		return c.doDecode(ctx, vin)
	})
	return result.Unwrap()
}

type decodeRequest struct {
	VIN string `json:"vin"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) doDecode(ctx context.Context, vin string) fn.Result[map[string]string] {
	payload, err := json.Marshal(decodeRequest{VIN: vin})
	if err != nil {
		return fn.Err[map[string]string](err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return fn.Err[map[string]string](err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fn.Err[map[string]string](err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fn.Errf[map[string]string]("read body: %v", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fn.Err[map[string]string](ErrNotFound)
	case resp.StatusCode == http.StatusBadRequest:
		return fn.Err[map[string]string](ErrInvalidFormat)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil {
			if msg := firstNonEmpty(eb.Error, eb.Message); msg != "" {
				return fn.Errf[map[string]string]("vindata: %s", msg)
			}
		}
		return fn.Errf[map[string]string]("vindata: %s", http.StatusText(resp.StatusCode))
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return fn.Errf[map[string]string]("vindata: decode response: %v", err)
	}

	flat := make(map[string]string, len(fields))
	for k, v := range fields {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			flat[k] = s
		} else {
			flat[k] = fmt.Sprint(v)
		}
	}
	return fn.Ok(flat)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
