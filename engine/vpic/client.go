package vpic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"time"

	"github.com/vinlab/vinlab/pkg/fn"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public vPIC API root.
	DefaultBaseURL = "https://vpic.nhtsa.dot.gov/api/vehicles"

	// APIVersion is recorded into decode metadata for provenance.
	APIVersion = "vPIC 3.0"

	defaultTimeout = 30 * time.Second
	userAgent      = "vinlab/1.0 (vehicle identification lookup)"
)

// Config configures the vPIC client.
type Config struct {
	// BaseURL overrides the API root (tests point it at a local server).
	BaseURL string
	// RequestsPerSecond bounds the call rate against the public API.
	// Zero means the default of 5 req/s with a burst of 5.
	RequestsPerSecond float64
	// HTTPClient overrides the underlying client.
	HTTPClient *http.Client
}

// Client talks to the vPIC API with rate limiting and retries.
type Client struct {
	baseURL string
	limiter *rate.Limiter
	client  *http.Client
}

// New creates a vPIC client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	// A fractional rate truncates to burst 0, which would starve every Wait.
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: cfg.BaseURL,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		client:  hc,
	}
}

// DecodeVIN runs the extended vehicle-values query for a full VIN. If the
// extended endpoint errors, it falls back to the plain values query before
// giving up, since the extended variant has been flaky historically.
func (c *Client) DecodeVIN(ctx context.Context, vin string) (*Response, error) {
	ext, err := c.get(ctx, "DecodeVinValuesExtended", vin)
	if err == nil {
		return ext, nil
	}
	basic, basicErr := c.get(ctx, "DecodeVinValues", vin)
	if basicErr != nil {
		return nil, fmt.Errorf("vpic: decode %s: %w", vin, err)
	}
	return basic, nil
}

// DecodeWMI looks up manufacturer data for a three-character WMI prefix.
func (c *Client) DecodeWMI(ctx context.Context, wmi string) (*Response, error) {
	resp, err := c.get(ctx, "DecodeWMI", wmi)
	if err != nil {
		return nil, fmt.Errorf("vpic: wmi %s: %w", wmi, err)
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, endpoint, arg string) (*Response, error) {
	url := fmt.Sprintf("%s/%s/%s?format=json", c.baseURL, endpoint, neturl.PathEscape(arg))

	result := fn.Retry(ctx, fn.RetryOpts{
		MaxAttempts: 2,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     5 * time.Second,
		Jitter:      true,
	}, func(ctx context.Context) fn.Result[*Response] {
		if err := c.limiter.Wait(ctx); err != nil {
			return fn.Err[*Response](err)
		}
		return c.doGet(ctx, url)
	})
	return result.Unwrap()
}

func (c *Client) doGet(ctx context.Context, url string) fn.Result[*Response] {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fn.Err[*Response](err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fn.Err[*Response](err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fn.Errf[*Response]("unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fn.Errf[*Response]("read body: %v", err)
	}

	parsed, err := parseResponse(body)
	if err != nil {
		return fn.Errf[*Response]("decode response: %v", err)
	}
	return fn.Ok(parsed)
}

// rawResponse matches the wire shape; result values arrive as strings,
// numbers, or null depending on the endpoint.
type rawResponse struct {
	Count          int              `json:"Count"`
	Message        string           `json:"Message"`
	SearchCriteria string           `json:"SearchCriteria"`
	Results        []map[string]any `json:"Results"`
}

func parseResponse(body []byte) (*Response, error) {
	var raw rawResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	out := &Response{
		Count:          raw.Count,
		Message:        raw.Message,
		SearchCriteria: raw.SearchCriteria,
		Results:        make([]map[string]string, 0, len(raw.Results)),
	}
	for _, row := range raw.Results {
		flat := make(map[string]string, len(row))
		for k, v := range row {
			switch tv := v.(type) {
			case nil:
				// omit nulls entirely
			case string:
				flat[k] = tv
			case float64:
				flat[k] = trimFloat(tv)
			default:
				flat[k] = fmt.Sprint(tv)
			}
		}
		out.Results = append(out.Results, flat)
	}
	return out, nil
}

// trimFloat renders whole numbers without a decimal point.
func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
