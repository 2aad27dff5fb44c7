// Package replicate is a thin client for the Replicate predictions API.
package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"tryon/internal/domain"
	"tryon/internal/infra"
)

// ErrMissingAPIToken indicates that the client was configured without credentials.
var ErrMissingAPIToken = errors.New("replicate: api token is required")

const defaultMaxAttempts = 3

// Options configures the Replicate client.
type Options struct {
	APIToken       string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
	// RetryBackoff is the wait before retrying a rate-limited call when the
	// provider gives no retry_after hint. Defaults to 2s.
	RetryBackoff time.Duration
	// MaxAttempts bounds rate-limit retries, submission attempts included.
	MaxAttempts int
}

// Client performs HTTP calls to the predictions API.
type Client struct {
	apiToken     string
	baseURL      string
	httpClient   *http.Client
	logger       *infra.Logger
	retryBackoff time.Duration
	maxAttempts  int
}

// Prediction is one asynchronous generation job as reported by the provider.
// Output stays raw: its shape varies by model (string, array, or object) and
// is normalized downstream.
type Prediction struct {
	ID     string
	Status string
	Output json.RawMessage
	Error  string
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIToken) == "" {
		return nil, ErrMissingAPIToken
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.replicate.com"
	}
	backoff := opts.RetryBackoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiToken:     strings.TrimSpace(opts.APIToken),
		baseURL:      baseURL,
		httpClient:   httpClient,
		logger:       logger,
		retryBackoff: backoff,
		maxAttempts:  attempts,
	}, nil
}

// ResolveVersion returns the model's latest version id.
func (c *Client) ResolveVersion(ctx context.Context, owner, name string) (string, error) {
	path := "/v1/models/" + url.PathEscape(owner) + "/" + url.PathEscape(name)
	raw, _, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	version := gjson.GetBytes(raw, "latest_version.id").String()
	if version == "" {
		return "", fmt.Errorf("replicate: model %s/%s has no published version", owner, name)
	}
	return version, nil
}

// CreatePrediction submits a generation job. Rate-limit responses are
// retried up to the attempt bound, honoring the provider's retry_after hint
// when present; any other error returns immediately.
func (c *Client) CreatePrediction(ctx context.Context, version string, input json.RawMessage) (*Prediction, error) {
	payload, err := json.Marshal(map[string]json.RawMessage{
		"version": json.RawMessage(strconv.Quote(version)),
		"input":   input,
	})
	if err != nil {
		return nil, fmt.Errorf("replicate: encode request: %w", err)
	}

	for attempt := 1; ; attempt++ {
		raw, status, err := c.do(ctx, http.MethodPost, "/v1/predictions", payload)
		if err == nil {
			return predictionFromJSON(raw), nil
		}
		if status != http.StatusTooManyRequests || attempt >= c.maxAttempts {
			return nil, err
		}
		wait := c.retryBackoff
		if hint := gjson.GetBytes(raw, "retry_after").Int(); hint > 0 {
			wait = time.Duration(hint) * time.Second
		}
		c.logger.Warn().
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("replicate: rate limited, retrying")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// GetPrediction fetches the current state of a submitted job.
func (c *Client) GetPrediction(ctx context.Context, id string) (*Prediction, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrBadRequest
	}
	raw, _, err := c.do(ctx, http.MethodGet, "/v1/predictions/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return predictionFromJSON(raw), nil
}

// do returns the response body even on error so callers can read hints
// (retry_after) out of failure payloads.
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("replicate: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("replicate: http request: %w: %s", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("replicate: read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		if hdr := resp.Header.Get("Retry-After"); hdr != "" && !gjson.GetBytes(raw, "retry_after").Exists() {
			raw = []byte(fmt.Sprintf(`{"retry_after":%s}`, hdr))
		}
		return raw, resp.StatusCode, fmt.Errorf("replicate: status 429: %w", domain.ErrRateLimited)
	}
	if resp.StatusCode >= 300 {
		detail := gjson.GetBytes(raw, "detail").String()
		if detail == "" {
			detail = strings.TrimSpace(string(raw))
		}
		return raw, resp.StatusCode, fmt.Errorf("replicate: status %d: %s", resp.StatusCode, detail)
	}
	return raw, resp.StatusCode, nil
}

func predictionFromJSON(raw []byte) *Prediction {
	p := &Prediction{
		ID:     gjson.GetBytes(raw, "id").String(),
		Status: gjson.GetBytes(raw, "status").String(),
		Error:  gjson.GetBytes(raw, "error").String(),
	}
	if out := gjson.GetBytes(raw, "output"); out.Exists() {
		p.Output = json.RawMessage(out.Raw)
	}
	return p
}
