// Package clerk talks to the identity provider's Backend API. The provider
// owns the user records; this service only reads and patches two metadata
// attributes on them (credit balance and the processed-payment set).
package clerk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"tryon/internal/domain"
	"tryon/internal/infra"
)

// ErrMissingSecretKey indicates that the client was configured without credentials.
var ErrMissingSecretKey = errors.New("clerk: secret key is required")

// Options configures the Backend API client.
type Options struct {
	SecretKey      string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the identity provider's Backend API.
type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SecretKey) == "" {
		return nil, ErrMissingSecretKey
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.clerk.com"
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
		secretKey:  strings.TrimSpace(opts.SecretKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// GetUser loads a user record by id.
func (c *Client) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrAuthLookup
	}
	raw, err := c.do(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, err
	}
	return userFromJSON(gjson.ParseBytes(raw)), nil
}

// FindUserByEmail resolves a user by email address. When several accounts
// share the address, the first match wins.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, domain.ErrAuthLookup
	}
	raw, err := c.do(ctx, http.MethodGet, "/v1/users?email_address="+url.QueryEscape(email), nil)
	if err != nil {
		return nil, err
	}
	list := gjson.ParseBytes(raw)
	if list.IsObject() {
		list = list.Get("data")
	}
	if !list.IsArray() || len(list.Array()) == 0 {
		return nil, domain.ErrAuthLookup
	}
	return userFromJSON(list.Array()[0]), nil
}

// UpdateMetadata patches the user's public and private metadata in a single
// call. Callers that change the balance and the processed-payment set
// together must pass both maps here so the write lands as one update.
func (c *Client) UpdateMetadata(ctx context.Context, userID string, public, private map[string]any) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ErrAuthLookup
	}
	body := map[string]any{}
	if len(public) > 0 {
		body["public_metadata"] = public
	}
	if len(private) > 0 {
		body["private_metadata"] = private
	}
	if len(body) == 0 {
		return nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("clerk: encode metadata: %w", err)
	}
	_, err = c.do(ctx, http.MethodPatch, "/v1/users/"+url.PathEscape(userID)+"/metadata", payload)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("clerk: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("clerk: http request: %w: %s", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("clerk: read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrAuthLookup
	}
	if resp.StatusCode >= 300 {
		msg := gjson.GetBytes(raw, "errors.0.message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return nil, fmt.Errorf("clerk: status %d: %s: %w", resp.StatusCode, msg, domain.ErrUpstreamUnavailable)
	}
	return raw, nil
}

func userFromJSON(u gjson.Result) *domain.User {
	user := &domain.User{
		ID:    u.Get("id").String(),
		Email: strings.ToLower(strings.TrimSpace(u.Get("email_addresses.0.email_address").String())),
	}
	if credits := u.Get("public_metadata.credits"); credits.Exists() {
		if d, err := decimal.NewFromString(strings.TrimSpace(credits.String())); err == nil {
			user.Credits = d
			user.HasCredits = true
		}
	}
	for _, id := range u.Get("private_metadata.processedPayments").Array() {
		if s := strings.TrimSpace(id.String()); s != "" {
			user.ProcessedPayments = append(user.ProcessedPayments, s)
		}
	}
	return user
}
