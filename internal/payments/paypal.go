package payments

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"tryon/internal/domain"
)

// ErrMissingPayPalCredentials is returned when the client is constructed
// without an API client id/secret pair.
var ErrMissingPayPalCredentials = errors.New("paypal: client id and secret are required")

// Order is the slice of a PayPal order the credit flow cares about.
type Order struct {
	ID     string
	Status string
	Amount decimal.Decimal
}

// PayPalOptions configures a PayPalClient.
type PayPalOptions struct {
	ClientID       string
	ClientSecret   string
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

// PayPalClient fetches orders from the PayPal REST API to confirm captures
// reported by the browser before crediting.
type PayPalClient struct {
	clientID     string
	clientSecret string
	baseURL      string
	http         *http.Client
	timeout      time.Duration

	creditsPerUSD decimal.Decimal
}

// NewPayPalClient constructs a PayPalClient. creditsPerUSD controls how
// purchase amounts convert into credits.
func NewPayPalClient(opts PayPalOptions, creditsPerUSD int) (*PayPalClient, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, ErrMissingPayPalCredentials
	}
	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api-m.paypal.com"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if creditsPerUSD <= 0 {
		creditsPerUSD = 2
	}
	return &PayPalClient{
		clientID:      opts.ClientID,
		clientSecret:  opts.ClientSecret,
		baseURL:       baseURL,
		http:          httpClient,
		timeout:       timeout,
		creditsPerUSD: decimal.NewFromInt(int64(creditsPerUSD)),
	}, nil
}

// GetOrder fetches an order and reports its status and captured amount. The
// captured amount is preferred; the order-level amount is a fallback for
// responses that omit capture details.
func (c *PayPalClient) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/checkout/orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, fmt.Errorf("paypal: build order request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paypal: fetch order: %w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("paypal: read order response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("paypal: order lookup failed with status %d: %w", resp.StatusCode, domain.ErrUpstreamUnavailable)
	}

	body := gjson.ParseBytes(raw)
	amountStr := body.Get("purchase_units.0.payments.captures.0.amount.value").String()
	if amountStr == "" {
		amountStr = body.Get("purchase_units.0.amount.value").String()
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("paypal: order %s has no parseable amount: %w", orderID, domain.ErrPaymentMismatch)
	}

	return &Order{
		ID:     body.Get("id").String(),
		Status: body.Get("status").String(),
		Amount: amount,
	}, nil
}

func (c *PayPalClient) accessToken(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	form := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", form)
	if err != nil {
		return "", fmt.Errorf("paypal: build token request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal: fetch token: %w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("paypal: read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("paypal: token request failed with status %d: %w", resp.StatusCode, domain.ErrUpstreamUnavailable)
	}

	token := gjson.GetBytes(raw, "access_token").String()
	if token == "" {
		return "", fmt.Errorf("paypal: token response missing access_token: %w", domain.ErrUpstreamUnavailable)
	}
	return token, nil
}

// thirteenUSD buys a fixed bundle of 10 credits regardless of the per-dollar
// rate.
var (
	thirteenUSD    = decimal.NewFromInt(13)
	thirteenBundle = decimal.NewFromInt(10)
)

// CreditsForAmount converts a captured USD amount into credits.
func (c *PayPalClient) CreditsForAmount(amount decimal.Decimal) decimal.Decimal {
	if amount.Equal(thirteenUSD) {
		return thirteenBundle
	}
	return amount.Mul(c.creditsPerUSD).Round(0)
}
