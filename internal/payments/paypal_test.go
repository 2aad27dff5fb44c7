package payments

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestPayPal(t *testing.T, rt roundTripFunc) *PayPalClient {
	t.Helper()
	c, err := NewPayPalClient(PayPalOptions{
		ClientID:     "cid",
		ClientSecret: "csecret",
		BaseURL:      "https://api.test",
		HTTPClient:   &http.Client{Transport: rt},
	}, 2)
	if err != nil {
		t.Fatalf("NewPayPalClient: %v", err)
	}
	return c
}

func TestNewPayPalClientRequiresCredentials(t *testing.T) {
	if _, err := NewPayPalClient(PayPalOptions{ClientID: "cid"}, 2); !errors.Is(err, ErrMissingPayPalCredentials) {
		t.Fatalf("err = %v, want ErrMissingPayPalCredentials", err)
	}
}

func TestGetOrderPrefersCapturedAmount(t *testing.T) {
	c := newTestPayPal(t, func(r *http.Request) (*http.Response, error) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			if r.Header.Get("Authorization") == "" {
				t.Fatal("token request missing basic auth")
			}
			return jsonResponse(200, `{"access_token":"tok"}`), nil
		case "/v2/checkout/orders/ORDER1":
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Fatalf("order auth = %q", got)
			}
			return jsonResponse(200, `{
				"id":"ORDER1","status":"COMPLETED",
				"purchase_units":[{"amount":{"value":"99.99"},
					"payments":{"captures":[{"amount":{"value":"5.00"}}]}}]
			}`), nil
		default:
			t.Fatalf("unexpected path %q", r.URL.Path)
			return nil, nil
		}
	})

	order, err := c.GetOrder(context.Background(), "ORDER1")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if order.Status != "COMPLETED" {
		t.Fatalf("status = %q", order.Status)
	}
	if order.Amount.String() != "5" {
		t.Fatalf("amount = %s, want captured 5", order.Amount)
	}
}

func TestGetOrderFallsBackToOrderAmount(t *testing.T) {
	c := newTestPayPal(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path == "/v1/oauth2/token" {
			return jsonResponse(200, `{"access_token":"tok"}`), nil
		}
		return jsonResponse(200, `{"id":"O2","status":"COMPLETED","purchase_units":[{"amount":{"value":"13.00"}}]}`), nil
	})

	order, err := c.GetOrder(context.Background(), "O2")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if order.Amount.String() != "13" {
		t.Fatalf("amount = %s, want 13", order.Amount)
	}
}

func TestCreditsForAmount(t *testing.T) {
	c := newTestPayPal(t, func(r *http.Request) (*http.Response, error) { return nil, nil })

	cases := []struct {
		amount string
		want   string
	}{
		{"13", "10"},  // fixed bundle
		{"5", "10"},   // 5 x 2
		{"9.99", "20"}, // rounded
		{"1", "2"},
	}
	for _, tc := range cases {
		amount, _ := decimal.NewFromString(tc.amount)
		want, _ := decimal.NewFromString(tc.want)
		if got := c.CreditsForAmount(amount); !got.Equal(want) {
			t.Fatalf("CreditsForAmount(%s) = %s, want %s", tc.amount, got, tc.want)
		}
	}
}
