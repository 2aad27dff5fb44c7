package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

// StripeWebhook handles Stripe checkout notifications. The buyer's account id
// rides along as the session's client_reference_id.
func (a *App) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, ok := a.readBody(w, r)
	if !ok {
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		body,
		r.Header.Get("Stripe-Signature"),
		a.Config.StripeWebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		a.error(w, http.StatusBadRequest, "webhook verification failed")
		return
	}

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		a.json(w, http.StatusOK, map[string]any{"received": true})
		return
	}

	userID := strings.TrimSpace(event.GetObjectValue("client_reference_id"))
	if userID == "" {
		a.Log.Warn().Str("provider", "stripe").Msg("webhook: session without client_reference_id")
		a.json(w, http.StatusOK, map[string]any{"received": true})
		return
	}

	// amount_total is in minor units.
	amountTotal, err := strconv.ParseInt(strings.TrimSpace(event.GetObjectValue("amount_total")), 10, 64)
	if err != nil || amountTotal <= 0 {
		a.json(w, http.StatusOK, map[string]any{"received": true})
		return
	}
	rate := decimal.NewFromInt(int64(a.Config.PayPalCreditsPerUSD))
	credits := decimal.NewFromInt(amountTotal).Div(decimal.NewFromInt(100)).Mul(rate).Round(0)

	a.creditUser(w, r, "stripe", userID, "stripe:"+event.GetObjectValue("id"), credits)
}
