package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"tryon/internal/payments"
)

var (
	payhipBundle = decimal.NewFromInt(10)
	paddleBundle = decimal.NewFromInt(50)
)

// readBody drains the raw request body for signature verification.
func (a *App) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		a.error(w, http.StatusBadRequest, "unreadable body")
		return nil, false
	}
	return body, true
}

// creditByEmail resolves the buyer's account by email and applies the grant.
// Unknown emails are acknowledged without crediting so the provider stops
// retrying.
func (a *App) creditByEmail(w http.ResponseWriter, r *http.Request, provider, email, txID string, amount decimal.Decimal) {
	if email == "" {
		a.Log.Warn().Str("provider", provider).Msg("webhook: event without buyer email")
		a.json(w, http.StatusOK, map[string]any{"received": true})
		return
	}
	user, err := a.Users.FindUserByEmail(r.Context(), email)
	if err != nil || user == nil {
		a.Log.Warn().Str("provider", provider).Str("email", email).Msg("webhook: no account for buyer email")
		a.json(w, http.StatusOK, map[string]any{"received": true})
		return
	}
	a.creditUser(w, r, provider, user.ID, txID, amount)
}

func (a *App) creditUser(w http.ResponseWriter, r *http.Request, provider, userID, txID string, amount decimal.Decimal) {
	added, balance, alreadyProcessed, err := a.Ledger.Credit(r.Context(), userID, amount, txID)
	if err != nil {
		a.fail(w, err)
		return
	}
	if alreadyProcessed {
		a.json(w, http.StatusOK, map[string]any{"received": true, "alreadyProcessed": true})
		return
	}
	a.Log.Info().
		Str("provider", provider).
		Str("user_id", userID).
		Str("tx_id", txID).
		Str("added", added.String()).
		Str("balance", balance.String()).
		Msg("webhook: purchase credited")
	a.json(w, http.StatusOK, map[string]any{"received": true})
}

// firstString returns the first non-empty value among the given JSON paths.
func firstString(event gjson.Result, paths ...string) string {
	for _, path := range paths {
		if v := strings.TrimSpace(event.Get(path).String()); v != "" {
			return v
		}
	}
	return ""
}

// payhipSuccessEvents are the event-type spellings Payhip sends for a
// completed sale, normalized to lowercase with underscores.
var payhipSuccessEvents = map[string]bool{
	"payment_success":    true,
	"payment_succeeded":  true,
	"payment_successful": true,
}

// PayhipWebhook handles Payhip purchase notifications. A completed sale
// grants a flat bundle; the buyer is matched by email.
func (a *App) PayhipWebhook(w http.ResponseWriter, r *http.Request) {
	body, ok := a.readBody(w, r)
	if !ok {
		return
	}
	var sig string
	for _, name := range []string{"Payhip-Signature", "X-Payhip-Signature", "X-Webhook-Signature", "X-Signature"} {
		if sig = r.Header.Get(name); sig != "" {
			break
		}
	}
	if !payments.VerifyHMACSHA256(body, a.Config.PayhipWebhookSecret, sig) {
		a.error(w, http.StatusBadRequest, "webhook verification failed")
		return
	}

	event := gjson.ParseBytes(body)
	eventType := firstString(event, "event", "event_type", "type")
	eventType = strings.NewReplacer(" ", "_", ".", "_", "-", "_").Replace(strings.ToLower(eventType))
	if !payhipSuccessEvents[eventType] {
		a.json(w, http.StatusOK, map[string]any{"received": true})
		return
	}

	email := firstString(event, "email", "buyer_email", "customer.email", "data.email")
	txID := firstString(event, "transaction_id", "order_id", "id", "data.transaction_id", "data.id")
	a.creditByEmail(w, r, "payhip", email, "payhip:"+txID, payhipBundle)
}

// PaddleWebhook handles Paddle billing notifications. Only completed
// transactions credit; the buyer is identified by the userId passed through
// checkout custom data.
func (a *App) PaddleWebhook(w http.ResponseWriter, r *http.Request) {
	body, ok := a.readBody(w, r)
	if !ok {
		return
	}
	if !payments.VerifyPaddleSignature(body, a.Config.PaddleWebhookSecret, r.Header.Get("Paddle-Signature")) {
		a.error(w, http.StatusBadRequest, "webhook verification failed")
		return
	}

	event := gjson.ParseBytes(body)
	if event.Get("event_type").String() != "transaction.completed" {
		a.json(w, http.StatusOK, map[string]any{"received": true})
		return
	}
	userID := event.Get("data.custom_data.userId").String()
	if userID == "" {
		a.Log.Warn().Str("provider", "paddle").Msg("webhook: transaction without userId custom data")
		a.json(w, http.StatusOK, map[string]any{"received": true})
		return
	}
	txID := event.Get("data.id").String()
	a.creditUser(w, r, "paddle", userID, "paddle:"+txID, paddleBundle)
}

// FastSpringWebhook handles FastSpring order notifications. Credits scale
// with the order total at the configured per-dollar rate.
func (a *App) FastSpringWebhook(w http.ResponseWriter, r *http.Request) {
	body, ok := a.readBody(w, r)
	if !ok {
		return
	}
	if !payments.VerifyHMACSHA256(body, a.Config.FastSpringWebhookSecret, r.Header.Get("X-FS-Signature")) {
		a.error(w, http.StatusBadRequest, "webhook verification failed")
		return
	}

	rate := decimal.NewFromInt(int64(a.Config.PayPalCreditsPerUSD))
	for _, ev := range gjson.GetBytes(body, "events").Array() {
		if ev.Get("type").String() != "order.completed" {
			continue
		}
		data := ev.Get("data")
		email := data.Get("customer.email").String()
		txID := data.Get("order").String()
		if txID == "" {
			txID = data.Get("id").String()
		}
		amount := decimal.NewFromFloat(data.Get("total").Float()).Mul(rate).Round(0)
		a.creditByEmail(w, r, "fastspring", email, "fastspring:"+txID, amount)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"received": true})
}
