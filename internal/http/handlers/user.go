package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

// Me reports the caller's current credit balance.
func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := a.currentUserID(r)
	if err != nil {
		a.fail(w, err)
		return
	}

	balance, err := a.Ledger.Balance(r.Context(), userID)
	if err != nil {
		a.fail(w, err)
		return
	}

	a.json(w, http.StatusOK, map[string]any{
		"id":      userID,
		"credits": json.Number(balance.String()),
	})
}

type addPointsRequest struct {
	OrderID string `json:"orderID"`
	Amount  string `json:"amount"`
}

// AddPoints credits a PayPal purchase. The browser reports the captured order
// id; the order is re-fetched first-party and credited exactly once.
func (a *App) AddPoints(w http.ResponseWriter, r *http.Request) {
	userID, err := a.currentUserID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	if a.PayPal == nil {
		a.error(w, http.StatusServiceUnavailable, "paypal is not configured")
		return
	}

	var req addPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.OrderID) == "" {
		a.error(w, http.StatusBadRequest, "orderID is required")
		return
	}

	order, err := a.PayPal.GetOrder(r.Context(), req.OrderID)
	if err != nil {
		a.fail(w, err)
		return
	}
	if order.Status != "COMPLETED" {
		a.error(w, http.StatusBadRequest, "order is not completed")
		return
	}

	// Reject when the browser-reported amount disagrees with what PayPal
	// actually captured.
	if req.Amount != "" {
		claimed, err := decimal.NewFromString(req.Amount)
		if err != nil || !claimed.Equal(order.Amount) {
			a.Log.Warn().
				Str("order_id", req.OrderID).
				Str("claimed", req.Amount).
				Str("captured", order.Amount.String()).
				Msg("handlers: paypal amount mismatch")
			a.error(w, http.StatusBadRequest, "amount does not match captured order")
			return
		}
	}

	credits := a.PayPal.CreditsForAmount(order.Amount)
	if !credits.IsPositive() {
		a.error(w, http.StatusBadRequest, "order amount grants no credits")
		return
	}
	added, balance, alreadyProcessed, err := a.Ledger.Credit(r.Context(), userID, credits, "paypal:"+req.OrderID)
	if err != nil {
		a.fail(w, err)
		return
	}
	if alreadyProcessed {
		a.json(w, http.StatusOK, map[string]any{
			"ok":               true,
			"creditsAdded":     0,
			"credits":          json.Number(balance.String()),
			"alreadyProcessed": true,
		})
		return
	}

	a.Log.Info().
		Str("user_id", userID).
		Str("order_id", req.OrderID).
		Str("added", added.String()).
		Msg("handlers: paypal purchase credited")

	a.json(w, http.StatusOK, map[string]any{
		"ok":           true,
		"creditsAdded": json.Number(added.String()),
		"credits":      json.Number(balance.String()),
	})
}
