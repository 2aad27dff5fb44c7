// Package handlers contains the HTTP handlers for the try-on API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"tryon/internal/clerk"
	"tryon/internal/domain"
	"tryon/internal/infra"
	"tryon/internal/ledger"
	"tryon/internal/middleware"
	"tryon/internal/payments"
	"tryon/internal/tryon"
)

// App bundles the dependencies the handlers need.
type App struct {
	Config  *infra.Config
	Log     *infra.Logger
	Users   *clerk.Client
	Ledger  *ledger.Ledger
	Gateway *tryon.Gateway
	Tracker *tryon.Tracker
	PayPal  *payments.PayPalClient
}

func (a *App) json(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.Log.Error().Err(err).Msg("handlers: encode response")
	}
}

func (a *App) error(w http.ResponseWriter, status int, msg string) {
	a.json(w, status, map[string]string{"error": msg})
}

// fail maps domain errors onto HTTP statuses.
func (a *App) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		a.error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrInsufficientCredits):
		a.insufficientCredits(w, decimal.Zero)
	case errors.Is(err, domain.ErrPaymentMismatch):
		a.error(w, http.StatusBadRequest, "payment could not be verified")
	case errors.Is(err, domain.ErrRateLimited):
		a.error(w, http.StatusTooManyRequests, "upstream rate limit exceeded, try again shortly")
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		a.error(w, http.StatusBadGateway, "generation service unavailable")
	default:
		a.Log.Error().Err(err).Msg("handlers: internal error")
		a.error(w, http.StatusInternalServerError, "internal server error")
	}
}

// insufficientCredits writes the 403 payment prompt. A positive cost tells
// the client how much the rejected request needed.
func (a *App) insufficientCredits(w http.ResponseWriter, cost decimal.Decimal) {
	body := map[string]any{
		"error":       "Insufficient credits",
		"needPayment": true,
	}
	if cost.IsPositive() {
		body["cost"] = json.Number(cost.String())
	}
	a.json(w, http.StatusForbidden, body)
}

func (a *App) currentUserID(r *http.Request) (string, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return "", domain.ErrUnauthorized
	}
	return userID, nil
}
