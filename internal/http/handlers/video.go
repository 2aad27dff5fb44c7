package handlers

import (
	"encoding/json"
	"net/http"

	"tryon/internal/domain"
	"tryon/internal/tryon"
)

type videoRequest struct {
	Image  string `json:"image"`
	Prompt string `json:"prompt"`
}

// VideoGenerate animates a finished try-on image into a short clip. Same
// contract as Generate: gate on credits, submit, then debit.
func (a *App) VideoGenerate(w http.ResponseWriter, r *http.Request) {
	userID, err := a.currentUserID(r)
	if err != nil {
		a.fail(w, err)
		return
	}

	var req videoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Image == "" {
		a.error(w, http.StatusBadRequest, "image is required")
		return
	}

	cost := domain.ModeVideo.Cost()
	balance, err := a.Ledger.Balance(r.Context(), userID)
	if err != nil {
		a.fail(w, err)
		return
	}
	if balance.LessThan(cost) {
		a.insufficientCredits(w, cost)
		return
	}

	ref, err := a.Gateway.Submit(r.Context(), tryon.Request{
		PersonImage: req.Image,
		Description: req.Prompt,
		Mode:        domain.ModeVideo,
	})
	if err != nil {
		a.fail(w, err)
		return
	}

	remaining, err := a.Ledger.Debit(r.Context(), userID, cost)
	if err != nil {
		a.Log.Error().Err(err).Str("user_id", userID).Msg("handlers: debit after submit failed")
		remaining = balance
	}

	a.json(w, http.StatusAccepted, map[string]any{
		"id":        ref.String(),
		"status":    string(domain.JobStatusStarting),
		"cost":      json.Number(cost.String()),
		"remaining": json.Number(remaining.String()),
	})
}
