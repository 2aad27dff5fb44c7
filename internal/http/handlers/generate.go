package handlers

import (
	"encoding/json"
	"net/http"

	"tryon/internal/domain"
	"tryon/internal/tryon"
)

type generateRequest struct {
	PersonImage      string `json:"personImage"`
	ClothImage       string `json:"clothImage"`
	ClothType        string `json:"clothType"`
	ClothDescription string `json:"clothDescription"`
	Mode             string `json:"mode"`
	IsPlusMode       bool   `json:"isPlusMode"`
	Makeover         bool   `json:"makeover"`
}

// Generate accepts a try-on request, gates it on the caller's credit balance,
// submits it upstream, and only then debits. A failed submission must never
// cost the caller anything.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	userID, err := a.currentUserID(r)
	if err != nil {
		a.fail(w, err)
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PersonImage == "" || req.ClothImage == "" {
		a.error(w, http.StatusBadRequest, "personImage and clothImage are required")
		return
	}

	mode := domain.NormalizeMode(req.Mode, req.IsPlusMode)
	cost := mode.Cost()

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
		PersonImage:  req.PersonImage,
		GarmentImage: req.ClothImage,
		Garment:      domain.GarmentType(req.ClothType),
		Description:  req.ClothDescription,
		Mode:         mode,
		Makeover:     req.Makeover,
	})
	if err != nil {
		a.fail(w, err)
		return
	}

	remaining, err := a.Ledger.Debit(r.Context(), userID, cost)
	if err != nil {
		// The job is already running upstream; surface the balance problem but
		// keep the job reference so the client can still poll.
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

// GenerateStatus polls an in-flight generation by id. It requires no
// authentication so the browser can poll without refreshing tokens.
func (a *App) GenerateStatus(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("id")
	ref, err := domain.ParseJobRef(raw)
	if err != nil {
		a.error(w, http.StatusBadRequest, "id query parameter is required")
		return
	}

	result, err := a.Tracker.Poll(r.Context(), ref)
	if err != nil {
		a.fail(w, err)
		return
	}

	switch result.Status {
	case domain.JobStatusFailed:
		msg := result.Error
		if msg == "" {
			msg = "generation failed"
		}
		a.json(w, http.StatusOK, map[string]any{
			"status": string(domain.JobStatusFailed),
			"error":  msg,
		})
	case domain.JobStatusSucceeded:
		a.json(w, http.StatusOK, succeededPayload(ref, result))
	default:
		a.json(w, http.StatusOK, map[string]any{
			"status": string(domain.JobStatusProcessing),
		})
	}
}

// succeededPayload always exposes the three view slots. Single-view jobs fill
// every slot with the same image so clients render one code path. The analysis
// and remaining fields are placeholders the current UI expects.
func succeededPayload(ref domain.JobRef, result *tryon.PollResult) map[string]any {
	var front, side, full string
	analysis := "Generated successfully"
	if ref.Composite() && len(result.Outputs) == 3 {
		front, side, full = result.Outputs[0], result.Outputs[1], result.Outputs[2]
		analysis = "Generated successfully (Plus Mode)"
	} else if len(result.Outputs) > 0 {
		front, side, full = result.Outputs[0], result.Outputs[0], result.Outputs[0]
	}
	return map[string]any{
		"status": string(domain.JobStatusSucceeded),
		"output": map[string]any{
			"front":     front,
			"side":      side,
			"full":      full,
			"analysis":  analysis,
			"remaining": 99,
		},
	}
}
