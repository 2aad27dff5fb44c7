package tryon

import (
	"context"
	"sync"

	"github.com/tidwall/gjson"

	"tryon/internal/domain"
	"tryon/internal/replicate"
)

// Poller is the slice of the upstream client the tracker needs.
type Poller interface {
	GetPrediction(ctx context.Context, id string) (*replicate.Prediction, error)
}

// PollResult is the aggregated state of a job reference. Outputs holds one
// normalized URL per sub-job, in submission order, and is only populated once
// the whole job has succeeded.
type PollResult struct {
	Status  domain.JobStatus
	Outputs []string
	Error   string
}

// Tracker polls in-flight generations and folds multi-view jobs into a single
// status.
type Tracker struct {
	client Poller
}

// NewTracker constructs a Tracker over the given upstream client.
func NewTracker(client Poller) *Tracker {
	return &Tracker{client: client}
}

// Poll fetches every sub-job of ref concurrently and aggregates: any failed
// sub-job fails the whole job, all succeeded succeeds it, anything else is
// still processing.
func (t *Tracker) Poll(ctx context.Context, ref domain.JobRef) (*PollResult, error) {
	preds := make([]*replicate.Prediction, len(ref))
	errs := make([]error, len(ref))
	var wg sync.WaitGroup
	for i, id := range ref {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			preds[i], errs[i] = t.client.GetPrediction(ctx, id)
		}(i, id)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	result := &PollResult{Status: domain.JobStatusSucceeded}
	for _, pred := range preds {
		switch domain.StatusFromUpstream(pred.Status) {
		case domain.JobStatusFailed:
			result.Status = domain.JobStatusFailed
			if pred.Error != "" {
				result.Error = pred.Error
			}
			return result, nil
		case domain.JobStatusSucceeded:
			// keep aggregating
		default:
			result.Status = domain.JobStatusProcessing
		}
	}
	if result.Status != domain.JobStatusSucceeded {
		return result, nil
	}

	result.Outputs = make([]string, len(preds))
	for i, pred := range preds {
		result.Outputs[i] = normalizeOutput(pred.Output)
	}
	return result, nil
}

// normalizeOutput extracts a single URL from the upstream output field, which
// may be a bare string, an array of URLs, or an object carrying a url key.
func normalizeOutput(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	out := gjson.ParseBytes(raw)
	switch {
	case out.IsArray():
		arr := out.Array()
		if len(arr) == 0 {
			return ""
		}
		return arr[0].String()
	case out.IsObject():
		return out.Get("url").String()
	default:
		return out.String()
	}
}
