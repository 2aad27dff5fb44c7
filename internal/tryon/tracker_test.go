package tryon

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"tryon/internal/domain"
	"tryon/internal/replicate"
)

type fakePoller struct {
	preds map[string]*replicate.Prediction
}

func (f *fakePoller) GetPrediction(ctx context.Context, id string) (*replicate.Prediction, error) {
	p, ok := f.preds[id]
	if !ok {
		return nil, fmt.Errorf("unknown prediction %s", id)
	}
	return p, nil
}

func pred(status, output string) *replicate.Prediction {
	p := &replicate.Prediction{Status: status}
	if output != "" {
		p.Output = json.RawMessage(output)
	}
	return p
}

func TestPollAggregatesComposite(t *testing.T) {
	cases := []struct {
		name     string
		statuses [3]string
		want     domain.JobStatus
	}{
		{"all succeeded", [3]string{"succeeded", "succeeded", "succeeded"}, domain.JobStatusSucceeded},
		{"one pending", [3]string{"succeeded", "processing", "succeeded"}, domain.JobStatusProcessing},
		{"one failed", [3]string{"succeeded", "failed", "processing"}, domain.JobStatusFailed},
		{"canceled counts as failed", [3]string{"canceled", "succeeded", "succeeded"}, domain.JobStatusFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakePoller{preds: map[string]*replicate.Prediction{
				"a": pred(tc.statuses[0], `"https://out/front.png"`),
				"b": pred(tc.statuses[1], `"https://out/side.png"`),
				"c": pred(tc.statuses[2], `"https://out/full.png"`),
			}}
			result, err := NewTracker(fake).Poll(context.Background(), domain.JobRef{"a", "b", "c"})
			if err != nil {
				t.Fatalf("Poll: %v", err)
			}
			if result.Status != tc.want {
				t.Fatalf("status = %q, want %q", result.Status, tc.want)
			}
			if tc.want == domain.JobStatusSucceeded && len(result.Outputs) != 3 {
				t.Fatalf("outputs = %v", result.Outputs)
			}
			if tc.want != domain.JobStatusSucceeded && result.Outputs != nil {
				t.Fatalf("outputs leaked before success: %v", result.Outputs)
			}
		})
	}
}

func TestPollPreservesViewOrder(t *testing.T) {
	fake := &fakePoller{preds: map[string]*replicate.Prediction{
		"a": pred("succeeded", `"https://out/front.png"`),
		"b": pred("succeeded", `"https://out/side.png"`),
		"c": pred("succeeded", `"https://out/full.png"`),
	}}
	result, err := NewTracker(fake).Poll(context.Background(), domain.JobRef{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	want := []string{"https://out/front.png", "https://out/side.png", "https://out/full.png"}
	for i, w := range want {
		if result.Outputs[i] != w {
			t.Fatalf("output[%d] = %q, want %q", i, result.Outputs[i], w)
		}
	}
}

func TestPollFailureCarriesError(t *testing.T) {
	fake := &fakePoller{preds: map[string]*replicate.Prediction{
		"a": {Status: "failed", Error: "NSFW content detected"},
	}}
	result, err := NewTracker(fake).Poll(context.Background(), domain.JobRef{"a"})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if result.Status != domain.JobStatusFailed || result.Error != "NSFW content detected" {
		t.Fatalf("result = %+v", result)
	}
}

func TestNormalizeOutputShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"bare string", `"https://out/a.png"`, "https://out/a.png"},
		{"array takes first", `["https://out/a.png","https://out/b.png"]`, "https://out/a.png"},
		{"object with url", `{"url":"https://out/a.png","meta":1}`, "https://out/a.png"},
		{"empty array", `[]`, ""},
		{"null", `null`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalizeOutput([]byte(tc.raw)); got != tc.want {
				t.Fatalf("normalizeOutput(%s) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}
