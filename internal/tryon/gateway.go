// Package tryon orchestrates virtual try-on generations against the upstream
// model provider: it picks the model for a mode, builds the prompt and
// payload, fans multi-view jobs out, and aggregates their status on poll.
package tryon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tidwall/sjson"

	"tryon/internal/domain"
	"tryon/internal/infra"
	"tryon/internal/replicate"
)

// ModelRef identifies an upstream model, optionally pinned to a version.
type ModelRef struct {
	Owner   string
	Name    string
	Version string // when set, skips latest-version resolution
}

// modelTable is the static mode → model lookup.
var modelTable = map[domain.Mode]ModelRef{
	domain.ModeStandard: {Owner: "google", Name: "nano-banana"},
	domain.ModePlus:     {Owner: "google", Name: "nano-banana"},
	domain.ModeBronze: {
		Owner:   "cuuupid",
		Name:    "idm-vton",
		Version: "c871bb0b046607b680449ecbae55fd8c6d945e0a1948644bf2361b3d021d3ff4",
	},
	domain.ModeVideo: {Owner: "bytedance", Name: "seedance-1.5-pro"},
}

// Request is one logical try-on submission, reconstructed per HTTP call and
// never persisted.
type Request struct {
	PersonImage  string
	GarmentImage string
	Garment      domain.GarmentType
	Description  string
	Mode         domain.Mode
	Makeover     bool
}

// Submitter is the slice of the upstream client the gateway needs.
type Submitter interface {
	ResolveVersion(ctx context.Context, owner, name string) (string, error)
	CreatePrediction(ctx context.Context, version string, input json.RawMessage) (*replicate.Prediction, error)
}

// Gateway builds and submits generation jobs. It never touches the credit
// ledger.
type Gateway struct {
	client Submitter
	logger *infra.Logger
}

// NewGateway constructs a Gateway over the given upstream client.
func NewGateway(client Submitter, logger *infra.Logger) *Gateway {
	if logger == nil {
		l := zerolog.New(io.Discard)
		logger = &l
	}
	return &Gateway{client: client, logger: logger}
}

// Submit validates the request, submits one prediction per view, and returns
// the ordered job reference. Multi-view submissions run concurrently; any
// sub-submission failure fails the whole submit.
func (g *Gateway) Submit(ctx context.Context, req Request) (domain.JobRef, error) {
	if strings.TrimSpace(req.PersonImage) == "" {
		return nil, fmt.Errorf("person image is required: %w", domain.ErrBadRequest)
	}
	if req.Mode != domain.ModeVideo && strings.TrimSpace(req.GarmentImage) == "" {
		return nil, fmt.Errorf("cloth image is required: %w", domain.ErrBadRequest)
	}

	model := modelTable[req.Mode]
	if model.Owner == "" {
		model = modelTable[domain.ModeStandard]
	}
	version := model.Version
	if version == "" {
		resolved, err := g.client.ResolveVersion(ctx, model.Owner, model.Name)
		if err != nil {
			return nil, err
		}
		version = resolved
	}

	base, err := g.buildInput(req)
	if err != nil {
		return nil, err
	}

	if req.Mode != domain.ModePlus {
		pred, err := g.client.CreatePrediction(ctx, version, base)
		if err != nil {
			return nil, err
		}
		g.logger.Info().
			Str("model", model.Owner+"/"+model.Name).
			Str("prediction_id", pred.ID).
			Msg("tryon: prediction created")
		return domain.JobRef{pred.ID}, nil
	}

	prompts := ViewPrompts(PromptInput{
		Description: req.Description,
		Garment:     req.Garment,
		Makeover:    req.Makeover,
	})

	ids := make([]string, len(prompts))
	errs := make([]error, len(prompts))
	var wg sync.WaitGroup
	for i, prompt := range prompts {
		wg.Add(1)
		go func(i int, prompt string) {
			defer wg.Done()
			input, err := sjson.SetBytes(base, "prompt", prompt)
			if err != nil {
				errs[i] = fmt.Errorf("tryon: patch view prompt: %w", err)
				return
			}
			pred, err := g.client.CreatePrediction(ctx, version, input)
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = pred.ID
		}(i, prompt)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	g.logger.Info().
		Strs("prediction_ids", ids).
		Msg("tryon: multi-view predictions created")
	return domain.JobRef(ids), nil
}

func (g *Gateway) buildInput(req Request) ([]byte, error) {
	in := PromptInput{
		Description: req.Description,
		Garment:     req.Garment,
		Makeover:    req.Makeover,
	}

	switch req.Mode {
	case domain.ModeVideo:
		input, err := json.Marshal(map[string]any{
			"prompt":   BasePrompt(in),
			"image":    EnsureDataURI(req.PersonImage),
			"duration": "8s",
		})
		if err != nil {
			return nil, fmt.Errorf("tryon: encode video input: %w", err)
		}
		return input, nil
	case domain.ModeBronze:
		// The alternate engine takes the garment and person images under its
		// own schema and no free-form prompt.
		input, err := json.Marshal(map[string]any{
			"human_img":   EnsureDataURI(req.PersonImage),
			"garm_img":    EnsureDataURI(req.GarmentImage),
			"garment_des": GarmentDescription(in),
		})
		if err != nil {
			return nil, fmt.Errorf("tryon: encode input: %w", err)
		}
		return input, nil
	}

	outputFormat, resolution := "jpg", "1K"
	if req.Mode == domain.ModePlus {
		outputFormat, resolution = "png", "2K"
	}
	input, err := json.Marshal(map[string]any{
		"prompt": BasePrompt(in),
		"image_input": []string{
			EnsureDataURI(req.PersonImage),
			EnsureDataURI(req.GarmentImage),
		},
		"aspect_ratio":        "match_input_image",
		"output_format":       outputFormat,
		"resolution":          resolution,
		"safety_filter_level": "block_only_high",
		"num_inference_steps": 25,
	})
	if err != nil {
		return nil, fmt.Errorf("tryon: encode input: %w", err)
	}
	return input, nil
}
