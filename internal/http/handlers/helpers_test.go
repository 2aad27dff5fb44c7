package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"tryon/internal/clerk"
	"tryon/internal/infra"
	"tryon/internal/ledger"
	"tryon/internal/middleware"
	"tryon/internal/replicate"
	"tryon/internal/tryon"
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

// identityFake is an in-memory stand-in for the identity provider's user API.
type identityFake struct {
	mu         sync.Mutex
	userID     string
	email      string
	credits    string // empty means the attribute was never written
	hasCredits bool
	processed  []string
	patches    int
}

func (f *identityFake) userJSON() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	public := "{}"
	if f.hasCredits {
		public = fmt.Sprintf(`{"credits":%s}`, f.credits)
	}
	processed, _ := json.Marshal(f.processed)
	return fmt.Sprintf(`{
		"id":%q,
		"email_addresses":[{"email_address":%q}],
		"public_metadata":%s,
		"private_metadata":{"processedPayments":%s}
	}`, f.userID, f.email, public, processed)
}

func (f *identityFake) roundTrip(r *http.Request) (*http.Response, error) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v1/users":
		if strings.EqualFold(r.URL.Query().Get("email_address"), f.email) {
			return jsonResponse(200, "["+f.userJSON()+"]"), nil
		}
		return jsonResponse(200, "[]"), nil
	case r.Method == http.MethodGet && r.URL.Path == "/v1/users/"+f.userID:
		return jsonResponse(200, f.userJSON()), nil
	case r.Method == http.MethodPatch && r.URL.Path == "/v1/users/"+f.userID+"/metadata":
		var body struct {
			Public  map[string]any `json:"public_metadata"`
			Private map[string]any `json:"private_metadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return jsonResponse(400, `{}`), nil
		}
		f.mu.Lock()
		f.patches++
		if v, ok := body.Public["credits"]; ok {
			f.credits = fmt.Sprint(v)
			f.hasCredits = true
		}
		if v, ok := body.Private["processedPayments"]; ok {
			f.processed = nil
			if list, ok := v.([]any); ok {
				for _, id := range list {
					f.processed = append(f.processed, fmt.Sprint(id))
				}
			}
		}
		f.mu.Unlock()
		return jsonResponse(200, `{}`), nil
	default:
		return jsonResponse(404, `{"errors":[{"message":"not found"}]}`), nil
	}
}

type stubSubmitter struct {
	mu    sync.Mutex
	calls int
	fail  error
	ids   []string
}

func (s *stubSubmitter) ResolveVersion(ctx context.Context, owner, name string) (string, error) {
	return "v1", nil
}

func (s *stubSubmitter) CreatePrediction(ctx context.Context, version string, input json.RawMessage) (*replicate.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	s.calls++
	id := fmt.Sprintf("pred%d", s.calls)
	s.ids = append(s.ids, id)
	return &replicate.Prediction{ID: id, Status: "starting"}, nil
}

type stubPoller struct {
	preds map[string]*replicate.Prediction
}

func (s *stubPoller) GetPrediction(ctx context.Context, id string) (*replicate.Prediction, error) {
	p, ok := s.preds[id]
	if !ok {
		return nil, fmt.Errorf("unknown prediction %s", id)
	}
	return p, nil
}

type testEnv struct {
	app       *App
	identity  *identityFake
	submitter *stubSubmitter
	poller    *stubPoller
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	identity := &identityFake{userID: "user_1", email: "jo@example.com"}
	users, err := clerk.NewClient(clerk.Options{
		SecretKey:  "sk_test",
		BaseURL:    "https://identity.test",
		HTTPClient: &http.Client{Transport: roundTripFunc(identity.roundTrip)},
	})
	if err != nil {
		t.Fatalf("clerk.NewClient: %v", err)
	}

	discard := zerolog.New(io.Discard)
	log := infra.Logger(discard)
	submitter := &stubSubmitter{}
	poller := &stubPoller{preds: map[string]*replicate.Prediction{}}

	app := &App{
		Config: &infra.Config{
			PayhipWebhookSecret:     "payhip-secret",
			PaddleWebhookSecret:     "paddle-secret",
			FastSpringWebhookSecret: "fs-secret",
			PayPalCreditsPerUSD:     2,
		},
		Log:     &log,
		Users:   users,
		Ledger:  ledger.New(users, &log),
		Gateway: tryon.NewGateway(submitter, &log),
		Tracker: tryon.NewTracker(poller),
	}
	return &testEnv{app: app, identity: identity, submitter: submitter, poller: poller}
}

// authed attaches the test user to the request context the way the auth
// middleware would.
func authed(r *http.Request) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), "user_1"))
}
