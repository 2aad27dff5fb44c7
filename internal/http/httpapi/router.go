// Package httpapi wires the HTTP routes and middleware chain.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tryon/internal/http/handlers"
	"tryon/internal/middleware"
)

// NewRouter builds the application router. Generation polling and payment
// webhooks are deliberately outside the auth chain: polling is id-keyed and
// webhooks authenticate by signature.
func NewRouter(app *handlers.App, verifier middleware.TokenVerifier) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(*app.Log))
	r.Use(middleware.CORS)
	r.Use(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute))

	r.Get("/v1/healthz", app.Healthz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/generate", app.GenerateStatus)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(verifier))
			r.Post("/generate", app.Generate)
			r.Post("/video-generate", app.VideoGenerate)
			r.Get("/user/me", app.Me)
			r.Post("/user/add-points", app.AddPoints)
		})
	})

	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/payhip", app.PayhipWebhook)
		r.Post("/paddle", app.PaddleWebhook)
		r.Post("/fastspring", app.FastSpringWebhook)
		r.Post("/stripe", app.StripeWebhook)
	})

	return r
}
