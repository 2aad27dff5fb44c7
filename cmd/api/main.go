package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tryon/internal/clerk"
	"tryon/internal/http/handlers"
	"tryon/internal/http/httpapi"
	"tryon/internal/infra"
	"tryon/internal/ledger"
	"tryon/internal/payments"
	"tryon/internal/replicate"
	"tryon/internal/tryon"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		infra.NewLogger("development").Fatal().Err(err).Msg("load config")
	}

	log := infra.NewLogger(cfg.AppEnv)

	users, err := clerk.NewClient(clerk.Options{
		SecretKey: cfg.ClerkSecretKey,
		BaseURL:   cfg.ClerkAPIBaseURL,
		Logger:    &log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init identity client")
	}

	verifier := clerk.NewVerifier(clerk.VerifierOptions{
		JWKSURL:   cfg.ClerkJWKSURL,
		Issuer:    cfg.ClerkIssuer,
		SecretKey: cfg.ClerkSecretKey,
	})

	upstream, err := replicate.NewClient(replicate.Options{
		APIToken: cfg.ReplicateAPIToken,
		BaseURL:  cfg.ReplicateBaseURL,
		Logger:   &log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init generation client")
	}

	var paypal *payments.PayPalClient
	if cfg.PayPalClientID != "" && cfg.PayPalClientSecret != "" {
		paypal, err = payments.NewPayPalClient(payments.PayPalOptions{
			ClientID:     cfg.PayPalClientID,
			ClientSecret: cfg.PayPalClientSecret,
			BaseURL:      cfg.PayPalAPIBase,
		}, cfg.PayPalCreditsPerUSD)
		if err != nil {
			log.Fatal().Err(err).Msg("init paypal client")
		}
	} else {
		log.Warn().Msg("paypal credentials not set, purchase confirmation disabled")
	}

	app := &handlers.App{
		Config:  cfg,
		Log:     &log,
		Users:   users,
		Ledger:  ledger.New(users, &log),
		Gateway: tryon.NewGateway(upstream, &log),
		Tracker: tryon.NewTracker(upstream),
		PayPal:  paypal,
	}

	srv := infra.NewHTTPServer(cfg, httpapi.NewRouter(app, verifier))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("http server starting")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
