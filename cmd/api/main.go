package main

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"place_pulse/internal/adapters/huggingface"
	server "place_pulse/internal/adapters/http_server"
	"place_pulse/internal/adapters/observability"
	"place_pulse/internal/adapters/places"
	"place_pulse/internal/app"
	"place_pulse/internal/shared"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// deps
	provider, err := places.New(cfg.PlacesBase, cfg.PlacesKey, cfg.HTTPTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize places client")
	}
	classifier, err := huggingface.New(cfg.HFBase, cfg.HFModel, cfg.HFToken, cfg.HTTPTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize classifier")
	}
	svc := app.NewAnalysisService(provider, provider, classifier, cfg.Workers)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Svc: svc, Relay: provider})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
