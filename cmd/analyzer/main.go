package main

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"place_pulse/internal/adapters/huggingface"
	"place_pulse/internal/adapters/observability"
	"place_pulse/internal/adapters/places"
	"place_pulse/internal/app"
	"place_pulse/internal/shared"
)

// One-shot batch runner: analyze every place name given on the command line
// and print one JSON document per completed analysis. A name that fails is
// logged and skipped; it never aborts the batch.
func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	names := os.Args[1:]
	if len(names) == 0 {
		log.Fatal().Msg("usage: analyzer <place name> [<place name> ...]")
	}

	log.Info().
		Str("base", cfg.PlacesBase).
		Str("model", cfg.HFModel).
		Int("workers", cfg.Workers).
		Int("places", len(names)).
		Msg("analyzer starting")

	provider, err := places.New(cfg.PlacesBase, cfg.PlacesKey, cfg.HTTPTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize places client")
	}
	classifier, err := huggingface.New(cfg.HFBase, cfg.HFModel, cfg.HFToken, cfg.HTTPTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize classifier")
	}
	svc := app.NewAnalysisService(provider, provider, classifier, cfg.Workers)

	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup
	var outMu sync.Mutex
	enc := json.NewEncoder(os.Stdout)

	for _, name := range names {
		name := name

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(place string) {
			defer wg.Done()
			defer sem.Release(1)

			analysis, err := svc.AnalyzePlace(ctx, place)
			if err != nil {
				log.Warn().Str("name", place).Err(err).Msg("analysis failed")
				return
			}

			outMu.Lock()
			err = enc.Encode(analysis)
			outMu.Unlock()
			if err != nil {
				log.Error().Str("name", place).Err(err).Msg("encode failed")
				return
			}
			log.Info().Str("name", place).Int("reviews", len(analysis.Reviews)).Msg("analysis ok")
		}(name)
	}

	wg.Wait()
	log.Info().Msg("batch completed")
}
