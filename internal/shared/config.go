package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	PlacesBase  string
	PlacesKey   string
	HFBase      string
	HFModel     string
	HFToken     string
	Workers     int
	HTTPTimeout time.Duration
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		PlacesBase:  env("PLACES_BASE_URL", "https://maps.googleapis.com/maps/api/place"),
		PlacesKey:   env("PLACES_API_KEY", ""),
		HFBase:      env("HF_BASE_URL", "https://api-inference.huggingface.co"),
		HFModel:     env("HF_MODEL", "cardiffnlp/twitter-roberta-base-sentiment-latest"),
		HFToken:     env("HF_API_TOKEN", ""),
		Workers:     atoi("ANALYZE_WORKERS", 8),
		HTTPTimeout: time.Duration(atoi("CLIENT_TIMEOUT_SECONDS", 20)) * time.Second,
	}
	if c.PlacesKey == "" {
		log.Warn().Msg("PLACES_API_KEY is empty")
	}
	if c.HFToken == "" {
		log.Warn().Msg("HF_API_TOKEN is empty; inference may be throttled")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
