// internal/adapters/huggingface/classifier.go
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"place_pulse/internal/adapters/observability"
	"place_pulse/internal/domain"
)

const maxBody = 1 << 20

// warmupText is classified once to force the inference service to load the
// model before real traffic hits it.
const warmupText = "ok"

// Classifier scores text polarity through a hosted inference endpoint. The
// model is cold-loaded server-side on first use, so the first Classify call
// pays a one-time warm-up; concurrent first callers share a single warm-up
// via singleflight and every later call reuses the warm handle.
type Classifier struct {
	base  string
	model string
	token string
	hc    *http.Client

	warm   atomic.Bool
	flight singleflight.Group
}

func New(base, model, token string, timeout time.Duration) (*Classifier, error) {
	if model == "" {
		return nil, fmt.Errorf("model id is required")
	}
	if base == "" {
		base = "https://api-inference.huggingface.co"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Classifier{
		base:  strings.TrimRight(base, "/"),
		model: model,
		token: token,
		hc:    &http.Client{Timeout: timeout},
	}, nil
}

// Classify implements domain.SentimentClassifier. It never retries; a failed
// inference call is the caller's problem to isolate.
func (c *Classifier) Classify(ctx context.Context, text string) (domain.SentimentResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.SentimentResult{}, fmt.Errorf("%w: empty text", domain.ErrInvalidInput)
	}
	if err := c.warmUp(ctx); err != nil {
		observability.ObserveClassification("none", "error")
		return domain.SentimentResult{}, fmt.Errorf("%w: warm-up: %v", domain.ErrClassifier, err)
	}
	res, err := c.infer(ctx, text)
	if err != nil {
		observability.ObserveClassification("none", "error")
		return domain.SentimentResult{}, err
	}
	observability.ObserveClassification(string(res.Label), "ok")
	return res, nil
}

// warmUp runs the one-time model load. At most one construction is in
// flight; losers of the race wait for the winner's result instead of issuing
// their own.
func (c *Classifier) warmUp(ctx context.Context) error {
	if c.warm.Load() {
		return nil
	}
	_, err, _ := c.flight.Do("warmup", func() (any, error) {
		if c.warm.Load() {
			return nil, nil
		}
		// Detached from the winner's context: a winner that cancels
		// mid-load must not poison waiters whose contexts are live. The
		// HTTP client's own timeout still bounds the request.
		if _, err := c.infer(context.WithoutCancel(ctx), warmupText); err != nil {
			return nil, err
		}
		c.warm.Store(true)
		return nil, nil
	})
	return err
}

type inferenceRequest struct {
	Inputs  string           `json:"inputs"`
	Options inferenceOptions `json:"options"`
}

type inferenceOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type scored struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (c *Classifier) infer(ctx context.Context, text string) (domain.SentimentResult, error) {
	payload, err := json.Marshal(inferenceRequest{Inputs: text, Options: inferenceOptions{WaitForModel: true}})
	if err != nil {
		return domain.SentimentResult{}, fmt.Errorf("%w: encode request: %v", domain.ErrClassifier, err)
	}

	u := fmt.Sprintf("%s/models/%s", c.base, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return domain.SentimentResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return domain.SentimentResult{}, ctx.Err()
		}
		observability.ObserveExternal("huggingface", "classify", 0, time.Since(start))
		return domain.SentimentResult{}, fmt.Errorf("%w: %v", domain.ErrClassifier, err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("huggingface", "classify", resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return domain.SentimentResult{}, fmt.Errorf("%w: read body: %v", domain.ErrClassifier, err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.SentimentResult{}, fmt.Errorf("%w: bad status %d: %s",
			domain.ErrClassifier, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return parseResult(body)
}

// parseResult extracts the top-ranked {label, score} pair. The service
// returns either a ranked list per input or a flat ranked list.
func parseResult(body []byte) (domain.SentimentResult, error) {
	var flat []scored
	var nested [][]scored
	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 {
		flat = nested[0]
	} else if err := json.Unmarshal(body, &flat); err != nil {
		return domain.SentimentResult{}, fmt.Errorf("%w: malformed response: %v", domain.ErrClassifier, err)
	}
	if len(flat) == 0 {
		return domain.SentimentResult{}, fmt.Errorf("%w: response has no label/score pairs", domain.ErrClassifier)
	}

	top := flat[0]
	for _, s := range flat[1:] {
		if s.Score > top.Score {
			top = s
		}
	}
	if top.Score < 0 || top.Score > 1 {
		return domain.SentimentResult{}, fmt.Errorf("%w: score %v out of range", domain.ErrClassifier, top.Score)
	}
	label, err := mapLabel(top.Label)
	if err != nil {
		return domain.SentimentResult{}, err
	}
	return domain.SentimentResult{Label: label, Score: top.Score}, nil
}

func mapLabel(s string) (domain.SentimentLabel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "POSITIVE", "POS", "LABEL_2":
		return domain.SentimentPositive, nil
	case "NEGATIVE", "NEG", "LABEL_0":
		return domain.SentimentNegative, nil
	case "NEUTRAL", "NEU", "LABEL_1":
		return domain.SentimentNeutral, nil
	default:
		return "", fmt.Errorf("%w: unknown label %q", domain.ErrClassifier, s)
	}
}
