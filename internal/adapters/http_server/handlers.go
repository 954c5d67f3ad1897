// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"place_pulse/internal/app"
	"place_pulse/internal/domain"
)

// RawDetailsFetcher is the pass-through relay's dependency: provider JSON
// in, provider JSON out, no reshaping.
type RawDetailsFetcher interface {
	RawDetails(ctx context.Context, id domain.PlaceID) ([]byte, error)
}

type Handlers struct {
	Svc   *app.AnalysisService
	Relay RawDetailsFetcher
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Post("/v1/analyze", h.analyze)
	s.mux.Get("/v1/places/{id}/reviews", h.relayReviews)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// statusFor maps the pipeline's error taxonomy onto HTTP statuses. Pipeline
// wrappers are unwrapped first so the fatal cause decides the status.
func statusFor(err error) (int, string) {
	var provErr *domain.ProviderError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "Invalid Input"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.As(err, &provErr):
		return http.StatusBadGateway, "Provider Error"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

type analyzeRequest struct {
	Name string `json:"name"`
}

func (h *Handlers) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "request body must be JSON with a name field")
		return
	}

	resp, err := h.Svc.AnalyzePlace(r.Context(), req.Name)
	if err != nil {
		status, title := statusFor(err)
		writeProblem(w, status, title, err.Error())
		return
	}

	etag, body := calcETagAndBody(resp)
	// Classification is a pure function of review text, so an unchanged
	// place produces an unchanged body; let clients short-circuit on it.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write analyze body")
	}
}

func (h *Handlers) relayReviews(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "place id is required")
		return
	}

	raw, err := h.Relay.RawDetails(r.Context(), domain.PlaceID(id))
	if err != nil {
		status, title := statusFor(err)
		writeProblem(w, status, title, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(raw); err != nil {
		log.Error().Err(err).Msg("failed to write relay body")
	}
}
