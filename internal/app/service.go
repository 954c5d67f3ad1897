package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"place_pulse/internal/domain"
)

// AnalysisService is the enrichment pipeline: resolve a place name, fetch
// its reviews, classify every review concurrently, and return the enriched
// list in the fetcher's order. Resolution and fetch failures are fatal to
// the request; a single review's classification failure only marks that
// review's slot.
type AnalysisService struct {
	resolver   domain.PlaceResolver
	fetcher    domain.ReviewFetcher
	classifier domain.SentimentClassifier
	workers    int
}

func NewAnalysisService(r domain.PlaceResolver, f domain.ReviewFetcher, c domain.SentimentClassifier, workers int) *AnalysisService {
	if workers <= 0 {
		workers = 8
	}
	return &AnalysisService{resolver: r, fetcher: f, classifier: c, workers: workers}
}

var analysisNS = uuid.NewSHA1(uuid.NameSpaceURL, []byte("place_pulse/analysis"))

// analysisID is a pure function of the place and its review texts, so an
// unchanged place yields an unchanged document. Conditional requests depend
// on this: a random per-run id would break ETag matching.
func analysisID(id domain.PlaceID, reviews []domain.Review) string {
	sig := make([]byte, 0, 64)
	sig = append(sig, string(id)...)
	for _, rv := range reviews {
		sig = append(sig, 0)
		sig = append(sig, rv.Text...)
	}
	return uuid.NewSHA1(analysisNS, sig).String()
}

func (s *AnalysisService) AnalyzePlace(ctx context.Context, name string) (domain.Analysis, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		// caller error; no network call is issued
		return domain.Analysis{}, fmt.Errorf("%w: empty place name", domain.ErrInvalidInput)
	}

	// 1) Resolve name -> id. Without a place there is nothing to enrich.
	id, err := s.resolver.Resolve(ctx, name)
	if err != nil {
		return domain.Analysis{}, &domain.PipelineError{Stage: "resolve", Err: err}
	}

	// 2) Fetch metadata + reviews. Zero reviews is a valid terminal state.
	place, reviews, err := s.fetcher.FetchReviews(ctx, id)
	if err != nil {
		return domain.Analysis{}, &domain.PipelineError{Stage: "fetch", Err: err}
	}

	out := domain.Analysis{
		ID:      analysisID(place.ID, reviews),
		Place:   place,
		Reviews: make([]domain.EnrichedReview, len(reviews)),
	}
	if len(reviews) == 0 {
		return out, nil
	}

	// 3) Fan out one classification per review. Workers write into their
	// pre-sized slot by index and never return an error, so one bad
	// inference call cannot cancel or discard its siblings.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, rv := range reviews {
		i, rv := i, rv
		out.Reviews[i].Review = rv
		g.Go(func() error {
			res, cerr := s.classifier.Classify(gctx, rv.Text)
			if cerr != nil {
				log.Warn().
					Str("analysis", out.ID).
					Str("place", string(place.ID)).
					Int("review", i).
					Err(cerr).
					Msg("classification failed")
				out.Reviews[i].Error = cerr.Error()
				return nil
			}
			out.Reviews[i].Sentiment = &res
			return nil
		})
	}
	_ = g.Wait()

	// An abandoned caller gets no partial batch.
	if err := ctx.Err(); err != nil {
		return domain.Analysis{}, err
	}

	log.Info().
		Str("analysis", out.ID).
		Str("place", string(place.ID)).
		Int("reviews", len(out.Reviews)).
		Msg("analysis complete")
	return out, nil
}
