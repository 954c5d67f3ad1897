package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"place_pulse/internal/app"
	"place_pulse/internal/domain"
)

// ---- fakes ----

type fakeResolver struct {
	id    domain.PlaceID
	err   error
	calls int32
}

func (f *fakeResolver) Resolve(ctx context.Context, query string) (domain.PlaceID, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.id, f.err
}

type fakeFetcher struct {
	place   domain.Place
	reviews []domain.Review
	err     error
	calls   int32
}

func (f *fakeFetcher) FetchReviews(ctx context.Context, id domain.PlaceID) (domain.Place, []domain.Review, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.place, f.reviews, f.err
}

type classifierFunc func(ctx context.Context, text string) (domain.SentimentResult, error)

func (f classifierFunc) Classify(ctx context.Context, text string) (domain.SentimentResult, error) {
	return f(ctx, text)
}

func byText(results map[string]domain.SentimentResult) classifierFunc {
	return func(ctx context.Context, text string) (domain.SentimentResult, error) {
		r, ok := results[text]
		if !ok {
			return domain.SentimentResult{}, fmt.Errorf("%w: no result for %q", domain.ErrClassifier, text)
		}
		return r, nil
	}
}

// ---- tests ----

func TestAnalyzePlace_EnrichesInOrder(t *testing.T) {
	resolver := &fakeResolver{id: "p123"}
	fetcher := &fakeFetcher{
		place: domain.Place{ID: "p123", Name: "Ellie's Diner", Rating: 4.5},
		reviews: []domain.Review{
			{Author: "A", Text: "Great food", Rating: 5},
			{Author: "B", Text: "Too slow", Rating: 2},
		},
	}
	classifier := byText(map[string]domain.SentimentResult{
		"Great food": {Label: domain.SentimentPositive, Score: 0.91},
		"Too slow":   {Label: domain.SentimentNegative, Score: 0.78},
	})
	svc := app.NewAnalysisService(resolver, fetcher, classifier, 4)

	out, err := svc.AnalyzePlace(context.Background(), "Ellie's Diner")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.ID == "" {
		t.Fatalf("expected an analysis id")
	}
	if out.Place.Name != "Ellie's Diner" {
		t.Fatalf("unexpected place: %+v", out.Place)
	}
	if len(out.Reviews) != 2 {
		t.Fatalf("expected 2 enriched reviews, got %d", len(out.Reviews))
	}
	first, second := out.Reviews[0], out.Reviews[1]
	if first.Review.Author != "A" || first.Sentiment == nil ||
		first.Sentiment.Label != domain.SentimentPositive || first.Sentiment.Score != 0.91 {
		t.Fatalf("unexpected first entry: %+v", first)
	}
	if second.Review.Author != "B" || second.Sentiment == nil ||
		second.Sentiment.Label != domain.SentimentNegative || second.Sentiment.Score != 0.78 {
		t.Fatalf("unexpected second entry: %+v", second)
	}
}

func TestAnalyzePlace_EmptyQuery_TouchesNoPort(t *testing.T) {
	resolver := &fakeResolver{id: "p123"}
	fetcher := &fakeFetcher{}
	svc := app.NewAnalysisService(resolver, fetcher, byText(nil), 4)

	_, err := svc.AnalyzePlace(context.Background(), "   \t ")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if resolver.calls != 0 || fetcher.calls != 0 {
		t.Fatalf("expected no port calls, got resolver=%d fetcher=%d", resolver.calls, fetcher.calls)
	}
}

func TestAnalyzePlace_ResolveMissSkipsFetch(t *testing.T) {
	resolver := &fakeResolver{err: domain.ErrNotFound}
	fetcher := &fakeFetcher{}
	svc := app.NewAnalysisService(resolver, fetcher, byText(nil), 4)

	_, err := svc.AnalyzePlace(context.Background(), "nowhere")
	var perr *domain.PipelineError
	if !errors.As(err, &perr) || perr.Stage != "resolve" {
		t.Fatalf("expected resolve PipelineError, got %v", err)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected wrapped ErrNotFound, got %v", err)
	}
	if fetcher.calls != 0 {
		t.Fatalf("fetcher invoked %d times after failed resolve", fetcher.calls)
	}
}

func TestAnalyzePlace_FetchFailureIsFatal(t *testing.T) {
	resolver := &fakeResolver{id: "p123"}
	fetcher := &fakeFetcher{err: &domain.ProviderError{Status: 502, Message: "upstream down"}}
	svc := app.NewAnalysisService(resolver, fetcher, byText(nil), 4)

	_, err := svc.AnalyzePlace(context.Background(), "Ellie's Diner")
	var perr *domain.PipelineError
	if !errors.As(err, &perr) || perr.Stage != "fetch" {
		t.Fatalf("expected fetch PipelineError, got %v", err)
	}
	var prov *domain.ProviderError
	if !errors.As(err, &prov) {
		t.Fatalf("expected wrapped ProviderError, got %v", err)
	}
}

func TestAnalyzePlace_ZeroReviews(t *testing.T) {
	resolver := &fakeResolver{id: "p1"}
	fetcher := &fakeFetcher{place: domain.Place{ID: "p1", Name: "Quiet Cafe"}}
	svc := app.NewAnalysisService(resolver, fetcher, byText(nil), 4)

	out, err := svc.AnalyzePlace(context.Background(), "Quiet Cafe")
	if err != nil {
		t.Fatalf("expected success for zero reviews, got %v", err)
	}
	if len(out.Reviews) != 0 {
		t.Fatalf("expected empty result, got %d entries", len(out.Reviews))
	}
}

func TestAnalyzePlace_OneBadClassificationKeepsSiblings(t *testing.T) {
	reviews := make([]domain.Review, 5)
	results := map[string]domain.SentimentResult{}
	for i := range reviews {
		text := fmt.Sprintf("review %d", i)
		reviews[i] = domain.Review{Author: fmt.Sprintf("u%d", i), Text: text, Rating: 4}
		if i != 2 {
			results[text] = domain.SentimentResult{Label: domain.SentimentPositive, Score: 0.8}
		}
	}
	resolver := &fakeResolver{id: "p1"}
	fetcher := &fakeFetcher{place: domain.Place{ID: "p1"}, reviews: reviews}
	svc := app.NewAnalysisService(resolver, fetcher, byText(results), 4)

	out, err := svc.AnalyzePlace(context.Background(), "somewhere")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(out.Reviews) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(out.Reviews))
	}
	for i, er := range out.Reviews {
		if i == 2 {
			if er.Sentiment != nil || er.Error == "" {
				t.Fatalf("entry 2 should carry a failure, got %+v", er)
			}
			continue
		}
		if er.Sentiment == nil || er.Error != "" {
			t.Fatalf("entry %d should carry a sentiment, got %+v", i, er)
		}
	}
}

func TestAnalyzePlace_OrderSurvivesOutOfOrderCompletion(t *testing.T) {
	const n = 12
	reviews := make([]domain.Review, n)
	for i := range reviews {
		reviews[i] = domain.Review{Author: fmt.Sprintf("u%d", i), Text: fmt.Sprintf("review %d", i), Rating: 3}
	}
	resolver := &fakeResolver{id: "p1"}
	fetcher := &fakeFetcher{place: domain.Place{ID: "p1"}, reviews: reviews}

	// earlier reviews finish last
	var seq int32
	classifier := classifierFunc(func(ctx context.Context, text string) (domain.SentimentResult, error) {
		order := atomic.AddInt32(&seq, 1)
		time.Sleep(time.Duration(n-int(order)) * time.Millisecond)
		return domain.SentimentResult{Label: domain.SentimentNeutral, Score: 0.5}, nil
	})
	svc := app.NewAnalysisService(resolver, fetcher, classifier, n)

	out, err := svc.AnalyzePlace(context.Background(), "busy place")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	for i, er := range out.Reviews {
		if er.Review.Author != fmt.Sprintf("u%d", i) {
			t.Fatalf("entry %d out of order: %+v", i, er.Review)
		}
		if er.Sentiment == nil {
			t.Fatalf("entry %d missing sentiment", i)
		}
	}
}

func TestAnalyzePlace_Idempotent(t *testing.T) {
	resolver := &fakeResolver{id: "p123"}
	fetcher := &fakeFetcher{
		place:   domain.Place{ID: "p123", Name: "Ellie's Diner"},
		reviews: []domain.Review{{Author: "A", Text: "Great food", Rating: 5}},
	}
	classifier := byText(map[string]domain.SentimentResult{
		"Great food": {Label: domain.SentimentPositive, Score: 0.91},
	})
	svc := app.NewAnalysisService(resolver, fetcher, classifier, 2)

	a, err := svc.AnalyzePlace(context.Background(), "Ellie's Diner")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	b, err := svc.AnalyzePlace(context.Background(), "Ellie's Diner")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if *a.Reviews[0].Sentiment != *b.Reviews[0].Sentiment {
		t.Fatalf("expected identical sentiment across runs: %+v vs %+v",
			a.Reviews[0].Sentiment, b.Reviews[0].Sentiment)
	}
	// the id derives from the content, so the whole document is stable
	if a.ID != b.ID {
		t.Fatalf("expected a stable analysis id for an unchanged place: %s vs %s", a.ID, b.ID)
	}
}

func TestAnalyzePlace_CancelledCallerGetsNoPartialBatch(t *testing.T) {
	resolver := &fakeResolver{id: "p1"}
	fetcher := &fakeFetcher{
		place: domain.Place{ID: "p1"},
		reviews: []domain.Review{
			{Author: "A", Text: "one", Rating: 3},
			{Author: "B", Text: "two", Rating: 4},
		},
	}
	// classifications hang until the caller walks away
	classifier := classifierFunc(func(ctx context.Context, text string) (domain.SentimentResult, error) {
		<-ctx.Done()
		return domain.SentimentResult{}, ctx.Err()
	})
	svc := app.NewAnalysisService(resolver, fetcher, classifier, 2)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	out, err := svc.AnalyzePlace(ctx, "somewhere")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(out.Reviews) != 0 {
		t.Fatalf("cancelled caller received %d partial results", len(out.Reviews))
	}
}
