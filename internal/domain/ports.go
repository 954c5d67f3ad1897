package domain

import "context"

// PlaceResolver turns a free-text place name into the provider's identifier.
// The provider's first candidate wins; there is no local re-ranking.
type PlaceResolver interface {
	Resolve(ctx context.Context, query string) (PlaceID, error)
}

// ReviewFetcher returns basic place metadata and that place's reviews.
// A place with zero reviews is a valid result, not an error.
type ReviewFetcher interface {
	FetchReviews(ctx context.Context, id PlaceID) (Place, []Review, error)
}

type SentimentClassifier interface {
	Classify(ctx context.Context, text string) (SentimentResult, error)
}
