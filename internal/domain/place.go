package domain

// PlaceID is the provider's opaque identifier for a place. It is never
// parsed or synthesized locally.
type PlaceID string

type Place struct {
	ID     PlaceID `json:"id"`
	Name   string  `json:"name"`
	Rating float64 `json:"rating,omitempty"`
}

// Analysis is the result of one pipeline run: place metadata plus every
// fetched review with its sentiment (or the reason it has none).
type Analysis struct {
	ID      string           `json:"id"`
	Place   Place            `json:"place"`
	Reviews []EnrichedReview `json:"reviews"`
}
