package domain

type Review struct {
	Author string `json:"author"`
	Text   string `json:"text"`
	Rating int    `json:"rating"` // 1..5 as reported by the provider
}

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "POSITIVE"
	SentimentNegative SentimentLabel = "NEGATIVE"
	SentimentNeutral  SentimentLabel = "NEUTRAL"
)

type SentimentResult struct {
	Label SentimentLabel `json:"label"`
	Score float64        `json:"score"` // confidence in [0,1]
}

// EnrichedReview pairs a review with its classification outcome.
// Sentiment is nil exactly when Error is non-empty; a failed classification
// keeps its slot so the enriched list always matches the fetched list in
// length and order.
type EnrichedReview struct {
	Review    Review           `json:"review"`
	Sentiment *SentimentResult `json:"sentiment,omitempty"`
	Error     string           `json:"error,omitempty"`
}
