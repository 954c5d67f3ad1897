// internal/adapters/places/client.go
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"place_pulse/internal/adapters/observability"
	"place_pulse/internal/domain"
)

const maxBody = 4 << 20

// Client talks to the place-data provider's Find Place and Place Details
// endpoints. It performs no retries and no client-side rate limiting; a
// failed call surfaces immediately and retry policy stays with the caller.
type Client struct {
	base string
	hc   *http.Client
	key  string
}

func New(base, key string, timeout time.Duration) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if base == "" {
		base = "https://maps.googleapis.com/maps/api/place"
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: timeout},
		key:  key,
	}, nil
}

// ---- Public API ----

// Resolve implements domain.PlaceResolver: free-text name -> place id.
// The provider ranks candidates by relevance, so the first one wins.
func (c *Client) Resolve(ctx context.Context, query string) (domain.PlaceID, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("%w: empty place query", domain.ErrInvalidInput)
	}

	q := url.Values{}
	q.Set("input", query)
	q.Set("inputtype", "textquery")
	q.Set("fields", "place_id")

	body, err := c.get(ctx, "findplacefromtext", q)
	if err != nil {
		return "", err
	}
	out, err := decodeEnvelope(body)
	if err != nil {
		return "", err
	}

	cands, ok := out["candidates"].([]any)
	if !ok {
		return "", &domain.ProviderError{Status: http.StatusOK, Message: "response missing candidates"}
	}
	if len(cands) == 0 {
		return "", domain.ErrNotFound
	}
	first, _ := cands[0].(map[string]any)
	id := lookupStr(first, "place_id")
	if id == "" {
		return "", &domain.ProviderError{Status: http.StatusOK, Message: "candidate missing place_id"}
	}
	return domain.PlaceID(id), nil
}

// FetchReviews implements domain.ReviewFetcher. A place that exists but has
// no reviews yields an empty slice, not an error.
func (c *Client) FetchReviews(ctx context.Context, id domain.PlaceID) (domain.Place, []domain.Review, error) {
	if id == "" {
		return domain.Place{}, nil, fmt.Errorf("%w: empty place id", domain.ErrInvalidInput)
	}

	q := url.Values{}
	q.Set("place_id", string(id))
	q.Set("fields", "name,rating,reviews")

	body, err := c.get(ctx, "details", q)
	if err != nil {
		return domain.Place{}, nil, err
	}
	out, err := decodeEnvelope(body)
	if err != nil {
		return domain.Place{}, nil, err
	}

	res, ok := out["result"].(map[string]any)
	if !ok {
		return domain.Place{}, nil, &domain.ProviderError{Status: http.StatusOK, Message: "response missing result"}
	}
	return mapPlace(id, res), mapReviews(res), nil
}

// RawDetails returns the provider's details payload verbatim. Used by the
// pass-through relay endpoint, which must not reshape provider JSON. The
// envelope status is still checked so misses map to the error taxonomy
// instead of leaking as 200s.
func (c *Client) RawDetails(ctx context.Context, id domain.PlaceID) ([]byte, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty place id", domain.ErrInvalidInput)
	}
	q := url.Values{}
	q.Set("place_id", string(id))
	q.Set("fields", "name,rating,reviews")
	body, err := c.get(ctx, "details", q)
	if err != nil {
		return nil, err
	}
	if _, err := decodeEnvelope(body); err != nil {
		return nil, err
	}
	return body, nil
}

// ---- Internals ----

func (c *Client) get(ctx context.Context, endpoint string, q url.Values) ([]byte, error) {
	q.Set("key", c.key)
	u := fmt.Sprintf("%s/%s/json?%s", c.base, endpoint, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "place-pulse/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		observability.ObserveExternal("places", endpoint, 0, time.Since(start))
		return nil, &domain.ProviderError{Message: err.Error()}
	}
	defer resp.Body.Close()
	observability.ObserveExternal("places", endpoint, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &domain.ProviderError{Status: resp.StatusCode, Message: "read body: " + err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		snippet := body
		if len(snippet) > 4096 {
			snippet = snippet[:4096]
		}
		return nil, &domain.ProviderError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
		}
	}
	return body, nil
}

// decodeEnvelope parses a provider payload and folds its application-level
// status field into the error taxonomy. The provider reports misses as
// ZERO_RESULTS/NOT_FOUND inside a 200 response.
func decodeEnvelope(body []byte) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &domain.ProviderError{Status: http.StatusOK, Message: "malformed response: " + err.Error()}
	}
	status, _ := out["status"].(string)
	switch status {
	case "", "OK":
		return out, nil
	case "ZERO_RESULTS", "NOT_FOUND":
		return nil, domain.ErrNotFound
	default:
		msg := status
		if em := lookupStr(out, "error_message"); em != "" {
			msg += ": " + em
		}
		return nil, &domain.ProviderError{Status: http.StatusOK, Message: msg}
	}
}
