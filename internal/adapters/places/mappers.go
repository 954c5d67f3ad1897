package places

import (
	"strconv"
	"strings"

	"place_pulse/internal/domain"
)

/********** alias registry (single source of truth) **********/

// Field names vary across provider payload versions; each domain field is
// looked up through its alias list, first non-empty wins.
var reviewAliases = map[string][]string{
	"author": {"author_name", "author", "name", "reviewer.name"},
	"text":   {"text", "review_text", "review", "comment"},
	"rating": {"rating", "score", "rating.value"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns the string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, key string) string {
	for _, p := range reviewAliases[key] {
		if s := strings.TrimSpace(lookupStr(m, p)); s != "" {
			return s
		}
	}
	return ""
}

// getFloatFlexible: number from several paths (float64/int/string like "4,0").
func getFloatFlexible(m map[string]any, paths ...string) (float64, bool) {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

/********** place mapper **********/

func mapPlace(id domain.PlaceID, res map[string]any) domain.Place {
	p := domain.Place{ID: id, Name: lookupStr(res, "name")}
	if f, ok := getFloatFlexible(res, "rating"); ok {
		p.Rating = f
	}
	return p
}

/********** reviews mapper **********/

func mapReviews(res map[string]any) []domain.Review {
	raw, _ := res["reviews"].([]any)
	out := make([]domain.Review, 0, len(raw))
	for _, it := range raw {
		r, ok := it.(map[string]any)
		if !ok {
			continue
		}
		rv := domain.Review{
			Author: firstNonEmptyAlias(r, "author"),
			Text:   firstNonEmptyAlias(r, "text"),
		}
		if f, ok := getFloatFlexible(r, reviewAliases["rating"]...); ok {
			rv.Rating = int(f)
		}
		out = append(out, rv)
	}
	return out
}
