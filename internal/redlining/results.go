package redlining

import (
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// DefaultMatchedField is reported when the backend does not say which field
// contained the keyword.
const DefaultMatchedField = PropAreaDescription

// SearchResult describes one highlighted search match.
type SearchResult struct {
	ID           string `json:"id"`
	City         string `json:"city"`
	Name         string `json:"name"`
	Grade        string `json:"grade"`
	MatchedField string `json:"matchedField"`
}

// DetailedResults pairs highlight[i] with ids[i]. The pairing is positional:
// when an earlier identifier failed to match, later results carry the id of
// a different identifier than the one that matched them. matchedFields may be
// nil or shorter than ids.
func DetailedResults(highlight *geojson.FeatureCollection, ids []string, matchedFields []string) []SearchResult {
	if highlight == nil {
		return []SearchResult{}
	}

	n := len(highlight.Features)
	if len(ids) < n {
		n = len(ids)
	}

	results := make([]SearchResult, 0, n)
	for i := 0; i < n; i++ {
		f := highlight.Features[i]

		name := Name(f)
		if name == "" {
			name = fmt.Sprintf("Area %d", i)
		}
		field := DefaultMatchedField
		if i < len(matchedFields) && matchedFields[i] != "" {
			field = matchedFields[i]
		}

		results = append(results, SearchResult{
			ID:           ids[i],
			City:         City(f),
			Name:         name,
			Grade:        Grade(f),
			MatchedField: field,
		})
	}
	return results
}
