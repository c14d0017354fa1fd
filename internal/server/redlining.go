package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/redliningmap/internal/geojson"
	"github.com/MeKo-Tech/redliningmap/internal/types"
)

// SearchResponse is the body of a successful keyword search.
type SearchResponse struct {
	Result           string   `json:"result"`
	Keyword          string   `json:"keyword"`
	MatchingFeatures []string `json:"matchingFeatures"`
	MatchedFields    []string `json:"matchedFields"`
	TotalMatches     int      `json:"totalMatches"`
}

// bboxFromQuery reads the four bbox parameters. Missing or unparseable values
// fall back to the world edges.
func bboxFromQuery(r *http.Request) types.BoundingBox {
	q := r.URL.Query()
	param := func(name string, fallback float64) float64 {
		v, err := strconv.ParseFloat(strings.TrimSpace(q.Get(name)), 64)
		if err != nil {
			return fallback
		}
		return v
	}

	return types.BoundingBox{
		MinLat: param("minLat", types.WorldBounds.MinLat),
		MinLng: param("minLng", types.WorldBounds.MinLng),
		MaxLat: param("maxLat", types.WorldBounds.MaxLat),
		MaxLng: param("maxLng", types.WorldBounds.MaxLng),
	}
}

func (s *Server) handleRedliningData(w http.ResponseWriter, r *http.Request) int {
	bbox := bboxFromQuery(r)

	body, hit, err := s.filtered(bbox)
	if err != nil {
		s.log().Error("failed to filter redlining data", "bbox", bbox.String(), "error", err)
		return s.writeError(w, http.StatusInternalServerError, err.Error())
	}
	if hit {
		s.metrics.CacheHitsTotal.Inc()
	} else {
		s.metrics.CacheMissesTotal.Inc()
	}
	return writeRaw(w, http.StatusOK, body)
}

// filtered returns the serialized collection for bbox, serving from the
// cache when possible.
func (s *Server) filtered(bbox types.BoundingBox) ([]byte, bool, error) {
	key := bbox.CacheKey()
	if body, ok := s.cache.Get(key); ok {
		return body, true, nil
	}

	body, err := geojson.ToGeoJSONBytes(s.dataset.Filter(bbox))
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode features: %w", err)
	}
	s.cache.Put(key, body)
	return body, false, nil
}

// Warm filters bbox and stores the result in the response cache.
func (s *Server) Warm(ctx context.Context, bbox types.BoundingBox) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	body, _, err := s.filtered(bbox)
	if err != nil {
		return 0, err
	}
	return len(body), nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) int {
	keyword := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("keyword")))
	if keyword == "" {
		return s.writeError(w, http.StatusBadRequest, "Search keyword is required")
	}

	matches := s.dataset.Search(keyword)
	resp := SearchResponse{
		Result:           "success",
		Keyword:          keyword,
		MatchingFeatures: make([]string, 0, len(matches)),
		MatchedFields:    make([]string, 0, len(matches)),
		TotalMatches:     len(matches),
	}
	for _, m := range matches {
		resp.MatchingFeatures = append(resp.MatchingFeatures, m.Identifier)
		resp.MatchedFields = append(resp.MatchedFields, m.MatchedField)
	}

	s.metrics.SearchMatches.Observe(float64(len(matches)))
	s.log().Info("keyword search", "keyword", keyword, "matches", len(matches))
	return s.writeJSON(w, http.StatusOK, resp)
}
