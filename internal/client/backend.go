// Package client talks to the redlining backend over HTTP.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/redliningmap/internal/types"
	"github.com/paulmach/orb/geojson"
)

// DefaultBaseURL is the backend address used when none is configured.
const DefaultBaseURL = "http://localhost:3232"

// ErrEmptyKeyword is returned by Search for a blank keyword. No request is
// made in that case.
var ErrEmptyKeyword = errors.New("search keyword is required")

// StatusError is returned for non-2xx backend responses.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Endpoint, e.StatusCode)
}

// SearchResponse is the decoded keyword search reply.
type SearchResponse struct {
	Result           string   `json:"result"`
	Keyword          string   `json:"keyword"`
	MatchingFeatures []string `json:"matchingFeatures"`
	MatchedFields    []string `json:"matchedFields"`
	TotalMatches     int      `json:"totalMatches"`
	Message          string   `json:"message,omitempty"`
}

// Backend is an HTTP client for the redlining backend.
type Backend struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Backend) { b.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// NewBackend creates a client for the backend at baseURL.
func NewBackend(baseURL string, opts ...Option) *Backend {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	b := &Backend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// FetchRedliningData fetches the features inside bbox. A nil bbox fetches the
// whole dataset; only the parameters present are sent.
func (b *Backend) FetchRedliningData(ctx context.Context, bbox *types.BoundingBox) (*geojson.FeatureCollection, error) {
	params := url.Values{}
	if bbox != nil {
		params.Set("minLat", formatCoord(bbox.MinLat))
		params.Set("minLng", formatCoord(bbox.MinLng))
		params.Set("maxLat", formatCoord(bbox.MaxLat))
		params.Set("maxLng", formatCoord(bbox.MaxLng))
	}

	body, err := b.get(ctx, "get-redlining-data", params)
	if err != nil {
		return nil, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode redlining data: %w", err)
	}
	b.log().Debug("fetched redlining data", "features", len(fc.Features), "filtered", bbox != nil)
	return fc, nil
}

// Search runs a keyword search. A reply whose result is not "success" is
// returned as an error.
func (b *Backend) Search(ctx context.Context, keyword string) (*SearchResponse, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}

	body, err := b.get(ctx, "search-redlining", url.Values{"keyword": {keyword}})
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	if resp.Result != "success" {
		return nil, fmt.Errorf("search failed: %s", resp.Message)
	}
	if resp.MatchingFeatures == nil {
		resp.MatchingFeatures = []string{}
	}
	return &resp, nil
}

// get performs a GET request and returns the body of a 2xx response.
func (b *Backend) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	u := b.baseURL + "/" + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &msg) == nil {
			se.Message = msg.Message
		}
		return nil, se
	}
	return body, nil
}

func (b *Backend) log() *slog.Logger {
	if b.logger != nil {
		return b.logger
	}
	return slog.Default()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
