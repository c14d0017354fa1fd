// Package viewport owns the map view state and mediates every transition
// between the default view, a bounding box filter and a focused search
// result.
package viewport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/MeKo-Tech/redliningmap/internal/client"
	"github.com/MeKo-Tech/redliningmap/internal/redlining"
	"github.com/MeKo-Tech/redliningmap/internal/types"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Home view shown on start-up and after a reset.
const (
	HomeLatitude  = 41.8240
	HomeLongitude = -71.4128
	HomeZoom      = 12

	// FilterMaxZoom caps the zoom chosen for a bounding box filter.
	FilterMaxZoom = 12
	// FocusZoom is the zoom used when centering a search result.
	FocusZoom = redlining.MaxZoom
)

var (
	// ErrSuperseded is returned when a response arrives after a newer request
	// of the same kind was issued. The response is discarded.
	ErrSuperseded = errors.New("response superseded by a newer request")
	// ErrUnknownResult is returned when focusing an id that is not part of the
	// current search results.
	ErrUnknownResult = errors.New("unknown search result")
)

// DataSource is the geodata backend.
type DataSource interface {
	FetchRedliningData(ctx context.Context, bbox *types.BoundingBox) (*geojson.FeatureCollection, error)
	Search(ctx context.Context, keyword string) (*client.SearchResponse, error)
}

// State is the exclusive view state. Loading is tracked separately.
type State int

const (
	Default State = iota
	Filtered
	SearchFocused
)

func (s State) String() string {
	switch s {
	case Default:
		return "default"
	case Filtered:
		return "filtered"
	case SearchFocused:
		return "search-focused"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// NoticeKind classifies a user-visible notice.
type NoticeKind int

const (
	NoticeNone NoticeKind = iota
	// NoticeInfo reports a normal outcome such as an empty result.
	NoticeInfo
	// NoticeValidation reports rejected input. No request was made.
	NoticeValidation
	// NoticeError reports a failed backend call.
	NoticeError
)

// Notice is the latest user-visible message.
type Notice struct {
	Kind    NoticeKind
	Message string
}

// Snapshot is a consistent copy of the controller state. The feature
// collections are shared and must not be modified.
type Snapshot struct {
	State         State
	Loading       bool
	View          types.ViewState
	Filter        *types.BoundingBox
	FilterPolygon orb.Polygon
	Base          *geojson.FeatureCollection
	Highlight     *geojson.FeatureCollection
	Keyword       string
	Identifiers   []string
	MatchedFields []string
	Results       []redlining.SearchResult
	Selected      string
	Notice        Notice
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithCorrelator replaces the default greedy correlator.
func WithCorrelator(corr *redlining.Correlator) Option {
	return func(c *Controller) { c.correlator = corr }
}

// Controller is safe for concurrent use. Backend calls are made without
// holding the lock; each one carries a generation number and its response is
// applied only if no newer call of the same kind was issued meanwhile.
type Controller struct {
	source     DataSource
	correlator *redlining.Correlator
	logger     *slog.Logger

	mu        sync.Mutex
	state     State
	view      types.ViewState
	filter    *types.BoundingBox
	base      *geojson.FeatureCollection
	highlight *geojson.FeatureCollection
	keyword   string
	ids       []string
	fields    []string
	results   []redlining.SearchResult
	selected  string
	notice    Notice
	inflight  int
	fetchGen  uint64
	searchGen uint64
}

// NewController creates a controller in the default state at the home view.
// Call Load to fetch the initial collection.
func NewController(source DataSource, opts ...Option) *Controller {
	c := &Controller{
		source:     source,
		correlator: redlining.NewCorrelator(),
		state:      Default,
		view:       homeView(),
		base:       geojson.NewFeatureCollection(),
		highlight:  geojson.NewFeatureCollection(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func homeView() types.ViewState {
	return types.ViewState{Longitude: HomeLongitude, Latitude: HomeLatitude, Zoom: HomeZoom}
}

// Load fetches the base collection for the current filter, or the whole
// dataset when no filter is active.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	var bbox *types.BoundingBox
	if c.filter != nil {
		b := *c.filter
		bbox = &b
	}
	c.mu.Unlock()

	return c.fetch(ctx, bbox)
}

// ApplyFilter validates bbox, centers the view on it and re-fetches the base
// collection scoped to it. An invalid box changes nothing and makes no
// request.
func (c *Controller) ApplyFilter(ctx context.Context, bbox types.BoundingBox) error {
	if err := bbox.Validate(); err != nil {
		c.mu.Lock()
		c.notice = Notice{Kind: NoticeValidation, Message: "Invalid bounding box: minimum values must be below maximum values"}
		c.mu.Unlock()
		c.log().Warn("rejected bounding box", "bbox", bbox.String(), "error", err)
		return err
	}

	c.mu.Lock()
	c.filter = &bbox
	c.state = Filtered
	center := bbox.Center()
	zoom := min(FilterMaxZoom, redlining.ZoomFor(bbox))
	c.view = types.ViewState{Longitude: center.Lng, Latitude: center.Lat, Zoom: float64(zoom)}
	c.mu.Unlock()

	c.log().Info("applied bounding box filter", "bbox", bbox.String(), "zoom", zoom)
	return c.fetch(ctx, &bbox)
}

// Search runs a keyword search and correlates the returned identifiers with
// the loaded collection. A blank keyword is rejected without a request.
func (c *Controller) Search(ctx context.Context, keyword string) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		c.mu.Lock()
		c.notice = Notice{Kind: NoticeValidation, Message: "Please enter a search keyword"}
		c.mu.Unlock()
		return client.ErrEmptyKeyword
	}

	c.mu.Lock()
	c.searchGen++
	gen := c.searchGen
	c.inflight++
	c.mu.Unlock()
	defer c.finish()

	resp, err := c.source.Search(ctx, keyword)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.searchGen {
		c.log().Debug("discarding stale search response", "keyword", keyword, "generation", gen)
		return ErrSuperseded
	}
	if err != nil {
		c.notice = Notice{Kind: NoticeError, Message: "Search failed, please try again"}
		c.log().Error("search failed", "keyword", keyword, "error", err)
		return err
	}
	if resp == nil {
		resp = &client.SearchResponse{}
	}

	c.keyword = keyword
	c.ids = append([]string(nil), resp.MatchingFeatures...)
	c.fields = append([]string(nil), resp.MatchedFields...)
	c.selected = ""
	if c.state == SearchFocused {
		c.state = c.baseState()
	}
	c.recomputeHighlight()

	if len(c.ids) == 0 {
		c.notice = Notice{Kind: NoticeInfo, Message: fmt.Sprintf("No results found for %q", keyword)}
	} else {
		c.notice = Notice{Kind: NoticeInfo, Message: fmt.Sprintf("Found %d results, %d on the map", len(c.ids), len(c.highlight.Features))}
	}
	c.log().Info("search complete", "keyword", keyword, "matches", len(c.ids), "highlighted", len(c.highlight.Features))
	return nil
}

// FocusOnResult centers the view on the search result id. The feature is
// taken from the highlight collection at the position id has in the
// identifier list. The view is left unchanged when no focus point exists.
func (c *Controller) FocusOnResult(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pos := -1
	for i, v := range c.ids {
		if v == id {
			pos = i
			break
		}
	}
	if pos < 0 || pos >= len(c.highlight.Features) {
		return fmt.Errorf("%w: %s", ErrUnknownResult, id)
	}

	f := c.highlight.Features[pos]
	pt, err := redlining.FocusPoint(f.Geometry)
	if err != nil {
		c.log().Warn("cannot focus search result", "id", id, "error", err)
		return fmt.Errorf("failed to focus %s: %w", id, err)
	}

	c.state = SearchFocused
	c.selected = id
	c.view = types.ViewState{Longitude: pt.Lng, Latitude: pt.Lat, Zoom: FocusZoom}
	return nil
}

// ResetView clears filter and search, returns to the home view and fetches
// the whole dataset.
func (c *Controller) ResetView(ctx context.Context) error {
	c.mu.Lock()
	c.filter = nil
	c.clearSearchLocked()
	c.state = Default
	c.view = homeView()
	c.notice = Notice{}
	c.mu.Unlock()

	return c.fetch(ctx, nil)
}

// ClearSearch drops the search results and selection. Filter and view are
// kept.
func (c *Controller) ClearSearch() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearSearchLocked()
	if c.state == SearchFocused {
		c.state = c.baseState()
	}
}

// Move records a view change made on the map surface.
func (c *Controller) Move(view types.ViewState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = view
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		State:         c.state,
		Loading:       c.inflight > 0,
		View:          c.view,
		Base:          c.base,
		Highlight:     c.highlight,
		Keyword:       c.keyword,
		Identifiers:   append([]string(nil), c.ids...),
		MatchedFields: append([]string(nil), c.fields...),
		Results:       append([]redlining.SearchResult(nil), c.results...),
		Selected:      c.selected,
		Notice:        c.notice,
	}
	if c.filter != nil {
		b := *c.filter
		s.Filter = &b
		s.FilterPolygon = b.Polygon()
	}
	return s
}

// fetch replaces the base collection with the backend response for bbox.
func (c *Controller) fetch(ctx context.Context, bbox *types.BoundingBox) error {
	c.mu.Lock()
	c.fetchGen++
	gen := c.fetchGen
	c.inflight++
	c.mu.Unlock()
	defer c.finish()

	fc, err := c.source.FetchRedliningData(ctx, bbox)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.fetchGen {
		c.log().Debug("discarding stale redlining data", "generation", gen, "current", c.fetchGen)
		return ErrSuperseded
	}
	if err != nil {
		c.notice = Notice{Kind: NoticeError, Message: "Failed to load redlining data"}
		c.log().Error("failed to fetch redlining data", "error", err)
		return err
	}
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}

	c.base = fc
	c.recomputeHighlight()
	if len(fc.Features) == 0 {
		c.notice = Notice{Kind: NoticeInfo, Message: "No redlining areas found in this area"}
	}
	c.log().Debug("loaded redlining data", "features", len(fc.Features))
	return nil
}

func (c *Controller) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
}

// recomputeHighlight correlates the identifiers with the base collection.
// Caller holds mu.
func (c *Controller) recomputeHighlight() {
	if len(c.ids) == 0 {
		c.highlight = geojson.NewFeatureCollection()
		c.results = nil
		return
	}
	c.highlight = c.correlator.Correlate(c.base, c.ids)
	c.results = redlining.DetailedResults(c.highlight, c.ids, c.fields)
}

// clearSearchLocked resets search state and discards pending searches.
// Caller holds mu.
func (c *Controller) clearSearchLocked() {
	c.searchGen++
	c.keyword = ""
	c.ids = nil
	c.fields = nil
	c.results = nil
	c.selected = ""
	c.highlight = geojson.NewFeatureCollection()
}

func (c *Controller) baseState() State {
	if c.filter != nil {
		return Filtered
	}
	return Default
}

func (c *Controller) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}
