package viewport

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/MeKo-Tech/redliningmap/internal/client"
	"github.com/MeKo-Tech/redliningmap/internal/redlining"
	"github.com/MeKo-Tech/redliningmap/internal/types"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu          sync.Mutex
	fetchCalls  []*types.BoundingBox
	searchCalls []string

	fetch  func(ctx context.Context, bbox *types.BoundingBox) (*geojson.FeatureCollection, error)
	search func(ctx context.Context, keyword string) (*client.SearchResponse, error)
}

func (f *fakeSource) FetchRedliningData(ctx context.Context, bbox *types.BoundingBox) (*geojson.FeatureCollection, error) {
	f.mu.Lock()
	f.fetchCalls = append(f.fetchCalls, bbox)
	f.mu.Unlock()
	return f.fetch(ctx, bbox)
}

func (f *fakeSource) Search(ctx context.Context, keyword string) (*client.SearchResponse, error) {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, keyword)
	f.mu.Unlock()
	return f.search(ctx, keyword)
}

func (f *fakeSource) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetchCalls)
}

func feature(city, grade string, ring orb.Ring) *geojson.Feature {
	f := geojson.NewFeature(orb.MultiPolygon{orb.Polygon{ring}})
	f.Properties[redlining.PropCity] = city
	f.Properties[redlining.PropGrade] = grade
	return f
}

var providenceD = orb.Ring{{-71.42, 41.81}, {-71.40, 41.81}, {-71.40, 41.83}, {-71.42, 41.81}}

// providence returns the two-feature collection {Providence A, Providence D}.
func providence() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Append(feature("Providence", "A", orb.Ring{{-71.5, 41.8}, {-71.45, 41.8}, {-71.45, 41.85}, {-71.5, 41.8}}))
	fc.Append(feature("Providence", "D", providenceD))
	return fc
}

func staticSource(fc *geojson.FeatureCollection, results map[string][]string) *fakeSource {
	return &fakeSource{
		fetch: func(context.Context, *types.BoundingBox) (*geojson.FeatureCollection, error) {
			return fc, nil
		},
		search: func(_ context.Context, keyword string) (*client.SearchResponse, error) {
			ids := results[keyword]
			if ids == nil {
				ids = []string{}
			}
			return &client.SearchResponse{Result: "success", Keyword: keyword, MatchingFeatures: ids, TotalMatches: len(ids)}, nil
		},
	}
}

func TestNewControllerStartsAtHome(t *testing.T) {
	c := NewController(staticSource(providence(), nil))
	s := c.Snapshot()

	assert.Equal(t, Default, s.State)
	assert.False(t, s.Loading)
	assert.Equal(t, types.ViewState{Longitude: HomeLongitude, Latitude: HomeLatitude, Zoom: HomeZoom}, s.View)
	assert.Nil(t, s.Filter)
	assert.Empty(t, s.Base.Features)
	assert.Empty(t, s.Highlight.Features)
}

func TestLoad(t *testing.T) {
	src := staticSource(providence(), nil)
	c := NewController(src)

	require.NoError(t, c.Load(context.Background()))

	s := c.Snapshot()
	assert.Len(t, s.Base.Features, 2)
	require.Len(t, src.fetchCalls, 1)
	assert.Nil(t, src.fetchCalls[0], "initial load is unscoped")
}

func TestApplyFilter(t *testing.T) {
	src := staticSource(providence(), nil)
	c := NewController(src)

	bbox := types.BoundingBox{MinLat: 40, MinLng: -73, MaxLat: 43, MaxLng: -70}
	require.NoError(t, c.ApplyFilter(context.Background(), bbox))

	s := c.Snapshot()
	assert.Equal(t, Filtered, s.State)
	assert.Equal(t, types.ViewState{Longitude: -71.5, Latitude: 41.5, Zoom: 7}, s.View)
	require.NotNil(t, s.Filter)
	assert.Equal(t, bbox, *s.Filter)
	assert.NotEmpty(t, s.FilterPolygon)

	require.Len(t, src.fetchCalls, 1)
	require.NotNil(t, src.fetchCalls[0])
	assert.Equal(t, bbox, *src.fetchCalls[0])
}

func TestApplyFilterCapsZoom(t *testing.T) {
	c := NewController(staticSource(providence(), nil))

	require.NoError(t, c.ApplyFilter(context.Background(), types.BoundingBox{MinLat: 41.81, MinLng: -71.42, MaxLat: 41.82, MaxLng: -71.41}))
	assert.Equal(t, float64(FilterMaxZoom), c.Snapshot().View.Zoom)
}

func TestApplyFilterRejectsInvalidBBox(t *testing.T) {
	src := staticSource(providence(), nil)
	c := NewController(src)

	err := c.ApplyFilter(context.Background(), types.BoundingBox{MinLat: 42, MinLng: -72, MaxLat: 41, MaxLng: -71})
	assert.ErrorIs(t, err, types.ErrInvalidBoundingBox)

	s := c.Snapshot()
	assert.Equal(t, 0, src.fetchCount(), "no network call")
	assert.Equal(t, Default, s.State)
	assert.Nil(t, s.Filter)
	assert.Equal(t, NoticeValidation, s.Notice.Kind)
	assert.Equal(t, float64(HomeZoom), s.View.Zoom)
}

func TestSearchAndFocusProvidence(t *testing.T) {
	base := providence()
	c := NewController(staticSource(base, map[string][]string{"railroad": {"Providence-D-1"}}))
	ctx := context.Background()

	require.NoError(t, c.Load(ctx))
	require.NoError(t, c.Search(ctx, "railroad"))

	s := c.Snapshot()
	require.Len(t, s.Highlight.Features, 1)
	assert.Same(t, base.Features[1], s.Highlight.Features[0])
	require.Len(t, s.Results, 1)
	assert.Equal(t, redlining.SearchResult{
		ID:           "Providence-D-1",
		City:         "Providence",
		Name:         "Area 0",
		Grade:        "D",
		MatchedField: redlining.DefaultMatchedField,
	}, s.Results[0])
	assert.Equal(t, NoticeInfo, s.Notice.Kind)

	require.NoError(t, c.FocusOnResult("Providence-D-1"))

	s = c.Snapshot()
	assert.Equal(t, SearchFocused, s.State)
	assert.Equal(t, "Providence-D-1", s.Selected)
	assert.InDelta(t, 41.815, s.View.Latitude, 1e-9)
	assert.InDelta(t, -71.41, s.View.Longitude, 1e-9)
	assert.Equal(t, float64(FocusZoom), s.View.Zoom)
}

func TestSearchEmptyKeyword(t *testing.T) {
	src := staticSource(providence(), nil)
	c := NewController(src)

	assert.ErrorIs(t, c.Search(context.Background(), "  "), client.ErrEmptyKeyword)
	assert.Empty(t, src.searchCalls)
	assert.Equal(t, NoticeValidation, c.Snapshot().Notice.Kind)
}

func TestSearchNoResults(t *testing.T) {
	c := NewController(staticSource(providence(), nil))
	ctx := context.Background()

	require.NoError(t, c.Load(ctx))
	require.NoError(t, c.Search(ctx, "nonexistentkeyword"))

	s := c.Snapshot()
	assert.Empty(t, s.Highlight.Features)
	assert.Empty(t, s.Results)
	assert.Equal(t, Notice{Kind: NoticeInfo, Message: `No results found for "nonexistentkeyword"`}, s.Notice)
}

func TestSearchErrorKeepsPreviousResults(t *testing.T) {
	src := staticSource(providence(), map[string][]string{"railroad": {"Providence-D-1"}})
	c := NewController(src)
	ctx := context.Background()

	require.NoError(t, c.Load(ctx))
	require.NoError(t, c.Search(ctx, "railroad"))

	boom := errors.New("backend down")
	src.search = func(context.Context, string) (*client.SearchResponse, error) { return nil, boom }

	assert.ErrorIs(t, c.Search(ctx, "housing"), boom)

	s := c.Snapshot()
	assert.Equal(t, "railroad", s.Keyword)
	assert.Len(t, s.Highlight.Features, 1)
	assert.Equal(t, NoticeError, s.Notice.Kind)
	assert.False(t, s.Loading)
}

func TestSearchNilResponseIsEmptyResult(t *testing.T) {
	src := staticSource(providence(), nil)
	src.search = func(context.Context, string) (*client.SearchResponse, error) { return nil, nil }
	c := NewController(src)
	ctx := context.Background()

	require.NoError(t, c.Load(ctx))
	require.NoError(t, c.Search(ctx, "railroad"))

	s := c.Snapshot()
	assert.Empty(t, s.Identifiers)
	assert.Empty(t, s.Highlight.Features)
	assert.Equal(t, NoticeInfo, s.Notice.Kind)
	assert.False(t, s.Loading)
}

func TestDuplicateIdentifiers(t *testing.T) {
	c := NewController(staticSource(providence(), map[string][]string{"park": {"Providence-A-0", "Providence-A-0"}}))
	ctx := context.Background()

	require.NoError(t, c.Load(ctx))
	require.NoError(t, c.Search(ctx, "park"))

	s := c.Snapshot()
	assert.Len(t, s.Identifiers, 2)
	assert.Len(t, s.Highlight.Features, 1)
	assert.Len(t, s.Results, 1)
}

func TestFocusOnResultEmptyRing(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(feature("Providence", "B", orb.Ring{}))
	c := NewController(staticSource(fc, map[string][]string{"empty": {"Providence-B-0"}}))
	ctx := context.Background()

	require.NoError(t, c.Load(ctx))
	require.NoError(t, c.Search(ctx, "empty"))
	before := c.Snapshot()

	err := c.FocusOnResult("Providence-B-0")
	assert.ErrorIs(t, err, redlining.ErrEmptyRing)

	after := c.Snapshot()
	assert.Equal(t, before.View, after.View)
	assert.Equal(t, Default, after.State)
	assert.Empty(t, after.Selected)
}

func TestFocusOnUnknownResult(t *testing.T) {
	c := NewController(staticSource(providence(), map[string][]string{"x": {"Boston-A-3"}}))
	ctx := context.Background()

	require.NoError(t, c.Load(ctx))
	require.NoError(t, c.Search(ctx, "x"))

	assert.ErrorIs(t, c.FocusOnResult("Providence-D-1"), ErrUnknownResult)
	assert.ErrorIs(t, c.FocusOnResult("Boston-A-3"), ErrUnknownResult, "identifier without a highlighted feature")
}

func TestExactIndexCorrelator(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(feature("Providence", "D", providenceD))
	fc.Append(feature("Providence", "D", providenceD))

	c := NewController(
		staticSource(fc, map[string][]string{"railroad": {"Providence-D-1"}}),
		WithCorrelator(redlining.NewCorrelator(redlining.WithExactIndex())),
	)
	ctx := context.Background()

	require.NoError(t, c.Load(ctx))
	require.NoError(t, c.Search(ctx, "railroad"))
	assert.Same(t, fc.Features[1], c.Snapshot().Highlight.Features[0])
}

func TestClearSearchKeepsFilterAndView(t *testing.T) {
	c := NewController(staticSource(providence(), map[string][]string{"railroad": {"Providence-D-1"}}))
	ctx := context.Background()

	bbox := types.BoundingBox{MinLat: 41, MinLng: -72, MaxLat: 42, MaxLng: -71}
	require.NoError(t, c.ApplyFilter(ctx, bbox))
	require.NoError(t, c.Search(ctx, "railroad"))
	require.NoError(t, c.FocusOnResult("Providence-D-1"))
	view := c.Snapshot().View

	c.ClearSearch()

	s := c.Snapshot()
	assert.Equal(t, Filtered, s.State)
	assert.Equal(t, view, s.View)
	require.NotNil(t, s.Filter)
	assert.Equal(t, bbox, *s.Filter)
	assert.Empty(t, s.Identifiers)
	assert.Empty(t, s.Highlight.Features)
	assert.Empty(t, s.Results)
	assert.Empty(t, s.Selected)
	assert.Empty(t, s.Keyword)
}

func TestResetView(t *testing.T) {
	src := staticSource(providence(), map[string][]string{"railroad": {"Providence-D-1"}})
	c := NewController(src)
	ctx := context.Background()

	require.NoError(t, c.ApplyFilter(ctx, types.BoundingBox{MinLat: 41, MinLng: -72, MaxLat: 42, MaxLng: -71}))
	require.NoError(t, c.Search(ctx, "railroad"))
	require.NoError(t, c.FocusOnResult("Providence-D-1"))

	require.NoError(t, c.ResetView(ctx))

	s := c.Snapshot()
	assert.Equal(t, Default, s.State)
	assert.Equal(t, types.ViewState{Longitude: HomeLongitude, Latitude: HomeLatitude, Zoom: HomeZoom}, s.View)
	assert.Nil(t, s.Filter)
	assert.Nil(t, s.FilterPolygon)
	assert.Empty(t, s.Identifiers)
	assert.Empty(t, s.Highlight.Features)

	require.Len(t, src.fetchCalls, 2)
	assert.Nil(t, src.fetchCalls[1], "reset re-fetches unscoped")
}

func TestHighlightRecomputedOnReload(t *testing.T) {
	src := staticSource(providence(), map[string][]string{"railroad": {"Providence-D-1"}})
	c := NewController(src)
	ctx := context.Background()

	require.NoError(t, c.Load(ctx))
	require.NoError(t, c.Search(ctx, "railroad"))
	require.Len(t, c.Snapshot().Highlight.Features, 1)

	onlyA := geojson.NewFeatureCollection()
	onlyA.Append(providence().Features[0])
	src.fetch = func(context.Context, *types.BoundingBox) (*geojson.FeatureCollection, error) { return onlyA, nil }

	require.NoError(t, c.ApplyFilter(ctx, types.BoundingBox{MinLat: 41.79, MinLng: -71.51, MaxLat: 41.86, MaxLng: -71.44}))

	s := c.Snapshot()
	assert.Equal(t, []string{"Providence-D-1"}, s.Identifiers)
	assert.Empty(t, s.Highlight.Features)
	assert.Empty(t, s.Results)
}

func TestFetchErrorKeepsBase(t *testing.T) {
	src := staticSource(providence(), nil)
	c := NewController(src)
	ctx := context.Background()

	require.NoError(t, c.Load(ctx))

	boom := errors.New("connection refused")
	src.fetch = func(context.Context, *types.BoundingBox) (*geojson.FeatureCollection, error) { return nil, boom }

	assert.ErrorIs(t, c.Load(ctx), boom)

	s := c.Snapshot()
	assert.Len(t, s.Base.Features, 2)
	assert.Equal(t, NoticeError, s.Notice.Kind)
	assert.False(t, s.Loading, "loading is cleared on failure")
}

func TestEmptyCollectionNotice(t *testing.T) {
	c := NewController(staticSource(geojson.NewFeatureCollection(), nil))

	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, NoticeInfo, c.Snapshot().Notice.Kind)
}

func TestStaleFetchIsDiscarded(t *testing.T) {
	stale := providence()
	fresh := geojson.NewFeatureCollection()
	fresh.Append(feature("Boston", "C", providenceD))

	started := make(chan struct{})
	release := make(chan struct{})
	src := staticSource(nil, nil)
	src.fetch = func(_ context.Context, bbox *types.BoundingBox) (*geojson.FeatureCollection, error) {
		if bbox == nil {
			close(started)
			<-release
			return stale, nil
		}
		return fresh, nil
	}
	c := NewController(src)
	ctx := context.Background()

	errCh := make(chan error, 1)
	go func() { errCh <- c.Load(ctx) }()
	<-started

	assert.True(t, c.Snapshot().Loading)
	require.NoError(t, c.ApplyFilter(ctx, types.BoundingBox{MinLat: 41, MinLng: -72, MaxLat: 43, MaxLng: -70}))
	assert.True(t, c.Snapshot().Loading, "first fetch still in flight")

	close(release)
	assert.ErrorIs(t, <-errCh, ErrSuperseded)

	s := c.Snapshot()
	assert.Same(t, fresh, s.Base)
	assert.False(t, s.Loading)
}

func TestClearSearchDiscardsPendingSearch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	src := staticSource(providence(), nil)
	src.search = func(context.Context, string) (*client.SearchResponse, error) {
		close(started)
		<-release
		return &client.SearchResponse{Result: "success", MatchingFeatures: []string{"Providence-D-1"}}, nil
	}
	c := NewController(src)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))

	errCh := make(chan error, 1)
	go func() { errCh <- c.Search(ctx, "railroad") }()
	<-started

	c.ClearSearch()
	close(release)

	assert.ErrorIs(t, <-errCh, ErrSuperseded)
	assert.Empty(t, c.Snapshot().Identifiers)
}

func TestMove(t *testing.T) {
	c := NewController(staticSource(providence(), nil))

	view := types.ViewState{Longitude: -71, Latitude: 42, Zoom: 9.5}
	c.Move(view)

	s := c.Snapshot()
	assert.Equal(t, view, s.View)
	assert.Equal(t, Default, s.State)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "default", Default.String())
	assert.Equal(t, "filtered", Filtered.String())
	assert.Equal(t, "search-focused", SearchFocused.String())
}
