package redlining

import "github.com/MeKo-Tech/redliningmap/internal/types"

// zoomSteps maps a minimum span (exclusive) to a zoom level, widest first.
var zoomSteps = []struct {
	span float64
	zoom int
}{
	{5, 5},
	{2, 7},
	{1, 9},
	{0.5, 10},
	{0.1, 12},
}

// MaxZoom is used for spans at or below the smallest step.
const MaxZoom = 14

// ZoomFor returns a zoom level that fits the bounding box on screen.
func ZoomFor(b types.BoundingBox) int {
	return ZoomForSpan(b.Span())
}

// ZoomForSpan returns the zoom level for a span in degrees.
func ZoomForSpan(span float64) int {
	for _, s := range zoomSteps {
		if span > s.span {
			return s.zoom
		}
	}
	return MaxZoom
}
