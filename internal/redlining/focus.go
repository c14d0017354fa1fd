package redlining

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/redliningmap/internal/types"
	"github.com/paulmach/orb"
)

var (
	// ErrEmptyRing is returned when the outer ring has no vertices.
	ErrEmptyRing = errors.New("geometry has no outer ring vertices")
	// ErrUnsupportedGeometry is returned for geometries other than
	// Polygon and MultiPolygon.
	ErrUnsupportedGeometry = errors.New("unsupported geometry type")
)

// FocusPoint returns the point to center the view on for g: the arithmetic
// mean of the vertices of the first ring of the first polygon. The closing
// vertex is counted like any other. This is not an area centroid; it is good
// enough for small, roughly convex districts.
func FocusPoint(g orb.Geometry) (types.LatLng, error) {
	var ring orb.Ring

	switch geom := g.(type) {
	case orb.MultiPolygon:
		if len(geom) > 0 && len(geom[0]) > 0 {
			ring = geom[0][0]
		}
	case orb.Polygon:
		if len(geom) > 0 {
			ring = geom[0]
		}
	case nil:
		return types.LatLng{}, ErrEmptyRing
	default:
		return types.LatLng{}, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, g.GeoJSONType())
	}

	if len(ring) == 0 {
		return types.LatLng{}, ErrEmptyRing
	}

	var sumLng, sumLat float64
	for _, p := range ring {
		sumLng += p.Lon()
		sumLat += p.Lat()
	}
	n := float64(len(ring))
	return types.LatLng{Lat: sumLat / n, Lng: sumLng / n}, nil
}
