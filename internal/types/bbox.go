package types

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// ErrInvalidBoundingBox is returned when a bounding box does not satisfy
// minLat < maxLat and minLng < maxLng.
var ErrInvalidBoundingBox = errors.New("invalid bounding box")

// BoundingBox represents a geographic bounding box in WGS84 degrees.
type BoundingBox struct {
	MinLat float64 `json:"minLat"` // Southern edge
	MinLng float64 `json:"minLng"` // Western edge
	MaxLat float64 `json:"maxLat"` // Northern edge
	MaxLng float64 `json:"maxLng"` // Eastern edge
}

// WorldBounds covers the whole dataset and is used when no filter is given.
var WorldBounds = BoundingBox{MinLat: -90, MinLng: -180, MaxLat: 90, MaxLng: 180}

// ParseBoundingBox parses the four textual bbox fields of a filter form.
// The result is validated.
func ParseBoundingBox(minLat, minLng, maxLat, maxLng string) (BoundingBox, error) {
	fields := []struct {
		name  string
		value string
	}{
		{"minLat", minLat},
		{"minLng", minLng},
		{"maxLat", maxLat},
		{"maxLng", maxLng},
	}

	var values [4]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f.value), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("%w: %s is not a number: %q", ErrInvalidBoundingBox, f.name, f.value)
		}
		values[i] = v
	}

	b := BoundingBox{MinLat: values[0], MinLng: values[1], MaxLat: values[2], MaxLng: values[3]}
	if err := b.Validate(); err != nil {
		return BoundingBox{}, err
	}
	return b, nil
}

// ParseBBoxString parses "minLat,minLng,maxLat,maxLng".
func ParseBBoxString(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("%w: expected minLat,minLng,maxLat,maxLng, got %q", ErrInvalidBoundingBox, s)
	}
	return ParseBoundingBox(parts[0], parts[1], parts[2], parts[3])
}

// Validate checks the ordering invariant of the box.
func (b BoundingBox) Validate() error {
	for _, v := range []float64{b.MinLat, b.MinLng, b.MaxLat, b.MaxLng} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinate", ErrInvalidBoundingBox)
		}
	}
	if b.MinLat >= b.MaxLat {
		return fmt.Errorf("%w: minLat %.6f must be less than maxLat %.6f", ErrInvalidBoundingBox, b.MinLat, b.MaxLat)
	}
	if b.MinLng >= b.MaxLng {
		return fmt.Errorf("%w: minLng %.6f must be less than maxLng %.6f", ErrInvalidBoundingBox, b.MinLng, b.MaxLng)
	}
	return nil
}

// String returns a human-readable representation of the bounding box
func (b BoundingBox) String() string {
	return fmt.Sprintf("bbox(%.6f,%.6f,%.6f,%.6f)", b.MinLat, b.MinLng, b.MaxLat, b.MaxLng)
}

// CacheKey returns the key used to cache filtered responses for this box.
func (b BoundingBox) CacheKey() string {
	return fmt.Sprintf("%.6f:%.6f:%.6f:%.6f", b.MinLat, b.MinLng, b.MaxLat, b.MaxLng)
}

// Center returns the center point of the bounding box
func (b BoundingBox) Center() LatLng {
	return LatLng{Lat: (b.MinLat + b.MaxLat) / 2, Lng: (b.MinLng + b.MaxLng) / 2}
}

// Width returns the width of the bounding box in degrees
func (b BoundingBox) Width() float64 {
	return math.Abs(b.MaxLng - b.MinLng)
}

// Height returns the height of the bounding box in degrees
func (b BoundingBox) Height() float64 {
	return math.Abs(b.MaxLat - b.MinLat)
}

// Span returns the larger of width and height.
func (b BoundingBox) Span() float64 {
	return math.Max(b.Width(), b.Height())
}

// Bound converts the box to an orb.Bound (lon/lat order).
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLng, b.MinLat},
		Max: orb.Point{b.MaxLng, b.MaxLat},
	}
}

// Polygon returns the box outline, used as a renderable layer on the map.
func (b BoundingBox) Polygon() orb.Polygon {
	return b.Bound().ToPolygon()
}

// ContainsGeometry reports whether every vertex of g lies inside the box
// (edges inclusive). A nil geometry is never contained.
func (b BoundingBox) ContainsGeometry(g orb.Geometry) bool {
	if g == nil {
		return false
	}

	contained := true
	eachPoint(g, func(p orb.Point) bool {
		lng, lat := p[0], p[1]
		if lat < b.MinLat || lat > b.MaxLat || lng < b.MinLng || lng > b.MaxLng {
			contained = false
			return false
		}
		return true
	})
	return contained
}

// eachPoint walks all vertices of g until fn returns false.
func eachPoint(g orb.Geometry, fn func(orb.Point) bool) bool {
	switch geom := g.(type) {
	case orb.Point:
		return fn(geom)
	case orb.MultiPoint:
		for _, p := range geom {
			if !fn(p) {
				return false
			}
		}
	case orb.LineString:
		for _, p := range geom {
			if !fn(p) {
				return false
			}
		}
	case orb.MultiLineString:
		for _, ls := range geom {
			if !eachPoint(ls, fn) {
				return false
			}
		}
	case orb.Ring:
		for _, p := range geom {
			if !fn(p) {
				return false
			}
		}
	case orb.Polygon:
		for _, r := range geom {
			if !eachPoint(r, fn) {
				return false
			}
		}
	case orb.MultiPolygon:
		for _, p := range geom {
			if !eachPoint(p, fn) {
				return false
			}
		}
	case orb.Collection:
		for _, c := range geom {
			if !eachPoint(c, fn) {
				return false
			}
		}
	case orb.Bound:
		return eachPoint(geom.ToRing(), fn)
	}
	return true
}
