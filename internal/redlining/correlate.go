package redlining

import "github.com/paulmach/orb/geojson"

// Correlator matches search identifiers back to features of a collection.
// Each identifier claims at most one feature and each feature is claimed at
// most once.
type Correlator struct {
	exactIndex bool
}

// Option configures a Correlator.
type Option func(*Correlator)

// WithExactIndex makes the correlator prefer the feature at the identifier's
// index when that feature is unclaimed and has the same city and grade. Other
// identifiers fall back to first-fit matching.
//
// Only useful when the collection is the same sequence the identifiers were
// built from; a bbox-filtered collection shifts every index.
func WithExactIndex() Option {
	return func(c *Correlator) {
		c.exactIndex = true
	}
}

// NewCorrelator creates a correlator. Without options it performs greedy
// first-fit matching on city and grade.
func NewCorrelator(opts ...Option) *Correlator {
	c := &Correlator{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCorrelator = NewCorrelator()

// Correlate returns the features of fc matched by ids using first-fit
// matching. Unmatched or malformed identifiers produce no entry, so the result
// may be shorter than ids.
func Correlate(fc *geojson.FeatureCollection, ids []string) *geojson.FeatureCollection {
	return defaultCorrelator.Correlate(fc, ids)
}

// CorrelateIndices is like Correlate but returns positions in fc.
func CorrelateIndices(fc *geojson.FeatureCollection, ids []string) []int {
	return defaultCorrelator.Indices(fc, ids)
}

// Correlate returns a new collection holding the matched features in the
// order their identifiers were resolved. fc is not modified.
func (c *Correlator) Correlate(fc *geojson.FeatureCollection, ids []string) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	if fc == nil {
		return out
	}
	for _, i := range c.Indices(fc, ids) {
		out.Append(fc.Features[i])
	}
	return out
}

type matchKey struct {
	city  string
	grade string
}

// bucket holds the positions of features sharing city and grade, in
// collection order. next points at the first position that may be unclaimed.
type bucket struct {
	positions []int
	next      int
}

// Indices returns the positions in fc of the matched features.
func (c *Correlator) Indices(fc *geojson.FeatureCollection, ids []string) []int {
	if fc == nil || len(fc.Features) == 0 || len(ids) == 0 {
		return []int{}
	}

	buckets := make(map[matchKey]*bucket)
	for i, f := range fc.Features {
		if f == nil {
			continue
		}
		k := matchKey{city: City(f), grade: Grade(f)}
		b, ok := buckets[k]
		if !ok {
			b = &bucket{}
			buckets[k] = b
		}
		b.positions = append(b.positions, i)
	}

	claimed := make([]bool, len(fc.Features))
	out := make([]int, 0, len(ids))

	for _, raw := range ids {
		id, ok := ParseIdentifier(raw)
		if !ok {
			continue
		}
		k := matchKey{city: id.City, grade: id.Grade}
		b, ok := buckets[k]
		if !ok {
			continue
		}

		if c.exactIndex && id.Index < len(fc.Features) && !claimed[id.Index] {
			if f := fc.Features[id.Index]; f != nil && City(f) == id.City && Grade(f) == id.Grade {
				claimed[id.Index] = true
				out = append(out, id.Index)
				continue
			}
		}

		for b.next < len(b.positions) && claimed[b.positions[b.next]] {
			b.next++
		}
		if b.next == len(b.positions) {
			continue
		}
		pos := b.positions[b.next]
		claimed[pos] = true
		b.next++
		out = append(out, pos)
	}

	return out
}
