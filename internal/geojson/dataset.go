// Package geojson loads, filters and searches the redlining dataset.
package geojson

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/MeKo-Tech/redliningmap/internal/redlining"
	"github.com/MeKo-Tech/redliningmap/internal/types"
	"github.com/paulmach/orb/geojson"
)

// Dataset is the full, read-only redlining feature collection served by the
// backend. Feature positions are the indices used in search identifiers.
type Dataset struct {
	fc *geojson.FeatureCollection
}

// Match is a single keyword search hit.
type Match struct {
	Identifier   string
	Index        int
	MatchedField string
}

// NewDataset wraps an already parsed collection.
func NewDataset(fc *geojson.FeatureCollection) *Dataset {
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}
	return &Dataset{fc: fc}
}

// ParseDataset parses GeoJSON bytes into a dataset.
func ParseDataset(data []byte) (*Dataset, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}
	return NewDataset(fc), nil
}

// LoadDataset reads the dataset from path. A missing or unreadable file is
// logged and yields an empty dataset so the server can still start.
func LoadDataset(path string, logger *slog.Logger) *Dataset {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("GeoJSON file not readable, serving empty dataset", "path", path, "error", err)
		return NewDataset(nil)
	}

	ds, err := ParseDataset(data)
	if err != nil {
		logger.Error("failed to load GeoJSON dataset, serving empty dataset", "path", path, "error", err)
		return NewDataset(nil)
	}

	logger.Info("loaded GeoJSON dataset", "path", path, "features", ds.Len())
	return ds
}

// Len returns the number of features.
func (d *Dataset) Len() int {
	return len(d.fc.Features)
}

// Filter returns a new collection with the features that lie completely
// inside b. Features without geometry are dropped.
func (d *Dataset) Filter(b types.BoundingBox) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	for _, f := range d.fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		if b.ContainsGeometry(f.Geometry) {
			out.Append(f)
		}
	}
	return out
}

// Search returns the features whose area descriptions contain keyword,
// case-insensitively, in dataset order.
func (d *Dataset) Search(keyword string) []Match {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return nil
	}

	var matches []Match
	for i, f := range d.fc.Features {
		if f == nil || f.Properties == nil {
			continue
		}
		field, ok := matchField(f.Properties, keyword)
		if !ok {
			continue
		}
		matches = append(matches, Match{
			Identifier:   redlining.Identify(f, i),
			Index:        i,
			MatchedField: field,
		})
	}
	return matches
}

// matchField looks for keyword in area_description_data values first, then
// in area_description.
func matchField(props geojson.Properties, keyword string) (string, bool) {
	if data, ok := props[redlining.PropAreaDescriptionData].(map[string]interface{}); ok {
		keys := make([]string, 0, len(data))
		for k := range data {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			s, ok := data[k].(string)
			if ok && strings.Contains(strings.ToLower(s), keyword) {
				return redlining.PropAreaDescriptionData + "." + k, true
			}
		}
	}

	if s, ok := props[redlining.PropAreaDescription].(string); ok {
		if strings.Contains(strings.ToLower(s), keyword) {
			return redlining.PropAreaDescription, true
		}
	}

	return "", false
}

// ToGeoJSONBytes marshals a feature collection.
func ToGeoJSONBytes(fc *geojson.FeatureCollection) ([]byte, error) {
	data, err := json.Marshal(fc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}
	return data, nil
}
