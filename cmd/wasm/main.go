//go:build js && wasm
// +build js,wasm

package main

import (
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/MeKo-Tech/redliningmap/internal/redlining"
	"github.com/MeKo-Tech/redliningmap/internal/types"
	"github.com/paulmach/orb/geojson"
)

// CorrelateRequest asks for the features matching a list of search result ids.
type CorrelateRequest struct {
	Collection    json.RawMessage `json:"collection"`
	IDs           []string        `json:"ids"`
	MatchedFields []string        `json:"matchedFields"`
	ExactIndex    bool            `json:"exactIndex"`
}

type CorrelateResponse struct {
	Highlight json.RawMessage          `json:"highlight"`
	Results   []redlining.SearchResult `json:"results"`
}

func errorResult(format string, args ...any) any {
	return map[string]any{"error": fmt.Sprintf(format, args...)}
}

func toJS(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult("failed to encode response: %v", err)
	}
	return string(data)
}

// correlate is called from JavaScript with a JSON CorrelateRequest and returns
// the highlight collection and the detailed result list as JSON.
func correlate(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errorResult("missing arguments")
	}

	var req CorrelateRequest
	if err := json.Unmarshal([]byte(args[0].String()), &req); err != nil {
		return errorResult("failed to parse request: %v", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(req.Collection)
	if err != nil {
		return errorResult("failed to parse collection: %v", err)
	}

	var opts []redlining.Option
	if req.ExactIndex {
		opts = append(opts, redlining.WithExactIndex())
	}
	highlight := redlining.NewCorrelator(opts...).Correlate(fc, req.IDs)

	raw, err := json.Marshal(highlight)
	if err != nil {
		return errorResult("failed to encode highlight: %v", err)
	}
	return toJS(CorrelateResponse{
		Highlight: raw,
		Results:   redlining.DetailedResults(highlight, req.IDs, req.MatchedFields),
	})
}

// focus returns the focus point of a GeoJSON geometry as {lat, long}.
func focus(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errorResult("missing arguments")
	}

	g, err := geojson.UnmarshalGeometry([]byte(args[0].String()))
	if err != nil {
		return errorResult("failed to parse geometry: %v", err)
	}
	pt, err := redlining.FocusPoint(g.Geometry())
	if err != nil {
		return errorResult("%v", err)
	}
	return toJS(pt)
}

// zoom returns the zoom level for a bounding box given as four numbers.
func zoom(this js.Value, args []js.Value) any {
	if len(args) < 4 {
		return errorResult("expected minLat, minLng, maxLat, maxLng")
	}
	b := types.BoundingBox{
		MinLat: args[0].Float(),
		MinLng: args[1].Float(),
		MaxLat: args[2].Float(),
		MaxLng: args[3].Float(),
	}
	if err := b.Validate(); err != nil {
		return errorResult("%v", err)
	}
	return redlining.ZoomFor(b)
}

func gradeColor(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return redlining.GradeColor("")
	}
	return redlining.GradeColor(args[0].String())
}

// FillLayer is the paint description of the grade fill layer.
type FillLayer struct {
	Property string   `json:"property"`
	Stops    []string `json:"stops"`
	Opacity  float64  `json:"opacity"`
}

// fillLayer returns the grade fill layer paint for the map surface as JSON.
func fillLayer(this js.Value, args []js.Value) any {
	return toJS(FillLayer{
		Property: redlining.PropGrade,
		Stops:    redlining.FillLayerStops(),
		Opacity:  redlining.FillOpacity,
	})
}

func main() {
	c := make(chan struct{})

	js.Global().Set("redliningCorrelate", js.FuncOf(correlate))
	js.Global().Set("redliningFocus", js.FuncOf(focus))
	js.Global().Set("redliningZoom", js.FuncOf(zoom))
	js.Global().Set("redliningGradeColor", js.FuncOf(gradeColor))
	js.Global().Set("redliningFillLayer", js.FuncOf(fillLayer))

	fmt.Println("redliningmap WASM module loaded")
	<-c
}
