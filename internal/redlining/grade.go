// Package redlining implements feature identity, search result correlation
// and view heuristics for HOLC redlining overlays.
package redlining

import "strings"

// Property keys of a redlining feature.
const (
	PropCity                = "city"
	PropGrade               = "holc_grade"
	PropName                = "name"
	PropAreaDescription     = "area_description"
	PropAreaDescriptionData = "area_description_data"
)

// Grade colors used by the overlay fill layer.
const (
	ColorGradeA  = "#5bcc04" // green
	ColorGradeB  = "#04b8cc" // blue
	ColorGradeC  = "#e9ed0e" // yellow
	ColorGradeD  = "#d11d1d" // red
	ColorUnknown = "#ccc"
)

// FillOpacity is the opacity of the overlay fill layer.
const FillOpacity = 0.2

// GradeColor maps a HOLC grade to its display color.
func GradeColor(grade string) string {
	switch strings.ToUpper(grade) {
	case "A":
		return ColorGradeA
	case "B":
		return ColorGradeB
	case "C":
		return ColorGradeC
	case "D":
		return ColorGradeD
	default:
		return ColorUnknown
	}
}

// FillLayerStops returns the match expression stops for the map fill layer:
// grade/color pairs followed by the fallback color.
func FillLayerStops() []string {
	return []string{
		"A", ColorGradeA,
		"B", ColorGradeB,
		"C", ColorGradeC,
		"D", ColorGradeD,
		ColorUnknown,
	}
}
