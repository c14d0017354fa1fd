package redlining

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// Identifier is the parsed form of a feature identifier.
type Identifier struct {
	City  string
	Grade string
	Index int
}

// String formats the identifier as "{city}-{grade}-{index}".
func (id Identifier) String() string {
	return id.City + "-" + id.Grade + "-" + strconv.Itoa(id.Index)
}

// Identify builds the identifier of the feature at position index of its
// collection. Missing city or grade become empty strings.
//
// This is the only identifier scheme: the search endpoint produces
// identifiers with it and the correlator consumes them.
func Identify(f *geojson.Feature, index int) string {
	return Identifier{City: City(f), Grade: Grade(f), Index: index}.String()
}

// ParseIdentifier splits an identifier into city, grade and index. Parsing
// runs from the right so city names containing '-' are preserved. Identifiers
// without a trailing integer index are rejected.
func ParseIdentifier(s string) (Identifier, bool) {
	i := strings.LastIndexByte(s, '-')
	if i < 0 {
		return Identifier{}, false
	}
	digits := s[i+1:]
	if digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
		return Identifier{}, false
	}
	index, err := strconv.Atoi(digits)
	if err != nil {
		return Identifier{}, false
	}

	rest := s[:i]
	j := strings.LastIndexByte(rest, '-')
	if j < 0 {
		return Identifier{}, false
	}

	return Identifier{City: rest[:j], Grade: rest[j+1:], Index: index}, true
}

// City returns the city property of f, or "".
func City(f *geojson.Feature) string {
	return stringProp(f, PropCity)
}

// Grade returns the HOLC grade of f, or "".
func Grade(f *geojson.Feature) string {
	return stringProp(f, PropGrade)
}

// Name returns the display name of f, or "".
func Name(f *geojson.Feature) string {
	return stringProp(f, PropName)
}

func stringProp(f *geojson.Feature, key string) string {
	if f == nil || f.Properties == nil {
		return ""
	}
	s, _ := f.Properties[key].(string)
	return s
}
