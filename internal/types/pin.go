package types

import (
	"fmt"
	"time"
)

// LatLng is a single geographic coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"long"`
}

// String returns the coordinate as "lat,lng".
func (p LatLng) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// ViewState is the visible region of the map surface.
type ViewState struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Zoom      float64 `json:"zoom"`
}

// Pin is a user-dropped location marker.
type Pin struct {
	ID        string  `json:"id" firestore:"id"`
	Latitude  float64 `json:"latitude" firestore:"latitude"`
	Longitude float64 `json:"longitude" firestore:"longitude"`
	UserID    string  `json:"userId" firestore:"userId"`
	Timestamp int64   `json:"timestamp" firestore:"timestamp"` // Unix milliseconds
}

// Time returns the pin timestamp as a time.Time.
func (p Pin) Time() time.Time {
	return time.UnixMilli(p.Timestamp)
}
