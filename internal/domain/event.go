package domain

import (
	"fmt"
	"time"
)

// RawFeature is one feature from the USGS GeoJSON feed, kept loosely typed.
// Pointer fields distinguish "absent or null" from a genuine zero value so
// the drop-on-missing-field policy can be applied explicitly during parsing.
type RawFeature struct {
	ID         string        `json:"id"`
	Properties RawProperties `json:"properties"`
	Geometry   RawGeometry   `json:"geometry"`
}

// RawProperties holds the subset of USGS event properties the pipeline uses.
type RawProperties struct {
	Mag     *float64 `json:"mag"` // nil for unreported magnitudes
	Place   string   `json:"place"`
	Time    *int64   `json:"time"` // epoch milliseconds UTC
	Tsunami int      `json:"tsunami"`
}

// RawGeometry carries the GeoJSON point geometry.
// Coordinates are ordered [longitude, latitude, depth].
type RawGeometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// EventRecord is the normalized representation of one earthquake observation.
type EventRecord struct {
	ID        string    `json:"id"`
	Time      time.Time `json:"time"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Depth     float64   `json:"depth_km"` // may be negative (above sea level reference)
	Magnitude float64   `json:"magnitude"`
	Place     string    `json:"place,omitempty"`
	Tsunami   bool      `json:"tsunami"`

	// Derived presentation fields, pure functions of the fields above.
	MarkerRadius float64 `json:"marker_radius_m"`
	Severity     string  `json:"severity,omitempty"`

	// Geocoding enrichment fields.
	FormattedAddress string  `json:"formatted_address,omitempty"`
	GeoConfidence    float64 `json:"geo_confidence,omitempty"`
	GeoSource        string  `json:"geo_source,omitempty"` // "feed", "reverse", or "failed"

	ProcessedAt time.Time `json:"processed_at"`
}

// FetchReason classifies why a feed fetch failed.
type FetchReason string

const (
	FetchNetwork   FetchReason = "network"
	FetchTimeout   FetchReason = "timeout"
	FetchMalformed FetchReason = "malformed-response"
)

// FetchError is returned by the fetcher when the feed could not be read.
// It is surfaced to the caller as-is; the fetcher never retries.
type FetchError struct {
	Reason FetchReason
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("feed fetch failed (%s)", e.Reason)
	}
	return fmt.Sprintf("feed fetch failed (%s): %v", e.Reason, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
