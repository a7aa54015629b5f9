package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ParseError reports a raw feature that could not be normalized.
// Field names the first required field found missing.
type ParseError struct {
	ID    string
	Field string
}

func (e *ParseError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("parse feature: missing %s", e.Field)
	}
	return fmt.Sprintf("parse feature %s: missing %s", e.ID, e.Field)
}

// Required-field names reported by ParseError and counted in DropStats.
const (
	FieldTime      = "time"
	FieldLongitude = "longitude"
	FieldLatitude  = "latitude"
	FieldDepth     = "depth"
	FieldMagnitude = "magnitude"
)

// ParseFeature converts one raw GeoJSON feature into an EventRecord.
// A feature missing any required field (time, longitude, latitude, depth,
// magnitude) yields a ParseError naming that field. A null magnitude is
// treated as missing, not as zero — see the package documentation for why.
func ParseFeature(raw RawFeature) (EventRecord, error) {
	if raw.Properties.Time == nil {
		return EventRecord{}, &ParseError{ID: raw.ID, Field: FieldTime}
	}

	coords := raw.Geometry.Coordinates
	switch len(coords) {
	case 0:
		return EventRecord{}, &ParseError{ID: raw.ID, Field: FieldLongitude}
	case 1:
		return EventRecord{}, &ParseError{ID: raw.ID, Field: FieldLatitude}
	case 2:
		return EventRecord{}, &ParseError{ID: raw.ID, Field: FieldDepth}
	}

	if raw.Properties.Mag == nil {
		return EventRecord{}, &ParseError{ID: raw.ID, Field: FieldMagnitude}
	}

	eventTime := time.UnixMilli(*raw.Properties.Time).UTC()
	mag := *raw.Properties.Mag

	id := raw.ID
	if id == "" {
		id = fallbackID(coords[1], coords[0], eventTime, mag)
	}

	return EventRecord{
		ID:        id,
		Time:      eventTime,
		Longitude: coords[0],
		Latitude:  coords[1],
		Depth:     coords[2],
		Magnitude: mag,
		Place:     raw.Properties.Place,
		Tsunami:   raw.Properties.Tsunami > 0,
	}, nil
}

// DropStats counts features dropped during normalization, per missing field.
type DropStats struct {
	ByField map[string]int
}

// Total returns the number of dropped features across all fields.
func (d DropStats) Total() int {
	n := 0
	for _, c := range d.ByField {
		n += c
	}
	return n
}

func (d *DropStats) record(field string) {
	if d.ByField == nil {
		d.ByField = make(map[string]int)
	}
	d.ByField[field]++
}

// Normalize parses and enriches a batch of raw features, preserving the
// upstream order. Unparseable features are dropped silently and counted in
// the returned DropStats; dropping is the documented policy, not an error.
func Normalize(raw []RawFeature) ([]EventRecord, DropStats) {
	records := make([]EventRecord, 0, len(raw))
	var drops DropStats

	for _, f := range raw {
		event, err := ParseFeature(f)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				drops.record(pe.Field)
			}
			continue
		}
		records = append(records, EnrichEventRecord(event))
	}

	return records, drops
}

// fallbackID produces a deterministic ID from an event's key fields for the
// rare feature that arrives without one. Reprocessing the same feature
// produces the same ID.
func fallbackID(lat, lon float64, t time.Time, magnitude float64) string {
	input := fmt.Sprintf("%.4f|%.4f|%d|%g", lat, lon, t.UnixMilli(), magnitude)
	hash := sha256.Sum256([]byte(input))
	return "quake-" + hex.EncodeToString(hash[:8])
}
