package domain

import (
	"context"
	"log/slog"
)

// EnrichWithPlace fills in a missing place description by reverse geocoding
// the epicenter. Records that already carry an upstream place string are
// returned untouched with GeoSource "feed". If the geocoder is nil, fails,
// or returns nothing, the record is kept as-is (graceful degradation).
func EnrichWithPlace(ctx context.Context, event EventRecord, geocoder Geocoder, logger *slog.Logger) EventRecord {
	if geocoder == nil {
		return event
	}
	if event.Place != "" {
		event.GeoSource = "feed"
		return event
	}

	result, err := geocoder.ReverseGeocode(ctx, event.Latitude, event.Longitude)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"event_id", event.ID,
			"lat", event.Latitude,
			"lon", event.Longitude,
			"error", err,
		)
		event.GeoSource = "failed"
		return event
	}
	if result.FormattedAddress == "" {
		event.GeoSource = "feed"
		return event
	}

	event.Place = result.PlaceName
	event.FormattedAddress = result.FormattedAddress
	event.GeoConfidence = result.Confidence
	event.GeoSource = "reverse"
	return event
}
