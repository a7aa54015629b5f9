package domain

// markerScale converts magnitude to map marker radius in meters.
const markerScale = 50000

// MarkerRadius returns the map marker radius in meters for a magnitude.
// Monotonic non-decreasing, finite, and never negative or NaN for any
// finite input; negative magnitudes (microquakes) clamp to zero.
func MarkerRadius(magnitude float64) float64 {
	if magnitude <= 0 {
		return 0
	}
	return magnitude * markerScale
}

// SeverityFor maps magnitude to a four-level severity label.
// Thresholds follow the simplified scale documented in the package comment.
func SeverityFor(magnitude float64) string {
	switch {
	case magnitude >= 6.0:
		return "critical"
	case magnitude >= 4.5:
		return "high"
	case magnitude >= 2.5:
		return "moderate"
	default:
		return "low"
	}
}

// EnrichEventRecord computes the derived presentation fields and stamps the
// processing time. Derived fields are pure functions of magnitude; the
// source fields are never mutated.
func EnrichEventRecord(event EventRecord) EventRecord {
	event.MarkerRadius = MarkerRadius(event.Magnitude)
	event.Severity = SeverityFor(event.Magnitude)
	event.ProcessedAt = clock.Now()
	return event
}
