// Package domain models earthquake event data from the USGS real-time feeds.
//
// # Data Source
//
// Events originate from the USGS Earthquake Hazards Program FDSN event
// service (https://earthquake.usgs.gov/fdsnws/event/1/). The fetcher requests
// a time-windowed slice in GeoJSON format; each feature in the response is
// one observation. Arrival order is whatever the upstream returns and carries
// no chronological guarantee.
//
// # USGS GeoJSON Conventions
//
// Geometry:
//
//	coordinates are ordered [longitude, latitude, depth].
//	Depth is kilometers below the WGS-84 reference and may be negative for
//	events above the reference (mine collapses, quarry blasts).
//
// Time:
//
//	properties.time is epoch milliseconds UTC. A null time makes the record
//	unusable and it is dropped.
//
// Magnitude:
//
//	properties.mag is a float and may be null for unreviewed or unreported
//	events. Policy: records with a null magnitude are dropped during
//	normalization rather than coerced to zero — a zero would silently pass
//	any filter whose range includes 0 and plot as a dot-sized marker, both
//	misleading. See [ParseFeature].
//
// IDs:
//
//	each feature carries a unique upstream identifier (e.g. "us7000abcd").
//	When the feed omits one, a deterministic SHA-256 hash of
//	lat|lon|time|magnitude stands in, so reprocessing the same feature
//	yields the same ID. See [fallbackID].
//
// # Derived Fields
//
// Marker radius:
//
//	radius_m = magnitude * 50000, clamped at zero. Matches the map scaling
//	used by the dashboard frontends; monotonic non-decreasing and finite
//	non-negative for any finite magnitude.
//
// Severity classification (simplified four-level scale for user-facing
// filtering, thresholds on the moment magnitude):
//
//	< 2.5 low | < 4.5 moderate | < 6.0 high | >= 6.0 critical
package domain
