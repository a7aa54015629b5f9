package http

import (
	"encoding/csv"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seismoscope/quake-feed-service/internal/domain"
	"github.com/seismoscope/quake-feed-service/internal/pipeline"
)

// Magnitude bounds used when the caller does not constrain the range.
// Wide enough to cover microquakes and any plausible upper end.
const (
	magFloor = -10.0
	magCeil  = 12.0
)

type handlers struct {
	source SnapshotSource
}

// eventQuery holds the parsed, defaulted query parameters shared by the
// list, export, and stats endpoints.
type eventQuery struct {
	criteria domain.FilterCriteria
	sortAsc  bool
	limit    int
}

// parseEventQuery builds FilterCriteria from the request, defaulting the
// time window to the snapshot's fetch window and the magnitude range to
// [magFloor, magCeil].
func parseEventQuery(c *gin.Context, snap pipeline.Snapshot) (eventQuery, error) {
	q := eventQuery{
		criteria: domain.FilterCriteria{
			Window:    snap.Window,
			Magnitude: domain.MagnitudeRange{Min: magFloor, Max: magCeil},
		},
	}

	if s := c.Query("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, fmt.Errorf("invalid start: %q is not RFC3339", s)
		}
		q.criteria.Window.Start = t
	}
	if s := c.Query("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, fmt.Errorf("invalid end: %q is not RFC3339", s)
		}
		q.criteria.Window.End = t
	}
	if s := c.Query("min_mag"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return q, fmt.Errorf("invalid min_mag: %q", s)
		}
		q.criteria.Magnitude.Min = v
	}
	if s := c.Query("max_mag"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return q, fmt.Errorf("invalid max_mag: %q", s)
		}
		q.criteria.Magnitude.Max = v
	}

	switch c.Query("sort") {
	case "", "desc":
	case "asc":
		q.sortAsc = true
	default:
		return q, fmt.Errorf("invalid sort: want asc or desc")
	}

	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, fmt.Errorf("invalid limit: %q", s)
		}
		q.limit = n
	}

	return q, q.criteria.Validate()
}

// selectEvents applies the query to a snapshot: filter, sort by time, limit.
func selectEvents(snap pipeline.Snapshot, q eventQuery) []domain.EventRecord {
	events := domain.ApplyFilter(snap.Records, q.criteria)
	sort.SliceStable(events, func(i, j int) bool {
		if q.sortAsc {
			return events[i].Time.Before(events[j].Time)
		}
		return events[i].Time.After(events[j].Time)
	})
	if q.limit > 0 && len(events) > q.limit {
		events = events[:q.limit]
	}
	return events
}

func (h *handlers) snapshotOr503(c *gin.Context) (pipeline.Snapshot, bool) {
	snap, ok := h.source.Latest()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no feed data available yet"})
	}
	return snap, ok
}

func (h *handlers) listEvents(c *gin.Context) {
	snap, ok := h.snapshotOr503(c)
	if !ok {
		return
	}

	q, err := parseEventQuery(c, snap)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events := selectEvents(snap, q)
	c.JSON(http.StatusOK, gin.H{
		"count":      len(events),
		"window":     q.criteria.Window,
		"fetched_at": snap.FetchedAt,
		"events":     events,
	})
}

func (h *handlers) exportCSV(c *gin.Context) {
	snap, ok := h.snapshotOr503(c)
	if !ok {
		return
	}

	q, err := parseEventQuery(c, snap)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events := selectEvents(snap, q)

	c.Header("Content-Disposition", `attachment; filename="earthquakes.csv"`)
	c.Header("Content-Type", "text/csv")

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"time", "id", "place", "magnitude", "depth_km", "latitude", "longitude", "severity", "tsunami"})

	for _, ev := range events {
		tsunami := "no"
		if ev.Tsunami {
			tsunami = "yes"
		}
		_ = w.Write([]string{
			ev.Time.Format(time.RFC3339),
			ev.ID,
			ev.Place,
			strconv.FormatFloat(ev.Magnitude, 'f', 2, 64),
			strconv.FormatFloat(ev.Depth, 'f', 1, 64),
			strconv.FormatFloat(ev.Latitude, 'f', 4, 64),
			strconv.FormatFloat(ev.Longitude, 'f', 4, 64),
			ev.Severity,
			tsunami,
		})
	}
	w.Flush()
}

// magBucket is one bar of the magnitude histogram.
type magBucket struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Count int     `json:"count"`
}

func (h *handlers) stats(c *gin.Context) {
	snap, ok := h.snapshotOr503(c)
	if !ok {
		return
	}

	q, err := parseEventQuery(c, snap)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events := selectEvents(snap, q)

	bySeverity := make(map[string]int)
	counts := make(map[int]int)
	var strongest *domain.EventRecord
	for i, ev := range events {
		bySeverity[ev.Severity]++
		counts[int(math.Floor(ev.Magnitude))]++
		if strongest == nil || ev.Magnitude > strongest.Magnitude {
			strongest = &events[i]
		}
	}

	buckets := make([]magBucket, 0, len(counts))
	for from, n := range counts {
		buckets = append(buckets, magBucket{From: float64(from), To: float64(from) + 1, Count: n})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].From < buckets[j].From })

	resp := gin.H{
		"count":       len(events),
		"by_severity": bySeverity,
		"histogram":   buckets,
		"fetched_at":  snap.FetchedAt,
	}
	if strongest != nil {
		resp["strongest"] = strongest
	}
	c.JSON(http.StatusOK, resp)
}
