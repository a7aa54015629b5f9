package domain

import (
	"errors"
	"time"
)

// TimeWindow is an inclusive [Start, End] interval in UTC.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate rejects empty or inverted windows.
func (w TimeWindow) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return errors.New("time window: start and end are required")
	}
	if w.End.Before(w.Start) {
		return errors.New("time window: end precedes start")
	}
	return nil
}

// Contains reports whether t falls inside the window, bounds included.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// MagnitudeRange is an inclusive [Min, Max] magnitude interval.
type MagnitudeRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Validate rejects inverted ranges.
func (r MagnitudeRange) Validate() error {
	if r.Max < r.Min {
		return errors.New("magnitude range: max is less than min")
	}
	return nil
}

// Contains reports whether mag falls inside the range, bounds included.
func (r MagnitudeRange) Contains(mag float64) bool {
	return mag >= r.Min && mag <= r.Max
}

// FilterCriteria is the user-selected view over a dataset. Criteria are
// stateless: given the same records, the same criteria always select the
// same output.
type FilterCriteria struct {
	Window    TimeWindow     `json:"time_window"`
	Magnitude MagnitudeRange `json:"magnitude_range"`
}

// Validate checks both bounds.
func (c FilterCriteria) Validate() error {
	if err := c.Window.Validate(); err != nil {
		return err
	}
	return c.Magnitude.Validate()
}

// Matches reports whether the record satisfies both predicates.
func (c FilterCriteria) Matches(event EventRecord) bool {
	return c.Window.Contains(event.Time) && c.Magnitude.Contains(event.Magnitude)
}

// ApplyFilter selects the records matching the criteria, preserving input
// order. A zero-match result is an empty slice, never an error. The input is
// not modified, and filtering an already-filtered dataset with the same
// criteria returns it unchanged.
func ApplyFilter(records []EventRecord, criteria FilterCriteria) []EventRecord {
	out := make([]EventRecord, 0, len(records))
	for _, event := range records {
		if criteria.Matches(event) {
			out = append(out, event)
		}
	}
	return out
}
