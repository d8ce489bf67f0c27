package model

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// DateRange is a half-open range of nights: [Start, End). A stay from
// 2025-03-01 to 2025-03-05 occupies the nights of the 1st through the 4th.
type DateRange struct {
	Start time.Time `json:"start_date" bson:"start_date"`
	End   time.Time `json:"end_date" bson:"end_date"`
}

// ParseDateRange parses calendar dates in YYYY-MM-DD form, normalized to UTC
// midnight.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.ParseInLocation(DateLayout, start, time.UTC)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := time.ParseInLocation(DateLayout, end, time.UTC)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	return DateRange{Start: s, End: e}, nil
}

func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: truncateToDate(start), End: truncateToDate(end)}
}

func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date at UTC midnight.
func Today(now time.Time) time.Time {
	return truncateToDate(now)
}

func (r DateRange) Valid() bool {
	return r.Start.Before(r.End)
}

// Overlaps reports whether two half-open night ranges share at least one night.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.Start.Before(other.End) && r.End.After(other.Start)
}

// NightCount returns the number of nights covered by the range.
func (r DateRange) NightCount() int {
	return int(r.End.Sub(r.Start).Hours() / 24)
}

// Nights returns each night in the range, oldest first.
func (r DateRange) Nights() []time.Time {
	if !r.Valid() {
		return nil
	}
	nights := make([]time.Time, 0, r.NightCount())
	for d := r.Start; d.Before(r.End); d = d.AddDate(0, 0, 1) {
		nights = append(nights, d)
	}
	return nights
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}
