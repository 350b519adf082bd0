// Package signals fetches daily external demand signals (traffic, ad spend)
// from the analytics source and merges them into a single daily series.
package signals

import (
	"sort"
	"time"
)

// Regressor column names, in the order they are fed to augmented models.
const (
	RegressorSessions     = "sessions"
	RegressorAdClicks     = "ad_clicks"
	RegressorAdCost       = "ad_cost"
	RegressorPaidSessions = "paid_sessions"
)

// RegressorNames lists all external regressor columns
var RegressorNames = []string{
	RegressorSessions,
	RegressorAdClicks,
	RegressorAdCost,
	RegressorPaidSessions,
}

// Day holds all external signal metrics for one calendar day
type Day struct {
	Date         time.Time
	Sessions     float64
	AdClicks     float64
	AdCost       float64
	PaidSessions float64
}

// Value returns the named regressor value for this day
func (d Day) Value(name string) float64 {
	switch name {
	case RegressorSessions:
		return d.Sessions
	case RegressorAdClicks:
		return d.AdClicks
	case RegressorAdCost:
		return d.AdCost
	case RegressorPaidSessions:
		return d.PaidSessions
	}
	return 0
}

// Series is a dense-by-observation daily signal series, sorted by date.
// It is shared read-only across all product trainings within a run.
type Series struct {
	Days  []Day
	index map[string]int
}

// NewSeries builds a Series from days, sorting by date and indexing lookups
func NewSeries(days []Day) *Series {
	sorted := make([]Day, len(days))
	copy(sorted, days)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	index := make(map[string]int, len(sorted))
	for i, d := range sorted {
		index[d.Date.Format("2006-01-02")] = i
	}

	return &Series{Days: sorted, index: index}
}

// At returns the signal day for the given date, if present
func (s *Series) At(date time.Time) (Day, bool) {
	if s == nil {
		return Day{}, false
	}
	i, ok := s.index[date.Format("2006-01-02")]
	if !ok {
		return Day{}, false
	}
	return s.Days[i], true
}

// Empty reports whether the series holds no observations
func (s *Series) Empty() bool {
	return s == nil || len(s.Days) == 0
}
