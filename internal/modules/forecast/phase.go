package forecast

import (
	"sort"
	"time"
)

// PrepareSeries builds the dense daily training series for one product from
// its raw sale dates. Quantities on the same date are summed, the active sales
// phase is isolated, and the phase is reindexed to one row per calendar day
// through today with zeros on days without sales.
//
// The active phase starts at the most recent sale date preceded by a gap of
// more than MaxGapDays. When no such gap exists the phase is capped to the
// trailing DefaultPhaseDays before the last sale.
func PrepareSeries(raw []SeriesPoint, today time.Time) []SeriesPoint {
	if len(raw) == 0 {
		return nil
	}

	totals := make(map[string]float64, len(raw))
	byKey := make(map[string]time.Time, len(raw))
	for _, p := range raw {
		d := truncateDay(p.Date)
		key := d.Format("2006-01-02")
		totals[key] += p.Quantity
		byKey[key] = d
	}

	dates := make([]time.Time, 0, len(byKey))
	for _, d := range byKey {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	start := phaseStart(dates)

	today = truncateDay(today)
	first := start
	if first.After(today) {
		// All sales are in the future relative to the clock; keep the phase as is
		today = dates[len(dates)-1]
	}

	days := int(today.Sub(first).Hours()/24) + 1
	series := make([]SeriesPoint, 0, days)
	for d := first; !d.After(today); d = d.AddDate(0, 0, 1) {
		series = append(series, SeriesPoint{
			Date:     d,
			Quantity: totals[d.Format("2006-01-02")],
		})
	}
	return series
}

// phaseStart finds the first date of the active sales phase
func phaseStart(dates []time.Time) time.Time {
	last := dates[len(dates)-1]
	for i := len(dates) - 1; i >= 1; i-- {
		gap := dates[i].Sub(dates[i-1]).Hours() / 24
		if gap > MaxGapDays {
			return dates[i]
		}
	}

	cutoff := last.AddDate(0, 0, -DefaultPhaseDays)
	if dates[0].After(cutoff) {
		return dates[0]
	}
	for _, d := range dates {
		if !d.Before(cutoff) {
			return d
		}
	}
	return dates[0]
}

// NonzeroDays counts days with at least one unit sold
func NonzeroDays(series []SeriesPoint) int {
	n := 0
	for _, p := range series {
		if p.Quantity > 0 {
			n++
		}
	}
	return n
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
