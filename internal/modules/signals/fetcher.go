package signals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrUnavailable indicates the analytics source returned no traffic data at
// all. Callers degrade to base-only training on this error; it is never fatal
// to a run.
var ErrUnavailable = errors.New("signals: no traffic data available")

// paidChannels are the channel group labels counted as paid sessions
var paidChannels = map[string]bool{
	"Paid Search": true,
	"Paid Social": true,
	"Paid Other":  true,
}

// ReportClient is the subset of the analytics client the fetcher needs
type ReportClient interface {
	TrafficByDate(ctx context.Context, lookbackDays int) ([]DatedValue, error)
	AdPerformanceByDate(ctx context.Context, lookbackDays int) ([]AdDay, error)
	SessionsByChannel(ctx context.Context, lookbackDays int) ([]ChannelDay, error)
}

// Fetcher retrieves and merges the daily external-signal table
type Fetcher struct {
	client ReportClient
	log    zerolog.Logger
}

// NewFetcher creates a new signal fetcher
func NewFetcher(client ReportClient, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		client: client,
		log:    log.With().Str("component", "signal_fetcher").Logger(),
	}
}

// FetchDaily retrieves the merged daily signal series for the trailing
// lookback window. The traffic date axis drives the merge; ad and paid-channel
// metrics are left-joined onto it and default to 0 where missing. Ad or
// paid-channel fetch failures degrade to zeros; missing traffic data returns
// ErrUnavailable.
func (f *Fetcher) FetchDaily(ctx context.Context, lookbackDays int) (*Series, error) {
	traffic, err := f.client.TrafficByDate(ctx, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	if len(traffic) == 0 {
		return nil, ErrUnavailable
	}

	adsByDate := f.fetchAds(ctx, lookbackDays)
	paidByDate := f.fetchPaidSessions(ctx, lookbackDays)

	days := make([]Day, 0, len(traffic))
	for _, t := range traffic {
		key := t.Date.Format("2006-01-02")
		day := Day{Date: t.Date, Sessions: t.Value}
		if ad, ok := adsByDate[key]; ok {
			day.AdClicks = ad.Clicks
			day.AdCost = ad.Cost
		}
		day.PaidSessions = paidByDate[key]
		days = append(days, day)
	}

	f.log.Info().
		Int("days", len(days)).
		Int("lookback_days", lookbackDays).
		Msg("Fetched external signal series")

	return NewSeries(days), nil
}

type adTotals struct {
	Clicks float64
	Cost   float64
}

// fetchAds aggregates campaign-level ad performance per date.
// Failures are non-fatal and yield zeros.
func (f *Fetcher) fetchAds(ctx context.Context, lookbackDays int) map[string]adTotals {
	out := make(map[string]adTotals)

	rows, err := f.client.AdPerformanceByDate(ctx, lookbackDays)
	if err != nil {
		f.log.Warn().Err(err).Msg("Ad performance fetch failed, defaulting to zeros")
		return out
	}

	for _, row := range rows {
		key := row.Date.Format("2006-01-02")
		totals := out[key]
		totals.Clicks += row.Clicks
		totals.Cost += row.Cost
		out[key] = totals
	}
	return out
}

// fetchPaidSessions sums paid-channel sessions per date.
// Failures are non-fatal and yield zeros.
func (f *Fetcher) fetchPaidSessions(ctx context.Context, lookbackDays int) map[string]float64 {
	out := make(map[string]float64)

	rows, err := f.client.SessionsByChannel(ctx, lookbackDays)
	if err != nil {
		f.log.Warn().Err(err).Msg("Channel sessions fetch failed, defaulting to zeros")
		return out
	}

	for _, row := range rows {
		if !paidChannels[row.Channel] {
			continue
		}
		out[row.Date.Format("2006-01-02")] += row.Sessions
	}
	return out
}

// Truncate normalizes a timestamp to midnight UTC, the granularity all daily
// series in this package use.
func Truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
