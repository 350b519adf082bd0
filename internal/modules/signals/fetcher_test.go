package signals

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	traffic    []DatedValue
	trafficErr error
	ads        []AdDay
	adsErr     error
	channels   []ChannelDay
	channelErr error
}

func (s *stubClient) TrafficByDate(ctx context.Context, lookbackDays int) ([]DatedValue, error) {
	return s.traffic, s.trafficErr
}

func (s *stubClient) AdPerformanceByDate(ctx context.Context, lookbackDays int) ([]AdDay, error) {
	return s.ads, s.adsErr
}

func (s *stubClient) SessionsByChannel(ctx context.Context, lookbackDays int) ([]ChannelDay, error) {
	return s.channels, s.channelErr
}

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestFetchDailyMergesAllSignals(t *testing.T) {
	d1 := day("2024-06-01")
	d2 := day("2024-06-02")

	client := &stubClient{
		traffic: []DatedValue{
			{Date: d1, Value: 100},
			{Date: d2, Value: 120},
		},
		ads: []AdDay{
			{Date: d1, Campaign: "brand", Clicks: 10, Cost: 5.5},
			{Date: d1, Campaign: "generic", Clicks: 20, Cost: 7.5},
		},
		channels: []ChannelDay{
			{Date: d1, Channel: "Paid Search", Sessions: 30},
			{Date: d1, Channel: "Paid Social", Sessions: 10},
			{Date: d1, Channel: "Organic Search", Sessions: 50},
			{Date: d2, Channel: "Paid Other", Sessions: 5},
		},
	}

	fetcher := NewFetcher(client, testLogger())
	series, err := fetcher.FetchDaily(context.Background(), 90)
	require.NoError(t, err)
	require.Len(t, series.Days, 2)

	first, ok := series.At(d1)
	require.True(t, ok)
	assert.Equal(t, 100.0, first.Sessions)
	assert.Equal(t, 30.0, first.AdClicks) // campaigns aggregated
	assert.Equal(t, 13.0, first.AdCost)
	assert.Equal(t, 40.0, first.PaidSessions) // organic excluded

	second, ok := series.At(d2)
	require.True(t, ok)
	assert.Equal(t, 120.0, second.Sessions)
	assert.Equal(t, 0.0, second.AdClicks)
	assert.Equal(t, 5.0, second.PaidSessions)
}

func TestFetchDailyAdFailureDegradesToZeros(t *testing.T) {
	d1 := day("2024-06-01")
	client := &stubClient{
		traffic:    []DatedValue{{Date: d1, Value: 100}},
		adsErr:     errors.New("quota exceeded"),
		channelErr: errors.New("quota exceeded"),
	}

	fetcher := NewFetcher(client, testLogger())
	series, err := fetcher.FetchDaily(context.Background(), 90)
	require.NoError(t, err)

	first, ok := series.At(d1)
	require.True(t, ok)
	assert.Equal(t, 100.0, first.Sessions)
	assert.Equal(t, 0.0, first.AdClicks)
	assert.Equal(t, 0.0, first.AdCost)
	assert.Equal(t, 0.0, first.PaidSessions)
}

func TestFetchDailyTrafficErrorUnavailable(t *testing.T) {
	client := &stubClient{trafficErr: errors.New("permission denied")}

	fetcher := NewFetcher(client, testLogger())
	_, err := fetcher.FetchDaily(context.Background(), 90)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFetchDailyEmptyTrafficUnavailable(t *testing.T) {
	client := &stubClient{}

	fetcher := NewFetcher(client, testLogger())
	_, err := fetcher.FetchDaily(context.Background(), 90)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSeriesLookup(t *testing.T) {
	series := NewSeries([]Day{
		{Date: day("2024-06-02"), Sessions: 2},
		{Date: day("2024-06-01"), Sessions: 1},
	})

	// Sorted ascending regardless of input order
	assert.Equal(t, day("2024-06-01"), series.Days[0].Date)

	_, ok := series.At(day("2024-06-03"))
	assert.False(t, ok)

	var nilSeries *Series
	assert.True(t, nilSeries.Empty())
	_, ok = nilSeries.At(day("2024-06-01"))
	assert.False(t, ok)
}
