package signals

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	analyticsdata "google.golang.org/api/analyticsdata/v1beta"
	"google.golang.org/api/option"
)

const reportRowLimit = 10000

// DatedValue is one metric observation on one calendar day
type DatedValue struct {
	Date  time.Time
	Value float64
}

// AdDay is one campaign's ad performance on one calendar day
type AdDay struct {
	Date     time.Time
	Campaign string
	Clicks   float64
	Cost     float64
}

// ChannelDay is one channel group's sessions on one calendar day
type ChannelDay struct {
	Date     time.Time
	Channel  string
	Sessions float64
}

// AnalyticsClient wraps the GA4 Data API for the report shapes the fetcher needs
type AnalyticsClient struct {
	svc        *analyticsdata.Service
	propertyID string
	log        zerolog.Logger
}

// NewAnalyticsClient creates a GA4 Data API client from a service account
// credentials file.
func NewAnalyticsClient(ctx context.Context, propertyID, credentialsFile string, log zerolog.Logger) (*AnalyticsClient, error) {
	if propertyID == "" {
		return nil, fmt.Errorf("analytics property ID is required")
	}

	svc, err := analyticsdata.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create analytics service: %w", err)
	}

	return &AnalyticsClient{
		svc:        svc,
		propertyID: propertyID,
		log:        log.With().Str("component", "analytics_client").Logger(),
	}, nil
}

// runReport runs a GA4 report over the trailing lookback window ending today
func (c *AnalyticsClient) runReport(ctx context.Context, dimensions, metrics []string, lookbackDays int) ([]*analyticsdata.Row, error) {
	req := &analyticsdata.RunReportRequest{
		DateRanges: []*analyticsdata.DateRange{{
			StartDate: fmt.Sprintf("%ddaysAgo", lookbackDays),
			EndDate:   "today",
		}},
		Limit: reportRowLimit,
	}
	for _, d := range dimensions {
		req.Dimensions = append(req.Dimensions, &analyticsdata.Dimension{Name: d})
	}
	for _, m := range metrics {
		req.Metrics = append(req.Metrics, &analyticsdata.Metric{Name: m})
	}

	resp, err := c.svc.Properties.RunReport("properties/"+c.propertyID, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("report %v/%v failed: %w", dimensions, metrics, err)
	}

	return resp.Rows, nil
}

// TrafficByDate returns daily sessions over the lookback window
func (c *AnalyticsClient) TrafficByDate(ctx context.Context, lookbackDays int) ([]DatedValue, error) {
	rows, err := c.runReport(ctx, []string{"date"}, []string{"sessions"}, lookbackDays)
	if err != nil {
		return nil, err
	}

	var out []DatedValue
	for _, row := range rows {
		date, ok := parseReportDate(row.DimensionValues, 0)
		if !ok {
			continue
		}
		out = append(out, DatedValue{Date: date, Value: metricValue(row.MetricValues, 0)})
	}
	return out, nil
}

// AdPerformanceByDate returns per-campaign daily ad clicks and cost
func (c *AnalyticsClient) AdPerformanceByDate(ctx context.Context, lookbackDays int) ([]AdDay, error) {
	rows, err := c.runReport(ctx,
		[]string{"date", "sessionGoogleAdsCampaignName"},
		[]string{"advertiserAdClicks", "advertiserAdCost"},
		lookbackDays,
	)
	if err != nil {
		return nil, err
	}

	var out []AdDay
	for _, row := range rows {
		date, ok := parseReportDate(row.DimensionValues, 0)
		if !ok {
			continue
		}
		campaign := dimensionValue(row.DimensionValues, 1)
		if campaign == "(not set)" {
			continue
		}
		out = append(out, AdDay{
			Date:     date,
			Campaign: campaign,
			Clicks:   metricValue(row.MetricValues, 0),
			Cost:     metricValue(row.MetricValues, 1),
		})
	}
	return out, nil
}

// SessionsByChannel returns per-channel-group daily sessions
func (c *AnalyticsClient) SessionsByChannel(ctx context.Context, lookbackDays int) ([]ChannelDay, error) {
	rows, err := c.runReport(ctx,
		[]string{"date", "sessionDefaultChannelGroup"},
		[]string{"sessions"},
		lookbackDays,
	)
	if err != nil {
		return nil, err
	}

	var out []ChannelDay
	for _, row := range rows {
		date, ok := parseReportDate(row.DimensionValues, 0)
		if !ok {
			continue
		}
		out = append(out, ChannelDay{
			Date:     date,
			Channel:  dimensionValue(row.DimensionValues, 1),
			Sessions: metricValue(row.MetricValues, 0),
		})
	}
	return out, nil
}

// GA4 reports dates as YYYYMMDD
func parseReportDate(dims []*analyticsdata.DimensionValue, i int) (time.Time, bool) {
	raw := dimensionValue(dims, i)
	date, err := time.Parse("20060102", raw)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

func dimensionValue(dims []*analyticsdata.DimensionValue, i int) string {
	if i >= len(dims) || dims[i] == nil {
		return ""
	}
	return dims[i].Value
}

func metricValue(mets []*analyticsdata.MetricValue, i int) float64 {
	if i >= len(mets) || mets[i] == nil {
		return 0
	}
	v, err := strconv.ParseFloat(mets[i].Value, 64)
	if err != nil {
		return 0
	}
	return v
}
