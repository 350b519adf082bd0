package training

import (
	"time"

	"github.com/google/uuid"

	"github.com/eshopdash/forecaster/internal/modules/forecast"
)

const smoothingPeriod = 7

// ProductHistory is one product's prepared daily series kept with a run for
// charting. Smoothed is the 7-day exponential moving average of quantities.
type ProductHistory struct {
	ProductName string                 `json:"product_name"`
	Category    string                 `json:"category"`
	Series      []forecast.SeriesPoint `json:"series"`
	Smoothed    []float64              `json:"smoothed"`
}

// RunResult is the full outcome of one training run
type RunResult struct {
	RunID              uuid.UUID                          `json:"run_id"`
	TrainedAt          time.Time                          `json:"trained_at"`
	LookbackDays       int                                `json:"lookback_days"`
	SignalsAvailable   bool                               `json:"signals_available"`
	Comparison         []forecast.ComparisonRow           `json:"comparison"`
	BaseForecasts      map[int64][]forecast.ForecastPoint `json:"base_forecasts"`
	AugmentedForecasts map[int64][]forecast.ForecastPoint `json:"augmented_forecasts"`
	History            map[int64]ProductHistory           `json:"history"`
}

// ProductResult bundles everything stored for one product in a run
type ProductResult struct {
	Comparison forecast.ComparisonRow   `json:"comparison"`
	Base       []forecast.ForecastPoint `json:"base_forecast"`
	Augmented  []forecast.ForecastPoint `json:"augmented_forecast,omitempty"`
	History    *ProductHistory          `json:"history,omitempty"`
}

// ProductFor extracts one product's slice of the run, or nil if the product
// was not trained in this run.
func (r *RunResult) ProductFor(productID int64) *ProductResult {
	for _, row := range r.Comparison {
		if row.ProductID != productID {
			continue
		}
		out := &ProductResult{
			Comparison: row,
			Base:       r.BaseForecasts[productID],
			Augmented:  r.AugmentedForecasts[productID],
		}
		if h, ok := r.History[productID]; ok {
			out.History = &h
		}
		return out
	}
	return nil
}
