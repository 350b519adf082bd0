// Package forecast implements per-product demand forecasting: active-phase
// series preparation, seasonal model fitting for base and signal-augmented
// variants, hold-out evaluation, and the per-product model comparison.
package forecast

import "time"

const (
	// ForecastDays is the forecast horizon
	ForecastDays = 30
	// MinTrainingDays is the minimum dense series length a product needs to be trained
	MinTrainingDays = 14
	// MinNonzeroDays is the minimum number of days with sales a product needs to be trained
	MinNonzeroDays = 3
	// MaxGapDays is the largest tolerated gap between sale dates inside an active phase
	MaxGapDays = 42
	// DefaultPhaseDays bounds the active phase when no oversized gap exists
	DefaultPhaseDays = 365
)

// Model variant labels
const (
	BestModelBase      = "base"
	BestModelAugmented = "augmented"
)

// SeriesPoint is one day of a product's dense daily sales series
type SeriesPoint struct {
	Date     time.Time `json:"date"`
	Quantity float64   `json:"quantity"`
}

// ForecastPoint is one forecasted day with its 80% prediction interval
type ForecastPoint struct {
	Date      time.Time `json:"date"`
	Predicted float64   `json:"predicted"`
	Lower     float64   `json:"lower"`
	Upper     float64   `json:"upper"`
}

// Metrics holds hold-out evaluation results for one fitted variant
type Metrics struct {
	MAE       float64 `json:"mae"`
	RMSE      float64 `json:"rmse"`
	R2        float64 `json:"r2"`
	TrainSize int     `json:"train_size"`
	TestSize  int     `json:"test_size"`
}

// ComparisonRow is the per-product outcome of training both variants.
// Augmented is nil when signals were unavailable or the augmented fit failed.
type ComparisonRow struct {
	ProductID      int64    `json:"product_id"`
	ProductName    string   `json:"product_name"`
	Category       string   `json:"category"`
	Base           Metrics  `json:"base"`
	Augmented      *Metrics `json:"augmented,omitempty"`
	BestModel      string   `json:"best_model"`
	ImprovementPct float64  `json:"improvement_pct"`
}
