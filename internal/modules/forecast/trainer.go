package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/eshopdash/forecaster/internal/modules/signals"
	"github.com/eshopdash/forecaster/pkg/formulas"
)

const (
	holdoutFraction     = 0.8
	regressorFillWindow = 14
)

// Trainer fits base and signal-augmented forecast models for one product at
// a time. Each call fits its own models; nothing is shared between calls.
type Trainer struct {
	horizon int
	log     zerolog.Logger
}

// NewTrainer creates a trainer with the standard forecast horizon
func NewTrainer(log zerolog.Logger) *Trainer {
	return &Trainer{
		horizon: ForecastDays,
		log:     log.With().Str("component", "trainer").Logger(),
	}
}

// TrainBase fits the sales-only model: a hold-out fit for metrics, then a
// full-series fit for the forecast. The forecast contains only days strictly
// after today; when no such days exist both returns are nil.
func (t *Trainer) TrainBase(series []SeriesPoint, today time.Time) ([]ForecastPoint, *Metrics, error) {
	return t.train(series, nil, nil, nil, today)
}

// TrainAugmented fits the model with external signal regressors. Future
// regressor values reuse the historical value when the signal series covers
// the date, otherwise the trailing 14-day mean of the merged history.
func (t *Trainer) TrainAugmented(series []SeriesPoint, sig *signals.Series, today time.Time) ([]ForecastPoint, *Metrics, error) {
	if sig.Empty() {
		return nil, nil, fmt.Errorf("no signal series provided")
	}
	regs := mergeRegressors(series, sig)
	return t.train(series, sig, signals.RegressorNames, regs, today)
}

func (t *Trainer) train(series []SeriesPoint, sig *signals.Series, regNames []string, regs map[string][]float64, today time.Time) ([]ForecastPoint, *Metrics, error) {
	n := len(series)
	if n < MinTrainingDays {
		return nil, nil, fmt.Errorf("series too short: %d days", n)
	}

	spec := ModelSpec{
		Yearly:     n > 365,
		Regressors: regNames,
	}

	metrics, err := t.evaluate(series, regs, spec)
	if err != nil {
		return nil, nil, err
	}

	model, err := FitSeasonalModel(series, regs, spec)
	if err != nil {
		return nil, nil, err
	}

	today = truncateDay(today)
	future := futureDates(series[n-1].Date, today, t.horizon)
	if len(future) == 0 {
		return nil, nil, nil
	}

	futureRegs := futureRegressors(sig, regNames, regs, future)
	forecast := model.Predict(future, futureRegs)
	for i := range forecast {
		forecast[i].Predicted = round2(math.Max(0, forecast[i].Predicted))
		forecast[i].Lower = round2(math.Max(0, forecast[i].Lower))
		forecast[i].Upper = round2(math.Max(0, forecast[i].Upper))
	}

	t.log.Debug().
		Int("days", n).
		Int("regressors", len(regNames)).
		Int("forecast_days", len(forecast)).
		Msg("Fitted forecast model")

	return forecast, metrics, nil
}

// evaluate fits on the first 80% of the series chronologically and scores
// predictions on the rest. R2 is reported as 0 when the test set has at most
// one observation.
func (t *Trainer) evaluate(series []SeriesPoint, regs map[string][]float64, spec ModelSpec) (*Metrics, error) {
	n := len(series)
	split := int(holdoutFraction * float64(n))

	model, err := FitSeasonalModel(series[:split], sliceRegressors(regs, spec.Regressors, 0, split), spec)
	if err != nil {
		return nil, fmt.Errorf("evaluation fit: %w", err)
	}

	m := &Metrics{TrainSize: split, TestSize: n - split}
	if n-split == 0 {
		return m, nil
	}

	test := series[split:]
	dates := make([]time.Time, len(test))
	observed := make([]float64, len(test))
	for i, pt := range test {
		dates[i] = pt.Date
		observed[i] = pt.Quantity
	}

	preds := model.Predict(dates, sliceRegressors(regs, spec.Regressors, split, n))
	predicted := make([]float64, len(preds))
	for i, p := range preds {
		predicted[i] = math.Max(0, p.Predicted)
	}

	m.MAE = round2(formulas.MAE(observed, predicted))
	m.RMSE = round2(formulas.RMSE(observed, predicted))
	if len(test) > 1 {
		m.R2 = round3(formulas.RSquared(observed, predicted))
	}
	return m, nil
}

// futureRegressors builds regressor values for forecast dates. Dates the
// signal series covers reuse the historical value; dates past it fall back to
// the trailing mean of the last regressorFillWindow days of merged history.
func futureRegressors(sig *signals.Series, regNames []string, regs map[string][]float64, future []time.Time) map[string][]float64 {
	if len(regNames) == 0 {
		return nil
	}

	out := make(map[string][]float64, len(regNames))
	for _, name := range regNames {
		fill := formulas.TrailingMean(regs[name], regressorFillWindow)
		vals := make([]float64, len(future))
		for i, d := range future {
			if day, ok := sig.At(d); ok {
				vals[i] = day.Value(name)
			} else {
				vals[i] = fill
			}
		}
		out[name] = vals
	}
	return out
}

// mergeRegressors aligns the shared signal series with one product's daily
// series. Days the signal series does not cover get zeros.
func mergeRegressors(series []SeriesPoint, sig *signals.Series) map[string][]float64 {
	out := make(map[string][]float64, len(signals.RegressorNames))
	for _, name := range signals.RegressorNames {
		vals := make([]float64, len(series))
		for i, pt := range series {
			if day, ok := sig.At(pt.Date); ok {
				vals[i] = day.Value(name)
			}
		}
		out[name] = vals
	}
	return out
}

// futureDates lists up to horizon consecutive days after the series end,
// keeping only days strictly after today.
func futureDates(lastDate, today time.Time, horizon int) []time.Time {
	var out []time.Time
	for i := 1; i <= horizon; i++ {
		d := lastDate.AddDate(0, 0, i)
		if d.After(today) {
			out = append(out, d)
		}
	}
	return out
}

func sliceRegressors(regs map[string][]float64, names []string, from, to int) map[string][]float64 {
	if len(names) == 0 {
		return nil
	}
	out := make(map[string][]float64, len(names))
	for _, name := range names {
		out[name] = regs[name][from:to]
	}
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
