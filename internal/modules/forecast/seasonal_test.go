package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitSeasonalModelConstant(t *testing.T) {
	today := day("2024-06-10")
	series := dailySeries(today, 60, func(i int) float64 { return 7 })

	model, err := FitSeasonalModel(series, nil, ModelSpec{})
	require.NoError(t, err)

	dates := []time.Time{today.AddDate(0, 0, 1), today.AddDate(0, 0, 15)}
	preds := model.Predict(dates, nil)
	require.Len(t, preds, 2)
	for _, p := range preds {
		assert.InDelta(t, 7.0, p.Predicted, 1.0)
		assert.LessOrEqual(t, p.Lower, p.Predicted)
		assert.GreaterOrEqual(t, p.Upper, p.Predicted)
	}
}

func TestFitSeasonalModelWeeklyPattern(t *testing.T) {
	today := day("2024-06-10")
	// Strong day-of-week effect: weekends sell double
	series := dailySeries(today, 140, func(i int) float64 {
		if i%7 < 2 {
			return 20
		}
		return 10
	})

	model, err := FitSeasonalModel(series, nil, ModelSpec{})
	require.NoError(t, err)

	// The fitted weekly component should separate high and low days
	var high, low []time.Time
	for i := 1; i <= 14; i++ {
		d := series[0].Date.AddDate(0, 0, 140+i-1)
		offset := (140 + i - 1) % 7
		if offset < 2 {
			high = append(high, d)
		} else {
			low = append(low, d)
		}
	}

	highMean := meanPrediction(model, high)
	lowMean := meanPrediction(model, low)
	assert.Greater(t, highMean, lowMean)
}

func TestFitSeasonalModelWithRegressor(t *testing.T) {
	today := day("2024-06-10")
	n := 80
	// Demand driven linearly by the regressor
	regs := map[string][]float64{"sessions": make([]float64, n)}
	series := dailySeries(today, n, func(i int) float64 { return 0 })
	for i := 0; i < n; i++ {
		v := 50 + 10*math.Sin(float64(i)/5)
		regs["sessions"][i] = v
		series[i].Quantity = v / 10
	}

	model, err := FitSeasonalModel(series, regs, ModelSpec{Regressors: []string{"sessions"}})
	require.NoError(t, err)

	preds := model.Predict(
		[]time.Time{today.AddDate(0, 0, 1)},
		map[string][]float64{"sessions": {55}},
	)
	require.Len(t, preds, 1)
	assert.InDelta(t, 5.5, preds[0].Predicted, 2.5)
}

func TestFitSeasonalModelRejectsTinySeries(t *testing.T) {
	series := []SeriesPoint{{Date: day("2024-06-01"), Quantity: 1}}
	_, err := FitSeasonalModel(series, nil, ModelSpec{})
	assert.Error(t, err)
}

func TestFitSeasonalModelRegressorLengthMismatch(t *testing.T) {
	today := day("2024-06-10")
	series := dailySeries(today, 30, func(i int) float64 { return 1 })
	regs := map[string][]float64{"sessions": {1, 2, 3}}

	_, err := FitSeasonalModel(series, regs, ModelSpec{Regressors: []string{"sessions"}})
	assert.Error(t, err)
}

func meanPrediction(model *SeasonalModel, dates []time.Time) float64 {
	preds := model.Predict(dates, nil)
	sum := 0.0
	for _, p := range preds {
		sum += p.Predicted
	}
	return sum / float64(len(preds))
}
