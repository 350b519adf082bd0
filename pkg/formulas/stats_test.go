package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMAE(t *testing.T) {
	observed := []float64{1, 2, 3}
	predicted := []float64{2, 2, 1}
	assert.InDelta(t, 1.0, MAE(observed, predicted), 1e-9)

	assert.Equal(t, 0.0, MAE(nil, nil))
	assert.Equal(t, 0.0, MAE([]float64{1}, []float64{1, 2}))
}

func TestRMSE(t *testing.T) {
	observed := []float64{0, 0}
	predicted := []float64{3, 4}
	assert.InDelta(t, 3.5355339, RMSE(observed, predicted), 1e-6)
}

func TestRSquaredPerfectFit(t *testing.T) {
	observed := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.0, RSquared(observed, observed), 1e-9)
}

func TestRSquaredTooFewObservations(t *testing.T) {
	assert.Equal(t, 0.0, RSquared([]float64{1}, []float64{1}))
	assert.Equal(t, 0.0, RSquared(nil, nil))
}

func TestRSquaredConstantObserved(t *testing.T) {
	// Zero variance in observed values must not produce NaN
	observed := []float64{5, 5, 5}
	predicted := []float64{4, 5, 6}
	r2 := RSquared(observed, predicted)
	assert.False(t, r2 != r2, "result must not be NaN")
}

func TestTrailingMean(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6}
	assert.InDelta(t, 5.0, TrailingMean(data, 3), 1e-9)
	assert.InDelta(t, 3.5, TrailingMean(data, 14), 1e-9) // window longer than data
	assert.Equal(t, 0.0, TrailingMean(nil, 3))
}

func TestSMA(t *testing.T) {
	data := []float64{2, 4, 6, 8}
	out := SMA(data, 2)
	assert.Len(t, out, 4)
	assert.InDelta(t, 3.0, out[1], 1e-9)
	assert.InDelta(t, 7.0, out[3], 1e-9)
}

func TestEMASinglePeriod(t *testing.T) {
	data := []float64{1, 2, 3}
	assert.Equal(t, data, EMA(data, 1))
}
