package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// MAE calculates the mean absolute error between observed and predicted values
func MAE(observed, predicted []float64) float64 {
	if len(observed) == 0 || len(observed) != len(predicted) {
		return 0
	}
	sum := 0.0
	for i := range observed {
		sum += math.Abs(observed[i] - predicted[i])
	}
	return sum / float64(len(observed))
}

// RMSE calculates the root mean squared error between observed and predicted values
func RMSE(observed, predicted []float64) float64 {
	if len(observed) == 0 || len(observed) != len(predicted) {
		return 0
	}
	sum := 0.0
	for i := range observed {
		d := observed[i] - predicted[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(observed)))
}

// RSquared calculates the coefficient of determination.
// Returns 0 for fewer than 2 observations, where the sample variance is undefined.
func RSquared(observed, predicted []float64) float64 {
	if len(observed) < 2 || len(observed) != len(predicted) {
		return 0
	}
	r2 := stat.RSquaredFrom(predicted, observed, nil)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		return 0
	}
	return r2
}
