package formulas

import (
	talib "github.com/markcheno/go-talib"
)

// SMA calculates the simple moving average with the given period.
// Leading values (before a full window is available) are returned as produced
// by TA-Lib, i.e. zero.
func SMA(data []float64, period int) []float64 {
	if len(data) == 0 || period <= 0 {
		return []float64{}
	}
	if period > len(data) {
		period = len(data)
	}
	if period == 1 {
		out := make([]float64, len(data))
		copy(out, data)
		return out
	}
	return talib.Sma(data, period)
}

// EMA calculates the exponential moving average with the given period
func EMA(data []float64, period int) []float64 {
	if len(data) == 0 || period <= 0 {
		return []float64{}
	}
	if period > len(data) {
		period = len(data)
	}
	if period == 1 {
		out := make([]float64, len(data))
		copy(out, data)
		return out
	}
	return talib.Ema(data, period)
}

// TrailingMean returns the mean of the last n values of data.
// If data is shorter than n the whole slice is used.
func TrailingMean(data []float64, n int) float64 {
	if len(data) == 0 || n <= 0 {
		return 0
	}
	if n > len(data) {
		n = len(data)
	}
	return Mean(data[len(data)-n:])
}
