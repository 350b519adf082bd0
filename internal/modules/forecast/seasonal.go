package forecast

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/eshopdash/forecaster/pkg/formulas"
)

// Seasonal model feature configuration. Weekly seasonality is always fitted;
// yearly seasonality needs more than a full year of history to be identifiable.
const (
	weeklyFourierOrder = 3
	yearlyFourierOrder = 10
	changepointCount   = 12
	changepointRange   = 0.8

	// Ridge penalties per feature group. The trend penalty is the inverse of
	// the changepoint flexibility scale 0.15; seasonal and regressor terms use
	// a unit prior scale.
	trendPenalty     = 1.0 / 0.15
	seasonalPenalty  = 1.0
	regressorPenalty = 1.0

	// z-score for the central 80% prediction interval
	intervalZ = 1.2816
)

// ModelSpec selects the feature set for one fitted model
type ModelSpec struct {
	Yearly     bool
	Regressors []string
}

// SeasonalModel is an additive trend + seasonality + regressor model fitted
// with ridge-penalized least squares. A fitted model is owned by a single
// training call and never shared across products.
type SeasonalModel struct {
	spec ModelSpec

	origin   time.Time
	spanDays float64

	changepoints []float64
	regMean      map[string]float64
	regStd       map[string]float64

	coeffs   *mat.VecDense
	residStd float64
}

// FitSeasonalModel fits the model to a dense daily series. regressors maps
// each name in spec.Regressors to a slice aligned with series.
func FitSeasonalModel(series []SeriesPoint, regressors map[string][]float64, spec ModelSpec) (*SeasonalModel, error) {
	n := len(series)
	if n < 2 {
		return nil, fmt.Errorf("need at least 2 observations, got %d", n)
	}
	for _, name := range spec.Regressors {
		if len(regressors[name]) != n {
			return nil, fmt.Errorf("regressor %s has %d values for %d observations", name, len(regressors[name]), n)
		}
	}

	m := &SeasonalModel{
		spec:     spec,
		origin:   series[0].Date,
		spanDays: series[n-1].Date.Sub(series[0].Date).Hours() / 24,
		regMean:  make(map[string]float64, len(spec.Regressors)),
		regStd:   make(map[string]float64, len(spec.Regressors)),
	}
	if m.spanDays <= 0 {
		m.spanDays = 1
	}
	m.changepoints = evenChangepoints(changepointCount, changepointRange)

	for _, name := range spec.Regressors {
		vals := regressors[name]
		mean := formulas.Mean(vals)
		std := formulas.StdDev(vals)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		m.regMean[name] = mean
		m.regStd[name] = std
	}

	p := m.featureCount()
	x := mat.NewDense(n, p, nil)
	y := mat.NewVecDense(n, nil)
	for i, pt := range series {
		x.SetRow(i, m.featureRow(pt.Date, regressorsAt(regressors, spec.Regressors, i)))
		y.SetVec(i, pt.Quantity)
	}

	coeffs, err := solveRidge(x, y, m.penaltyDiag())
	if err != nil {
		return nil, fmt.Errorf("model fit failed: %w", err)
	}
	m.coeffs = coeffs

	residuals := make([]float64, n)
	var fitted mat.VecDense
	fitted.MulVec(x, coeffs)
	for i := 0; i < n; i++ {
		residuals[i] = y.AtVec(i) - fitted.AtVec(i)
	}
	m.residStd = formulas.StdDev(residuals)
	if math.IsNaN(m.residStd) {
		m.residStd = 0
	}

	return m, nil
}

// Predict evaluates the model on the given dates. regressors maps each name
// in the model spec to a slice aligned with dates. The interval is the
// central 80% band around the point prediction.
func (m *SeasonalModel) Predict(dates []time.Time, regressors map[string][]float64) []ForecastPoint {
	out := make([]ForecastPoint, len(dates))
	for i, d := range dates {
		row := m.featureRow(d, regressorsAt(regressors, m.spec.Regressors, i))
		v := mat.NewVecDense(len(row), row)
		yhat := mat.Dot(v, m.coeffs)
		margin := intervalZ * m.residStd
		out[i] = ForecastPoint{
			Date:      d,
			Predicted: yhat,
			Lower:     yhat - margin,
			Upper:     yhat + margin,
		}
	}
	return out
}

func (m *SeasonalModel) featureCount() int {
	p := 2 + len(m.changepoints) + 2*weeklyFourierOrder
	if m.spec.Yearly {
		p += 2 * yearlyFourierOrder
	}
	return p + len(m.spec.Regressors)
}

// featureRow builds one design-matrix row: intercept, scaled linear trend,
// changepoint hinges, weekly Fourier terms, optional yearly Fourier terms,
// then standardized regressors.
func (m *SeasonalModel) featureRow(date time.Time, regs []float64) []float64 {
	t := date.Sub(m.origin).Hours() / 24 / m.spanDays

	row := make([]float64, 0, m.featureCount())
	row = append(row, 1, t)
	for _, cp := range m.changepoints {
		row = append(row, math.Max(0, t-cp))
	}

	days := date.Sub(m.origin).Hours() / 24
	for k := 1; k <= weeklyFourierOrder; k++ {
		angle := 2 * math.Pi * float64(k) * days / 7
		row = append(row, math.Sin(angle), math.Cos(angle))
	}
	if m.spec.Yearly {
		for k := 1; k <= yearlyFourierOrder; k++ {
			angle := 2 * math.Pi * float64(k) * days / 365.25
			row = append(row, math.Sin(angle), math.Cos(angle))
		}
	}

	for i, name := range m.spec.Regressors {
		v := 0.0
		if i < len(regs) {
			v = regs[i]
		}
		row = append(row, (v-m.regMean[name])/m.regStd[name])
	}
	return row
}

// penaltyDiag returns per-coefficient ridge penalties. The intercept gets a
// tiny penalty so the normal equations stay positive definite.
func (m *SeasonalModel) penaltyDiag() []float64 {
	diag := make([]float64, 0, m.featureCount())
	diag = append(diag, 1e-8, trendPenalty)
	for range m.changepoints {
		diag = append(diag, trendPenalty)
	}
	seasonal := 2 * weeklyFourierOrder
	if m.spec.Yearly {
		seasonal += 2 * yearlyFourierOrder
	}
	for i := 0; i < seasonal; i++ {
		diag = append(diag, seasonalPenalty)
	}
	for range m.spec.Regressors {
		diag = append(diag, regressorPenalty)
	}
	return diag
}

// solveRidge solves (XᵀX + diag(penalty)) β = Xᵀy via Cholesky
func solveRidge(x *mat.Dense, y *mat.VecDense, penalty []float64) (*mat.VecDense, error) {
	_, p := x.Dims()

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	for i := 0; i < p; i++ {
		xtx.Set(i, i, xtx.At(i, i)+penalty[i])
	}

	sym := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			sym.SetSym(i, j, xtx.At(i, j))
		}
	}

	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var chol mat.Cholesky
	if !chol.Factorize(sym) {
		// Near-singular design; retry with a stronger jitter on the diagonal
		for i := 0; i < p; i++ {
			sym.SetSym(i, i, sym.At(i, i)+1e-6)
		}
		if !chol.Factorize(sym) {
			return nil, fmt.Errorf("normal equations are not positive definite")
		}
	}

	coeffs := mat.NewVecDense(p, nil)
	if err := chol.SolveVecTo(coeffs, &xty); err != nil {
		return nil, fmt.Errorf("cholesky solve: %w", err)
	}
	return coeffs, nil
}

// evenChangepoints spreads k changepoints uniformly over the first
// rangeFrac of scaled training time.
func evenChangepoints(k int, rangeFrac float64) []float64 {
	cps := make([]float64, k)
	for i := 0; i < k; i++ {
		cps[i] = rangeFrac * float64(i+1) / float64(k+1)
	}
	return cps
}

func regressorsAt(regressors map[string][]float64, names []string, i int) []float64 {
	if len(names) == 0 {
		return nil
	}
	out := make([]float64, len(names))
	for j, name := range names {
		vals := regressors[name]
		if i < len(vals) {
			out[j] = vals[i]
		}
	}
	return out
}
