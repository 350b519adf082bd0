package forecast

import "math"

// ComparisonEngine accumulates per-product training outcomes and decides the
// winning variant for each. It is not safe for concurrent use; a run owns
// exactly one engine.
type ComparisonEngine struct {
	rows []ComparisonRow
}

// NewComparisonEngine creates an empty comparison engine
func NewComparisonEngine() *ComparisonEngine {
	return &ComparisonEngine{}
}

// Add records one product's training outcome
func (e *ComparisonEngine) Add(row ComparisonRow) {
	e.rows = append(e.rows, row)
}

// Len returns the number of products recorded so far
func (e *ComparisonEngine) Len() int {
	return len(e.rows)
}

// Finalize resolves BestModel and ImprovementPct for every row and returns
// the table. The augmented variant wins only when its MAE is strictly lower
// than the base MAE. ImprovementPct is the relative MAE reduction in percent,
// rounded to one decimal, and never negative: a worse augmented model reports
// 0 improvement rather than a regression.
func (e *ComparisonEngine) Finalize() []ComparisonRow {
	for i := range e.rows {
		row := &e.rows[i]

		row.BestModel = BestModelBase
		if row.Augmented != nil && row.Augmented.MAE < row.Base.MAE {
			row.BestModel = BestModelAugmented
		}

		row.ImprovementPct = 0
		if row.Augmented != nil && row.Base.MAE > 0 {
			pct := round1(100 * (row.Base.MAE - row.Augmented.MAE) / row.Base.MAE)
			if pct > 0 {
				row.ImprovementPct = pct
			}
		}
	}
	return e.rows
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
