package training

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eshopdash/forecaster/internal/modules/forecast"
	"github.com/eshopdash/forecaster/internal/modules/sales"
	"github.com/eshopdash/forecaster/internal/modules/signals"
	"github.com/eshopdash/forecaster/pkg/formulas"
)

const (
	// ActiveWindowWeeks is the trailing window a product must have sold in
	// to be trained.
	ActiveWindowWeeks = 12

	progressNameLimit = 40
)

// SalesLoader provides the raw daily sales rows for a run
type SalesLoader interface {
	LoadDailySales() ([]sales.DailySale, error)
}

// SignalSource provides the merged external signal series for a run.
// Implementations return signals.ErrUnavailable when no data exists.
type SignalSource interface {
	FetchDaily(ctx context.Context, lookbackDays int) (*signals.Series, error)
}

// ResultSink persists completed run results
type ResultSink interface {
	SaveRun(result *RunResult) error
}

// Orchestrator owns the training pipeline. One background run at a time;
// starting while a run is active is refused.
type Orchestrator struct {
	loader       SalesLoader
	signalSrc    SignalSource
	sink         ResultSink
	trainer      *forecast.Trainer
	state        *runState
	log          zerolog.Logger
	lookbackDays int

	// now is replaceable for deterministic tests
	now func() time.Time

	resultMu   sync.Mutex
	lastResult *RunResult
}

// NewOrchestrator creates the training orchestrator. signalSrc and sink may
// be nil; runs then train base-only and keep results in memory.
func NewOrchestrator(loader SalesLoader, signalSrc SignalSource, sink ResultSink, lookbackDays int, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		loader:       loader,
		signalSrc:    signalSrc,
		sink:         sink,
		trainer:      forecast.NewTrainer(log),
		state:        newRunState(),
		log:          log.With().Str("component", "orchestrator").Logger(),
		lookbackDays: lookbackDays,
		now:          time.Now,
	}
}

// Start launches a training run in the background. lookbackDays <= 0 uses the
// configured default. Returns false when a run is already active.
func (o *Orchestrator) Start(lookbackDays int) bool {
	if lookbackDays <= 0 {
		lookbackDays = o.lookbackDays
	}
	if !o.state.tryStart() {
		return false
	}

	go o.run(lookbackDays)
	return true
}

// Status returns a snapshot of the run state
func (o *Orchestrator) Status() Snapshot {
	return o.state.snapshot()
}

// Subscribe registers a progress listener; pair with Unsubscribe
func (o *Orchestrator) Subscribe() chan Snapshot {
	return o.state.subscribe()
}

// Unsubscribe removes a progress listener
func (o *Orchestrator) Unsubscribe(ch chan Snapshot) {
	o.state.unsubscribe(ch)
}

// LastResult returns the most recent completed run, or nil before the first
// successful run. Failed runs leave the previous result in place.
func (o *Orchestrator) LastResult() *RunResult {
	o.resultMu.Lock()
	defer o.resultMu.Unlock()
	return o.lastResult
}

// RestoreResult seeds the orchestrator with a previously persisted run,
// typically on startup. It never overwrites a newer in-memory result.
func (o *Orchestrator) RestoreResult(result *RunResult) {
	if result == nil {
		return
	}
	o.resultMu.Lock()
	defer o.resultMu.Unlock()
	if o.lastResult == nil || o.lastResult.TrainedAt.Before(result.TrainedAt) {
		o.lastResult = result
	}
}

// run executes one full training pass. Panics are recovered here so a bad
// product or model can never take the process down; the state always returns
// to not-running.
func (o *Orchestrator) run(lookbackDays int) {
	trained := -1
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().Interface("panic", r).Msg("Training run panicked")
			o.state.setProgress(fmt.Sprintf("ERROR: %v", r), 0, 0)
		}
		o.state.finish(trained)
	}()

	result, err := o.runOnce(lookbackDays)
	if err != nil {
		o.log.Error().Err(err).Msg("Training run failed")
		o.state.setProgress(fmt.Sprintf("ERROR: %s", err), 0, 0)
		return
	}

	o.resultMu.Lock()
	o.lastResult = result
	o.resultMu.Unlock()

	if o.sink != nil {
		// Persistence is best-effort; the in-memory result already stands
		if err := o.sink.SaveRun(result); err != nil {
			o.log.Error().Err(err).Msg("Failed to persist run results")
		}
	}

	trained = len(result.Comparison)
	o.state.setProgress(fmt.Sprintf("Done! %d products trained.", trained), trained, trained)
}

func (o *Orchestrator) runOnce(lookbackDays int) (*RunResult, error) {
	today := o.now()

	o.state.setProgress("Loading sales data...", 0, 0)
	allSales, err := o.loader.LoadDailySales()
	if err != nil {
		return nil, fmt.Errorf("loading sales data: %w", err)
	}
	if len(allSales) == 0 {
		return nil, fmt.Errorf("no sales data found")
	}

	sig := o.fetchSignals(lookbackDays)

	// No in-window candidates is a normal empty run, not a failure
	candidates := o.selectCandidates(allSales, today)

	result := &RunResult{
		RunID:              uuid.New(),
		TrainedAt:          today,
		LookbackDays:       lookbackDays,
		SignalsAvailable:   !sig.Empty(),
		BaseForecasts:      make(map[int64][]forecast.ForecastPoint),
		AugmentedForecasts: make(map[int64][]forecast.ForecastPoint),
		History:            make(map[int64]ProductHistory),
	}
	engine := forecast.NewComparisonEngine()

	o.state.setProgress(fmt.Sprintf("Training %d products...", len(candidates)), 0, len(candidates))
	for i, c := range candidates {
		o.state.setProgress(fmt.Sprintf("[%d/%d] %s", i+1, len(candidates), shortName(c.name)), i+1, len(candidates))

		series := forecast.PrepareSeries(c.points, today)
		if len(series) < forecast.MinTrainingDays || forecast.NonzeroDays(series) < forecast.MinNonzeroDays {
			o.log.Debug().Int64("product_id", c.id).Msg("Skipping product with insufficient history")
			continue
		}

		baseForecast, baseMetrics, err := o.trainer.TrainBase(series, today)
		if err != nil {
			o.log.Warn().Err(err).Int64("product_id", c.id).Msg("Base model training failed")
			continue
		}
		if baseMetrics == nil {
			continue
		}

		row := forecast.ComparisonRow{
			ProductID:   c.id,
			ProductName: c.name,
			Category:    c.category,
			Base:        *baseMetrics,
		}
		result.BaseForecasts[c.id] = baseForecast

		if !sig.Empty() {
			augForecast, augMetrics, err := o.trainer.TrainAugmented(series, sig, today)
			if err != nil {
				o.log.Warn().Err(err).Int64("product_id", c.id).Msg("Augmented model training failed")
			} else if augMetrics != nil {
				row.Augmented = augMetrics
				result.AugmentedForecasts[c.id] = augForecast
			}
		}

		engine.Add(row)
		result.History[c.id] = buildHistory(c.name, c.category, series)
	}

	result.Comparison = engine.Finalize()
	return result, nil
}

// fetchSignals retrieves the shared signal series. Any failure degrades the
// run to base-only training.
func (o *Orchestrator) fetchSignals(lookbackDays int) *signals.Series {
	if o.signalSrc == nil {
		return nil
	}

	o.state.setProgress("Fetching analytics data...", 0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	sig, err := o.signalSrc.FetchDaily(ctx, lookbackDays)
	if err != nil {
		o.log.Warn().Err(err).Msg("No analytics data, training base models only")
		o.state.setProgress("WARNING: No analytics data - training base models only", 0, 0)
		return nil
	}
	return sig
}

type candidate struct {
	id       int64
	name     string
	category string
	points   []forecast.SeriesPoint
	lastSale time.Time
}

// selectCandidates groups sales per product and keeps products with at least
// one sale inside the trailing active window.
func (o *Orchestrator) selectCandidates(rows []sales.DailySale, today time.Time) []candidate {
	cutoff := today.AddDate(0, 0, -7*ActiveWindowWeeks)

	byID := make(map[int64]*candidate)
	for _, row := range rows {
		c, ok := byID[row.ProductID]
		if !ok {
			c = &candidate{id: row.ProductID, name: row.ProductName, category: row.Category}
			byID[row.ProductID] = c
		}
		c.points = append(c.points, forecast.SeriesPoint{Date: row.Date, Quantity: row.Quantity})
		if row.Date.After(c.lastSale) {
			c.lastSale = row.Date
		}
	}

	// Stable product order keeps progress counters deterministic
	ids := make([]int64, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []candidate
	for _, id := range ids {
		c := byID[id]
		if c.lastSale.Before(cutoff) {
			continue
		}
		out = append(out, *c)
	}
	return out
}

// buildHistory keeps the prepared series plus a smoothed copy for charting
func buildHistory(name, category string, series []forecast.SeriesPoint) ProductHistory {
	quantities := make([]float64, len(series))
	for i, p := range series {
		quantities[i] = p.Quantity
	}
	return ProductHistory{
		ProductName: name,
		Category:    category,
		Series:      series,
		Smoothed:    formulas.EMA(quantities, smoothingPeriod),
	}
}

func shortName(name string) string {
	runes := []rune(name)
	if len(runes) <= progressNameLimit {
		return name
	}
	return string(runes[:progressNameLimit]) + "..."
}
