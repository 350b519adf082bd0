package training

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshopdash/forecaster/internal/modules/forecast"
	"github.com/eshopdash/forecaster/internal/modules/sales"
	"github.com/eshopdash/forecaster/internal/modules/signals"
)

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

type stubLoader struct {
	rows    []sales.DailySale
	err     error
	release chan struct{} // when set, LoadDailySales blocks until closed
}

func (l *stubLoader) LoadDailySales() ([]sales.DailySale, error) {
	if l.release != nil {
		<-l.release
	}
	return l.rows, l.err
}

type stubSignalSource struct {
	series *signals.Series
	err    error
}

func (s *stubSignalSource) FetchDaily(ctx context.Context, lookbackDays int) (*signals.Series, error) {
	return s.series, s.err
}

type captureSink struct {
	saved *RunResult
}

func (c *captureSink) SaveRun(result *RunResult) error {
	c.saved = result
	return nil
}

// productSales generates n days of sales ending on today for one product
func productSales(id int64, name string, today time.Time, n int) []sales.DailySale {
	rows := make([]sales.DailySale, n)
	for i := 0; i < n; i++ {
		rows[i] = sales.DailySale{
			ProductID:   id,
			ProductName: name,
			Category:    "toys",
			Date:        today.AddDate(0, 0, -(n - 1 - i)),
			Quantity:    float64(3 + i%4),
			Revenue:     10,
			Currency:    "EUR",
		}
	}
	return rows
}

func waitForRun(t *testing.T, o *Orchestrator) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !o.Status().Running
	}, 30*time.Second, 10*time.Millisecond)
}

func TestOrchestratorBaseOnlyRun(t *testing.T) {
	today := day("2024-06-10")

	var rows []sales.DailySale
	rows = append(rows, productSales(1, "Wooden Train", today, 60)...)
	rows = append(rows, productSales(2, "Puzzle Cube", today, 45)...)
	rows = append(rows, productSales(3, "Plush Bear", today, 30)...)

	o := NewOrchestrator(&stubLoader{rows: rows}, nil, nil, 90, testLogger())
	o.now = func() time.Time { return today }

	require.True(t, o.Start(0))
	waitForRun(t, o)

	status := o.Status()
	assert.Equal(t, "Done! 3 products trained.", status.Progress)
	assert.Equal(t, 3, status.Results)

	result := o.LastResult()
	require.NotNil(t, result)
	assert.False(t, result.SignalsAvailable)
	assert.Len(t, result.Comparison, 3)
	assert.Len(t, result.BaseForecasts, 3)
	assert.Empty(t, result.AugmentedForecasts)

	for _, row := range result.Comparison {
		assert.Nil(t, row.Augmented)
		assert.Equal(t, forecast.BestModelBase, row.BestModel)
		assert.Equal(t, 0.0, row.ImprovementPct)
	}

	history, ok := result.History[1]
	require.True(t, ok)
	assert.Equal(t, "Wooden Train", history.ProductName)
	assert.Len(t, history.Smoothed, len(history.Series))
}

func TestOrchestratorAugmentedRun(t *testing.T) {
	today := day("2024-06-10")
	rows := productSales(1, "Wooden Train", today, 60)

	var days []signals.Day
	for i := 0; i < 90; i++ {
		days = append(days, signals.Day{
			Date:         today.AddDate(0, 0, -(89 - i)),
			Sessions:     100 + float64(i%10),
			AdClicks:     5,
			AdCost:       12,
			PaidSessions: 20,
		})
	}

	sink := &captureSink{}
	o := NewOrchestrator(&stubLoader{rows: rows}, &stubSignalSource{series: signals.NewSeries(days)}, sink, 90, testLogger())
	o.now = func() time.Time { return today }

	require.True(t, o.Start(0))
	waitForRun(t, o)

	result := o.LastResult()
	require.NotNil(t, result)
	assert.True(t, result.SignalsAvailable)
	require.Len(t, result.Comparison, 1)
	assert.NotNil(t, result.Comparison[0].Augmented)
	assert.Len(t, result.AugmentedForecasts, 1)

	require.NotNil(t, sink.saved)
	assert.Equal(t, result.RunID, sink.saved.RunID)
}

func TestOrchestratorSignalFailureDegradesToBase(t *testing.T) {
	today := day("2024-06-10")
	rows := productSales(1, "Wooden Train", today, 60)

	o := NewOrchestrator(&stubLoader{rows: rows}, &stubSignalSource{err: signals.ErrUnavailable}, nil, 90, testLogger())
	o.now = func() time.Time { return today }

	require.True(t, o.Start(0))
	waitForRun(t, o)

	result := o.LastResult()
	require.NotNil(t, result)
	assert.False(t, result.SignalsAvailable)
	require.Len(t, result.Comparison, 1)
	assert.Nil(t, result.Comparison[0].Augmented)
}

func TestOrchestratorSkipsInsufficientHistory(t *testing.T) {
	today := day("2024-06-10")

	var rows []sales.DailySale
	rows = append(rows, productSales(1, "Wooden Train", today, 60)...)
	// Only 5 days of history, below the training minimum
	rows = append(rows, productSales(2, "New Arrival", today, 5)...)

	o := NewOrchestrator(&stubLoader{rows: rows}, nil, nil, 90, testLogger())
	o.now = func() time.Time { return today }

	require.True(t, o.Start(0))
	waitForRun(t, o)

	result := o.LastResult()
	require.NotNil(t, result)
	require.Len(t, result.Comparison, 1)
	assert.Equal(t, int64(1), result.Comparison[0].ProductID)
}

func TestOrchestratorExcludesStaleProducts(t *testing.T) {
	today := day("2024-06-10")

	var rows []sales.DailySale
	rows = append(rows, productSales(1, "Wooden Train", today, 60)...)
	// Last sale far outside the active window
	rows = append(rows, productSales(2, "Discontinued", today.AddDate(0, 0, -7*ActiveWindowWeeks-30), 60)...)

	o := NewOrchestrator(&stubLoader{rows: rows}, nil, nil, 90, testLogger())
	o.now = func() time.Time { return today }

	require.True(t, o.Start(0))
	waitForRun(t, o)

	result := o.LastResult()
	require.NotNil(t, result)
	require.Len(t, result.Comparison, 1)
	assert.Equal(t, int64(1), result.Comparison[0].ProductID)
}

func TestOrchestratorZeroCandidatesCompletesEmpty(t *testing.T) {
	today := day("2024-06-10")

	// Sales exist but every product's last sale is outside the active window
	rows := productSales(1, "Discontinued", today.AddDate(0, 0, -7*ActiveWindowWeeks-30), 60)

	sink := &captureSink{}
	o := NewOrchestrator(&stubLoader{rows: rows}, nil, sink, 90, testLogger())
	o.now = func() time.Time { return today }

	require.True(t, o.Start(0))
	waitForRun(t, o)

	status := o.Status()
	assert.Equal(t, "Done! 0 products trained.", status.Progress)
	assert.Equal(t, 0, status.Results)

	result := o.LastResult()
	require.NotNil(t, result)
	assert.Empty(t, result.Comparison)
	assert.Empty(t, result.BaseForecasts)
	require.NotNil(t, sink.saved)
}

func TestOrchestratorThreeProductsTwentyDays(t *testing.T) {
	today := day("2024-06-10")

	// Three products, each with 20 consecutive days of positive sales
	var rows []sales.DailySale
	rows = append(rows, productSales(1, "Wooden Train", today, 20)...)
	rows = append(rows, productSales(2, "Puzzle Cube", today, 20)...)
	rows = append(rows, productSales(3, "Plush Bear", today, 20)...)

	o := NewOrchestrator(&stubLoader{rows: rows}, nil, nil, 90, testLogger())
	o.now = func() time.Time { return today }

	require.True(t, o.Start(0))
	waitForRun(t, o)

	assert.Equal(t, "Done! 3 products trained.", o.Status().Progress)

	result := o.LastResult()
	require.NotNil(t, result)
	require.Len(t, result.Comparison, 3)
	for _, row := range result.Comparison {
		assert.Nil(t, row.Augmented)
		assert.Equal(t, forecast.BestModelBase, row.BestModel)
		assert.Equal(t, 16, row.Base.TrainSize)
		assert.Equal(t, 4, row.Base.TestSize)
		require.Len(t, result.BaseForecasts[row.ProductID], forecast.ForecastDays)
	}
}

func TestOrchestratorRefusesConcurrentRuns(t *testing.T) {
	today := day("2024-06-10")
	release := make(chan struct{})
	loader := &stubLoader{rows: productSales(1, "Wooden Train", today, 60), release: release}

	o := NewOrchestrator(loader, nil, nil, 90, testLogger())
	o.now = func() time.Time { return today }

	require.True(t, o.Start(0))
	assert.False(t, o.Start(0), "second start must be refused while running")

	close(release)
	waitForRun(t, o)

	// After the run finishes a new one can start
	loader.release = nil
	assert.True(t, o.Start(0))
	waitForRun(t, o)
}

func TestOrchestratorEmptySalesReportsError(t *testing.T) {
	o := NewOrchestrator(&stubLoader{}, nil, nil, 90, testLogger())
	o.now = func() time.Time { return day("2024-06-10") }

	require.True(t, o.Start(0))
	waitForRun(t, o)

	status := o.Status()
	assert.True(t, strings.HasPrefix(status.Progress, "ERROR:"), "progress was %q", status.Progress)
	assert.Nil(t, o.LastResult())
}

func TestOrchestratorProgressSubscription(t *testing.T) {
	today := day("2024-06-10")
	o := NewOrchestrator(&stubLoader{rows: productSales(1, "Wooden Train", today, 60)}, nil, nil, 90, testLogger())
	o.now = func() time.Time { return today }

	ch := o.Subscribe()
	defer o.Unsubscribe(ch)

	// Initial snapshot arrives immediately
	snap := <-ch
	assert.False(t, snap.Running)

	require.True(t, o.Start(0))
	waitForRun(t, o)

	// Drain whatever arrived; the last snapshot must be the finished state
	var last Snapshot
	for {
		select {
		case s := <-ch:
			last = s
			continue
		default:
		}
		break
	}
	assert.False(t, last.Running)
	assert.Equal(t, "Done! 1 products trained.", last.Progress)
}

func TestShortName(t *testing.T) {
	assert.Equal(t, "Wooden Train", shortName("Wooden Train"))

	long := strings.Repeat("x", 50)
	short := shortName(long)
	assert.Equal(t, 43, len(short))
	assert.True(t, strings.HasSuffix(short, "..."))
}

func TestRestoreResultKeepsNewest(t *testing.T) {
	o := NewOrchestrator(&stubLoader{}, nil, nil, 90, testLogger())

	older := &RunResult{TrainedAt: day("2024-06-01")}
	newer := &RunResult{TrainedAt: day("2024-06-05")}

	o.RestoreResult(newer)
	o.RestoreResult(older)
	assert.Equal(t, newer, o.LastResult())
}
