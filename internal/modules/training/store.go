package training

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/eshopdash/forecaster/internal/modules/forecast"
)

// ErrNoRuns indicates no training run has been persisted yet
var ErrNoRuns = errors.New("training: no completed runs")

// Store persists run results. Each run is stored twice: queryable comparison
// and forecast rows, plus a msgpack snapshot blob used to restore the full
// RunResult on startup.
type Store struct {
	resultsDB *sql.DB
	log       zerolog.Logger
}

// NewStore creates a results store
func NewStore(resultsDB *sql.DB, log zerolog.Logger) *Store {
	return &Store{
		resultsDB: resultsDB,
		log:       log.With().Str("repo", "training").Logger(),
	}
}

// SaveRun persists one completed run inside a single transaction
func (s *Store) SaveRun(result *RunResult) error {
	blob, err := msgpack.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode run snapshot: %w", err)
	}

	tx, err := s.resultsDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	runID := result.RunID.String()
	_, err = tx.Exec(`
		INSERT INTO training_runs (run_id, trained_at, lookback_days, signals_available, products_trained, snapshot)
		VALUES (?, ?, ?, ?, ?, ?)
	`, runID, result.TrainedAt.UTC().Format(time.RFC3339), result.LookbackDays,
		boolToInt(result.SignalsAvailable), len(result.Comparison), blob)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to insert training run: %w", err)
	}

	if err := insertComparison(tx, runID, result.Comparison); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := insertForecasts(tx, runID, forecast.BestModelBase, result.BaseForecasts); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := insertForecasts(tx, runID, forecast.BestModelAugmented, result.AugmentedForecasts); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit training run: %w", err)
	}

	s.log.Info().
		Str("run_id", runID).
		Int("products", len(result.Comparison)).
		Msg("Persisted training run")
	return nil
}

// LatestRun restores the most recent persisted run from its snapshot
func (s *Store) LatestRun() (*RunResult, error) {
	var blob []byte
	err := s.resultsDB.QueryRow(`
		SELECT snapshot FROM training_runs ORDER BY trained_at DESC LIMIT 1
	`).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}

	var result RunResult
	if err := msgpack.Unmarshal(blob, &result); err != nil {
		return nil, fmt.Errorf("failed to decode run snapshot: %w", err)
	}
	return &result, nil
}

func insertComparison(tx *sql.Tx, runID string, rows []forecast.ComparisonRow) error {
	stmt, err := tx.Prepare(`
		INSERT INTO model_comparison (run_id, product_id, product_name, category,
			mae_base, rmse_base, r2_base, mae_augmented, rmse_augmented, r2_augmented,
			best_model, improvement_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare comparison insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		var maeAug, rmseAug, r2Aug any
		if row.Augmented != nil {
			maeAug, rmseAug, r2Aug = row.Augmented.MAE, row.Augmented.RMSE, row.Augmented.R2
		}
		_, err := stmt.Exec(runID, row.ProductID, row.ProductName, row.Category,
			row.Base.MAE, row.Base.RMSE, row.Base.R2, maeAug, rmseAug, r2Aug,
			row.BestModel, row.ImprovementPct)
		if err != nil {
			return fmt.Errorf("failed to insert comparison for product %d: %w", row.ProductID, err)
		}
	}
	return nil
}

func insertForecasts(tx *sql.Tx, runID, variant string, forecasts map[int64][]forecast.ForecastPoint) error {
	if len(forecasts) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`
		INSERT INTO forecast_points (run_id, product_id, variant, forecast_date, predicted, lower, upper)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare forecast insert: %w", err)
	}
	defer stmt.Close()

	for productID, points := range forecasts {
		for _, p := range points {
			_, err := stmt.Exec(runID, productID, variant, p.Date.Format("2006-01-02"), p.Predicted, p.Lower, p.Upper)
			if err != nil {
				return fmt.Errorf("failed to insert forecast for product %d: %w", productID, err)
			}
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
