package training

import (
	"database/sql"
	"fmt"
)

// InitSchema creates the training results tables
const initSchema = `
CREATE TABLE IF NOT EXISTS training_runs (
    run_id TEXT PRIMARY KEY,
    trained_at TEXT NOT NULL,
    lookback_days INTEGER NOT NULL,
    signals_available INTEGER NOT NULL DEFAULT 0,
    products_trained INTEGER NOT NULL DEFAULT 0,
    snapshot BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_training_runs_trained_at ON training_runs(trained_at);

CREATE TABLE IF NOT EXISTS model_comparison (
    run_id TEXT NOT NULL,
    product_id INTEGER NOT NULL,
    product_name TEXT NOT NULL,
    category TEXT,
    mae_base REAL NOT NULL,
    rmse_base REAL NOT NULL,
    r2_base REAL NOT NULL,
    mae_augmented REAL,
    rmse_augmented REAL,
    r2_augmented REAL,
    best_model TEXT NOT NULL,
    improvement_pct REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (run_id, product_id)
);

CREATE TABLE IF NOT EXISTS forecast_points (
    run_id TEXT NOT NULL,
    product_id INTEGER NOT NULL,
    variant TEXT NOT NULL,
    forecast_date TEXT NOT NULL,
    predicted REAL NOT NULL,
    lower REAL NOT NULL,
    upper REAL NOT NULL,
    PRIMARY KEY (run_id, product_id, variant, forecast_date)
);

CREATE INDEX IF NOT EXISTS idx_forecast_points_product ON forecast_points(product_id, forecast_date);
`

// InitSchema creates all tables for the training results database
func InitSchema(db *sql.DB) error {
	if _, err := db.Exec(initSchema); err != nil {
		return fmt.Errorf("failed to create training schema: %w", err)
	}
	return nil
}
