package sales

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles daily sales database operations
type Repository struct {
	salesDB *sql.DB // sales.db - daily_sales table
	log     zerolog.Logger
}

// NewRepository creates a new sales repository
func NewRepository(salesDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		salesDB: salesDB,
		log:     log.With().Str("repo", "sales").Logger(),
	}
}

const dailySalesColumns = `order_date, product_id, product_name, category, quantity_sold, revenue, currency`

// LoadDailySales returns all daily sales rows ordered by date ascending.
// An empty table returns an empty slice, not an error.
func (r *Repository) LoadDailySales() ([]DailySale, error) {
	query := "SELECT " + dailySalesColumns + " FROM daily_sales ORDER BY order_date"

	rows, err := r.salesDB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily sales: %w", err)
	}
	defer rows.Close()

	var sales []DailySale
	for rows.Next() {
		sale, err := scanDailySale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily sale: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily sales: %w", err)
	}

	return sales, nil
}

// LoadProductSales returns one product's daily sales ordered by date ascending
func (r *Repository) LoadProductSales(productID int64) ([]DailySale, error) {
	query := "SELECT " + dailySalesColumns + " FROM daily_sales WHERE product_id = ? ORDER BY order_date"

	rows, err := r.salesDB.Query(query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales for product %d: %w", productID, err)
	}
	defer rows.Close()

	var sales []DailySale
	for rows.Next() {
		sale, err := scanDailySale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily sale: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily sales: %w", err)
	}

	return sales, nil
}

// InsertBatch inserts daily sales rows inside a single transaction
func (r *Repository) InsertBatch(sales []DailySale) error {
	if len(sales) == 0 {
		return nil
	}

	tx, err := r.salesDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO daily_sales (order_date, product_id, product_name, category, quantity_sold, revenue, currency)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range sales {
		if _, err := stmt.Exec(s.DateString(), s.ProductID, s.ProductName, s.Category, s.Quantity, s.Revenue, s.Currency); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert daily sale for product %d: %w", s.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit daily sales: %w", err)
	}

	r.log.Debug().Int("rows", len(sales)).Msg("Inserted daily sales batch")
	return nil
}

func scanDailySale(rows *sql.Rows) (DailySale, error) {
	var s DailySale
	var dateStr string
	if err := rows.Scan(&dateStr, &s.ProductID, &s.ProductName, &s.Category, &s.Quantity, &s.Revenue, &s.Currency); err != nil {
		return DailySale{}, err
	}

	// Dates are stored as YYYY-MM-DD; tolerate full timestamps from imports
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		date, err = time.Parse(time.RFC3339, dateStr)
		if err != nil {
			return DailySale{}, fmt.Errorf("invalid order_date %q: %w", dateStr, err)
		}
	}
	s.Date = date

	return s, nil
}
