package sales

import "database/sql"

// DailySalesSchema ensures the daily_sales table exists in sales.db
const DailySalesSchema = `
CREATE TABLE IF NOT EXISTS daily_sales (
    id INTEGER PRIMARY KEY,
    order_date TEXT NOT NULL,
    product_id INTEGER NOT NULL,
    product_name TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT '',
    quantity_sold REAL NOT NULL DEFAULT 0,
    revenue REAL NOT NULL DEFAULT 0,
    currency TEXT NOT NULL DEFAULT 'EUR'
);

CREATE INDEX IF NOT EXISTS idx_daily_sales_date ON daily_sales(order_date);
CREATE INDEX IF NOT EXISTS idx_daily_sales_product ON daily_sales(product_id);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(DailySalesSchema)
	return err
}
