// Package sales provides access to the per-product daily sales table.
package sales

import "time"

// DailySale represents one product's aggregated sales on one calendar day
type DailySale struct {
	ProductID   int64
	ProductName string
	Category    string
	Date        time.Time
	Quantity    float64
	Revenue     float64
	Currency    string
}

// DateString returns the sale date in YYYY-MM-DD format
func (s DailySale) DateString() string {
	return s.Date.Format("2006-01-02")
}
