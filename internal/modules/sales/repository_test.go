package sales

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupTestSalesDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, InitSchema(db))
	return db
}

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

func TestRepositoryInsertAndLoad(t *testing.T) {
	db := setupTestSalesDB(t)
	repo := NewRepository(db, testLogger())

	rows := []DailySale{
		{ProductID: 2, ProductName: "Puzzle Cube", Category: "toys", Date: day("2024-06-03"), Quantity: 1, Revenue: 9.9, Currency: "EUR"},
		{ProductID: 1, ProductName: "Wooden Train", Category: "toys", Date: day("2024-06-01"), Quantity: 3, Revenue: 29.7, Currency: "EUR"},
		{ProductID: 1, ProductName: "Wooden Train", Category: "toys", Date: day("2024-06-02"), Quantity: 2, Revenue: 19.8, Currency: "EUR"},
	}
	require.NoError(t, repo.InsertBatch(rows))

	loaded, err := repo.LoadDailySales()
	require.NoError(t, err)
	require.Len(t, loaded, 3)

	// Ordered by date ascending
	assert.Equal(t, day("2024-06-01"), loaded[0].Date)
	assert.Equal(t, day("2024-06-03"), loaded[2].Date)
	assert.Equal(t, "Wooden Train", loaded[0].ProductName)
	assert.Equal(t, 3.0, loaded[0].Quantity)
}

func TestRepositoryLoadProductSales(t *testing.T) {
	db := setupTestSalesDB(t)
	repo := NewRepository(db, testLogger())

	require.NoError(t, repo.InsertBatch([]DailySale{
		{ProductID: 1, ProductName: "Wooden Train", Category: "toys", Date: day("2024-06-01"), Quantity: 3, Currency: "EUR"},
		{ProductID: 2, ProductName: "Puzzle Cube", Category: "toys", Date: day("2024-06-02"), Quantity: 1, Currency: "EUR"},
	}))

	loaded, err := repo.LoadProductSales(1)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, int64(1), loaded[0].ProductID)
}

func TestRepositoryEmptyTable(t *testing.T) {
	db := setupTestSalesDB(t)
	repo := NewRepository(db, testLogger())

	loaded, err := repo.LoadDailySales()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestRepositoryInsertBatchEmpty(t *testing.T) {
	db := setupTestSalesDB(t)
	repo := NewRepository(db, testLogger())

	assert.NoError(t, repo.InsertBatch(nil))
}
