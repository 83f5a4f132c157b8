package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/internal/domain"
	apperrors "stockroom/internal/errors"
	"stockroom/internal/testutil"
)

// Unit tests

func TestNewMySQLProductsRepository(t *testing.T) {
	db := &sql.DB{}
	repo := NewMySQLProductsRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestLocationArg(t *testing.T) {
	assert.Nil(t, locationArg(domain.Warehouse()))
	assert.Equal(t, "store-1", locationArg(domain.StoreLocation("store-1")))
}

// Integration tests

func insertProduct(t *testing.T, db *sql.DB, id string, storeID interface{}, name string, quantity int, price string) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO products (id, store_id, name, name_lower, price, quantity)
		VALUES (?, ?, ?, LOWER(?), ?, ?)
	`, id, storeID, name, name, price, quantity)
	require.NoError(t, err)
}

func TestProductsRepository_FindByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLProductsRepository(db)
	insertProduct(t, db, "wh-1", nil, "Engine Oil", 40, "25.00")

	product, err := repo.FindByID(context.Background(), "wh-1")
	require.NoError(t, err)
	assert.Equal(t, "Engine Oil", product.Name)
	assert.Equal(t, "engine oil", product.NameLower)
	assert.Equal(t, 40, product.Quantity)
	assert.True(t, product.Location.IsWarehouse())
	assert.True(t, product.Price.Equal(decimal.RequireFromString("25.00")))
}

func TestProductsRepository_FindByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLProductsRepository(db)

	_, err := repo.FindByID(context.Background(), "missing")
	require.Error(t, err)

	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestProductsRepository_FindByNameForUpdate_MatchesPerLocation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLProductsRepository(db)
	insertProduct(t, db, "wh-1", nil, "Engine Oil", 40, "25.00")
	insertProduct(t, db, "st-1", "store-1", "ENGINE OIL", 5, "27.00")

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	defer tx.Rollback()

	warehouseMatch, err := repo.FindByNameForUpdate(context.Background(), tx, domain.Warehouse(), "engine oil")
	require.NoError(t, err)
	assert.Equal(t, "wh-1", warehouseMatch.ID)

	storeMatch, err := repo.FindByNameForUpdate(context.Background(), tx, domain.StoreLocation("store-1"), "engine oil")
	require.NoError(t, err)
	assert.Equal(t, "st-1", storeMatch.ID)

	_, err = repo.FindByNameForUpdate(context.Background(), tx, domain.StoreLocation("store-2"), "engine oil")
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestProductsRepository_DecrementQuantity_Conditional(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLProductsRepository(db)
	insertProduct(t, db, "wh-1", nil, "Engine Oil", 10, "25.00")

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	require.NoError(t, repo.DecrementQuantity(context.Background(), tx, "wh-1", 7))
	require.NoError(t, tx.Commit())

	product, err := repo.FindByID(context.Background(), "wh-1")
	require.NoError(t, err)
	assert.Equal(t, 3, product.Quantity)

	// A decrement past the remaining stock affects no rows, and the
	// error carries the quantity actually on hand.
	tx, err = db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	defer tx.Rollback()

	err = repo.DecrementQuantity(context.Background(), tx, "wh-1", 5)
	require.Error(t, err)

	stockErr, ok := apperrors.IsInsufficientStockError(err)
	require.True(t, ok)
	assert.Equal(t, 5, stockErr.Requested)
	assert.Equal(t, 3, stockErr.Available)
}

func TestProductsRepository_ApplyTransferCredit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLProductsRepository(db)
	insertProduct(t, db, "st-1", "store-1", "Engine Oil", 5, "25.00")
	_, err := db.Exec(`INSERT INTO categories (id, name) VALUES ('cat-1', 'Lubricants')`)
	require.NoError(t, err)

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	categoryID := "cat-1"
	require.NoError(t, repo.ApplyTransferCredit(context.Background(), tx, "st-1", 10, &categoryID))
	require.NoError(t, tx.Commit())

	product, err := repo.FindByID(context.Background(), "st-1")
	require.NoError(t, err)
	assert.Equal(t, 15, product.Quantity)
	require.NotNil(t, product.CategoryID)
	assert.Equal(t, "cat-1", *product.CategoryID)
	assert.NotNil(t, product.TransferredAt)
}

func TestProductsRepository_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLProductsRepository(db)
	insertProduct(t, db, "wh-1", nil, "Coolant", 0, "15.00")
	insertProduct(t, db, "wh-2", nil, "Brake Pads", 12, "40.00")
	insertProduct(t, db, "st-1", "store-1", "Engine Oil", 5, "27.00")

	all, err := repo.List(context.Background(), domain.Warehouse(), "", false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Ordered by lowercase name.
	assert.Equal(t, "Brake Pads", all[0].Name)
	assert.Equal(t, "Coolant", all[1].Name)

	inStock, err := repo.List(context.Background(), domain.Warehouse(), "", true)
	require.NoError(t, err)
	require.Len(t, inStock, 1)
	assert.Equal(t, "wh-2", inStock[0].ID)

	filtered, err := repo.List(context.Background(), domain.Warehouse(), "COOL", false)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "wh-1", filtered[0].ID)

	storeProducts, err := repo.List(context.Background(), domain.StoreLocation("store-1"), "", false)
	require.NoError(t, err)
	require.Len(t, storeProducts, 1)
	assert.Equal(t, "st-1", storeProducts[0].ID)
}

func TestProductsRepository_WarehouseStatsAndLowStock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLProductsRepository(db)
	insertProduct(t, db, "wh-1", nil, "Coolant", 3, "15.00")
	insertProduct(t, db, "wh-2", nil, "Brake Pads", 12, "40.00")
	insertProduct(t, db, "st-1", "store-1", "Engine Oil", 2, "27.00")

	count, units, err := repo.WarehouseStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 15, units)

	low, err := repo.ListLowStock(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "wh-1", low[0].ID)
}
