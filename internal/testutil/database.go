package testutil

import (
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/go-sql-driver/mysql"
)

// SetupTestDB opens the integration test database. It expects a MySQL
// instance on localhost:3306 with a 'stockroom_test' schema and skips
// the test when none is reachable.
func SetupTestDB(t *testing.T) *sql.DB {
	dsn := "root:@tcp(localhost:3306)/stockroom_test?parseTime=true"
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("test database not available: %v", err)
	}

	return db
}

func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	tables := []string{"sales", "activity_logs", "products", "categories", "stores"}
	for _, table := range tables {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

// SetupTestTables creates the tables the integration tests need. The
// definitions mirror the embedded migrations.
func SetupTestTables(t *testing.T, db *sql.DB) {
	createStoresTable := `
	CREATE TABLE IF NOT EXISTS stores (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
	)`

	createCategoriesTable := `
	CREATE TABLE IF NOT EXISTS categories (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
	)`

	createProductsTable := `
	CREATE TABLE IF NOT EXISTS products (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		store_id VARCHAR(36) NULL,
		name VARCHAR(255) NOT NULL,
		name_lower VARCHAR(255) NOT NULL,
		price DECIMAL(12,2) NOT NULL DEFAULT 0.00,
		quantity INT NOT NULL DEFAULT 0,
		category_id VARCHAR(36) NULL,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		transferred_at DATETIME(6) NULL,
		updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
		INDEX idx_products_location_name (store_id, name_lower),
		CONSTRAINT chk_products_quantity CHECK (quantity >= 0)
	)`

	createSalesTable := `
	CREATE TABLE IF NOT EXISTS sales (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		source_store_id VARCHAR(36) NULL,
		product_id VARCHAR(36) NOT NULL,
		product_name VARCHAR(255) NOT NULL,
		quantity INT NOT NULL,
		price DECIMAL(12,2) NOT NULL,
		total DECIMAL(12,2) NOT NULL,
		customer_name VARCHAR(255) NOT NULL,
		tin_number VARCHAR(64) NOT NULL DEFAULT '',
		contact VARCHAR(64) NOT NULL DEFAULT '',
		payment_status VARCHAR(10) NOT NULL,
		payment_method VARCHAR(10) NOT NULL,
		amount_paid DECIMAL(12,2) NOT NULL DEFAULT 0.00,
		paid_at DATETIME(6) NULL,
		recorded_by VARCHAR(64) NOT NULL DEFAULT '',
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		INDEX idx_sales_created (created_at),
		INDEX idx_sales_status (payment_status)
	)`

	createActivityLogsTable := `
	CREATE TABLE IF NOT EXISTS activity_logs (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		type VARCHAR(16) NOT NULL,
		product_id VARCHAR(36) NULL,
		path VARCHAR(255) NULL,
		warehouse_product_id VARCHAR(36) NULL,
		store_product_id VARCHAR(36) NULL,
		store_id VARCHAR(36) NULL,
		name VARCHAR(255) NOT NULL,
		quantity INT NOT NULL,
		location_name VARCHAR(255) NOT NULL DEFAULT '',
		actor_id VARCHAR(64) NOT NULL DEFAULT '',
		undone TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		INDEX idx_activity_created (created_at)
	)`

	tables := []struct {
		name  string
		query string
	}{
		{"stores", createStoresTable},
		{"categories", createCategoriesTable},
		{"products", createProductsTable},
		{"sales", createSalesTable},
		{"activity_logs", createActivityLogsTable},
	}

	for _, tbl := range tables {
		if _, err := db.Exec(tbl.query); err != nil {
			t.Logf("failed to create table %s: %v", tbl.name, err)
		}
	}
}
