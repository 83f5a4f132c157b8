package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"stockroom/internal/domain"
	"stockroom/internal/errors"
)

const productColumns = "id, store_id, name, name_lower, price, quantity, category_id, created_at, transferred_at, updated_at"

type MySQLProductsRepository struct {
	db *sql.DB
}

func NewMySQLProductsRepository(db *sql.DB) *MySQLProductsRepository {
	return &MySQLProductsRepository{db: db}
}

// locationArg maps a Location onto the nullable store_id column. Queries
// compare with the null-safe <=> operator so one form covers both cases.
func locationArg(loc domain.Location) interface{} {
	if loc.IsWarehouse() {
		return nil
	}
	return loc.StoreID()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p       domain.Product
		storeID sql.NullString
	)
	err := row.Scan(
		&p.ID, &storeID, &p.Name, &p.NameLower, &p.Price, &p.Quantity,
		&p.CategoryID, &p.CreatedAt, &p.TransferredAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if storeID.Valid {
		p.Location = domain.StoreLocation(storeID.String)
	} else {
		p.Location = domain.Warehouse()
	}
	return &p, nil
}

func (r *MySQLProductsRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("product %s not found", id))
	}
	if err != nil {
		return nil, errors.NewStorageError("querying product by id", err)
	}
	return product, nil
}

func (r *MySQLProductsRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ? FOR UPDATE`

	product, err := scanProduct(tx.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("product %s not found", id))
	}
	if err != nil {
		return nil, errors.NewStorageError("querying product for update", err)
	}
	return product, nil
}

// FindByNameForUpdate resolves a product by its lowercase name within one
// location, the case-insensitive match transfers use to merge stock.
func (r *MySQLProductsRepository) FindByNameForUpdate(ctx context.Context, tx *sql.Tx, loc domain.Location, nameLower string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE store_id <=> ? AND name_lower = ? FOR UPDATE`

	product, err := scanProduct(tx.QueryRowContext(ctx, query, locationArg(loc), nameLower))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("product %q not found at %s", nameLower, loc.CollectionPath()))
	}
	if err != nil {
		return nil, errors.NewStorageError("querying product by name", err)
	}
	return product, nil
}

func (r *MySQLProductsRepository) Insert(ctx context.Context, tx *sql.Tx, p domain.Product) error {
	query := `INSERT INTO products (id, store_id, name, name_lower, price, quantity, category_id) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := tx.ExecContext(ctx, query,
		p.ID, locationArg(p.Location), p.Name, p.NameLower, p.Price, p.Quantity, p.CategoryID,
	)
	if err != nil {
		return errors.NewStorageError("inserting product", err)
	}
	return nil
}

// DecrementQuantity applies a conditional decrement: the guard runs at
// write time, so a concurrent drain cannot push the quantity negative.
// When the guard rejects the write, the row is re-read to report the
// quantity actually on hand.
func (r *MySQLProductsRepository) DecrementQuantity(ctx context.Context, tx *sql.Tx, id string, quantity int) error {
	query := `UPDATE products SET quantity = quantity - ? WHERE id = ? AND quantity >= ?`

	result, err := tx.ExecContext(ctx, query, quantity, id, quantity)
	if err != nil {
		return errors.NewStorageError("decrementing product quantity", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewStorageError("getting rows affected", err)
	}
	if rowsAffected == 0 {
		var available int
		err := tx.QueryRowContext(ctx, `SELECT quantity FROM products WHERE id = ?`, id).Scan(&available)
		if err == sql.ErrNoRows {
			return errors.NewNotFoundError(fmt.Sprintf("product %s not found", id))
		}
		if err != nil {
			return errors.NewStorageError("querying remaining quantity", err)
		}
		return errors.NewInsufficientStockError(quantity, available)
	}
	return nil
}

func (r *MySQLProductsRepository) IncrementQuantity(ctx context.Context, tx *sql.Tx, id string, quantity int) error {
	query := `UPDATE products SET quantity = quantity + ? WHERE id = ?`

	result, err := tx.ExecContext(ctx, query, quantity, id)
	if err != nil {
		return errors.NewStorageError("incrementing product quantity", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewStorageError("getting rows affected", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("product %s not found", id))
	}
	return nil
}

// ApplyTransferCredit increments a destination product and refreshes its
// category reference from the source, stamping the transfer time.
func (r *MySQLProductsRepository) ApplyTransferCredit(ctx context.Context, tx *sql.Tx, id string, quantity int, categoryID *string) error {
	query := `UPDATE products SET quantity = quantity + ?, category_id = ?, transferred_at = CURRENT_TIMESTAMP(6) WHERE id = ?`

	result, err := tx.ExecContext(ctx, query, quantity, categoryID, id)
	if err != nil {
		return errors.NewStorageError("crediting transferred quantity", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewStorageError("getting rows affected", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("product %s not found", id))
	}
	return nil
}

func (r *MySQLProductsRepository) UpdateQuantity(ctx context.Context, tx *sql.Tx, id string, quantity int) error {
	query := `UPDATE products SET quantity = ? WHERE id = ?`

	result, err := tx.ExecContext(ctx, query, quantity, id)
	if err != nil {
		return errors.NewStorageError("updating product quantity", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewStorageError("getting rows affected", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("product %s not found", id))
	}
	return nil
}

func (r *MySQLProductsRepository) UpdatePrice(ctx context.Context, tx *sql.Tx, id string, price decimal.Decimal) error {
	query := `UPDATE products SET price = ? WHERE id = ?`

	result, err := tx.ExecContext(ctx, query, price, id)
	if err != nil {
		return errors.NewStorageError("updating product price", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewStorageError("getting rows affected", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("product %s not found", id))
	}
	return nil
}

func (r *MySQLProductsRepository) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	query := `DELETE FROM products WHERE id = ?`

	if _, err := tx.ExecContext(ctx, query, id); err != nil {
		return errors.NewStorageError("deleting product", err)
	}
	return nil
}

// WarehouseStats returns the warehouse product count and summed on-hand
// units for the overview dashboard.
func (r *MySQLProductsRepository) WarehouseStats(ctx context.Context) (count int, units int, err error) {
	query := `SELECT COUNT(*), COALESCE(SUM(quantity), 0) FROM products WHERE store_id IS NULL`

	if err := r.db.QueryRowContext(ctx, query).Scan(&count, &units); err != nil {
		return 0, 0, errors.NewStorageError("aggregating warehouse stats", err)
	}
	return count, units, nil
}

func (r *MySQLProductsRepository) ListLowStock(ctx context.Context, threshold int) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE store_id IS NULL AND quantity <= ? ORDER BY quantity ASC`

	rows, err := r.db.QueryContext(ctx, query, threshold)
	if err != nil {
		return nil, errors.NewStorageError("listing low stock products", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, errors.NewStorageError("scanning product row", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("iterating product rows", err)
	}
	return products, nil
}

func (r *MySQLProductsRepository) List(ctx context.Context, loc domain.Location, nameFilter string, inStockOnly bool) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE store_id <=> ?`
	args := []interface{}{locationArg(loc)}
	if nameFilter != "" {
		query += ` AND name_lower LIKE ?`
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(nameFilter))+"%")
	}
	if inStockOnly {
		query += ` AND quantity > 0`
	}
	query += ` ORDER BY name_lower ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewStorageError("listing products", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, errors.NewStorageError("scanning product row", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("iterating product rows", err)
	}
	return products, nil
}
