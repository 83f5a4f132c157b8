package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockroom/internal/domain"
	"stockroom/internal/errors"
)

const saleColumns = "id, source_store_id, product_id, product_name, quantity, price, total, customer_name, tin_number, contact, payment_status, payment_method, amount_paid, paid_at, recorded_by, created_at"

type MySQLSalesRepository struct {
	db *sql.DB
}

func NewMySQLSalesRepository(db *sql.DB) *MySQLSalesRepository {
	return &MySQLSalesRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSale(row rowScanner) (*domain.Sale, error) {
	var (
		sale    domain.Sale
		storeID sql.NullString
	)
	err := row.Scan(
		&sale.ID, &storeID, &sale.ProductID, &sale.ProductName, &sale.Quantity,
		&sale.Price, &sale.Total, &sale.CustomerName, &sale.TinNumber, &sale.Contact,
		&sale.PaymentStatus, &sale.PaymentMethod, &sale.AmountPaid, &sale.PaidAt,
		&sale.RecordedBy, &sale.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	if storeID.Valid {
		sale.Source = domain.StoreLocation(storeID.String)
	} else {
		sale.Source = domain.Warehouse()
	}
	return &sale, nil
}

func sourceArg(loc domain.Location) interface{} {
	if loc.IsWarehouse() {
		return nil
	}
	return loc.StoreID()
}

func (r *MySQLSalesRepository) Insert(ctx context.Context, tx *sql.Tx, sale domain.Sale) error {
	query := `INSERT INTO sales (id, source_store_id, product_id, product_name, quantity, price, total, customer_name, tin_number, contact, payment_status, payment_method, amount_paid, paid_at, recorded_by) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := tx.ExecContext(ctx, query,
		sale.ID, sourceArg(sale.Source), sale.ProductID, sale.ProductName, sale.Quantity,
		sale.Price, sale.Total, sale.CustomerName, sale.TinNumber, sale.Contact,
		sale.PaymentStatus, sale.PaymentMethod, sale.AmountPaid, sale.PaidAt, sale.RecordedBy,
	)
	if err != nil {
		return errors.NewStorageError("inserting sale", err)
	}
	return nil
}

func (r *MySQLSalesRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = ? FOR UPDATE`

	sale, err := scanSale(tx.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("sale %s not found", id))
	}
	if err != nil {
		return nil, errors.NewStorageError("querying sale for update", err)
	}
	return sale, nil
}

// MarkPaid transitions a credit sale to paid, settling the full total.
// The status guard makes the transition one-shot.
func (r *MySQLSalesRepository) MarkPaid(ctx context.Context, tx *sql.Tx, id string, paidAt time.Time) error {
	query := `UPDATE sales SET payment_status = ?, amount_paid = total, paid_at = ? WHERE id = ? AND payment_status = ?`

	result, err := tx.ExecContext(ctx, query, domain.PaymentStatusPaid, paidAt, id, domain.PaymentStatusCredit)
	if err != nil {
		return errors.NewStorageError("marking sale paid", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewStorageError("getting rows affected", err)
	}
	if rowsAffected == 0 {
		return errors.NewConflictError(fmt.Sprintf("sale %s is not an open credit sale", id))
	}
	return nil
}

func (r *MySQLSalesRepository) ListUnpaid(ctx context.Context) ([]domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE payment_status = ? ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, domain.PaymentStatusCredit)
	if err != nil {
		return nil, errors.NewStorageError("listing unpaid sales", err)
	}
	defer rows.Close()

	var sales []domain.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, errors.NewStorageError("scanning sale row", err)
		}
		sales = append(sales, *sale)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("iterating sale rows", err)
	}
	return sales, nil
}

// List returns the sale history, most recent first. A nil source spans
// every location; an empty status spans paid and credit sales alike.
func (r *MySQLSalesRepository) List(ctx context.Context, source *domain.Location, status string) ([]domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales`

	var (
		clauses []string
		args    []interface{}
	)
	if source != nil {
		clauses = append(clauses, "source_store_id <=> ?")
		args = append(args, sourceArg(*source))
	}
	if status != "" {
		clauses = append(clauses, "payment_status = ?")
		args = append(args, status)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewStorageError("listing sales", err)
	}
	defer rows.Close()

	var sales []domain.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, errors.NewStorageError("scanning sale row", err)
		}
		sales = append(sales, *sale)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("iterating sale rows", err)
	}
	return sales, nil
}

// TotalsByMethod sums sale totals per payment method over a window,
// start inclusive, end exclusive.
func (r *MySQLSalesRepository) TotalsByMethod(ctx context.Context, start, end time.Time) (map[string]decimal.Decimal, error) {
	query := `SELECT payment_method, COALESCE(SUM(total), 0) FROM sales WHERE created_at >= ? AND created_at < ? GROUP BY payment_method`

	rows, err := r.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, errors.NewStorageError("aggregating sale totals", err)
	}
	defer rows.Close()

	totals := make(map[string]decimal.Decimal)
	for rows.Next() {
		var (
			method string
			total  decimal.Decimal
		)
		if err := rows.Scan(&method, &total); err != nil {
			return nil, errors.NewStorageError("scanning sale totals row", err)
		}
		totals[method] = total
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("iterating sale totals rows", err)
	}
	return totals, nil
}

// TotalBetween sums all sale totals over a window, start inclusive, end
// exclusive.
func (r *MySQLSalesRepository) TotalBetween(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(total), 0) FROM sales WHERE created_at >= ? AND created_at < ?`

	var total decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, start, end).Scan(&total); err != nil {
		return decimal.Zero, errors.NewStorageError("summing sale totals", err)
	}
	return total, nil
}
