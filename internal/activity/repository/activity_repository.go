package repository

import (
	"context"
	"database/sql"
	"fmt"

	"stockroom/internal/domain"
	"stockroom/internal/errors"
)

const logColumns = "id, type, product_id, path, warehouse_product_id, store_product_id, store_id, name, quantity, location_name, actor_id, undone, created_at"

type MySQLActivityRepository struct {
	db *sql.DB
}

func NewMySQLActivityRepository(db *sql.DB) *MySQLActivityRepository {
	return &MySQLActivityRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLog(row rowScanner) (*domain.ActivityLog, error) {
	var (
		entry                                          domain.ActivityLog
		productID, path, warehouseID, storeProdID, sID sql.NullString
	)
	err := row.Scan(
		&entry.ID, &entry.Type, &productID, &path, &warehouseID, &storeProdID, &sID,
		&entry.Name, &entry.Quantity, &entry.LocationName, &entry.ActorID,
		&entry.Undone, &entry.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	entry.ProductID = productID.String
	entry.Path = path.String
	entry.WarehouseProductID = warehouseID.String
	entry.StoreProductID = storeProdID.String
	entry.StoreID = sID.String
	return &entry, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Insert appends a log entry. It runs inside the same transaction as the
// ledger mutation it records, so a ledger write never lands without its
// log entry.
func (r *MySQLActivityRepository) Insert(ctx context.Context, tx *sql.Tx, entry domain.ActivityLog) error {
	query := `INSERT INTO activity_logs (id, type, product_id, path, warehouse_product_id, store_product_id, store_id, name, quantity, location_name, actor_id, undone) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`

	_, err := tx.ExecContext(ctx, query,
		entry.ID, entry.Type,
		nullable(entry.ProductID), nullable(entry.Path),
		nullable(entry.WarehouseProductID), nullable(entry.StoreProductID), nullable(entry.StoreID),
		entry.Name, entry.Quantity, entry.LocationName, entry.ActorID,
	)
	if err != nil {
		return errors.NewStorageError("inserting activity log entry", err)
	}
	return nil
}

func (r *MySQLActivityRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*domain.ActivityLog, error) {
	query := `SELECT ` + logColumns + ` FROM activity_logs WHERE id = ? FOR UPDATE`

	entry, err := scanLog(tx.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("activity log entry %s not found", id))
	}
	if err != nil {
		return nil, errors.NewStorageError("querying activity log entry", err)
	}
	return entry, nil
}

// MarkUndone flips the one-shot undone flag. The guard on the current
// value makes the transition happen at most once.
func (r *MySQLActivityRepository) MarkUndone(ctx context.Context, tx *sql.Tx, id string) error {
	query := `UPDATE activity_logs SET undone = 1 WHERE id = ? AND undone = 0`

	result, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return errors.NewStorageError("marking activity log entry undone", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewStorageError("getting rows affected", err)
	}
	if rowsAffected == 0 {
		return errors.NewConflictError(fmt.Sprintf("activity log entry %s already undone", id))
	}
	return nil
}

// ListRecent returns entries most-recent-first. A non-positive limit
// returns the unrestricted listing.
func (r *MySQLActivityRepository) ListRecent(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	query := `SELECT ` + logColumns + ` FROM activity_logs ORDER BY created_at DESC`

	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewStorageError("listing activity log entries", err)
	}
	defer rows.Close()

	var entries []domain.ActivityLog
	for rows.Next() {
		entry, err := scanLog(rows)
		if err != nil {
			return nil, errors.NewStorageError("scanning activity log row", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("iterating activity log rows", err)
	}
	return entries, nil
}
