package repository

import (
	"context"
	"database/sql"
	"fmt"

	"stockroom/internal/domain"
	"stockroom/internal/errors"
)

type MySQLStoresRepository struct {
	db *sql.DB
}

func NewMySQLStoresRepository(db *sql.DB) *MySQLStoresRepository {
	return &MySQLStoresRepository{db: db}
}

func (r *MySQLStoresRepository) FindByID(ctx context.Context, id string) (*domain.Store, error) {
	query := `SELECT id, name, created_at FROM stores WHERE id = ?`

	var store domain.Store
	err := r.db.QueryRowContext(ctx, query, id).Scan(&store.ID, &store.Name, &store.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("store %s not found", id))
	}
	if err != nil {
		return nil, errors.NewStorageError("querying store by id", err)
	}
	return &store, nil
}

func (r *MySQLStoresRepository) List(ctx context.Context) ([]domain.Store, error) {
	query := `SELECT id, name, created_at FROM stores ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewStorageError("listing stores", err)
	}
	defer rows.Close()

	var stores []domain.Store
	for rows.Next() {
		var s domain.Store
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt); err != nil {
			return nil, errors.NewStorageError("scanning store row", err)
		}
		stores = append(stores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("iterating store rows", err)
	}
	return stores, nil
}
