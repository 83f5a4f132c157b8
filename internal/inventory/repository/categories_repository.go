package repository

import (
	"context"
	"database/sql"
	"fmt"

	"stockroom/internal/domain"
	"stockroom/internal/errors"
)

type MySQLCategoriesRepository struct {
	db *sql.DB
}

func NewMySQLCategoriesRepository(db *sql.DB) *MySQLCategoriesRepository {
	return &MySQLCategoriesRepository{db: db}
}

func (r *MySQLCategoriesRepository) Insert(ctx context.Context, category domain.Category) error {
	query := `INSERT INTO categories (id, name) VALUES (?, ?)`

	if _, err := r.db.ExecContext(ctx, query, category.ID, category.Name); err != nil {
		return errors.NewStorageError("inserting category", err)
	}
	return nil
}

func (r *MySQLCategoriesRepository) List(ctx context.Context) ([]domain.Category, error) {
	query := `SELECT id, name, created_at FROM categories ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewStorageError("listing categories", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, errors.NewStorageError("scanning category row", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("iterating category rows", err)
	}
	return categories, nil
}

func (r *MySQLCategoriesRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM categories WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return errors.NewStorageError("deleting category", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewStorageError("getting rows affected", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("category %s not found", id))
	}
	return nil
}
