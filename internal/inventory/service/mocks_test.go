package service

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"stockroom/internal/domain"
)

type mockProductRepository struct {
	FindByIDForUpdateFunc   func(ctx context.Context, tx *sql.Tx, id string) (*domain.Product, error)
	FindByNameForUpdateFunc func(ctx context.Context, tx *sql.Tx, loc domain.Location, nameLower string) (*domain.Product, error)
	InsertFunc              func(ctx context.Context, tx *sql.Tx, p domain.Product) error
	DecrementQuantityFunc   func(ctx context.Context, tx *sql.Tx, id string, quantity int) error
	IncrementQuantityFunc   func(ctx context.Context, tx *sql.Tx, id string, quantity int) error
	ApplyTransferCreditFunc func(ctx context.Context, tx *sql.Tx, id string, quantity int, categoryID *string) error
	UpdatePriceFunc         func(ctx context.Context, tx *sql.Tx, id string, price decimal.Decimal) error
	ListFunc                func(ctx context.Context, loc domain.Location, nameFilter string, inStockOnly bool) ([]domain.Product, error)
}

func (m *mockProductRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*domain.Product, error) {
	return m.FindByIDForUpdateFunc(ctx, tx, id)
}

func (m *mockProductRepository) FindByNameForUpdate(ctx context.Context, tx *sql.Tx, loc domain.Location, nameLower string) (*domain.Product, error) {
	return m.FindByNameForUpdateFunc(ctx, tx, loc, nameLower)
}

func (m *mockProductRepository) Insert(ctx context.Context, tx *sql.Tx, p domain.Product) error {
	return m.InsertFunc(ctx, tx, p)
}

func (m *mockProductRepository) DecrementQuantity(ctx context.Context, tx *sql.Tx, id string, quantity int) error {
	return m.DecrementQuantityFunc(ctx, tx, id, quantity)
}

func (m *mockProductRepository) IncrementQuantity(ctx context.Context, tx *sql.Tx, id string, quantity int) error {
	return m.IncrementQuantityFunc(ctx, tx, id, quantity)
}

func (m *mockProductRepository) ApplyTransferCredit(ctx context.Context, tx *sql.Tx, id string, quantity int, categoryID *string) error {
	return m.ApplyTransferCreditFunc(ctx, tx, id, quantity, categoryID)
}

func (m *mockProductRepository) UpdatePrice(ctx context.Context, tx *sql.Tx, id string, price decimal.Decimal) error {
	return m.UpdatePriceFunc(ctx, tx, id, price)
}

func (m *mockProductRepository) List(ctx context.Context, loc domain.Location, nameFilter string, inStockOnly bool) ([]domain.Product, error) {
	return m.ListFunc(ctx, loc, nameFilter, inStockOnly)
}

type mockStoreRepository struct {
	FindByIDFunc func(ctx context.Context, id string) (*domain.Store, error)
	ListFunc     func(ctx context.Context) ([]domain.Store, error)
}

func (m *mockStoreRepository) FindByID(ctx context.Context, id string) (*domain.Store, error) {
	return m.FindByIDFunc(ctx, id)
}

func (m *mockStoreRepository) List(ctx context.Context) ([]domain.Store, error) {
	return m.ListFunc(ctx)
}

type mockActivityRepository struct {
	InsertFunc func(ctx context.Context, tx *sql.Tx, entry domain.ActivityLog) error
}

func (m *mockActivityRepository) Insert(ctx context.Context, tx *sql.Tx, entry domain.ActivityLog) error {
	return m.InsertFunc(ctx, tx, entry)
}

type mockCategoryRepository struct {
	InsertFunc func(ctx context.Context, category domain.Category) error
	ListFunc   func(ctx context.Context) ([]domain.Category, error)
	DeleteFunc func(ctx context.Context, id string) error
}

func (m *mockCategoryRepository) Insert(ctx context.Context, category domain.Category) error {
	return m.InsertFunc(ctx, category)
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	return m.ListFunc(ctx)
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}
