package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stockroom/internal/domain"
	"stockroom/internal/errors"
)

type TransactionManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type ProductRepository interface {
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*domain.Product, error)
	FindByNameForUpdate(ctx context.Context, tx *sql.Tx, loc domain.Location, nameLower string) (*domain.Product, error)
	Insert(ctx context.Context, tx *sql.Tx, p domain.Product) error
	DecrementQuantity(ctx context.Context, tx *sql.Tx, id string, quantity int) error
	IncrementQuantity(ctx context.Context, tx *sql.Tx, id string, quantity int) error
	ApplyTransferCredit(ctx context.Context, tx *sql.Tx, id string, quantity int, categoryID *string) error
	UpdatePrice(ctx context.Context, tx *sql.Tx, id string, price decimal.Decimal) error
	List(ctx context.Context, loc domain.Location, nameFilter string, inStockOnly bool) ([]domain.Product, error)
}

type StoreRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Store, error)
	List(ctx context.Context) ([]domain.Store, error)
}

type ActivityRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, entry domain.ActivityLog) error
}

type CategoryRepository interface {
	Insert(ctx context.Context, category domain.Category) error
	List(ctx context.Context) ([]domain.Category, error)
	Delete(ctx context.Context, id string) error
}

type AddStockInput struct {
	Location   domain.Location
	Name       string
	Quantity   int
	Price      decimal.Decimal
	CategoryID *string
}

// LedgerService owns the quantity-affecting mutations outside transfers:
// direct additions, restocks and price edits. Each mutation and its
// activity log entry commit in one transaction.
type LedgerService struct {
	db         TransactionManager
	products   ProductRepository
	stores     StoreRepository
	activity   ActivityRepository
	categories CategoryRepository
	logger     *zap.Logger
	txTimeout  time.Duration
}

func NewLedgerService(
	db TransactionManager,
	products ProductRepository,
	stores StoreRepository,
	activity ActivityRepository,
	categories CategoryRepository,
	logger *zap.Logger,
	txTimeout time.Duration,
) *LedgerService {
	return &LedgerService{
		db:         db,
		products:   products,
		stores:     stores,
		activity:   activity,
		categories: categories,
		logger:     logger,
		txTimeout:  txTimeout,
	}
}

func (s *LedgerService) validateAddStock(in AddStockInput) (string, string, error) {
	name, lower := domain.NormalizeName(in.Name)

	var details []errors.ValidationDetail
	if name == "" {
		details = append(details, errors.ValidationDetail{Field: "name", Message: "name must not be empty"})
	}
	if in.Quantity <= 0 {
		details = append(details, errors.ValidationDetail{Field: "quantity", Message: "quantity must be a positive integer"})
	}
	if in.Price.IsNegative() {
		details = append(details, errors.ValidationDetail{Field: "price", Message: "price must be non-negative"})
	}
	if len(details) > 0 {
		return "", "", errors.NewValidationError("validation failed", details...)
	}
	return name, lower, nil
}

// locationName resolves the display name the activity log records for a
// target location.
func (s *LedgerService) locationName(ctx context.Context, loc domain.Location) (string, error) {
	if loc.IsWarehouse() {
		return domain.WarehouseName, nil
	}
	store, err := s.stores.FindByID(ctx, loc.StoreID())
	if err != nil {
		return "", err
	}
	return store.Name, nil
}

// AddStock creates one product at the target location and appends an
// ADDITION log entry. The direct-entry path performs no duplicate check.
func (s *LedgerService) AddStock(ctx context.Context, actor domain.Actor, in AddStockInput) (string, error) {
	name, lower, err := s.validateAddStock(in)
	if err != nil {
		return "", err
	}

	locationName, err := s.locationName(ctx, in.Location)
	if err != nil {
		return "", err
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		return "", errors.NewStorageError("beginning transaction", err)
	}
	defer tx.Rollback()

	productID := uuid.New().String()
	product := domain.Product{
		ID:         productID,
		Location:   in.Location,
		Name:       name,
		NameLower:  lower,
		Price:      in.Price,
		Quantity:   in.Quantity,
		CategoryID: in.CategoryID,
	}
	if err := s.products.Insert(txCtx, tx, product); err != nil {
		return "", err
	}

	entry := domain.NewAdditionLog(productID, in.Location, name, in.Quantity, locationName, actor.ID)
	entry.ID = uuid.New().String()
	if err := s.activity.Insert(txCtx, tx, entry); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", errors.NewStorageError("committing transaction", err)
	}

	s.logger.Info("stock added",
		zap.String("productId", productID),
		zap.String("location", in.Location.CollectionPath()),
		zap.String("name", name),
		zap.Int("quantity", in.Quantity),
		zap.String("actorId", actor.ID))

	return productID, nil
}

// AddStoreProduct creates a product directly in a store, rejecting
// case-insensitive duplicate names within that store. This path writes no
// activity log entry.
func (s *LedgerService) AddStoreProduct(ctx context.Context, actor domain.Actor, storeID string, in AddStockInput) (string, error) {
	in.Location = domain.StoreLocation(storeID)
	name, lower, err := s.validateAddStock(in)
	if err != nil {
		return "", err
	}

	if _, err := s.stores.FindByID(ctx, storeID); err != nil {
		return "", err
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return "", errors.NewStorageError("beginning transaction", err)
	}
	defer tx.Rollback()

	_, err = s.products.FindByNameForUpdate(txCtx, tx, in.Location, lower)
	if err == nil {
		return "", errors.NewConflictError("product already exists in this store")
	}
	if _, ok := errors.IsNotFoundError(err); !ok {
		return "", err
	}

	productID := uuid.New().String()
	product := domain.Product{
		ID:         productID,
		Location:   in.Location,
		Name:       name,
		NameLower:  lower,
		Price:      in.Price,
		Quantity:   in.Quantity,
		CategoryID: in.CategoryID,
	}
	if err := s.products.Insert(txCtx, tx, product); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", errors.NewStorageError("committing transaction", err)
	}

	s.logger.Info("store product added",
		zap.String("productId", productID),
		zap.String("storeId", storeID),
		zap.String("name", name),
		zap.String("actorId", actor.ID))

	return productID, nil
}

// Restock increases an existing product's on-hand quantity. Restocks are
// display-only history in the source system, so no activity log entry is
// appended and the operation is not undoable.
func (s *LedgerService) Restock(ctx context.Context, actor domain.Actor, productID string, quantity int) error {
	if quantity <= 0 {
		return errors.NewValidationError("validation failed",
			errors.ValidationDetail{Field: "quantity", Message: "quantity must be a positive integer"})
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		return errors.NewStorageError("beginning transaction", err)
	}
	defer tx.Rollback()

	if err := s.products.IncrementQuantity(txCtx, tx, productID, quantity); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStorageError("committing transaction", err)
	}

	s.logger.Info("product restocked",
		zap.String("productId", productID),
		zap.Int("quantity", quantity),
		zap.String("actorId", actor.ID))
	return nil
}

func (s *LedgerService) UpdatePrice(ctx context.Context, actor domain.Actor, productID string, price decimal.Decimal) error {
	if price.IsNegative() {
		return errors.NewValidationError("validation failed",
			errors.ValidationDetail{Field: "price", Message: "price must be non-negative"})
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		return errors.NewStorageError("beginning transaction", err)
	}
	defer tx.Rollback()

	if err := s.products.UpdatePrice(txCtx, tx, productID, price); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStorageError("committing transaction", err)
	}

	s.logger.Info("product price updated",
		zap.String("productId", productID),
		zap.String("price", price.String()),
		zap.String("actorId", actor.ID))
	return nil
}

func (s *LedgerService) ListProducts(ctx context.Context, loc domain.Location, nameFilter string, inStockOnly bool) ([]domain.Product, error) {
	return s.products.List(ctx, loc, nameFilter, inStockOnly)
}

func (s *LedgerService) ListStores(ctx context.Context) ([]domain.Store, error) {
	return s.stores.List(ctx)
}

func (s *LedgerService) AddCategory(ctx context.Context, actor domain.Actor, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.NewValidationError("validation failed",
			errors.ValidationDetail{Field: "name", Message: "name must not be empty"})
	}

	category := domain.Category{ID: uuid.New().String(), Name: name}
	if err := s.categories.Insert(ctx, category); err != nil {
		return "", err
	}

	s.logger.Info("category created",
		zap.String("categoryId", category.ID),
		zap.String("name", name),
		zap.String("actorId", actor.ID))
	return category.ID, nil
}

func (s *LedgerService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.categories.List(ctx)
}

func (s *LedgerService) DeleteCategory(ctx context.Context, actor domain.Actor, id string) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("category removed",
		zap.String("categoryId", id),
		zap.String("actorId", actor.ID))
	return nil
}
