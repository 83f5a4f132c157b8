package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stockroom/internal/domain"
	"stockroom/internal/errors"
)

type TransferResult struct {
	SourceProductID      string
	DestinationProductID string
	StoreID              string
	StoreName            string
	Name                 string
	Quantity             int
	Merged               bool
	LogID                string
}

// TransferService moves stock from the warehouse into a store. The
// source decrement, the destination credit and the TRANSFER log entry
// commit as one transaction, so readers never observe a decrement
// without its matching credit.
type TransferService struct {
	db        TransactionManager
	products  ProductRepository
	activity  ActivityRepository
	logger    *zap.Logger
	txTimeout time.Duration
}

func NewTransferService(
	db TransactionManager,
	products ProductRepository,
	activity ActivityRepository,
	logger *zap.Logger,
	txTimeout time.Duration,
) *TransferService {
	return &TransferService{
		db:        db,
		products:  products,
		activity:  activity,
		logger:    logger,
		txTimeout: txTimeout,
	}
}

func (s *TransferService) Transfer(
	ctx context.Context,
	actor domain.Actor,
	sourceProductID string,
	store domain.Store,
	quantity int,
) (*TransferResult, error) {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, errors.NewStorageError("beginning transaction", err)
	}
	// MySQL ignores the rollback once the transaction is committed.
	defer tx.Rollback()

	// Re-read the source under lock; the client's view may be stale.
	source, err := s.products.FindByIDForUpdate(txCtx, tx, sourceProductID)
	if err != nil {
		return nil, err
	}
	if !source.Location.IsWarehouse() {
		return nil, errors.NewValidationError("validation failed",
			errors.ValidationDetail{Field: "productId", Message: "transfer source must be a warehouse product"})
	}
	if quantity > source.Quantity {
		return nil, errors.NewInsufficientStockError(quantity, source.Quantity)
	}

	if err := s.products.DecrementQuantity(txCtx, tx, source.ID, quantity); err != nil {
		return nil, err
	}

	destination := domain.StoreLocation(store.ID)
	result := &TransferResult{
		SourceProductID: source.ID,
		StoreID:         store.ID,
		StoreName:       store.Name,
		Name:            source.Name,
		Quantity:        quantity,
	}

	existing, err := s.products.FindByNameForUpdate(txCtx, tx, destination, source.NameLower)
	switch {
	case err == nil:
		// Same name already stocked at the destination: merge instead of
		// creating a second document, refreshing the category reference.
		if err := s.products.ApplyTransferCredit(txCtx, tx, existing.ID, quantity, source.CategoryID); err != nil {
			return nil, err
		}
		result.DestinationProductID = existing.ID
		result.Merged = true
	default:
		if _, ok := errors.IsNotFoundError(err); !ok {
			return nil, err
		}
		newProduct := domain.Product{
			ID:         uuid.New().String(),
			Location:   destination,
			Name:       source.Name,
			NameLower:  source.NameLower,
			Price:      source.Price,
			Quantity:   quantity,
			CategoryID: source.CategoryID,
		}
		if err := s.products.Insert(txCtx, tx, newProduct); err != nil {
			return nil, err
		}
		result.DestinationProductID = newProduct.ID
	}

	entry := domain.NewTransferLog(source.ID, result.DestinationProductID, store.ID, source.Name, quantity, store.Name, actor.ID)
	entry.ID = uuid.New().String()
	if err := s.activity.Insert(txCtx, tx, entry); err != nil {
		return nil, err
	}
	result.LogID = entry.ID

	if err := tx.Commit(); err != nil {
		return nil, errors.NewStorageError("committing transaction", err)
	}

	s.logger.Info("stock transferred",
		zap.String("sourceProductId", result.SourceProductID),
		zap.String("destinationProductId", result.DestinationProductID),
		zap.String("storeId", store.ID),
		zap.Int("quantity", quantity),
		zap.Bool("merged", result.Merged),
		zap.String("actorId", actor.ID))

	return result, nil
}
