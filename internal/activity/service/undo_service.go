package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"stockroom/internal/domain"
	"stockroom/internal/errors"
)

type TransactionManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type ActivityRepository interface {
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*domain.ActivityLog, error)
	MarkUndone(ctx context.Context, tx *sql.Tx, id string) error
	ListRecent(ctx context.Context, limit int) ([]domain.ActivityLog, error)
}

type ProductRepository interface {
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*domain.Product, error)
	IncrementQuantity(ctx context.Context, tx *sql.Tx, id string, quantity int) error
	UpdateQuantity(ctx context.Context, tx *sql.Tx, id string, quantity int) error
	Delete(ctx context.Context, tx *sql.Tx, id string) error
}

// UndoService reverses a single un-consumed activity log entry against
// current ledger state. The inverse writes and the undone-flag flip
// commit as one transaction: any failure leaves the entry eligible for
// retry.
type UndoService struct {
	db        TransactionManager
	logs      ActivityRepository
	products  ProductRepository
	logger    *zap.Logger
	txTimeout time.Duration
}

func NewUndoService(
	db TransactionManager,
	logs ActivityRepository,
	products ProductRepository,
	logger *zap.Logger,
	txTimeout time.Duration,
) *UndoService {
	return &UndoService{
		db:        db,
		logs:      logs,
		products:  products,
		logger:    logger,
		txTimeout: txTimeout,
	}
}

func (s *UndoService) ListRecent(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	return s.logs.ListRecent(ctx, limit)
}

// Undo applies the inverse of one log entry and marks it consumed.
// Invoking it again on the same entry is a no-op.
func (s *UndoService) Undo(ctx context.Context, actor domain.Actor, logID string) (*domain.ActivityLog, error) {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, errors.NewStorageError("beginning transaction", err)
	}
	defer tx.Rollback()

	entry, err := s.logs.FindByIDForUpdate(txCtx, tx, logID)
	if err != nil {
		return nil, err
	}
	if entry.Undone {
		s.logger.Info("undo skipped, entry already undone", zap.String("logId", logID))
		return entry, nil
	}

	switch entry.Type {
	case domain.ActivityAddition:
		err = s.undoAddition(txCtx, tx, entry)
	case domain.ActivityTransfer:
		err = s.undoTransfer(txCtx, tx, entry)
	default:
		err = errors.NewValidationError(fmt.Sprintf("entry type %s cannot be undone", entry.Type))
	}
	if err != nil {
		return nil, err
	}

	if err := s.logs.MarkUndone(txCtx, tx, logID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewStorageError("committing transaction", err)
	}

	entry.Undone = true
	s.logger.Info("activity entry reversed",
		zap.String("logId", logID),
		zap.String("type", entry.Type),
		zap.String("name", entry.Name),
		zap.Int("quantity", entry.Quantity),
		zap.String("actorId", actor.ID))

	return entry, nil
}

// undoAddition retracts a direct addition: if nothing has drawn on the
// product since, the document is removed outright; otherwise the logged
// quantity is subtracted.
func (s *UndoService) undoAddition(ctx context.Context, tx *sql.Tx, entry *domain.ActivityLog) error {
	product, err := s.products.FindByIDForUpdate(ctx, tx, entry.ProductID)
	if _, ok := errors.IsNotFoundError(err); ok {
		// Already cleaned up elsewhere; nothing to reverse.
		return nil
	}
	if err != nil {
		return err
	}

	if loc, perr := domain.ParseLocationPath(entry.Path); perr != nil || loc != product.Location {
		s.logger.Warn("addition entry location does not match product",
			zap.String("logId", entry.ID),
			zap.String("path", entry.Path))
	}

	if product.Quantity <= entry.Quantity {
		return s.products.Delete(ctx, tx, product.ID)
	}
	return s.products.UpdateQuantity(ctx, tx, product.ID, product.Quantity-entry.Quantity)
}

// undoTransfer gives the moved quantity back to the warehouse side and
// takes it off the store side. A warehouse product deleted since the
// transfer is not re-created; the store side still unwinds.
func (s *UndoService) undoTransfer(ctx context.Context, tx *sql.Tx, entry *domain.ActivityLog) error {
	warehouse, err := s.products.FindByIDForUpdate(ctx, tx, entry.WarehouseProductID)
	switch {
	case err == nil:
		if err := s.products.IncrementQuantity(ctx, tx, warehouse.ID, entry.Quantity); err != nil {
			return err
		}
	default:
		if _, ok := errors.IsNotFoundError(err); !ok {
			return err
		}
	}

	storeProduct, err := s.products.FindByIDForUpdate(ctx, tx, entry.StoreProductID)
	switch {
	case err == nil:
		remaining := storeProduct.Quantity - entry.Quantity
		if remaining <= 0 {
			return s.products.Delete(ctx, tx, storeProduct.ID)
		}
		return s.products.UpdateQuantity(ctx, tx, storeProduct.ID, remaining)
	default:
		if _, ok := errors.IsNotFoundError(err); !ok {
			return err
		}
	}
	return nil
}
