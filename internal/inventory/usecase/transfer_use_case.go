package usecase

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"stockroom/internal/domain"
	apperrors "stockroom/internal/errors"
	"stockroom/internal/inventory/service"
)

type StockTransferService interface {
	Transfer(ctx context.Context, actor domain.Actor, sourceProductID string, store domain.Store, quantity int) (*service.TransferResult, error)
}

type StoreRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Store, error)
}

type TransferUseCase struct {
	stores           StoreRepository
	transferSvc      StockTransferService
	logger           *zap.Logger
	maxRetryAttempts int
}

func NewTransferUseCase(
	stores StoreRepository,
	transferSvc StockTransferService,
	logger *zap.Logger,
	maxRetryAttempts int,
) *TransferUseCase {
	return &TransferUseCase{
		stores:           stores,
		transferSvc:      transferSvc,
		logger:           logger,
		maxRetryAttempts: maxRetryAttempts,
	}
}

func (uc *TransferUseCase) Transfer(
	ctx context.Context,
	actor domain.Actor,
	sourceProductID string,
	storeID string,
	quantity int,
) (*service.TransferResult, error) {
	uc.logger.Info("transfer started",
		zap.String("sourceProductId", sourceProductID),
		zap.String("storeId", storeID),
		zap.Int("quantity", quantity),
		zap.String("actorId", actor.ID))

	// Pre-validations, outside the transaction.
	var details []apperrors.ValidationDetail
	if sourceProductID == "" {
		details = append(details, apperrors.ValidationDetail{Field: "productId", Message: "productId is required"})
	}
	if storeID == "" {
		details = append(details, apperrors.ValidationDetail{Field: "storeId", Message: "storeId is required"})
	}
	if quantity <= 0 {
		details = append(details, apperrors.ValidationDetail{Field: "quantity", Message: "quantity must be a positive integer"})
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("validation failed", details...)
	}

	store, err := uc.stores.FindByID(ctx, storeID)
	if err != nil {
		return nil, err
	}

	return uc.transferWithRetry(ctx, actor, sourceProductID, *store, quantity)
}

func (uc *TransferUseCase) transferWithRetry(
	ctx context.Context,
	actor domain.Actor,
	sourceProductID string,
	store domain.Store,
	quantity int,
) (*service.TransferResult, error) {
	maxAttempts := uc.maxRetryAttempts
	backoffs := []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := uc.transferSvc.Transfer(ctx, actor, sourceProductID, store, quantity)
		if err == nil {
			return result, nil
		}

		if !isDeadlockError(err) {
			return nil, err
		}
		if attempt == maxAttempts {
			break
		}

		backoff := backoffs[(attempt-1)%len(backoffs)]
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		time.Sleep(jitter)
		uc.logger.Warn("deadlock detected, retrying",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", maxAttempts),
			zap.String("sourceProductId", sourceProductID))
	}

	return nil, apperrors.NewDeadlockError("max retries exceeded")
}

func isDeadlockError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}
	return false
}
