package inventory

import (
	"database/sql"

	"go.uber.org/zap"

	activityrepo "stockroom/internal/activity/repository"
	"stockroom/internal/config"
	"stockroom/internal/inventory/controller"
	"stockroom/internal/inventory/repository"
	"stockroom/internal/inventory/service"
	"stockroom/internal/inventory/usecase"
)

func NewModule(db *sql.DB, cfg *config.Config, logger *zap.Logger) *controller.Controller {
	products := repository.NewMySQLProductsRepository(db)
	stores := repository.NewMySQLStoresRepository(db)
	categories := repository.NewMySQLCategoriesRepository(db)
	activity := activityrepo.NewMySQLActivityRepository(db)

	ledgerSvc := service.NewLedgerService(
		db,
		products,
		stores,
		activity,
		categories,
		logger,
		cfg.Transfer.TxTimeout,
	)
	transferSvc := service.NewTransferService(
		db,
		products,
		activity,
		logger,
		cfg.Transfer.TxTimeout,
	)
	transferUC := usecase.NewTransferUseCase(
		stores,
		transferSvc,
		logger,
		cfg.Transfer.MaxRetryAttempts,
	)

	return controller.NewController(ledgerSvc, transferUC, logger)
}
