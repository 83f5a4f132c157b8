package activity

import (
	"database/sql"

	"go.uber.org/zap"

	"stockroom/internal/activity/controller"
	"stockroom/internal/activity/repository"
	"stockroom/internal/activity/service"
	"stockroom/internal/config"
	inventoryrepo "stockroom/internal/inventory/repository"
)

func NewModule(db *sql.DB, cfg *config.Config, logger *zap.Logger) *controller.Controller {
	logs := repository.NewMySQLActivityRepository(db)
	products := inventoryrepo.NewMySQLProductsRepository(db)

	undoSvc := service.NewUndoService(
		db,
		logs,
		products,
		logger,
		cfg.Transfer.TxTimeout,
	)

	return controller.NewController(undoSvc, logger)
}
