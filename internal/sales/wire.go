package sales

import (
	"database/sql"

	"go.uber.org/zap"

	"stockroom/internal/config"
	inventoryrepo "stockroom/internal/inventory/repository"
	"stockroom/internal/sales/controller"
	"stockroom/internal/sales/repository"
	"stockroom/internal/sales/service"
)

func NewModule(db *sql.DB, cfg *config.Config, logger *zap.Logger) *controller.Controller {
	salesRepo := repository.NewMySQLSalesRepository(db)
	products := inventoryrepo.NewMySQLProductsRepository(db)

	salesSvc := service.NewSalesService(
		db,
		products,
		salesRepo,
		logger,
		cfg.Transfer.TxTimeout,
	)

	return controller.NewController(salesSvc, logger)
}
