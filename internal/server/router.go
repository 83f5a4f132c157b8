package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	activityctrl "stockroom/internal/activity/controller"
	"stockroom/internal/identity"
	inventoryctrl "stockroom/internal/inventory/controller"
	salesctrl "stockroom/internal/sales/controller"
)

func NewRouter(
	inventory *inventoryctrl.Controller,
	activity *activityctrl.Controller,
	sales *salesctrl.Controller,
	auth *identity.Middleware,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/products", inventory.HandleListProducts)
			r.Post("/products", inventory.HandleAddStock)
			r.Post("/products/{productID}/restock", inventory.HandleRestock)
			r.Patch("/products/{productID}/price", inventory.HandleUpdatePrice)
			r.Post("/transfers", inventory.HandleTransfer)
		})

		r.Route("/stores", func(r chi.Router) {
			r.Get("/", inventory.HandleListStores)
			r.Post("/{storeID}/products", inventory.HandleAddStoreProduct)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", inventory.HandleListCategories)
			r.Post("/", inventory.HandleAddCategory)
			r.Delete("/{categoryID}", inventory.HandleDeleteCategory)
		})

		r.Route("/activity", func(r chi.Router) {
			r.Get("/", activity.HandleListRecent)
			r.With(auth.RequireAdmin).Post("/{logID}/undo", activity.HandleUndo)
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", sales.HandleListSales)
			r.Post("/", sales.HandleRecordSale)
			r.Get("/unpaid", sales.HandleListUnpaid)
			r.Post("/{saleID}/payment", sales.HandleMarkPaid)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Get("/sales", sales.HandleReport)
			r.Get("/overview", sales.HandleOverview)
		})
	})

	return r
}
