package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stockroom/internal/domain"
	apperrors "stockroom/internal/errors"
	"stockroom/internal/identity"
	"stockroom/internal/inventory/service"
)

type LedgerUseCase interface {
	AddStock(ctx context.Context, actor domain.Actor, in service.AddStockInput) (string, error)
	AddStoreProduct(ctx context.Context, actor domain.Actor, storeID string, in service.AddStockInput) (string, error)
	Restock(ctx context.Context, actor domain.Actor, productID string, quantity int) error
	UpdatePrice(ctx context.Context, actor domain.Actor, productID string, price decimal.Decimal) error
	ListProducts(ctx context.Context, loc domain.Location, nameFilter string, inStockOnly bool) ([]domain.Product, error)
	ListStores(ctx context.Context) ([]domain.Store, error)
	AddCategory(ctx context.Context, actor domain.Actor, name string) (string, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	DeleteCategory(ctx context.Context, actor domain.Actor, id string) error
}

type TransferUseCase interface {
	Transfer(ctx context.Context, actor domain.Actor, sourceProductID, storeID string, quantity int) (*service.TransferResult, error)
}

type Controller struct {
	ledger   LedgerUseCase
	transfer TransferUseCase
	logger   *zap.Logger
}

func NewController(ledger LedgerUseCase, transfer TransferUseCase, logger *zap.Logger) *Controller {
	return &Controller{
		ledger:   ledger,
		transfer: transfer,
		logger:   logger,
	}
}

type addStockRequest struct {
	StoreID    string          `json:"storeId,omitempty"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	CategoryID *string         `json:"categoryId,omitempty"`
}

type addStockResponse struct {
	TraceID   string    `json:"traceId"`
	ProductID string    `json:"productId"`
	Timestamp time.Time `json:"timestamp"`
}

func (c *Controller) HandleAddStock(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		c.writeErrorResponse(w, traceID, http.StatusUnauthorized, "UNAUTHORIZED", "missing caller identity")
		return
	}

	var req addStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	loc := domain.Warehouse()
	if req.StoreID != "" {
		loc = domain.StoreLocation(req.StoreID)
	}

	productID, err := c.ledger.AddStock(r.Context(), actor, service.AddStockInput{
		Location:   loc,
		Name:       req.Name,
		Quantity:   req.Quantity,
		Price:      req.Price,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusCreated, addStockResponse{
		TraceID:   traceID,
		ProductID: productID,
		Timestamp: time.Now().UTC(),
	})
}

func (c *Controller) HandleAddStoreProduct(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		c.writeErrorResponse(w, traceID, http.StatusUnauthorized, "UNAUTHORIZED", "missing caller identity")
		return
	}

	storeID := chi.URLParam(r, "storeID")

	var req addStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	productID, err := c.ledger.AddStoreProduct(r.Context(), actor, storeID, service.AddStockInput{
		Name:       req.Name,
		Quantity:   req.Quantity,
		Price:      req.Price,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusCreated, addStockResponse{
		TraceID:   traceID,
		ProductID: productID,
		Timestamp: time.Now().UTC(),
	})
}

type transferRequest struct {
	ProductID string `json:"productId"`
	StoreID   string `json:"storeId"`
	Quantity  int    `json:"quantity"`
}

type transferResponse struct {
	TraceID              string    `json:"traceId"`
	SourceProductID      string    `json:"sourceProductId"`
	DestinationProductID string    `json:"destinationProductId"`
	StoreID              string    `json:"storeId"`
	StoreName            string    `json:"storeName"`
	Name                 string    `json:"name"`
	Quantity             int       `json:"quantity"`
	Merged               bool      `json:"merged"`
	LogID                string    `json:"logId"`
	Timestamp            time.Time `json:"timestamp"`
}

func (c *Controller) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		c.writeErrorResponse(w, traceID, http.StatusUnauthorized, "UNAUTHORIZED", "missing caller identity")
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	result, err := c.transfer.Transfer(r.Context(), actor, req.ProductID, req.StoreID, req.Quantity)
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, transferResponse{
		TraceID:              traceID,
		SourceProductID:      result.SourceProductID,
		DestinationProductID: result.DestinationProductID,
		StoreID:              result.StoreID,
		StoreName:            result.StoreName,
		Name:                 result.Name,
		Quantity:             result.Quantity,
		Merged:               result.Merged,
		LogID:                result.LogID,
		Timestamp:            time.Now().UTC(),
	})
}

type restockRequest struct {
	Quantity int `json:"quantity"`
}

func (c *Controller) HandleRestock(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		c.writeErrorResponse(w, traceID, http.StatusUnauthorized, "UNAUTHORIZED", "missing caller identity")
		return
	}

	var req restockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	productID := chi.URLParam(r, "productID")
	if err := c.ledger.Restock(r.Context(), actor, productID, req.Quantity); err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, map[string]string{"traceId": traceID, "status": "ok"})
}

type updatePriceRequest struct {
	Price decimal.Decimal `json:"price"`
}

func (c *Controller) HandleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		c.writeErrorResponse(w, traceID, http.StatusUnauthorized, "UNAUTHORIZED", "missing caller identity")
		return
	}

	var req updatePriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	productID := chi.URLParam(r, "productID")
	if err := c.ledger.UpdatePrice(r.Context(), actor, productID, req.Price); err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, map[string]string{"traceId": traceID, "status": "ok"})
}

type productDTO struct {
	ID            string          `json:"id"`
	StoreID       string          `json:"storeId,omitempty"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int             `json:"quantity"`
	CategoryID    *string         `json:"categoryId,omitempty"`
	TransferredAt *time.Time      `json:"transferredAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func toProductDTO(p domain.Product) productDTO {
	return productDTO{
		ID:            p.ID,
		StoreID:       p.Location.StoreID(),
		Name:          p.Name,
		Price:         p.Price,
		Quantity:      p.Quantity,
		CategoryID:    p.CategoryID,
		TransferredAt: p.TransferredAt,
		CreatedAt:     p.CreatedAt,
	}
}

func (c *Controller) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	loc := domain.Warehouse()
	if storeID := r.URL.Query().Get("storeId"); storeID != "" {
		loc = domain.StoreLocation(storeID)
	}
	nameFilter := r.URL.Query().Get("name")
	inStockOnly := r.URL.Query().Get("inStock") == "true"

	products, err := c.ledger.ListProducts(r.Context(), loc, nameFilter, inStockOnly)
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	dtos := make([]productDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, toProductDTO(p))
	}
	c.writeJSON(w, http.StatusOK, map[string]interface{}{"traceId": traceID, "products": dtos})
}

type storeDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c *Controller) HandleListStores(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	stores, err := c.ledger.ListStores(r.Context())
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	dtos := make([]storeDTO, 0, len(stores))
	for _, s := range stores {
		dtos = append(dtos, storeDTO{ID: s.ID, Name: s.Name})
	}
	c.writeJSON(w, http.StatusOK, map[string]interface{}{"traceId": traceID, "stores": dtos})
}

type categoryRequest struct {
	Name string `json:"name"`
}

func (c *Controller) HandleAddCategory(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		c.writeErrorResponse(w, traceID, http.StatusUnauthorized, "UNAUTHORIZED", "missing caller identity")
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	categoryID, err := c.ledger.AddCategory(r.Context(), actor, req.Name)
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusCreated, map[string]string{"traceId": traceID, "categoryId": categoryID})
}

func (c *Controller) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	categories, err := c.ledger.ListCategories(r.Context())
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	type categoryDTO struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	dtos := make([]categoryDTO, 0, len(categories))
	for _, cat := range categories {
		dtos = append(dtos, categoryDTO{ID: cat.ID, Name: cat.Name})
	}
	c.writeJSON(w, http.StatusOK, map[string]interface{}{"traceId": traceID, "categories": dtos})
}

func (c *Controller) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		c.writeErrorResponse(w, traceID, http.StatusUnauthorized, "UNAUTHORIZED", "missing caller identity")
		return
	}

	if err := c.ledger.DeleteCategory(r.Context(), actor, chi.URLParam(r, "categoryID")); err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, map[string]string{"traceId": traceID, "status": "ok"})
}

func (c *Controller) handleUseCaseError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		c.writeValidationError(w, ve.Message, ve.Details...)
		return
	}
	if _, ok := apperrors.IsNotFoundError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	if _, ok := apperrors.IsInsufficientStockError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusConflict, "INSUFFICIENT_STOCK", err.Error())
		return
	}
	if _, ok := apperrors.IsConflictError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusConflict, "CONFLICT", err.Error())
		return
	}
	if _, ok := apperrors.IsForbiddenError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusForbidden, "FORBIDDEN", err.Error())
		return
	}
	if _, ok := apperrors.IsDeadlockError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusConflict, "DEADLOCK", err.Error())
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	c.writeErrorResponse(w, traceID, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

type validationErrorResponse struct {
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

func (c *Controller) writeValidationError(w http.ResponseWriter, message string, details ...apperrors.ValidationDetail) {
	c.writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	})
}

type errorResponse struct {
	TraceID   string    `json:"traceId"`
	Status    int       `json:"status"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (c *Controller) writeErrorResponse(w http.ResponseWriter, traceID string, status int, code, message string) {
	c.writeJSON(w, status, errorResponse{
		TraceID:   traceID,
		Status:    status,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func (c *Controller) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
