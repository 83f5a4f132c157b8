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
	"stockroom/internal/sales/service"
)

type SalesUseCase interface {
	Record(ctx context.Context, actor domain.Actor, in service.RecordSaleInput) (*service.RecordSaleResult, error)
	MarkPaid(ctx context.Context, actor domain.Actor, saleID string, paidAt time.Time) error
	ListUnpaid(ctx context.Context) ([]domain.Sale, error)
	ListSales(ctx context.Context, source *domain.Location, status string) ([]domain.Sale, error)
	Report(ctx context.Context, period string) (*service.Report, error)
	Overview(ctx context.Context) (*service.Overview, error)
}

type Controller struct {
	sales  SalesUseCase
	logger *zap.Logger
}

func NewController(sales SalesUseCase, logger *zap.Logger) *Controller {
	return &Controller{sales: sales, logger: logger}
}

type recordSaleRequest struct {
	StoreID       string           `json:"storeId,omitempty"`
	ProductID     string           `json:"productId"`
	Quantity      int              `json:"quantity"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	Total         *decimal.Decimal `json:"total,omitempty"`
	CustomerName  string           `json:"customerName"`
	TinNumber     string           `json:"tinNumber,omitempty"`
	Contact       string           `json:"contact,omitempty"`
	PaymentStatus string           `json:"paymentStatus"`
	PaymentMethod string           `json:"paymentMethod"`
}

type saleDTO struct {
	ID            string          `json:"id"`
	StoreID       string          `json:"storeId,omitempty"`
	ProductID     string          `json:"productId"`
	ProductName   string          `json:"productName"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	Total         decimal.Decimal `json:"total"`
	CustomerName  string          `json:"customerName"`
	TinNumber     string          `json:"tinNumber,omitempty"`
	Contact       string          `json:"contact,omitempty"`
	PaymentStatus string          `json:"paymentStatus"`
	PaymentMethod string          `json:"paymentMethod"`
	AmountPaid    decimal.Decimal `json:"amountPaid"`
	PaidAt        *time.Time      `json:"paidAt,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

func toSaleDTO(s domain.Sale) saleDTO {
	return saleDTO{
		ID:            s.ID,
		StoreID:       s.Source.StoreID(),
		ProductID:     s.ProductID,
		ProductName:   s.ProductName,
		Quantity:      s.Quantity,
		Price:         s.Price,
		Total:         s.Total,
		CustomerName:  s.CustomerName,
		TinNumber:     s.TinNumber,
		Contact:       s.Contact,
		PaymentStatus: s.PaymentStatus,
		PaymentMethod: s.PaymentMethod,
		AmountPaid:    s.AmountPaid,
		PaidAt:        s.PaidAt,
		Timestamp:     s.Timestamp,
	}
}

func (c *Controller) HandleRecordSale(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		c.writeErrorResponse(w, traceID, http.StatusUnauthorized, "UNAUTHORIZED", "missing caller identity")
		return
	}

	var req recordSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	source := domain.Warehouse()
	if req.StoreID != "" {
		source = domain.StoreLocation(req.StoreID)
	}

	result, err := c.sales.Record(r.Context(), actor, service.RecordSaleInput{
		Source:        source,
		ProductID:     req.ProductID,
		Quantity:      req.Quantity,
		UnitPrice:     req.Price,
		TotalOverride: req.Total,
		CustomerName:  req.CustomerName,
		TinNumber:     req.TinNumber,
		Contact:       req.Contact,
		PaymentStatus: req.PaymentStatus,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"traceId":           traceID,
		"sale":              toSaleDTO(result.Sale),
		"remainingQuantity": result.RemainingQuantity,
	})
}

func (c *Controller) HandleMarkPaid(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		c.writeErrorResponse(w, traceID, http.StatusUnauthorized, "UNAUTHORIZED", "missing caller identity")
		return
	}

	saleID := chi.URLParam(r, "saleID")
	if err := c.sales.MarkPaid(r.Context(), actor, saleID, time.Now().UTC()); err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, map[string]string{"traceId": traceID, "status": "ok"})
}

func (c *Controller) HandleListUnpaid(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	sales, err := c.sales.ListUnpaid(r.Context())
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	dtos := make([]saleDTO, 0, len(sales))
	for _, s := range sales {
		dtos = append(dtos, toSaleDTO(s))
	}
	c.writeJSON(w, http.StatusOK, map[string]interface{}{"traceId": traceID, "sales": dtos})
}

// HandleListSales serves the sale history. storeId narrows the listing
// to one store, or to the warehouse with the literal value "warehouse";
// status narrows it to paid or credit sales.
func (c *Controller) HandleListSales(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	var source *domain.Location
	switch storeID := r.URL.Query().Get("storeId"); storeID {
	case "":
	case "warehouse":
		loc := domain.Warehouse()
		source = &loc
	default:
		loc := domain.StoreLocation(storeID)
		source = &loc
	}

	sales, err := c.sales.ListSales(r.Context(), source, r.URL.Query().Get("status"))
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	dtos := make([]saleDTO, 0, len(sales))
	for _, s := range sales {
		dtos = append(dtos, toSaleDTO(s))
	}
	c.writeJSON(w, http.StatusOK, map[string]interface{}{"traceId": traceID, "sales": dtos})
}

type reportResponse struct {
	TraceID       string          `json:"traceId"`
	Period        string          `json:"period"`
	Start         time.Time       `json:"start"`
	End           time.Time       `json:"end"`
	CashTotal     decimal.Decimal `json:"cashTotal"`
	TransferTotal decimal.Decimal `json:"transferTotal"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
}

func (c *Controller) HandleReport(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	period := r.URL.Query().Get("period")
	if period == "" {
		period = service.PeriodDaily
	}

	report, err := c.sales.Report(r.Context(), period)
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, reportResponse{
		TraceID:       traceID,
		Period:        report.Period,
		Start:         report.Start,
		End:           report.End,
		CashTotal:     report.CashTotal,
		TransferTotal: report.TransferTotal,
		GrandTotal:    report.GrandTotal,
	})
}

type lowStockDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type overviewResponse struct {
	TraceID         string          `json:"traceId"`
	TotalProducts   int             `json:"totalProducts"`
	TotalStockUnits int             `json:"totalStockUnits"`
	MonthlySales    decimal.Decimal `json:"monthlySales"`
	SalesGrowthPct  float64         `json:"salesGrowthPct"`
	LowStock        []lowStockDTO   `json:"lowStock"`
}

func (c *Controller) HandleOverview(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	overview, err := c.sales.Overview(r.Context())
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	lowStock := make([]lowStockDTO, 0, len(overview.LowStock))
	for _, p := range overview.LowStock {
		lowStock = append(lowStock, lowStockDTO{ID: p.ID, Name: p.Name, Quantity: p.Quantity})
	}

	c.writeJSON(w, http.StatusOK, overviewResponse{
		TraceID:         traceID,
		TotalProducts:   overview.TotalProducts,
		TotalStockUnits: overview.TotalStockUnits,
		MonthlySales:    overview.MonthlySales,
		SalesGrowthPct:  overview.SalesGrowthPct,
		LowStock:        lowStock,
	})
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
