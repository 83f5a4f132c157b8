package service

import (
	"context"
	"database/sql"
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
	DecrementQuantity(ctx context.Context, tx *sql.Tx, id string, quantity int) error
	WarehouseStats(ctx context.Context) (count int, units int, err error)
	ListLowStock(ctx context.Context, threshold int) ([]domain.Product, error)
}

type SalesRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, sale domain.Sale) error
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*domain.Sale, error)
	MarkPaid(ctx context.Context, tx *sql.Tx, id string, paidAt time.Time) error
	ListUnpaid(ctx context.Context) ([]domain.Sale, error)
	List(ctx context.Context, source *domain.Location, status string) ([]domain.Sale, error)
	TotalsByMethod(ctx context.Context, start, end time.Time) (map[string]decimal.Decimal, error)
	TotalBetween(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
}

type RecordSaleInput struct {
	Source        domain.Location
	ProductID     string
	Quantity      int
	UnitPrice     *decimal.Decimal
	TotalOverride *decimal.Decimal
	CustomerName  string
	TinNumber     string
	Contact       string
	PaymentStatus string
	PaymentMethod string
}

type RecordSaleResult struct {
	Sale              domain.Sale
	RemainingQuantity int
}

type Report struct {
	Period        string
	Start         time.Time
	End           time.Time
	CashTotal     decimal.Decimal
	TransferTotal decimal.Decimal
	GrandTotal    decimal.Decimal
}

type Overview struct {
	TotalProducts   int
	TotalStockUnits int
	MonthlySales    decimal.Decimal
	SalesGrowthPct  float64
	LowStock        []domain.Product
}

type SalesService struct {
	db        TransactionManager
	products  ProductRepository
	sales     SalesRepository
	logger    *zap.Logger
	txTimeout time.Duration
	now       func() time.Time
}

func NewSalesService(
	db TransactionManager,
	products ProductRepository,
	sales SalesRepository,
	logger *zap.Logger,
	txTimeout time.Duration,
) *SalesService {
	return &SalesService{
		db:        db,
		products:  products,
		sales:     sales,
		logger:    logger,
		txTimeout: txTimeout,
		now:       time.Now,
	}
}

func validateRecordSale(in RecordSaleInput) error {
	var details []errors.ValidationDetail
	if in.ProductID == "" {
		details = append(details, errors.ValidationDetail{Field: "productId", Message: "productId is required"})
	}
	if in.Quantity <= 0 {
		details = append(details, errors.ValidationDetail{Field: "quantity", Message: "quantity must be a positive integer"})
	}
	if in.CustomerName == "" {
		details = append(details, errors.ValidationDetail{Field: "customerName", Message: "customerName is required"})
	}
	if !domain.ValidPaymentStatus(in.PaymentStatus) {
		details = append(details, errors.ValidationDetail{Field: "paymentStatus", Message: "paymentStatus must be paid or credit"})
	}
	if !domain.ValidPaymentMethod(in.PaymentMethod) {
		details = append(details, errors.ValidationDetail{Field: "paymentMethod", Message: "paymentMethod must be cash or transfer"})
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		details = append(details, errors.ValidationDetail{Field: "price", Message: "price must be non-negative"})
	}
	if len(details) > 0 {
		return errors.NewValidationError("validation failed", details...)
	}
	return nil
}

// Record creates a sale and decrements the sold product in one
// transaction. The unit price defaults to the product's stored price;
// the total may be overridden by the caller, as cashiers sometimes
// round.
func (s *SalesService) Record(ctx context.Context, actor domain.Actor, in RecordSaleInput) (*RecordSaleResult, error) {
	if err := validateRecordSale(in); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, errors.NewStorageError("beginning transaction", err)
	}
	defer tx.Rollback()

	product, err := s.products.FindByIDForUpdate(txCtx, tx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if product.Location != in.Source {
		return nil, errors.NewNotFoundError("product not found at the given location")
	}
	if in.Quantity > product.Quantity {
		return nil, errors.NewInsufficientStockError(in.Quantity, product.Quantity)
	}

	if err := s.products.DecrementQuantity(txCtx, tx, product.ID, in.Quantity); err != nil {
		return nil, err
	}

	unitPrice := product.Price
	if in.UnitPrice != nil {
		unitPrice = *in.UnitPrice
	}
	total := unitPrice.Mul(decimal.NewFromInt(int64(in.Quantity)))
	if in.TotalOverride != nil {
		total = *in.TotalOverride
	}

	amountPaid := decimal.Zero
	if in.PaymentStatus == domain.PaymentStatusPaid {
		amountPaid = total
	}

	sale := domain.Sale{
		ID:            uuid.New().String(),
		Source:        in.Source,
		ProductID:     product.ID,
		ProductName:   product.Name,
		Quantity:      in.Quantity,
		Price:         unitPrice,
		Total:         total,
		CustomerName:  in.CustomerName,
		TinNumber:     in.TinNumber,
		Contact:       in.Contact,
		PaymentStatus: in.PaymentStatus,
		PaymentMethod: in.PaymentMethod,
		AmountPaid:    amountPaid,
		RecordedBy:    actor.ID,
	}
	if err := s.sales.Insert(txCtx, tx, sale); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewStorageError("committing transaction", err)
	}

	remaining := product.Quantity - in.Quantity
	s.logger.Info("sale recorded",
		zap.String("saleId", sale.ID),
		zap.String("productId", product.ID),
		zap.Int("quantity", in.Quantity),
		zap.Int("remaining", remaining),
		zap.String("paymentStatus", in.PaymentStatus),
		zap.String("actorId", actor.ID))

	return &RecordSaleResult{Sale: sale, RemainingQuantity: remaining}, nil
}

// MarkPaid settles an open credit sale in full.
func (s *SalesService) MarkPaid(ctx context.Context, actor domain.Actor, saleID string, paidAt time.Time) error {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		return errors.NewStorageError("beginning transaction", err)
	}
	defer tx.Rollback()

	sale, err := s.sales.FindByIDForUpdate(txCtx, tx, saleID)
	if err != nil {
		return err
	}
	if !sale.IsCredit() {
		return errors.NewConflictError("sale is already paid")
	}

	if err := s.sales.MarkPaid(txCtx, tx, saleID, paidAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStorageError("committing transaction", err)
	}

	s.logger.Info("credit sale settled",
		zap.String("saleId", saleID),
		zap.String("actorId", actor.ID))
	return nil
}

func (s *SalesService) ListUnpaid(ctx context.Context) ([]domain.Sale, error) {
	return s.sales.ListUnpaid(ctx)
}

// ListSales returns the sale history, most recent first. Both filters
// are optional: a nil source spans every location.
func (s *SalesService) ListSales(ctx context.Context, source *domain.Location, status string) ([]domain.Sale, error) {
	if status != "" && !domain.ValidPaymentStatus(status) {
		return nil, errors.NewValidationError("validation failed",
			errors.ValidationDetail{Field: "status", Message: "status must be paid or credit"})
	}
	return s.sales.List(ctx, source, status)
}

const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// ReportWindow computes the half-open [start, end) window for a report
// period: today, the trailing seven days, or the calendar month. The
// exclusive end keeps fractional-second timestamps inside the window.
func ReportWindow(period string, now time.Time) (time.Time, time.Time, error) {
	switch period {
	case PeriodDaily:
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 0, 1), nil
	case PeriodWeekly:
		return now.AddDate(0, 0, -7), now, nil
	case PeriodMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 1, 0), nil
	default:
		return time.Time{}, time.Time{}, errors.NewValidationError("validation failed",
			errors.ValidationDetail{Field: "period", Message: "period must be daily, weekly or monthly"})
	}
}

func (s *SalesService) Report(ctx context.Context, period string) (*Report, error) {
	start, end, err := ReportWindow(period, s.now())
	if err != nil {
		return nil, err
	}

	totals, err := s.sales.TotalsByMethod(ctx, start, end)
	if err != nil {
		return nil, err
	}

	cash := totals[domain.PaymentMethodCash]
	transfer := totals[domain.PaymentMethodTransfer]
	return &Report{
		Period:        period,
		Start:         start,
		End:           end,
		CashTotal:     cash,
		TransferTotal: transfer,
		GrandTotal:    cash.Add(transfer),
	}, nil
}

// Overview aggregates the dashboard numbers: warehouse totals, the
// current month's sales with growth against the previous month, and the
// low-stock list.
func (s *SalesService) Overview(ctx context.Context) (*Overview, error) {
	count, units, err := s.products.WarehouseStats(ctx)
	if err != nil {
		return nil, err
	}

	lowStock, err := s.products.ListLowStock(ctx, domain.LowStockThreshold)
	if err != nil {
		return nil, err
	}

	now := s.now()
	curStart, curEnd, _ := ReportWindow(PeriodMonthly, now)
	prevStart, prevEnd, _ := ReportWindow(PeriodMonthly, curStart.AddDate(0, 0, -1))

	current, err := s.sales.TotalBetween(ctx, curStart, curEnd)
	if err != nil {
		return nil, err
	}
	previous, err := s.sales.TotalBetween(ctx, prevStart, prevEnd)
	if err != nil {
		return nil, err
	}

	return &Overview{
		TotalProducts:   count,
		TotalStockUnits: units,
		MonthlySales:    current,
		SalesGrowthPct:  growthPct(current, previous),
		LowStock:        lowStock,
	}, nil
}

func growthPct(current, previous decimal.Decimal) float64 {
	if previous.IsZero() {
		if current.IsPositive() {
			return 100
		}
		return 0
	}
	pct, _ := current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}
