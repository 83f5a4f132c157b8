package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stockroom/internal/domain"
	apperrors "stockroom/internal/errors"
)

type mockProductRepository struct {
	FindByIDForUpdateFunc func(ctx context.Context, tx *sql.Tx, id string) (*domain.Product, error)
	DecrementQuantityFunc func(ctx context.Context, tx *sql.Tx, id string, quantity int) error
	WarehouseStatsFunc    func(ctx context.Context) (int, int, error)
	ListLowStockFunc      func(ctx context.Context, threshold int) ([]domain.Product, error)
}

func (m *mockProductRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*domain.Product, error) {
	return m.FindByIDForUpdateFunc(ctx, tx, id)
}

func (m *mockProductRepository) DecrementQuantity(ctx context.Context, tx *sql.Tx, id string, quantity int) error {
	return m.DecrementQuantityFunc(ctx, tx, id, quantity)
}

func (m *mockProductRepository) WarehouseStats(ctx context.Context) (int, int, error) {
	return m.WarehouseStatsFunc(ctx)
}

func (m *mockProductRepository) ListLowStock(ctx context.Context, threshold int) ([]domain.Product, error) {
	return m.ListLowStockFunc(ctx, threshold)
}

type mockSalesRepository struct {
	InsertFunc            func(ctx context.Context, tx *sql.Tx, sale domain.Sale) error
	FindByIDForUpdateFunc func(ctx context.Context, tx *sql.Tx, id string) (*domain.Sale, error)
	MarkPaidFunc          func(ctx context.Context, tx *sql.Tx, id string, paidAt time.Time) error
	ListUnpaidFunc        func(ctx context.Context) ([]domain.Sale, error)
	ListFunc              func(ctx context.Context, source *domain.Location, status string) ([]domain.Sale, error)
	TotalsByMethodFunc    func(ctx context.Context, start, end time.Time) (map[string]decimal.Decimal, error)
	TotalBetweenFunc      func(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
}

func (m *mockSalesRepository) Insert(ctx context.Context, tx *sql.Tx, sale domain.Sale) error {
	return m.InsertFunc(ctx, tx, sale)
}

func (m *mockSalesRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*domain.Sale, error) {
	return m.FindByIDForUpdateFunc(ctx, tx, id)
}

func (m *mockSalesRepository) MarkPaid(ctx context.Context, tx *sql.Tx, id string, paidAt time.Time) error {
	return m.MarkPaidFunc(ctx, tx, id, paidAt)
}

func (m *mockSalesRepository) ListUnpaid(ctx context.Context) ([]domain.Sale, error) {
	return m.ListUnpaidFunc(ctx)
}

func (m *mockSalesRepository) List(ctx context.Context, source *domain.Location, status string) ([]domain.Sale, error) {
	return m.ListFunc(ctx, source, status)
}

func (m *mockSalesRepository) TotalsByMethod(ctx context.Context, start, end time.Time) (map[string]decimal.Decimal, error) {
	return m.TotalsByMethodFunc(ctx, start, end)
}

func (m *mockSalesRepository) TotalBetween(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	return m.TotalBetweenFunc(ctx, start, end)
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func testActor() domain.Actor {
	return domain.Actor{ID: "cashier-1", Role: domain.RoleStaff}
}

func storeProduct(id string, quantity int, price int64) *domain.Product {
	return &domain.Product{
		ID:       id,
		Location: domain.StoreLocation("store-1"),
		Name:     "Engine Oil",
		Price:    decimal.NewFromInt(price),
		Quantity: quantity,
	}
}

func validInput() RecordSaleInput {
	return RecordSaleInput{
		Source:        domain.StoreLocation("store-1"),
		ProductID:     "st-1",
		Quantity:      2,
		CustomerName:  "Ada",
		PaymentStatus: domain.PaymentStatusPaid,
		PaymentMethod: domain.PaymentMethodCash,
	}
}

func TestRecord_PaidSaleSettlesInFull(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	var decremented int
	var insertedSale domain.Sale

	products := &mockProductRepository{
		FindByIDForUpdateFunc: func(ctx context.Context, tx *sql.Tx, id string) (*domain.Product, error) {
			return storeProduct("st-1", 10, 25), nil
		},
		DecrementQuantityFunc: func(ctx context.Context, tx *sql.Tx, id string, quantity int) error {
			decremented = quantity
			return nil
		},
	}
	sales := &mockSalesRepository{
		InsertFunc: func(ctx context.Context, tx *sql.Tx, sale domain.Sale) error {
			insertedSale = sale
			return nil
		},
	}

	svc := NewSalesService(db, products, sales, zap.NewNop(), 5*time.Second)

	result, err := svc.Record(context.Background(), testActor(), validInput())
	require.NoError(t, err)

	assert.Equal(t, 2, decremented)
	assert.Equal(t, 8, result.RemainingQuantity)

	// Unit price defaults to the stored price; a paid sale settles the
	// whole total at once.
	assert.True(t, insertedSale.Price.Equal(decimal.NewFromInt(25)))
	assert.True(t, insertedSale.Total.Equal(decimal.NewFromInt(50)))
	assert.True(t, insertedSale.AmountPaid.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "Engine Oil", insertedSale.ProductName)
	assert.Equal(t, "cashier-1", insertedSale.RecordedBy)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord_CreditSaleStartsUnpaid(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	var insertedSale domain.Sale
	products := &mockProductRepository{
		FindByIDForUpdateFunc: func(ctx context.Context, tx *sql.Tx, id string) (*domain.Product, error) {
			return storeProduct("st-1", 10, 25), nil
		},
		DecrementQuantityFunc: func(ctx context.Context, tx *sql.Tx, id string, quantity int) error { return nil },
	}
	sales := &mockSalesRepository{
		InsertFunc: func(ctx context.Context, tx *sql.Tx, sale domain.Sale) error {
			insertedSale = sale
			return nil
		},
	}

	svc := NewSalesService(db, products, sales, zap.NewNop(), 5*time.Second)

	in := validInput()
	in.PaymentStatus = domain.PaymentStatusCredit
	_, err := svc.Record(context.Background(), testActor(), in)
	require.NoError(t, err)

	assert.True(t, insertedSale.AmountPaid.IsZero())
	assert.True(t, insertedSale.IsCredit())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord_OverridesPriceAndTotal(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	var insertedSale domain.Sale
	products := &mockProductRepository{
		FindByIDForUpdateFunc: func(ctx context.Context, tx *sql.Tx, id string) (*domain.Product, error) {
			return storeProduct("st-1", 10, 25), nil
		},
		DecrementQuantityFunc: func(ctx context.Context, tx *sql.Tx, id string, quantity int) error { return nil },
	}
	sales := &mockSalesRepository{
		InsertFunc: func(ctx context.Context, tx *sql.Tx, sale domain.Sale) error {
			insertedSale = sale
			return nil
		},
	}

	svc := NewSalesService(db, products, sales, zap.NewNop(), 5*time.Second)

	unit := decimal.NewFromInt(22)
	total := decimal.NewFromInt(40)
	in := validInput()
	in.UnitPrice = &unit
	in.TotalOverride = &total

	_, err := svc.Record(context.Background(), testActor(), in)
	require.NoError(t, err)

	assert.True(t, insertedSale.Price.Equal(unit))
	assert.True(t, insertedSale.Total.Equal(total))
	assert.True(t, insertedSale.AmountPaid.Equal(total))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord_InsufficientStock(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	products := &mockProductRepository{
		FindByIDForUpdateFunc: func(ctx context.Context, tx *sql.Tx, id string) (*domain.Product, error) {
			return storeProduct("st-1", 1, 25), nil
		},
	}

	svc := NewSalesService(db, products, &mockSalesRepository{}, zap.NewNop(), 5*time.Second)

	_, err := svc.Record(context.Background(), testActor(), validInput())
	require.Error(t, err)

	stockErr, ok := apperrors.IsInsufficientStockError(err)
	require.True(t, ok)
	assert.Equal(t, 2, stockErr.Requested)
	assert.Equal(t, 1, stockErr.Available)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord_LocationMismatch(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	products := &mockProductRepository{
		FindByIDForUpdateFunc: func(ctx context.Context, tx *sql.Tx, id string) (*domain.Product, error) {
			// Product lives in another store than the sale claims.
			p := storeProduct("st-1", 10, 25)
			p.Location = domain.StoreLocation("store-9")
			return p, nil
		},
	}

	svc := NewSalesService(db, products, &mockSalesRepository{}, zap.NewNop(), 5*time.Second)

	_, err := svc.Record(context.Background(), testActor(), validInput())
	require.Error(t, err)

	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord_ValidationFailures(t *testing.T) {
	svc := NewSalesService(nil, &mockProductRepository{}, &mockSalesRepository{}, zap.NewNop(), 5*time.Second)

	tests := []struct {
		name   string
		mutate func(*RecordSaleInput)
	}{
		{"missing product", func(in *RecordSaleInput) { in.ProductID = "" }},
		{"zero quantity", func(in *RecordSaleInput) { in.Quantity = 0 }},
		{"missing customer", func(in *RecordSaleInput) { in.CustomerName = "" }},
		{"bad status", func(in *RecordSaleInput) { in.PaymentStatus = "layaway" }},
		{"bad method", func(in *RecordSaleInput) { in.PaymentMethod = "cheque" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			_, err := svc.Record(context.Background(), testActor(), in)
			require.Error(t, err)

			_, ok := apperrors.IsValidationError(err)
			assert.True(t, ok)
		})
	}
}

func TestMarkPaid_SettlesCreditSale(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	paidAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	var markedID string
	sales := &mockSalesRepository{
		FindByIDForUpdateFunc: func(ctx context.Context, tx *sql.Tx, id string) (*domain.Sale, error) {
			return &domain.Sale{ID: id, PaymentStatus: domain.PaymentStatusCredit, Total: decimal.NewFromInt(50)}, nil
		},
		MarkPaidFunc: func(ctx context.Context, tx *sql.Tx, id string, at time.Time) error {
			markedID = id
			assert.Equal(t, paidAt, at)
			return nil
		},
	}

	svc := NewSalesService(db, &mockProductRepository{}, sales, zap.NewNop(), 5*time.Second)

	require.NoError(t, svc.MarkPaid(context.Background(), testActor(), "sale-1", paidAt))
	assert.Equal(t, "sale-1", markedID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPaid_AlreadyPaid(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	sales := &mockSalesRepository{
		FindByIDForUpdateFunc: func(ctx context.Context, tx *sql.Tx, id string) (*domain.Sale, error) {
			return &domain.Sale{ID: id, PaymentStatus: domain.PaymentStatusPaid}, nil
		},
	}

	svc := NewSalesService(db, &mockProductRepository{}, sales, zap.NewNop(), 5*time.Second)

	err := svc.MarkPaid(context.Background(), testActor(), "sale-1", time.Now())
	require.Error(t, err)

	_, ok := apperrors.IsConflictError(err)
	assert.True(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSales_PassesFilters(t *testing.T) {
	var gotSource *domain.Location
	var gotStatus string
	sales := &mockSalesRepository{
		ListFunc: func(ctx context.Context, source *domain.Location, status string) ([]domain.Sale, error) {
			gotSource = source
			gotStatus = status
			return []domain.Sale{{ID: "sale-1"}}, nil
		},
	}

	svc := NewSalesService(nil, &mockProductRepository{}, sales, zap.NewNop(), 5*time.Second)

	loc := domain.StoreLocation("store-1")
	history, err := svc.ListSales(context.Background(), &loc, domain.PaymentStatusPaid)
	require.NoError(t, err)
	require.Len(t, history, 1)

	require.NotNil(t, gotSource)
	assert.Equal(t, "store-1", gotSource.StoreID())
	assert.Equal(t, domain.PaymentStatusPaid, gotStatus)
}

func TestListSales_RejectsBadStatus(t *testing.T) {
	svc := NewSalesService(nil, &mockProductRepository{}, &mockSalesRepository{}, zap.NewNop(), 5*time.Second)

	_, err := svc.ListSales(context.Background(), nil, "layaway")
	require.Error(t, err)

	_, ok := apperrors.IsValidationError(err)
	assert.True(t, ok)
}

func TestReportWindow(t *testing.T) {
	now := time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

	t.Run("daily", func(t *testing.T) {
		start, end, err := ReportWindow(PeriodDaily, now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), start)
		// The exclusive end is the next midnight, so a sale stamped in
		// the last fractional second of the day still falls inside.
		assert.Equal(t, time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("weekly", func(t *testing.T) {
		start, end, err := ReportWindow(PeriodWeekly, now)
		require.NoError(t, err)
		assert.Equal(t, now.AddDate(0, 0, -7), start)
		assert.Equal(t, now, end)
	})

	t.Run("monthly", func(t *testing.T) {
		start, end, err := ReportWindow(PeriodMonthly, now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("invalid", func(t *testing.T) {
		_, _, err := ReportWindow("quarterly", now)
		require.Error(t, err)

		_, ok := apperrors.IsValidationError(err)
		assert.True(t, ok)
	})
}

func TestReport_SumsMethods(t *testing.T) {
	sales := &mockSalesRepository{
		TotalsByMethodFunc: func(ctx context.Context, start, end time.Time) (map[string]decimal.Decimal, error) {
			return map[string]decimal.Decimal{
				domain.PaymentMethodCash:     decimal.NewFromInt(120),
				domain.PaymentMethodTransfer: decimal.NewFromInt(80),
			}, nil
		},
	}

	svc := NewSalesService(nil, &mockProductRepository{}, sales, zap.NewNop(), 5*time.Second)
	svc.now = func() time.Time { return time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC) }

	report, err := svc.Report(context.Background(), PeriodDaily)
	require.NoError(t, err)

	assert.True(t, report.CashTotal.Equal(decimal.NewFromInt(120)))
	assert.True(t, report.TransferTotal.Equal(decimal.NewFromInt(80)))
	assert.True(t, report.GrandTotal.Equal(decimal.NewFromInt(200)))
}

func TestOverview_ComparesAgainstPreviousMonth(t *testing.T) {
	products := &mockProductRepository{
		WarehouseStatsFunc: func(ctx context.Context) (int, int, error) {
			return 12, 340, nil
		},
		ListLowStockFunc: func(ctx context.Context, threshold int) ([]domain.Product, error) {
			assert.Equal(t, domain.LowStockThreshold, threshold)
			return []domain.Product{{ID: "wh-3", Name: "Grease", Quantity: 2}}, nil
		},
	}

	var windows []time.Time
	sales := &mockSalesRepository{
		TotalBetweenFunc: func(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
			windows = append(windows, start)
			if start.Month() == time.June {
				return decimal.NewFromInt(150), nil
			}
			return decimal.NewFromInt(100), nil
		},
	}

	svc := NewSalesService(nil, products, sales, zap.NewNop(), 5*time.Second)
	svc.now = func() time.Time { return time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC) }

	overview, err := svc.Overview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 12, overview.TotalProducts)
	assert.Equal(t, 340, overview.TotalStockUnits)
	assert.True(t, overview.MonthlySales.Equal(decimal.NewFromInt(150)))
	assert.InDelta(t, 50.0, overview.SalesGrowthPct, 0.001)
	require.Len(t, overview.LowStock, 1)

	// The previous window is the full month before the current one.
	require.Len(t, windows, 2)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), windows[0])
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), windows[1])
}

func TestGrowthPct(t *testing.T) {
	assert.Equal(t, float64(100), growthPct(decimal.NewFromInt(50), decimal.Zero))
	assert.Equal(t, float64(0), growthPct(decimal.Zero, decimal.Zero))
	assert.InDelta(t, -25.0, growthPct(decimal.NewFromInt(75), decimal.NewFromInt(100)), 0.001)
	assert.InDelta(t, 50.0, growthPct(decimal.NewFromInt(150), decimal.NewFromInt(100)), 0.001)
}
