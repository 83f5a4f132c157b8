package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentStatusPaid   = "paid"
	PaymentStatusCredit = "credit"
)

const (
	PaymentMethodCash     = "cash"
	PaymentMethodTransfer = "transfer"
)

type Sale struct {
	ID            string
	Source        Location
	ProductID     string
	ProductName   string
	Quantity      int
	Price         decimal.Decimal
	Total         decimal.Decimal
	CustomerName  string
	TinNumber     string
	Contact       string
	PaymentStatus string
	PaymentMethod string
	AmountPaid    decimal.Decimal
	PaidAt        *time.Time
	RecordedBy    string
	Timestamp     time.Time
}

func (s Sale) IsCredit() bool {
	return s.PaymentStatus == PaymentStatusCredit
}

func ValidPaymentStatus(status string) bool {
	return status == PaymentStatusPaid || status == PaymentStatusCredit
}

func ValidPaymentMethod(method string) bool {
	return method == PaymentMethodCash || method == PaymentMethodTransfer
}
