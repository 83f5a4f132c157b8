package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            string
	Location      Location
	Name          string
	NameLower     string
	Price         decimal.Decimal
	Quantity      int
	CategoryID    *string
	CreatedAt     time.Time
	TransferredAt *time.Time
	UpdatedAt     time.Time
}

// NormalizeName trims the display name and derives the lowercase form
// stored alongside it for case-insensitive lookups.
func NormalizeName(name string) (display string, lower string) {
	display = strings.TrimSpace(name)
	return display, strings.ToLower(display)
}

func (p Product) InStock() bool {
	return p.Quantity > 0
}

// LowStockThreshold marks products the overview dashboard flags for
// restocking.
const LowStockThreshold = 10

func (p Product) IsLowStock() bool {
	return p.Quantity <= LowStockThreshold
}

type Store struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

type Category struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
