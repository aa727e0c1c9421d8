package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID                int64
	FarmerID          string
	Name              string
	Price             decimal.Decimal
	Unit              string // kg, piece, liter, etc.
	QuantityAvailable int
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// StockLine is one (product, quantity) pair of a reservation or a restock.
type StockLine struct {
	ProductID int64
	Quantity  int
}
