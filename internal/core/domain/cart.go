package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID        int64
	UserID    string
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem is one line of a cart. UnitPrice is captured when the item is
// added and is not re-read from the catalog afterwards.
type CartItem struct {
	ID          int64
	CartID      int64
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	AddedAt     time.Time
	UpdatedAt   time.Time
}

func (ci CartItem) LineTotal() decimal.Decimal {
	return ci.UnitPrice.Mul(decimal.NewFromInt(int64(ci.Quantity)))
}

// TotalAmount sums all line totals.
func (c *Cart) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// TotalItems counts units across all lines.
func (c *Cart) TotalItems() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// StockLines maps the cart lines to the reservation request used at checkout.
func (c *Cart) StockLines() []StockLine {
	lines := make([]StockLine, 0, len(c.Items))
	for _, item := range c.Items {
		lines = append(lines, StockLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}
