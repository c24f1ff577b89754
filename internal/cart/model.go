package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"userId"`
	ServiceID uint      `json:"serviceId"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Line is a cart item joined with the current catalog data of its service.
type Line struct {
	ID          uint            `json:"id"`
	ServiceID   uint            `json:"serviceId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Available   bool            `json:"available"`
}

type Cart struct {
	Items       []Line          `json:"items"`
	Total       decimal.Decimal `json:"total"`
	Count       int             `json:"count"`
	Unavailable int             `json:"unavailable"`
}

type AddToCartParams struct {
	UserID    uint
	ServiceID uint
	Quantity  int
}

type UpdateQuantityParams struct {
	UserID     uint
	CartItemID uint
	Quantity   int
}

// Build computes line subtotals, the cart total and the item count.
// Lines whose service was withdrawn stay listed but are left out of the
// total, since checkout refuses them.
func Build(lines []Line) *Cart {
	c := &Cart{Items: make([]Line, 0, len(lines)), Total: decimal.Zero}
	for _, l := range lines {
		l.Subtotal = l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		if l.Available {
			c.Total = c.Total.Add(l.Subtotal)
			c.Count += l.Quantity
		} else {
			c.Unavailable++
		}
		c.Items = append(c.Items, l)
	}
	return c
}
