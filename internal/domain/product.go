package domain

import "github.com/shopspring/decimal"

// ProductBase is the catalog metadata served by the stock API.
// The cart never interprets these fields, it only carries them along.
type ProductBase struct {
	ID    int64           `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

// Product is a cart entry: catalog metadata plus the selected amount.
type Product struct {
	ProductBase
	Amount int `json:"amount"`
}

// Subtotal returns price * amount
func (p Product) Subtotal() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.Amount)))
}

// Stock is a read-only snapshot of available units for a product.
type Stock struct {
	ID     int64 `json:"id"`
	Amount int   `json:"amount"`
}
