package domain

import "github.com/shopspring/decimal"

// Cart is the ordered list of products the shopper intends to buy.
// Product ids are unique and every amount is at least 1.
type Cart []Product

// IndexOf returns the position of the product with the given id, or -1.
func (c Cart) IndexOf(productID int64) int {
	for i := range c {
		if c[i].ID == productID {
			return i
		}
	}
	return -1
}

// Find returns the entry for productID and whether it exists.
func (c Cart) Find(productID int64) (Product, bool) {
	if i := c.IndexOf(productID); i >= 0 {
		return c[i], true
	}
	return Product{}, false
}

// Clone returns a copy that shares no backing array with c.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// Without returns a copy of the cart with exactly the entry for productID removed.
// Entries after it keep their relative order.
func (c Cart) Without(productID int64) Cart {
	i := c.IndexOf(productID)
	if i < 0 {
		return c.Clone()
	}
	out := make(Cart, 0, len(c)-1)
	out = append(out, c[:i]...)
	return append(out, c[i+1:]...)
}

// Count is the total number of units across all entries.
func (c Cart) Count() int {
	n := 0
	for _, p := range c {
		n += p.Amount
	}
	return n
}

// Total sums the subtotals of all entries.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range c {
		total = total.Add(p.Subtotal())
	}
	return total
}
