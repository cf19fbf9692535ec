package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/fjod/rocket_cart/internal/domain"
	"github.com/fjod/rocket_cart/internal/state"
	"github.com/fjod/rocket_cart/internal/stock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// mockOracle implements StockOracle from in-memory maps
type mockOracle struct {
	m        sync.RWMutex
	stock    map[int64]int
	products map[int64]domain.ProductBase
	err      error
	calls    int
}

func newMockOracle(stock map[int64]int) *mockOracle {
	products := make(map[int64]domain.ProductBase, len(stock))
	for id := range stock {
		products[id] = domain.ProductBase{
			ID:    id,
			Title: fmt.Sprintf("Tênis %d", id),
			Price: decimal.NewFromInt(100 + id),
			Image: fmt.Sprintf("https://example.com/%d.jpg", id),
		}
	}
	return &mockOracle{stock: stock, products: products}
}

func (m *mockOracle) setStock(id int64, amount int) {
	m.m.Lock()
	defer m.m.Unlock()
	m.stock[id] = amount
}

func (m *mockOracle) setErr(err error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.err = err
}

func (m *mockOracle) StockAmount(_ context.Context, id int64) (int, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	return m.stock[id], nil
}

func (m *mockOracle) Stock(_ context.Context, id int64) (*domain.Stock, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	amount, ok := m.stock[id]
	if !ok {
		return nil, stock.ErrNotFound
	}
	return &domain.Stock{ID: id, Amount: amount}, nil
}

func (m *mockOracle) Product(_ context.Context, id int64) (domain.ProductBase, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls++
	if m.err != nil {
		return domain.ProductBase{}, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return domain.ProductBase{}, stock.ErrNotFound
	}
	return p, nil
}

// mockStorage implements storage.Storage and records every save
type mockStorage struct {
	m     sync.RWMutex
	cart  domain.Cart
	saves int
	err   error
}

func (m *mockStorage) Load(context.Context) (domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.cart.Clone(), nil
}

func (m *mockStorage) Save(_ context.Context, cart domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.cart = cart.Clone()
	m.saves++
	return nil
}

func (m *mockStorage) stored() (domain.Cart, int) {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.cart.Clone(), m.saves
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.Out = io.Discard
	return logrus.NewEntry(l)
}

func newTestService(t *testing.T, oracle *mockOracle, initial domain.Cart) (*CartService, *state.Store, *mockStorage) {
	t.Helper()
	store := state.New(initial)
	st := &mockStorage{cart: initial.Clone()}
	return NewCartService(oracle, store, st, quietLogger()), store, st
}

func product(id int64, amount int) domain.Product {
	return domain.Product{
		ProductBase: domain.ProductBase{
			ID:    id,
			Title: fmt.Sprintf("Tênis %d", id),
			Price: decimal.NewFromInt(100 + id),
			Image: fmt.Sprintf("https://example.com/%d.jpg", id),
		},
		Amount: amount,
	}
}

func amounts(c domain.Cart) map[int64]int {
	out := make(map[int64]int, len(c))
	for _, p := range c {
		out[p.ID] = p.Amount
	}
	return out
}

func ids(c domain.Cart) []int64 {
	out := make([]int64, 0, len(c))
	for _, p := range c {
		out = append(out, p.ID)
	}
	return out
}
