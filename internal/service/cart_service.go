package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fjod/rocket_cart/internal/domain"
	"github.com/fjod/rocket_cart/internal/state"
	"github.com/fjod/rocket_cart/internal/stock"
	"github.com/fjod/rocket_cart/internal/storage"
	"github.com/sirupsen/logrus"
)

// StockOracle is the read-only view of the remote stock API the cart needs.
type StockOracle interface {
	StockAmount(ctx context.Context, productID int64) (int, error)
	Stock(ctx context.Context, productID int64) (*domain.Stock, error)
	Product(ctx context.Context, productID int64) (domain.ProductBase, error)
}

type UpdateProductAmount struct {
	ProductID int64 `json:"product_id"`
	Amount    int   `json:"amount"`
}

// CartService validates cart mutations against the stock API, applies them to
// the in-memory store and writes the result through to storage.
type CartService struct {
	oracle  StockOracle
	store   *state.Store
	storage storage.Storage
	log     *logrus.Entry
	locks   *productLocks

	saveMu       sync.Mutex
	savedVersion uint64
}

func NewCartService(oracle StockOracle, store *state.Store, st storage.Storage, log *logrus.Entry) *CartService {
	return &CartService{
		oracle:       oracle,
		store:        store,
		storage:      st,
		log:          log,
		locks:        newProductLocks(),
		savedVersion: store.Version(),
	}
}

func (s *CartService) Cart() domain.Cart {
	return s.store.Cart()
}

func (s *CartService) AddProduct(ctx context.Context, productID int64) error {
	unlock := s.locks.Lock(productID)
	defer unlock()

	available, err := s.oracle.StockAmount(ctx, productID)
	if err != nil {
		return s.remoteFailure(ctx, "stock amount", productID, err)
	}
	if available <= 0 {
		return ErrOutOfStock
	}

	if current, ok := s.store.Cart().Find(productID); ok {
		return s.updateAmount(ctx, productID, current.Amount+1)
	}

	base, err := s.oracle.Product(ctx, productID)
	if err != nil {
		return s.remoteFailure(ctx, "product", productID, err)
	}
	base.ID = productID

	cart, version, err := s.store.Update(func(c domain.Cart) (domain.Cart, error) {
		return append(c, domain.Product{ProductBase: base, Amount: 1}), nil
	})
	if err != nil {
		return err
	}

	return s.persist(ctx, cart, version)
}

func (s *CartService) RemoveProduct(ctx context.Context, productID int64) error {
	unlock := s.locks.Lock(productID)
	defer unlock()

	cart, version, err := s.store.Update(func(c domain.Cart) (domain.Cart, error) {
		if c.IndexOf(productID) < 0 {
			return nil, ErrNotInCart
		}
		return c.Without(productID), nil
	})
	if err != nil {
		return err
	}

	return s.persist(ctx, cart, version)
}

func (s *CartService) UpdateProductAmount(ctx context.Context, req UpdateProductAmount) error {
	unlock := s.locks.Lock(req.ProductID)
	defer unlock()

	return s.updateAmount(ctx, req.ProductID, req.Amount)
}

// Clear empties the cart, e.g. after the shopper completed checkout.
func (s *CartService) Clear(ctx context.Context) error {
	cart, version, err := s.store.Update(func(domain.Cart) (domain.Cart, error) {
		return domain.Cart{}, nil
	})
	if err != nil {
		return err
	}

	return s.persist(ctx, cart, version)
}

// updateAmount expects the product lock to be held.
func (s *CartService) updateAmount(ctx context.Context, productID int64, amount int) error {
	if amount < 1 {
		return ErrAmountBelowOne
	}

	st, err := s.oracle.Stock(ctx, productID)
	if errors.Is(err, stock.ErrNotFound) || (err == nil && st == nil) {
		return ErrStockNotFound
	}
	if err != nil {
		return s.remoteFailure(ctx, "stock", productID, err)
	}

	if st.Amount < amount {
		return ErrExceedsStock
	}

	cart, version, err := s.store.Update(func(c domain.Cart) (domain.Cart, error) {
		i := c.IndexOf(productID)
		if i < 0 {
			return nil, ErrNotInCart
		}
		c[i].Amount = amount
		return c, nil
	})
	if err != nil {
		return err
	}

	return s.persist(ctx, cart, version)
}

// persist writes cart unless a newer version was already saved, so storage
// never goes back in time when operations finish out of order.
func (s *CartService) persist(ctx context.Context, cart domain.Cart, version uint64) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if version <= s.savedVersion {
		return nil
	}

	if err := s.storage.Save(ctx, cart); err != nil {
		s.log.WithContext(ctx).WithError(err).WithField("version", version).Error("cart save failed")
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}

	s.savedVersion = version
	return nil
}

func (s *CartService) remoteFailure(ctx context.Context, what string, productID int64, err error) error {
	s.log.WithContext(ctx).WithError(err).WithFields(logrus.Fields{
		"lookup":     what,
		"product_id": productID,
	}).Warn("stock api lookup failed")
	return fmt.Errorf("%w: %s %d: %v", ErrRemote, what, productID, err)
}
