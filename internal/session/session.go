// Package session is the UI-facing side of the cart. It owns the cart store for
// one shopper, runs the cart operations and turns every failure into a
// notification instead of an error.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/rocket_cart/internal/domain"
	"github.com/fjod/rocket_cart/internal/notify"
	"github.com/fjod/rocket_cart/internal/service"
	"github.com/fjod/rocket_cart/internal/state"
	"github.com/fjod/rocket_cart/internal/storage"
	"github.com/sirupsen/logrus"
)

const (
	MsgOutOfStock    = "This product is out of stock"
	MsgExceedsStock  = "Requested quantity is out of stock"
	MsgAddFailed     = "Failed to add product"
	MsgRemoveFailed  = "Failed to remove product"
	MsgUpdateFailed  = "Failed to update product amount"
	MsgClearFailed   = "Failed to clear cart"
	MsgCheckoutClear = "Checkout completed, your cart is now empty"
)

// Outcome is what the UI gets back from an operation. Message is empty on success.
type Outcome struct {
	Kind    service.FailureKind `json:"kind"`
	Message string              `json:"message,omitempty"`
}

func (o Outcome) OK() bool {
	return o.Kind == service.KindNone
}

type Session struct {
	store    *state.Store
	cart     *service.CartService
	notifier notify.Notifier
	log      *logrus.Entry
}

// New restores the persisted cart and builds a session around it. A corrupt
// snapshot is logged and replaced with an empty cart; any other storage error
// is returned.
func New(ctx context.Context, oracle service.StockOracle, st storage.Storage, notifier notify.Notifier, log *logrus.Entry) (*Session, error) {
	initial, err := st.Load(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrCorruptSnapshot) {
			return nil, fmt.Errorf("load cart: %w", err)
		}
		log.WithContext(ctx).WithError(err).Warn("discarding unreadable cart snapshot")
		initial = domain.Cart{}
	}

	store := state.New(initial)
	return &Session{
		store:    store,
		cart:     service.NewCartService(oracle, store, st, log),
		notifier: notifier,
		log:      log,
	}, nil
}

func (s *Session) Cart() domain.Cart {
	return s.cart.Cart()
}

// Subscribe registers l for every cart change.
func (s *Session) Subscribe(l state.Listener) (unsubscribe func()) {
	return s.store.Subscribe(l)
}

func (s *Session) AddProduct(ctx context.Context, productID int64) Outcome {
	err := s.cart.AddProduct(ctx, productID)
	return s.outcome(ctx, err, MsgAddFailed, logrus.Fields{"op": "add", "product_id": productID})
}

func (s *Session) RemoveProduct(ctx context.Context, productID int64) Outcome {
	err := s.cart.RemoveProduct(ctx, productID)
	return s.outcome(ctx, err, MsgRemoveFailed, logrus.Fields{"op": "remove", "product_id": productID})
}

func (s *Session) UpdateProductAmount(ctx context.Context, req service.UpdateProductAmount) Outcome {
	err := s.cart.UpdateProductAmount(ctx, req)
	return s.outcome(ctx, err, MsgUpdateFailed, logrus.Fields{
		"op":         "update_amount",
		"product_id": req.ProductID,
		"amount":     req.Amount,
	})
}

// Clear empties the cart after a completed checkout.
func (s *Session) Clear(ctx context.Context) Outcome {
	err := s.cart.Clear(ctx)
	out := s.outcome(ctx, err, MsgClearFailed, logrus.Fields{"op": "clear"})
	if out.OK() {
		s.notifier.Success(MsgCheckoutClear)
	}
	return out
}

// Close drops all subscribers. The session must not be used afterwards.
func (s *Session) Close() {
	s.store.Close()
}

func (s *Session) outcome(ctx context.Context, err error, generic string, fields logrus.Fields) Outcome {
	if err == nil {
		return Outcome{Kind: service.KindNone}
	}

	kind := service.Kind(err)
	msg := generic
	switch kind {
	case service.KindOutOfStock:
		msg = MsgOutOfStock
	case service.KindExceedsStock:
		msg = MsgExceedsStock
	}

	s.log.WithContext(ctx).WithError(err).WithFields(fields).WithField("kind", kind.String()).Info("cart operation rejected")
	s.notifier.Error(msg)
	return Outcome{Kind: kind, Message: msg}
}
