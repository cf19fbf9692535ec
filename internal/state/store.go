package state

import (
	"sync"

	"github.com/fjod/rocket_cart/internal/domain"
)

// Listener is called with the new cart after every change.
type Listener func(cart domain.Cart, version uint64)

// Store holds the session cart in memory and notifies subscribers on change.
// It performs no validation; callers are responsible for keeping the cart consistent.
type Store struct {
	mu        sync.RWMutex
	cart      domain.Cart
	version   uint64
	nextID    int
	listeners map[int]Listener
}

// New creates a store seeded with the given cart.
func New(initial domain.Cart) *Store {
	return &Store{
		cart:      initial.Clone(),
		listeners: make(map[int]Listener),
	}
}

// Cart returns a copy of the current cart.
func (s *Store) Cart() domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

// Version is incremented on every change.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// SetCart replaces the cart and notifies subscribers.
func (s *Store) SetCart(cart domain.Cart) uint64 {
	s.mu.Lock()
	s.cart = cart.Clone()
	s.version++
	snapshot, version, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snapshot, version)
	return version
}

// Update applies fn to the current cart atomically. When fn returns an error the
// cart is left untouched and nobody is notified.
func (s *Store) Update(fn func(domain.Cart) (domain.Cart, error)) (domain.Cart, uint64, error) {
	s.mu.Lock()
	next, err := fn(s.cart.Clone())
	if err != nil {
		s.mu.Unlock()
		return nil, 0, err
	}
	s.cart = next.Clone()
	s.version++
	snapshot, version, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snapshot, version)
	return snapshot, version, nil
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = l

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Close drops all subscribers.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = make(map[int]Listener)
}

func (s *Store) snapshotLocked() (domain.Cart, uint64, []Listener) {
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	return s.cart.Clone(), s.version, listeners
}

// listeners run outside the lock so they may read the store again
func notify(listeners []Listener, cart domain.Cart, version uint64) {
	for _, l := range listeners {
		l(cart.Clone(), version)
	}
}
