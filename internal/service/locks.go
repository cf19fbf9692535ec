package service

import "sync"

// productLocks serializes operations on the same product id while letting
// operations on different products run concurrently.
type productLocks struct {
	mu    sync.Mutex
	locks map[int64]*productLock
}

type productLock struct {
	mu   sync.Mutex
	refs int
}

func newProductLocks() *productLocks {
	return &productLocks{locks: make(map[int64]*productLock)}
}

func (p *productLocks) Lock(productID int64) (unlock func()) {
	p.mu.Lock()
	l, ok := p.locks[productID]
	if !ok {
		l = &productLock{}
		p.locks[productID] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		p.mu.Lock()
		defer p.mu.Unlock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, productID)
		}
	}
}
