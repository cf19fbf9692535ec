package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/rocket_cart/internal/domain"
)

// DefaultKey is the namespace the cart snapshot is stored under.
const DefaultKey = "@RocketShoes:cart"

// ErrCorruptSnapshot is returned together with an empty cart when the stored
// value cannot be decoded.
var ErrCorruptSnapshot = errors.New("corrupt cart snapshot")

// Storage reads and writes the serialized cart snapshot.
// Load never fails hard on a missing key: it returns an empty cart.
type Storage interface {
	Load(ctx context.Context) (domain.Cart, error)
	Save(ctx context.Context, cart domain.Cart) error
}

func encode(cart domain.Cart) ([]byte, error) {
	if cart == nil {
		cart = domain.Cart{}
	}
	data, err := json.Marshal(cart)
	if err != nil {
		return nil, fmt.Errorf("marshal cart failed: %w", err)
	}
	return data, nil
}

func decode(data []byte) (domain.Cart, error) {
	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return domain.Cart{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if cart == nil {
		cart = domain.Cart{}
	}
	return cart, nil
}
