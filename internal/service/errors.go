package service

import "errors"

var (
	ErrOutOfStock     = errors.New("product is out of stock")
	ErrAmountBelowOne = errors.New("it must have at least 1 item")
	ErrExceedsStock   = errors.New("requested amount exceeds available stock")
	ErrNotInCart      = errors.New("product not found in cart")
	ErrStockNotFound  = errors.New("stock not found for product")
	ErrRemote         = errors.New("stock service request failed")
	ErrPersist        = errors.New("failed to persist cart")
)

// FailureKind classifies an operation error without looking at its text.
type FailureKind int

const (
	KindNone FailureKind = iota
	KindOutOfStock
	KindInvalidAmount
	KindExceedsStock
	KindNotFound
	KindRemote
	KindPersistence
	KindUnknown
)

func (k FailureKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindOutOfStock:
		return "out_of_stock"
	case KindInvalidAmount:
		return "invalid_amount"
	case KindExceedsStock:
		return "exceeds_stock"
	case KindNotFound:
		return "not_found"
	case KindRemote:
		return "remote"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

func Kind(err error) FailureKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrOutOfStock):
		return KindOutOfStock
	case errors.Is(err, ErrAmountBelowOne):
		return KindInvalidAmount
	case errors.Is(err, ErrExceedsStock):
		return KindExceedsStock
	case errors.Is(err, ErrNotInCart), errors.Is(err, ErrStockNotFound):
		return KindNotFound
	case errors.Is(err, ErrRemote):
		return KindRemote
	case errors.Is(err, ErrPersist):
		return KindPersistence
	default:
		return KindUnknown
	}
}

func (k FailureKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *FailureKind) UnmarshalText(text []byte) error {
	for candidate := KindNone; candidate <= KindUnknown; candidate++ {
		if candidate.String() == string(text) {
			*k = candidate
			return nil
		}
	}
	*k = KindUnknown
	return nil
}
