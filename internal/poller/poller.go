package poller

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fjod/rocket_cart/internal/session"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const (
	Topic   = "checkout-outbox"
	GroupID = "cart-session"
)

// Clearer empties the shopper's cart.
type Clearer interface {
	Clear(ctx context.Context) session.Outcome
}

type CheckoutCompletedEvent struct {
	CheckoutID string `json:"checkout_id"`
	UserID     string `json:"user_id"`
}

// Poller clears the cart once the shopper's checkout is published on the outbox topic.
type Poller struct {
	cart      Clearer
	reader    *kafka.Reader
	shopperID string
	log       *logrus.Entry
}

func NewPoller(cart Clearer, shopperID string, log *logrus.Entry, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    Topic,
		GroupID:  GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{
		cart:      cart,
		reader:    reader,
		shopperID: shopperID,
		log:       log.WithField("component", "poller"),
	}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := p.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			p.log.WithError(err).Warn("error reading message")
			continue
		}
		p.handle(ctx, m)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.WithError(err).Warn("error closing reader")
	}
}

// handle reports whether the cart was cleared.
func (p *Poller) handle(ctx context.Context, m kafka.Message) bool {
	var event CheckoutCompletedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		p.log.WithError(err).WithField("offset", m.Offset).Warn("error parsing message")
		return false
	}
	if event.UserID == "" {
		p.log.WithField("offset", m.Offset).Warn("missing user_id")
		return false
	}
	if event.UserID != p.shopperID {
		return false
	}

	out := p.cart.Clear(ctx)
	if !out.OK() {
		p.log.WithFields(logrus.Fields{
			"checkout_id": event.CheckoutID,
			"kind":        out.Kind.String(),
		}).Error("failed to clear cart after checkout")
		return false
	}

	p.log.WithField("checkout_id", event.CheckoutID).Info("cart cleared after checkout")
	return true
}
