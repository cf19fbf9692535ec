package stock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/rocket_cart/internal/domain"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNotFound    = errors.New("resource not found")
	ErrUnavailable = errors.New("stock service unavailable")
)

type Options struct {
	BaseURL string
	// Timeout of zero keeps the http.Client default (no timeout).
	Timeout   time.Duration
	Transport http.RoundTripper
	Logger    *logrus.Entry
}

// Client talks to the remote stock API:
//
//	GET /stock/{id}    -> {"id": 1, "amount": 3}
//	GET /products/{id} -> {"id": 1, "title": "...", "price": 179.9, "image": "..."}
//
// Requests are never retried. A circuit breaker stops calling the API after
// repeated transport or server failures.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	sfg     singleflight.Group // Shares in-flight product lookups
	log     *logrus.Entry
}

func NewClient(opts Options) *Client {
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http: &http.Client{
			Transport: otelhttp.NewTransport(transport),
			Timeout:   opts.Timeout,
		},
		log: logger,
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "stock-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// a missing product is a valid answer, not a failing service
		IsSuccessful: func(err error) bool {
			var gone callerGone
			return err == nil || errors.Is(err, ErrNotFound) || errors.As(err, &gone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})

	return c
}

// StockAmount returns the available units. An unknown product has no stock.
func (c *Client) StockAmount(ctx context.Context, productID int64) (int, error) {
	s, err := c.Stock(ctx, productID)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return s.Amount, nil
}

// Stock returns the stock snapshot or ErrNotFound when the API has none.
func (c *Client) Stock(ctx context.Context, productID int64) (*domain.Stock, error) {
	var s domain.Stock
	if err := c.getJSON(ctx, fmt.Sprintf("/stock/%d", productID), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Product returns catalog metadata. Concurrent lookups of the same id made
// through this client share one request.
func (c *Client) Product(ctx context.Context, productID int64) (domain.ProductBase, error) {
	v, err, _ := c.sfg.Do(fmt.Sprint(productID), func() (interface{}, error) {
		var p domain.ProductBase
		if err := c.getJSON(ctx, fmt.Sprintf("/products/%d", productID), &p); err != nil {
			return domain.ProductBase{}, err
		}
		return p, nil
	})
	if err != nil {
		return domain.ProductBase{}, err
	}
	return v.(domain.ProductBase), nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		body, err := c.get(ctx, path)
		if err != nil && ctx.Err() != nil {
			return nil, callerGone{err: err}
		}
		return body, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Wrapf(ErrUnavailable, "GET %s: %v", path, err)
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(err, "decode GET %s", path)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrapf(err, "read GET %s", path)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.Wrapf(ErrNotFound, "GET %s", path)
	case resp.StatusCode != http.StatusOK:
		return nil, errors.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}

	c.log.WithContext(ctx).WithField("path", path).Debug("stock api request succeeded")
	return body, nil
}

// callerGone marks a failure caused by the caller cancelling or timing out,
// which says nothing about the health of the stock API.
type callerGone struct {
	err error
}

func (e callerGone) Error() string { return e.err.Error() }

func (e callerGone) Unwrap() error { return e.err }
