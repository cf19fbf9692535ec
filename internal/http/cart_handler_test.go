package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/rocket_cart/internal/domain"
	"github.com/fjod/rocket_cart/internal/notify"
	"github.com/fjod/rocket_cart/internal/service"
	"github.com/fjod/rocket_cart/internal/session"
	"github.com/fjod/rocket_cart/internal/stock"
	"github.com/fjod/rocket_cart/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type OracleMock struct {
	m     sync.RWMutex
	stock map[int64]int
}

func (o *OracleMock) StockAmount(_ context.Context, id int64) (int, error) {
	o.m.RLock()
	defer o.m.RUnlock()
	return o.stock[id], nil
}

func (o *OracleMock) Stock(_ context.Context, id int64) (*domain.Stock, error) {
	o.m.RLock()
	defer o.m.RUnlock()
	amount, ok := o.stock[id]
	if !ok {
		return nil, stock.ErrNotFound
	}
	return &domain.Stock{ID: id, Amount: amount}, nil
}

func (o *OracleMock) Product(_ context.Context, id int64) (domain.ProductBase, error) {
	return domain.ProductBase{ID: id, Title: "Tênis VR Caminhada", Price: decimal.RequireFromString("139.9"), Image: "shoe.jpg"}, nil
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.Out = io.Discard
	return logrus.NewEntry(l)
}

func setupRouter(t *testing.T, stockAmounts map[int64]int) http.Handler {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	notifications := notify.NewChanNotifier(8)
	s, err := session.New(context.Background(), &OracleMock{stock: stockAmounts}, storage.NewRedisStorage(client, ""), notifications, quietLogger())
	require.NoError(t, err)
	t.Cleanup(s.Close)

	return NewRouter(s, notifications, 5*time.Second, quietLogger())
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	recorder := httptest.NewRecorder()
	h.ServeHTTP(recorder, httptest.NewRequest(method, path, reader))
	return recorder
}

func decodeOperation(t *testing.T, recorder *httptest.ResponseRecorder) OperationResponse {
	t.Helper()
	var resp OperationResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	return resp
}

// operationWire mirrors OperationResponse with the outcome kind as text
type operationWire struct {
	Outcome struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"outcome"`
	Cart struct {
		Items []domain.Product `json:"items"`
		Count int              `json:"count"`
		Total decimal.Decimal  `json:"total"`
	} `json:"cart"`
}

func decodeWire(t *testing.T, recorder *httptest.ResponseRecorder) operationWire {
	t.Helper()
	var resp operationWire
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	return resp
}

func TestHealth(t *testing.T) {
	router := setupRouter(t, nil)

	recorder := do(t, router, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"status":"ok"}`, recorder.Body.String())
	assert.NotEmpty(t, recorder.Header().Get("X-Request-ID"))
}

func TestRequestID_Propagated(t *testing.T) {
	router := setupRouter(t, nil)

	request := httptest.NewRequest(http.MethodGet, "/health", nil)
	request.Header.Set("X-Request-ID", "req-42")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	assert.Equal(t, "req-42", recorder.Header().Get("X-Request-ID"))
}

func TestGetCart_Empty(t *testing.T) {
	router := setupRouter(t, nil)

	recorder := do(t, router, http.MethodGet, "/api/v1/cart", "")

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp CartResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Empty(t, resp.Items)
	assert.Zero(t, resp.Count)
	assert.True(t, resp.Total.IsZero())
}

func TestAddItem_Success(t *testing.T) {
	router := setupRouter(t, map[int64]int{1: 3})

	recorder := do(t, router, http.MethodPost, "/api/v1/cart/items", `{"product_id":1}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	resp := decodeWire(t, recorder)
	assert.Equal(t, "none", resp.Outcome.Kind)
	assert.Empty(t, resp.Outcome.Message)
	require.Len(t, resp.Cart.Items, 1)
	assert.Equal(t, 1, resp.Cart.Count)
	assert.True(t, decimal.RequireFromString("139.9").Equal(resp.Cart.Total))
}

func TestAddItem_OutOfStockReportedInBody(t *testing.T) {
	router := setupRouter(t, map[int64]int{1: 0})

	recorder := do(t, router, http.MethodPost, "/api/v1/cart/items", `{"product_id":1}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	resp := decodeOperation(t, recorder)
	assert.Equal(t, service.KindOutOfStock, resp.Outcome.Kind)
	assert.Equal(t, session.MsgOutOfStock, resp.Outcome.Message)
	assert.Empty(t, resp.Cart.Items)

	notifications := do(t, router, http.MethodGet, "/api/v1/notifications", "")
	var n NotificationsResponse
	require.NoError(t, json.NewDecoder(notifications.Body).Decode(&n))
	require.Len(t, n.Notifications, 1)
	assert.Equal(t, session.MsgOutOfStock, n.Notifications[0].Message)
}

func TestAddItem_BadRequests(t *testing.T) {
	router := setupRouter(t, nil)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"invalid json", `{`, "invalid_request"},
		{"zero id", `{"product_id":0}`, "invalid_product_id"},
		{"negative id", `{"product_id":-2}`, "invalid_product_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := do(t, router, http.MethodPost, "/api/v1/cart/items", tt.body)
			assert.Equal(t, http.StatusBadRequest, recorder.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestUpdateAmount(t *testing.T) {
	router := setupRouter(t, map[int64]int{1: 5})
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/v1/cart/items", `{"product_id":1}`).Code)

	recorder := do(t, router, http.MethodPut, "/api/v1/cart/items/1", `{"amount":4}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	resp := decodeOperation(t, recorder)
	assert.True(t, resp.Outcome.OK())
	assert.Equal(t, 4, resp.Cart.Count)

	recorder = do(t, router, http.MethodPut, "/api/v1/cart/items/1", `{"amount":10}`)
	resp = decodeOperation(t, recorder)
	assert.Equal(t, service.KindExceedsStock, resp.Outcome.Kind)
	assert.Equal(t, session.MsgExceedsStock, resp.Outcome.Message)
	assert.Equal(t, 4, resp.Cart.Count)

	recorder = do(t, router, http.MethodPut, "/api/v1/cart/items/1", `{"amount":0}`)
	resp = decodeOperation(t, recorder)
	assert.Equal(t, service.KindInvalidAmount, resp.Outcome.Kind)
	assert.Equal(t, session.MsgUpdateFailed, resp.Outcome.Message)
}

func TestUpdateAmount_BadRequests(t *testing.T) {
	router := setupRouter(t, nil)

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPut, "/api/v1/cart/items/abc", `{"amount":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPut, "/api/v1/cart/items/1", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPut, "/api/v1/cart/items/1", `nope`).Code)
}

func TestRemoveItem(t *testing.T) {
	router := setupRouter(t, map[int64]int{1: 5, 2: 5, 3: 5})
	for _, id := range []string{"1", "2", "3"} {
		require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/v1/cart/items", `{"product_id":`+id+`}`).Code)
	}

	recorder := do(t, router, http.MethodDelete, "/api/v1/cart/items/2", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	resp := decodeOperation(t, recorder)
	assert.True(t, resp.Outcome.OK())
	require.Len(t, resp.Cart.Items, 2)
	assert.Equal(t, int64(1), resp.Cart.Items[0].ID)
	assert.Equal(t, int64(3), resp.Cart.Items[1].ID)

	recorder = do(t, router, http.MethodDelete, "/api/v1/cart/items/2", "")
	resp = decodeOperation(t, recorder)
	assert.Equal(t, service.KindNotFound, resp.Outcome.Kind)
	assert.Equal(t, session.MsgRemoveFailed, resp.Outcome.Message)
}

func TestHandler_NoSession(t *testing.T) {
	handler := NewCartHandler(notify.NewChanNotifier(1), time.Second, quietLogger())

	recorder := httptest.NewRecorder()
	handler.GetCart(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)

	recorder = httptest.NewRecorder()
	handler.AddItem(recorder, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"product_id":1}`)))
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}

func TestAddItem_ZeroTimeoutIsUnbounded(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	notifications := notify.NewChanNotifier(8)
	s, err := session.New(context.Background(), &OracleMock{stock: map[int64]int{1: 2}}, storage.NewRedisStorage(client, ""), notifications, quietLogger())
	require.NoError(t, err)
	t.Cleanup(s.Close)

	router := NewRouter(s, notifications, 0, quietLogger())

	recorder := do(t, router, http.MethodPost, "/api/v1/cart/items", `{"product_id":1}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	resp := decodeOperation(t, recorder)
	assert.True(t, resp.Outcome.OK())
	assert.Equal(t, 1, resp.Cart.Count)
}
