package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/rocket_cart/internal/domain"
	"github.com/fjod/rocket_cart/internal/notify"
	"github.com/fjod/rocket_cart/internal/service"
	"github.com/fjod/rocket_cart/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type CartHandler struct {
	notifications *notify.ChanNotifier
	timeout       time.Duration
	log           *logrus.Entry
}

func NewCartHandler(notifications *notify.ChanNotifier, timeout time.Duration, log *logrus.Entry) *CartHandler {
	return &CartHandler{
		notifications: notifications,
		timeout:       timeout,
		log:           log,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
}

type UpdateAmountRequestDTO struct {
	Amount *int `json:"amount"`
}

type CartResponse struct {
	Items domain.Cart     `json:"items"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// OperationResponse is returned by every mutating endpoint. Rejections are
// reported in Outcome with status 200, the same way the UI only sees a toast.
type OperationResponse struct {
	Outcome session.Outcome `json:"outcome"`
	Cart    CartResponse    `json:"cart"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type NotificationsResponse struct {
	Notifications []notify.Notification `json:"notifications"`
}

// Routes mounts the cart API under r.
func (h *CartHandler) Routes(r chi.Router) {
	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Post("/items", h.AddItem)
		r.Put("/items/{product_id}", h.UpdateAmount)
		r.Delete("/items/{product_id}", h.RemoveItem)
	})
	r.Get("/notifications", h.Notifications)
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if s == nil {
		h.noSession(w, r)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(s.Cart()))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if s == nil {
		h.noSession(w, r)
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	out := s.AddProduct(ctx, req.ProductID)
	respondJSON(w, http.StatusOK, OperationResponse{Outcome: out, Cart: cartResponse(s.Cart())})
}

func (h *CartHandler) UpdateAmount(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if s == nil {
		h.noSession(w, r)
		return
	}

	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateAmountRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Amount == nil {
		respondError(w, http.StatusBadRequest, "invalid_amount", "amount is required")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	// amount < 1 is a cart rule, not a transport one, so it goes through the session
	out := s.UpdateProductAmount(ctx, service.UpdateProductAmount{ProductID: productID, Amount: *req.Amount})
	respondJSON(w, http.StatusOK, OperationResponse{Outcome: out, Cart: cartResponse(s.Cart())})
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if s == nil {
		h.noSession(w, r)
		return
	}

	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	out := s.RemoveProduct(ctx, productID)
	respondJSON(w, http.StatusOK, OperationResponse{Outcome: out, Cart: cartResponse(s.Cart())})
}

// Notifications drains pending toasts.
func (h *CartHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	items := h.notifications.Drain()
	respondJSON(w, http.StatusOK, NotificationsResponse{Notifications: items})
}

func (h *CartHandler) noSession(w http.ResponseWriter, r *http.Request) {
	h.log.WithContext(r.Context()).WithField("request_id", getRequestID(r.Context())).Error("no cart session in request context")
	respondError(w, http.StatusInternalServerError, "internal_error", "cart session unavailable")
}

// withTimeout bounds an operation by the configured timeout; zero means no bound.
func (h *CartHandler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.timeout)
}

func cartResponse(c domain.Cart) CartResponse {
	return CartResponse{Items: c, Count: c.Count(), Total: c.Total()}
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return 0, false
	}
	return productID, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).Error("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
