package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/fjod/rocket_cart/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Reader interface {
	GetProducts(ctx context.Context) ([]domain.ProductBase, error)
	GetProduct(ctx context.Context, id int64) (domain.ProductBase, error)
	GetStock(ctx context.Context, id int64) (domain.Stock, error)
	SetStock(ctx context.Context, id int64, amount int) error
}

type Handler struct {
	repo Reader
	log  *logrus.Entry
}

func NewHandler(repo Reader, log *logrus.Entry) *Handler {
	return &Handler{repo: repo, log: log}
}

// Routes mounts the stock API the cart consumes, plus a stock update endpoint
// for operators.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/products", h.ListProducts)
	r.Get("/products/{id}", h.GetProduct)
	r.Get("/stock/{id}", h.GetStock)
	r.Put("/stock/{id}", h.SetStock)
}

type setStockRequestDTO struct {
	Amount int `json:"amount"`
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.GetProducts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	p, err := h.repo.GetProduct(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	s, err := h.repo.GetStock(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

func (h *Handler) SetStock(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	var req setStockRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Amount < 0 {
		respondError(w, http.StatusBadRequest, "amount must be >= 0")
		return
	}

	if err := h.repo.SetStock(r.Context(), id, req.Amount); err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, domain.Stock{ID: id, Amount: req.Amount})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}
	h.log.WithContext(r.Context()).WithError(err).Error("catalog request failed")
	respondError(w, http.StatusInternalServerError, "internal server error")
}

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
