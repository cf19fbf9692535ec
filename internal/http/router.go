package http

import (
	"net/http"
	"time"

	"github.com/fjod/rocket_cart/internal/notify"
	"github.com/fjod/rocket_cart/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// NewRouter wires the cart API for a single shopper session.
func NewRouter(s *session.Session, notifications *notify.ChanNotifier, timeout time.Duration, log *logrus.Entry) http.Handler {
	cartHandler := NewCartHandler(notifications, timeout, log)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(log))
	r.Use(SessionMiddleware(s))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", cartHandler.Routes)

	return r
}
