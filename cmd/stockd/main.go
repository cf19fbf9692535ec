package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/rocket_cart/internal/catalog"
	"github.com/fjod/rocket_cart/internal/config"
	"github.com/fjod/rocket_cart/internal/logger"
	"github.com/fjod/rocket_cart/internal/tracing"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New("stockd", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.InitTracerProvider(ctx, "stockd", cfg.OTLPEndpoint)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize tracer provider")
	}
	defer tp.Shutdown(context.Background())

	repo, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open catalog database")
	}
	defer repo.Close()

	if err := repo.RunMigrations(); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}
	log.WithField("path", cfg.CatalogDBPath).Info("catalog ready")

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	catalog.NewHandler(repo, log.WithField("component", "catalog")).Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.StockdPort,
		Handler:      otelhttp.NewHandler(r, "stockd"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.StockdPort).Info("stock API starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}
	log.Info("server exited")
}
