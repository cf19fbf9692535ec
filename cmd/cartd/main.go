package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/rocket_cart/internal/config"
	carthttp "github.com/fjod/rocket_cart/internal/http"
	"github.com/fjod/rocket_cart/internal/logger"
	"github.com/fjod/rocket_cart/internal/notify"
	"github.com/fjod/rocket_cart/internal/poller"
	"github.com/fjod/rocket_cart/internal/session"
	"github.com/fjod/rocket_cart/internal/stock"
	"github.com/fjod/rocket_cart/internal/storage"
	"github.com/fjod/rocket_cart/internal/tracing"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logger.New("cartd", cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("cartd stopped with error")
	}
	log.Info("cartd stopped")
}

func run(cfg *config.Config, log *logrus.Entry) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.InitTracerProvider(ctx, "cartd", cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.WithError(err).Warn("error shutting down tracer provider")
		}
	}()

	st, closeStorage, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStorage()

	oracle := stock.NewClient(stock.Options{
		BaseURL: cfg.StockAPIURL,
		Timeout: cfg.StockAPITimeout,
		Logger:  log.WithField("component", "stock"),
	})

	notifications := notify.NewChanNotifier(64)
	sink := notify.Multi{notifications, notify.NewLogNotifier(log)}

	s, err := session.New(ctx, oracle, st, sink, log.WithField("component", "cart"))
	if err != nil {
		return err
	}
	defer s.Close()
	log.WithFields(logrus.Fields{
		"shopper_id": cfg.ShopperID,
		"items":      len(s.Cart()),
	}).Info("cart session restored")

	router := carthttp.NewRouter(s, notifications, cfg.RequestTimeout, log.WithField("component", "http"))
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "cartd"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("port", cfg.HTTPPort).Info("cart API starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if len(cfg.KafkaBrokers) > 0 {
		p := poller.NewPoller(s, cfg.ShopperID, log, cfg.KafkaBrokers...)
		g.Go(func() error {
			defer p.Close()
			p.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStorage(ctx context.Context, cfg *config.Config, log *logrus.Entry) (storage.Storage, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendMongo:
		db, err := storage.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		log.WithField("uri", cfg.MongoURI).Info("connected to MongoDB")
		return storage.NewMongoStorage(db, cfg.CartStorageKey), func() {
			if err := db.Client().Disconnect(context.Background()); err != nil {
				log.WithError(err).Warn("error disconnecting from MongoDB")
			}
		}, nil

	case config.BackendPostgres:
		db, err := storage.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := storage.RunMigrations(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info("connected to Postgres, migrations applied")
		return storage.NewPostgresStorage(db, cfg.CartStorageKey), func() { db.Close() }, nil

	default:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		log.WithField("addr", cfg.RedisAddr).Info("redis ping succeeded")
		return storage.NewRedisStorage(client, cfg.CartStorageKey), func() { client.Close() }, nil
	}
}
