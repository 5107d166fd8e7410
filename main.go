package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"canteen-api/config"
	"canteen-api/events"
	"canteen-api/handlers"
	"canteen-api/idempotency"
	"canteen-api/middleware"
	"canteen-api/routes"
	"canteen-api/services"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.OpenDB(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	log.Info("database ready", "driver", cfg.DBDriver)

	if cfg.Seed {
		if err := config.Seed(db, log); err != nil {
			return err
		}
	}

	var idem idempotency.Store = idempotency.NewMemoryStore(idempotency.DefaultTTL)
	if cfg.RedisAddr != "" {
		rdb, err := idempotency.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer rdb.Close()
		idem = idempotency.NewRedisStore(rdb, idempotency.DefaultTTL)
		log.Info("idempotency keys in redis", "addr", cfg.RedisAddr)
	}

	var pub events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		pub = events.NewKafkaProducer(cfg.KafkaBrokers, 1024, log)
		log.Info("publishing events to kafka", "brokers", cfg.KafkaBrokers)
	}
	defer pub.Close()

	jwt := middleware.NewJWT(cfg.JWTSecret, cfg.JWTExpiresIn)
	h := &handlers.Handler{
		Auth:    services.NewAuthService(db, jwt, log),
		Catalog: services.NewCatalogService(db),
		Carts:   services.NewCartService(db, log),
		Orders: services.NewOrderService(db, log, pub,
			services.WithRestockOnCancel(cfg.CancelRestock),
			services.WithProducerName(cfg.ServiceName)),
		Ledger:      services.NewLedger(db, log),
		Idempotency: idem,
		Log:         log,
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(log), middleware.CORS(cfg.CORSOrigin))
	routes.SetupRoutes(r, h, jwt, cfg.ServiceName)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
