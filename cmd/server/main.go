package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mavi-pizzeria/api/internal/cache"
	"github.com/mavi-pizzeria/api/internal/config"
	"github.com/mavi-pizzeria/api/internal/database"
	"github.com/mavi-pizzeria/api/internal/events"
	"github.com/mavi-pizzeria/api/internal/logger"
	"github.com/mavi-pizzeria/api/internal/payment"
	"github.com/mavi-pizzeria/api/internal/printjob"
	"github.com/mavi-pizzeria/api/internal/router"
	"github.com/mavi-pizzeria/api/internal/service"
	"github.com/mavi-pizzeria/api/internal/telemetry"
	"github.com/mavi-pizzeria/api/internal/ws"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const serviceVersion = "1.0.0"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	zl, err := logger.New(logger.Config{Level: cfg.LogLevel, Env: cfg.Env})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer zl.Sync()
	zap.ReplaceGlobals(zl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName, serviceVersion)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	metrics, err := telemetry.NewMetrics(cfg.Telemetry.ServiceName, serviceVersion)
	if err != nil {
		return fmt.Errorf("init meter: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	var menuCache cache.Cache = cache.Noop{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			zl.Warn("redis unreachable, menu cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			menuCache = cache.NewRedis(rdb, "menu:", cfg.Redis.MenuCacheTTL)
		}
	}

	var publisher events.Publisher = events.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewOrderProducer(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
	}
	defer publisher.Close()

	hub := ws.NewHub()
	go hub.Run(ctx)

	printers := printjob.NewPrinters("")
	queue := printjob.NewQueue(database.New(pool), hub, printjob.Shop{
		Name:     cfg.Shop.Name,
		Address:  cfg.Shop.Address,
		Phone:    cfg.Shop.Phone,
		Location: cfg.Location(),
	}, cfg.Printer.StoreID)
	go printjob.RunReclaimer(ctx, queue, cfg.Printer.ReclaimAfter, 0)

	providers := payment.NewRegistry(payment.RegistryConfig{
		StripeSecretKey:     cfg.Payment.StripeSecretKey,
		StripeWebhookSecret: cfg.Payment.StripeWebhookSecret,
		BankAccount:         cfg.Payment.VerkkomaksuAccount,
		BankSecret:          cfg.Payment.VerkkomaksuSecret,
		BankBaseURL:         cfg.Payment.VerkkomaksuBaseURL,
		CustomerURL:         cfg.URLs.Customer,
		BackendURL:          cfg.URLs.Backend,
		Mock:                cfg.Payment.Mock,
	})

	tasks := service.NewTasks()
	r := router.New(cfg, router.Deps{
		Pool:      pool,
		Hub:       hub,
		Queue:     queue,
		Printers:  printers,
		Providers: providers,
		Cache:     menuCache,
		Publisher: publisher,
		Tasks:     tasks,
		Metrics:   metrics.Handler(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("starting server",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("store_id", cfg.Printer.StoreID),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("http shutdown", zap.Error(err))
	}
	// Print jobs and events started by finished requests still need the pool.
	if err := tasks.Drain(shutdownCtx); err != nil {
		zl.Warn("detached tasks still running at shutdown", zap.Error(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		zl.Error("tracer shutdown", zap.Error(err))
	}
	if err := metrics.Shutdown(shutdownCtx); err != nil {
		zl.Error("meter shutdown", zap.Error(err))
	}
	return nil
}
