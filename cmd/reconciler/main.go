package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/inventory"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/logging"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/payment"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	service := cfg.ServiceName + "-reconciler"
	logger, err := logging.New(cfg.Env, service)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producer for status and shortfall events raised while reconciling
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, logger)
	prod.Start(ctx)
	events := &orders.Emitter{Producer: prod, Service: service}

	catalogSvc := catalog.NewService(&catalog.Repo{DB: db}, logger)
	orderSvc := orders.NewService(&orders.Repo{DB: db}, catalogSvc, events, logger)
	engine := &payment.Engine{
		Gateway: payment.NewMidtrans(cfg.MidtransServerKey, cfg.MidtransProduction),
		Orders:  orderSvc,
		Stock:   &inventory.Ledger{DB: db, Log: logger},
		Locker:  redisx.NewLocker(rdb, cfg.OrderLockTTL),
		Events:  events,
		Log:     logger,
	}
	rec := &payment.Reconciler{
		Checker:    engine,
		Pending:    orderSvc,
		StaleAfter: cfg.ReconcileStaleAfter,
		Batch:      cfg.ReconcileBatch,
		Workers:    cfg.ReconcileWorkers,
		Log:        logger,
	}

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ReconcileGroup, orders.TopicPaymentNotificationRetry, cfg.ReconcileWorkers, logger).
		WithRetry(cfg.RetryAttempts, cfg.RetryBackoff)
	go func() {
		logger.Info("retry consumer started",
			zap.String("group", cfg.ReconcileGroup),
			zap.String("topic", orders.TopicPaymentNotificationRetry),
			zap.Int("workers", cfg.ReconcileWorkers))
		if err := cons.Start(ctx, rec.HandleRetry); err != nil {
			logger.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	// Sweeper
	done := make(chan struct{})
	go func() {
		defer close(done)
		rec.Run(ctx, cfg.ReconcileInterval)
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting down reconciler")
	cancel()
	<-done
	prod.Close()
	prod.WaitClosed()
}
