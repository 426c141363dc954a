package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/httpx"
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
	logger, err := logging.New(cfg.Env, cfg.ServiceName)
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
	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	var locker payment.Locker = redisx.NewLocker(rdb, cfg.OrderLockTTL)
	if err := redisx.Ping(ctx, rdb); err != nil {
		logger.Warn("redis unreachable, rate limits fail open and order locks are process-local", zap.Error(err))
		locker = payment.NewLocalLocker()
	}

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, logger)
	prod.Start(ctx)
	events := &orders.Emitter{Producer: prod, Service: cfg.ServiceName}

	// Services
	catalogSvc := catalog.NewService(&catalog.Repo{DB: db}, logger)
	orderSvc := orders.NewService(&orders.Repo{DB: db}, catalogSvc, events, logger)
	gateway := payment.NewMidtrans(cfg.MidtransServerKey, cfg.MidtransProduction)
	paymentSvc := payment.NewService(gateway, orderSvc, logger)
	engine := &payment.Engine{
		Gateway: gateway,
		Orders:  orderSvc,
		Stock:   &inventory.Ledger{DB: db, Log: logger},
		Locker:  locker,
		Events:  events,
		Log:     logger,
	}

	router := httpx.NewRouter(
		httpx.RouterConfig{
			Log:            logger,
			AllowedOrigins: cfg.AllowedOrigins,
			GeneralLimiter: &redisx.RateLimiter{RDB: rdb, Scope: "general", Limit: cfg.RateLimitGeneral, Window: cfg.RateLimitWindow},
			PaymentLimiter: &redisx.RateLimiter{RDB: rdb, Scope: "payment", Limit: cfg.RateLimitPayment, Window: cfg.RateLimitWindow},
		},
		&httpx.CatalogHandler{Service: catalogSvc, Log: logger},
		&httpx.OrdersHandler{Service: orderSvc, Log: logger},
		&httpx.PaymentHandler{Transactions: paymentSvc, Engine: engine, Log: logger},
	)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	// graceful shutdown
	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close() // stop intake, flush buffered events
	cancel()
	prod.WaitClosed()
}
