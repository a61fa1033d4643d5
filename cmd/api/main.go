package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/clock"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/database"
	"github.com/ariefcatur/go-storefront/internal/httpx"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/logger"
	"github.com/ariefcatur/go-storefront/internal/metrics"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/ariefcatur/go-storefront/internal/users"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	log = log.With(zap.String("service", cfg.ServiceName))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shipping, err := decimal.NewFromString(cfg.ShippingFee)
	if err != nil {
		log.Fatal("invalid SHIPPING_FEE", zap.String("value", cfg.ShippingFee), zap.Error(err))
	}
	loc, err := time.LoadLocation(cfg.OrderTimezone)
	if err != nil {
		log.Fatal("invalid ORDER_TIMEZONE", zap.String("value", cfg.OrderTimezone), zap.Error(err))
	}
	defaultPayment, err := orders.ParsePaymentMethod(cfg.DefaultPaymentMethod)
	if err != nil {
		log.Fatal("invalid DEFAULT_PAYMENT_METHOD", zap.Error(err))
	}

	// DB
	db, closeDB, err := database.Open(ctx, database.Options{
		Driver:      cfg.DBDriver,
		PostgresDSN: cfg.PostgresDSN,
		SQLitePath:  cfg.SQLitePath,
	})
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer closeDB()
	if err := database.Migrate(ctx, db, orders.Models()...); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024, log)
	prod.Start(ctx)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	userRepo := &users.Repo{DB: db}
	ch := &httpx.CartHandler{
		Store:    &cart.Store{DB: db, Log: log, Metrics: m},
		Shipping: shipping,
		Log:      log,
	}
	oh := &httpx.OrdersHandler{
		Service: &orders.Service{
			DB:             db,
			Sequencer:      orders.Sequencer{Clock: clock.System{}, Location: loc},
			Events:         orders.NewKafkaEvents(prod, cfg.ServiceName),
			Log:            log,
			Metrics:        m,
			DefaultPayment: defaultPayment,
			Attempts:       cfg.OrderNumberAttempts,
		},
		Repo:  &orders.Repo{DB: db},
		Redis: rdb,
		Log:   log,
	}

	router := httpx.NewRouter(log, reg)
	(&httpx.CatalogHandler{Repo: &catalog.Repo{DB: db}, Log: log}).Register(router)
	router.Group(func(r chi.Router) {
		r.Use(httpx.RequireUser(userRepo, log))
		ch.Register(r)
		oh.Register(r)
	})

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("db_driver", cfg.DBDriver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()
	prod.WaitClosed()
}
