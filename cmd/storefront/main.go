package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cartapp "github.com/dwikikusuma/storefront/internal/cart/app"
	cartadapter "github.com/dwikikusuma/storefront/internal/cart/infra/adapter"
	cartpg "github.com/dwikikusuma/storefront/internal/cart/infra/postgres"

	catalogapp "github.com/dwikikusuma/storefront/internal/catalog/app"
	cpg "github.com/dwikikusuma/storefront/internal/catalog/infra/postgres"

	checkoutapp "github.com/dwikikusuma/storefront/internal/checkout/app"
	checkoutadapter "github.com/dwikikusuma/storefront/internal/checkout/infra/adapter"
	checkoutpg "github.com/dwikikusuma/storefront/internal/checkout/infra/postgres"
	"github.com/dwikikusuma/storefront/internal/checkout/worker"

	inventoryapp "github.com/dwikikusuma/storefront/internal/inventory/app"
	inventorypg "github.com/dwikikusuma/storefront/internal/inventory/infra/postgres"

	orderapp "github.com/dwikikusuma/storefront/internal/order/app"
	orderpg "github.com/dwikikusuma/storefront/internal/order/infra/postgres"

	"github.com/dwikikusuma/storefront/internal/httpapi"
	"github.com/dwikikusuma/storefront/internal/storage"
	"github.com/dwikikusuma/storefront/pkg/config"
	"github.com/dwikikusuma/storefront/pkg/kafka"
	"github.com/dwikikusuma/storefront/pkg/logger"
	"github.com/dwikikusuma/storefront/pkg/metrics"
	"github.com/dwikikusuma/storefront/pkg/outbox"
	"github.com/dwikikusuma/storefront/pkg/postgres"
	"github.com/dwikikusuma/storefront/pkg/shutdown"
)

const shutdownGrace = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{
		Service:   "storefront",
		Env:       cfg.AppEnv,
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		AddSource: true,
	})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	db := mustDB(ctx, log, cfg)
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckout(reg)
	serverMetrics := metrics.NewServerMetrics(reg)

	// Catalog
	catalogSvc := catalogapp.NewService(cpg.NewProductRepo(db))

	// Cart
	cartSvc := cartapp.NewService(
		cartpg.NewCartRepo(db),
		cartadapter.NewCatalogServiceReader(catalogSvc),
		log,
	)

	// Inventory + orders
	inventory := inventoryapp.NewLedger(inventorypg.NewStockRepo(db), checkoutMetrics, log)
	orders := orderapp.NewLedger(orderpg.NewOrderRepo(db), orderpg.NewUserRepo(db), log)

	// Checkout
	producer := kafka.NewProducer(kafka.ParseBrokers(cfg.KafkaBrokers))
	defer producer.Close()

	orderTopic := ""
	if producer.Enabled() {
		orderTopic = cfg.KafkaOrderTopic
	}
	cleanups := checkoutpg.NewCleanupRepo(db)
	carts := checkoutadapter.NewCartServiceReader(cartSvc)
	checkoutSvc := checkoutapp.NewService(
		carts,
		carts,
		checkoutpg.NewUnitOfWork(db, orderTopic),
		inventory,
		orders,
		cleanups,
		checkoutpg.NewKeyRepo(db),
		checkoutMetrics,
		log,
		checkoutapp.Options{
			MaxAttempts:   cfg.CheckoutMaxAttempts,
			Backoff:       cfg.CheckoutRetryBackoff,
			ClearAttempts: cfg.CartClearAttempts,
		},
	)

	handler := httpapi.NewHandler(
		httpapi.Services{
			Catalog:  catalogSvc,
			Carts:    cartSvc,
			Checkout: checkoutSvc,
			Orders:   orders,
		},
		httpapi.Options{
			Log:            log,
			Metrics:        serverMetrics,
			Gatherer:       reg,
			Ready:          db.PingContext,
			AllowedOrigins: cfg.CORSAllowedOrigins,
			RequestTimeout: 10 * time.Second,
		},
	)

	httpAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
	server := &http.Server{
		Addr:              httpAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	grpcAddr := fmt.Sprintf(":%d", cfg.GRPCPort)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		log.Error("listen failed", slog.Any("err", err), slog.String("addr", grpcAddr))
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)

	tasks := []shutdown.Task{
		{
			Name: "http",
			Run: func(ctx context.Context) error {
				log.Info("http server starting", slog.String("addr", httpAddr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			},
			Stop: server.Shutdown,
		},
		{
			Name: "grpc",
			Run: func(ctx context.Context) error {
				log.Info("grpc starting", slog.String("addr", grpcAddr))
				return grpcServer.Serve(lis)
			},
			Stop: func(ctx context.Context) error {
				healthSrv.Shutdown()
				stopped := make(chan struct{})
				go func() {
					grpcServer.GracefulStop()
					close(stopped)
				}()
				select {
				case <-ctx.Done():
					log.Warn("graceful stop timeout, forcing stop")
					grpcServer.Stop()
				case <-stopped:
				}
				return nil
			},
		},
		{
			Name: "cart_reconciler",
			Run:  worker.NewReconciler(cleanups, cartSvc, log, cfg.ReconcileInterval).Run,
		},
	}
	if producer.Enabled() {
		relay := outbox.NewRelay(outbox.NewSQLStore(db), producer, log, cfg.OutboxInterval)
		tasks = append(tasks, shutdown.Task{Name: "outbox_relay", Run: relay.Run})
	} else {
		log.Info("kafka disabled, order events are not published")
	}

	if err := shutdown.Run(ctx, log, shutdownGrace, tasks...); err != nil {
		log.Error("exiting", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("bye")
}

func mustDB(ctx context.Context, log *slog.Logger, cfg config.Config) *sql.DB {
	db, err := postgres.Open(cfg.Postgres)
	if err != nil {
		log.Error("db open failed", slog.Any("err", err))
		os.Exit(1)
	}
	if cfg.AutoMigrate {
		if err := storage.Migrate(ctx, db, log); err != nil {
			log.Error("migrate failed", slog.Any("err", err))
			os.Exit(1)
		}
	}
	return db
}
