// Command storefront-admin runs operator tasks against the storefront
// database. Stock is only ever added here; checkout is the only path that
// removes it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	inventoryapp "github.com/dwikikusuma/storefront/internal/inventory/app"
	inventorypg "github.com/dwikikusuma/storefront/internal/inventory/infra/postgres"
	"github.com/dwikikusuma/storefront/pkg/config"
	"github.com/dwikikusuma/storefront/pkg/logger"
	"github.com/dwikikusuma/storefront/pkg/postgres"
)

func main() {
	productID := flag.String("product", "", "product id to restock")
	qty := flag.Int64("qty", 0, "units to add, must be positive")
	timeout := flag.Duration("timeout", 10*time.Second, "operation timeout")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(logger.Options{
		Service: "storefront-admin",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	if *productID == "" {
		fmt.Fprintln(os.Stderr, "usage: storefront-admin -product <id> -qty <n>")
		os.Exit(2)
	}

	db, err := postgres.Open(cfg.Postgres)
	if err != nil {
		log.Error("db open failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	ledger := inventoryapp.NewLedger(inventorypg.NewStockRepo(db), nil, log)
	stock, err := ledger.Restock(ctx, *productID, *qty)
	if err != nil {
		log.Error("restock failed", slog.String("product_id", *productID), slog.Any("err", err))
		db.Close()
		os.Exit(1)
	}
	fmt.Println(stock)
}
