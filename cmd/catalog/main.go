package main

import (
	"context"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"CatalogPlugin/internal/catalog"
	"CatalogPlugin/internal/db"
	"CatalogPlugin/pkg/kit"
)

func main() {
	service := "catalog"
	log := kit.NewLogger(service, getenv("LOG_LEVEL", "info"))
	defer func() { _ = log.Sync() }()

	port := getenv("PORT", "8082")

	seed := catalog.DefaultSeed()
	if path := os.Getenv("CATALOG_SEED_FILE"); path != "" {
		items, err := catalog.LoadSeedFile(path)
		if err != nil {
			log.Fatal("load catalog seed failed", zap.String("path", path), zap.Error(err))
		}
		seed = items
	}

	store, err := openStore(getenv("STORE_DRIVER", "memory"), os.Getenv("DATABASE_URL"), seed, log)
	if err != nil {
		log.Fatal("open store failed", zap.Error(err))
	}

	s := catalog.NewServer(store, log, getenv("SITE_URL", "https://example.com"))

	reg := prometheus.NewRegistry()
	h := catalog.NewHandler(s, catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: true,
		MetricsToken:   os.Getenv("METRICS_TOKEN"),
	})

	if err := kit.RunHTTPServer(":"+port, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func openStore(driver, dsn string, seed []catalog.Item, log *zap.Logger) (catalog.Store, error) {
	if driver == "memory" {
		log.Info("using in-memory catalog", zap.Int("items", len(seed)))
		return catalog.NewMemStore(seed), nil
	}

	database, err := db.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(database); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store := catalog.NewSQLStore(database, driver)
	if err := store.Seed(ctx, seed); err != nil {
		return nil, err
	}

	log.Info("using sql catalog", zap.String("driver", driver), zap.Int("seed_items", len(seed)))
	return store, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
