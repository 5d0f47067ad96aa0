package main

import (
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"CatalogPlugin/internal/cart"
	"CatalogPlugin/pkg/kit"
)

func main() {
	service := "cart"
	log := kit.NewLogger(service, getenv("LOG_LEVEL", "info"))
	defer func() { _ = log.Sync() }()

	port := getenv("PORT", "8084")
	catalogURL := getenv("CATALOG_URL", "http://localhost:8082")

	products := cart.NewProductClient(catalogURL)
	if media := os.Getenv("MEDIA_BASE_URL"); media != "" {
		products.MediaBaseURL = media
	}

	platform := cart.NewPlatformCart(
		getenv("CART_API_URL", cart.DefaultCartAPIURL),
		os.Getenv("CART_API_TOKEN"),
		getenvFloat("CART_RPS", 5),
		getenvInt("CART_BURST", 5),
	)

	s := &cart.Server{
		Service: &cart.Service{
			Products: products,
			Cart:     platform,
			Log:      log,
		},
		Log:      log,
		Upstream: products,
	}

	reg := prometheus.NewRegistry()
	h := cart.NewHandler(s, cart.HTTPDeps{
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

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}

func getenvFloat(k string, def float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(k), 64)
	if err != nil {
		return def
	}
	return f
}
