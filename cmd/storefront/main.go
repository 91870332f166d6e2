package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"AlphaStore/internal/storefront"
	"AlphaStore/pkg/kit"
)

const startupTimeout = 10 * time.Second

func main() {
	service := "storefront"

	// .env is optional; real deployments set the environment directly.
	envErr := godotenv.Load()

	log := kit.NewLogger(service, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_DEV") == "true")
	defer func() { _ = log.Sync() }()

	if envErr != nil && !os.IsNotExist(envErr) {
		log.Warn("read .env failed", zap.Error(envErr))
	}

	cfg, err := storefront.ConfigFromEnv(os.Getenv)
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	app, err := storefront.New(ctx, cfg, log, prometheus.NewRegistry())
	if err != nil {
		log.Fatal("init storefront failed", zap.Error(err))
	}

	if err := kit.RunHTTPServer(":"+cfg.Port, app.Handler, log, app.Close); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}
