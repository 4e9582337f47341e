package main

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"MiniShop/internal/app"
	"MiniShop/internal/config"
	"MiniShop/pkg/kit"
)

func main() {
	log := kit.NewLogger("minishop")
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config failed", zap.Error(err))
	}

	// Prices and totals go out as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true

	a, err := app.Build(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("init app failed", zap.Error(err))
	}

	if err := kit.RunHTTPServer(":"+cfg.Port, a.Handler, log, a.Close); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}
