package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"MiniShop/internal/auth"
	"MiniShop/internal/cart"
	"MiniShop/internal/catalog"
	"MiniShop/internal/config"
	"MiniShop/pkg/kit"
)

const (
	service          = "minishop"
	cacheKeyPrefix   = "minishop:resp:"
	bootstrapTimeout = 15 * time.Second
)

// App is the assembled service: the HTTP handler plus whatever must be
// released on shutdown.
type App struct {
	Handler http.Handler
	closers []func() error
}

func (a *App) Close(context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// Build loads or seeds the catalog and wires every component from cfg.
func Build(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
	defer cancel()

	a := &App{}
	var probes []func(context.Context) error

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	products, err := loadProducts(ctx, cfg, log, a, &probes)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	cat := catalog.NewCatalog(products, catalog.WithMetrics(catalog.NewMetrics(reg)))
	log.Info("catalog ready",
		zap.Int("products", cat.Snapshot().Len()),
		zap.Int("vocabulary", cat.Snapshot().Vocabulary()),
	)

	cache, err := newCache(ctx, cfg, a, &probes)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	if cache != nil {
		cat.OnChange(func() {
			if err := cache.Flush(context.Background()); err != nil {
				log.Warn("response cache flush after catalog change failed", zap.Error(err))
			}
		})
	}

	users, err := auth.NewSeededStore(bcrypt.DefaultCost)
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("seed users: %w", err)
	}

	audit, auditFile := kit.NewAuditLogger(kit.AuditFileConfig{
		Path:       cfg.AuditLogFile,
		MaxSizeMB:  cfg.AuditMaxSizeMB,
		MaxBackups: cfg.AuditMaxBackups,
		MaxAgeDays: cfg.AuditMaxAgeDays,
	})
	a.closers = append(a.closers, func() error {
		_ = audit.Sync()
		return auditFile.Close()
	})

	a.Handler = NewHandler(Deps{
		Catalog:        cat,
		Carts:          cart.NewService(cat, cart.WithMetrics(cart.NewMetrics(reg))),
		Users:          users,
		JWT:            auth.NewTokenMaker(cfg.JWTSecret, cfg.JWTTTL),
		Cache:          cache,
		Validate:       kit.NewValidator(),
		Ready:          allReady(probes),
		LoginPerMin:    cfg.LoginRatePerMin,
		RegisterPerMin: cfg.RegisterRatePerMin,
	}, HTTPDeps{
		Log:            log,
		Audit:          audit,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: true,
		MetricsToken:   cfg.MetricsToken,
		CORSOrigins:    cfg.CORSOrigins,
	})

	return a, nil
}

func loadProducts(ctx context.Context, cfg config.Config, log *zap.Logger, a *App, probes *[]func(context.Context) error) ([]catalog.Product, error) {
	if cfg.DatabaseURL == "" {
		log.Info("seeding catalog", zap.Int("count", cfg.SeedProducts))
		return catalog.GenerateSeed(cfg.SeedProducts, cfg.SeedRandom, time.Now()), nil
	}

	src, err := catalog.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, src.Close)
	*probes = append(*probes, src.Ping)

	products, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	log.Info("catalog loaded from postgres", zap.Int("count", len(products)))
	return products, nil
}

func newCache(ctx context.Context, cfg config.Config, a *App, probes *[]func(context.Context) error) (kit.ResponseCache, error) {
	if cfg.CacheTTL == 0 {
		return nil, nil
	}
	if cfg.RedisURL == "" {
		return kit.NewMemoryCache(cfg.CacheTTL), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	a.closers = append(a.closers, client.Close)

	rc := kit.NewRedisCache(client, cacheKeyPrefix, cfg.CacheTTL)
	if err := rc.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	*probes = append(*probes, rc.Ping)
	return rc, nil
}

func allReady(probes []func(context.Context) error) func(context.Context) error {
	if len(probes) == 0 {
		return nil
	}
	return func(ctx context.Context) error {
		for _, p := range probes {
			if err := p(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}
