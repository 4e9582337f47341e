package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"MiniShop/internal/auth"
	"MiniShop/internal/cart"
	"MiniShop/internal/catalog"
	"MiniShop/pkg/kit"
)

const (
	apiVersion   = "v2.0"
	readyTimeout = 1 * time.Second
)

type HTTPDeps struct {
	Log      *zap.Logger
	Audit    *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string

	CORSOrigins []string
}

type Deps struct {
	Catalog  *catalog.Catalog
	Carts    *cart.Service
	Users    auth.UserStore
	JWT      *auth.TokenMaker
	Cache    kit.ResponseCache
	Validate *validator.Validate

	// Ready reports whether backing services are reachable. Nil means always
	// ready.
	Ready func(ctx context.Context) error

	LoginPerMin    int
	RegisterPerMin int
}

func NewHandler(deps Deps, httpDeps HTTPDeps) http.Handler {
	if httpDeps.Log == nil {
		httpDeps.Log = zap.NewNop()
	}
	if httpDeps.Audit == nil {
		httpDeps.Audit = zap.NewNop()
	}
	if deps.Validate == nil {
		deps.Validate = kit.NewValidator()
	}

	r := chi.NewRouter()
	setupMiddleware(r, httpDeps)
	setupMetrics(r, httpDeps)

	r.NotFound(kit.NotFound)
	r.MethodNotAllowed(kit.MethodNotAllowed)

	r.Get("/health", health)
	r.Get("/healthz", healthz)
	r.Get("/readyz", readyz(deps.Ready, httpDeps.Log))

	authSrv := &auth.Server{
		Log:            httpDeps.Log,
		Store:          deps.Users,
		JWT:            deps.JWT,
		Validate:       deps.Validate,
		LoginPerMin:    deps.LoginPerMin,
		RegisterPerMin: deps.RegisterPerMin,
	}
	catalogSrv := &catalog.Server{
		Catalog:  deps.Catalog,
		Log:      httpDeps.Log,
		Validate: deps.Validate,
		JWT:      deps.JWT,
		Cache:    deps.Cache,
	}
	cartSrv := &cart.Server{
		Service:  deps.Carts,
		Log:      httpDeps.Log,
		Validate: deps.Validate,
		JWT:      deps.JWT,
	}

	r.Route("/api", func(api chi.Router) {
		api.Mount("/auth", authSrv.Routes())
		api.Mount("/products", catalogSrv.Routes())
		api.Mount("/cart", cartSrv.Routes())

		api.With(auth.AuthJWT(deps.JWT), auth.RequireRole(auth.RoleAdmin)).
			Post("/cache/flush", flushCache(deps.Cache, httpDeps.Log))
	})

	return r
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))
	r.Use(kit.Audit(deps.Audit))

	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Total-Count", "X-Cart-Items", "X-Request-Id"},
	}).Handler)

	r.Use(kit.Header("X-API-Version", apiVersion))
}

func setupMetrics(r *chi.Mux, deps HTTPDeps) {
	if deps.Registry == nil {
		return
	}

	metrics := kit.NewMetrics(deps.Registry)
	r.Use(metrics.Middleware(deps.Service, kit.ChiRoutePatternOrPath))

	if !deps.MetricsEnabled {
		return
	}

	r.With(kit.MetricsAuth(deps.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}

func health(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"timestamp": time.Now().UTC(),
	})
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func readyz(ready func(context.Context) error, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready == nil {
			w.WriteHeader(http.StatusOK)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := ready(ctx); err != nil {
			log.Warn("readyz failed", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func flushCache(c kit.ResponseCache, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c != nil {
			if err := c.Flush(r.Context()); err != nil {
				log.Error("cache flush failed", zap.Error(err))
				kit.WriteError(w, r, http.StatusInternalServerError, "internal server error", nil)
				return
			}
		}
		kit.WriteJSON(w, http.StatusOK, map[string]any{
			"message":   "Cache flushed successfully",
			"timestamp": time.Now().UTC(),
		})
	}
}
