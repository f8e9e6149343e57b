// Package app contains the application setup for the storefront service.
package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/abgdnv/storefront/internal/config"
	"github.com/abgdnv/storefront/internal/guard"
	"github.com/abgdnv/storefront/internal/session"
	"github.com/abgdnv/storefront/internal/storage"
	"github.com/abgdnv/storefront/internal/transport/rest"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/server"
	"github.com/go-chi/chi/v5"
)

type Dependencies struct {
	Cart      *cart.Store
	Session   *session.Store
	Catalog   rest.Catalog
	Publisher messaging.Publisher
	Guard     guard.Config
	Logger    *slog.Logger
}

// SetupDependencies constructs and injects one instance of each state store,
// rehydrating both from the durable medium before first use.
func SetupDependencies(ctx context.Context, kv storage.KV, publisher messaging.Publisher, cfg *config.Config, logger *slog.Logger) *Dependencies {
	return &Dependencies{
		Cart:      cart.NewStore(ctx, kv, logger),
		Session:   session.NewStore(ctx, kv, logger),
		Catalog:   catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout),
		Publisher: publisher,
		Guard: guard.Config{
			ProtectedPrefixes: cfg.Guard.ProtectedPrefixes,
			LoginPath:         cfg.Guard.LoginPath,
		},
		Logger: logger,
	}
}

// SetupHttpHandler initializes the router, the route guard and the REST routes.
// Used by handler tests to exercise the full middleware chain.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	mux.Use(guard.Middleware(deps.Guard, deps.Logger))
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the storefront application.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	handler := rest.NewHandler(deps.Cart, deps.Session, deps.Catalog, deps.Publisher, deps.Logger)
	handler.RegisterRoutes(mux)
}

// SetupHttpServer creates and configures the HTTP server for the storefront.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}
