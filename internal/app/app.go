// Package app wires the gateway's components from validated configuration:
// pool, resolver, engine configuration, HTTP router, and lifecycle server.
// Everything is constructed once at startup and passed by handle; there is
// no ambient global state.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-chi/chi/v5"

	"graphgate/internal/api"
	"graphgate/internal/authctx"
	"graphgate/internal/config"
	"graphgate/internal/graph"
	"graphgate/internal/pool"
	"graphgate/internal/server"
)

// Deps holds what main() must provide: configuration, a logger, and
// optionally the schema-graph engine constructor. A nil NewEngine mounts the
// placeholder handler.
type Deps struct {
	Cfg       *config.Config
	Logger    *slog.Logger
	NewEngine graph.NewEngineFunc
}

// App is the fully-wired gateway.
type App struct {
	Pool         *pool.Manager
	Resolver     *authctx.Resolver
	EngineConfig graph.EngineConfig
	Router       chi.Router
	Server       *server.Server
}

// New wires the application. The engine receives the pool, the resolver's
// settings callback, and the tier-gated engine configuration.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg

	p, err := pool.New(ctx, cfg, deps.Logger.With("component", "pool"))
	if err != nil {
		return nil, fmt.Errorf("pool: %w", err)
	}

	verifier, err := buildVerifier(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("verifier: %w", err)
	}
	resolver := authctx.NewResolver(verifier, deps.Logger.With("component", "authctx"))

	engineCfg := graph.BuildEngineConfig(cfg.IsProduction(), graph.Limits{
		MaxComplexity: cfg.MaxComplexity,
		MaxDepth:      cfg.MaxDepth,
	})

	eng := graph.Placeholder()
	if deps.NewEngine != nil {
		eng, err = deps.NewEngine(p, resolver.SettingsForRequest, engineCfg)
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
	}

	handler := api.NewHandler(p, p, cfg.SchemaTables, cfg.IsProduction(),
		deps.Logger.With("component", "api"))
	router := server.NewRouter(cfg, handler, eng, engineCfg)
	srv := server.New(cfg, router, p, deps.Logger.With("component", "lifecycle"))

	return &App{
		Pool:         p,
		Resolver:     resolver,
		EngineConfig: engineCfg,
		Router:       router,
		Server:       srv,
	}, nil
}

func buildVerifier(ctx context.Context, cfg *config.Config) (authctx.Verifier, error) {
	auth := cfg.Auth
	switch {
	case auth.JWKSURL != "":
		return authctx.NewOIDCVerifierFromJWKS(ctx, auth.JWKSURL, auth.IssuerURL, auth.Audience, auth.TenantClaim), nil
	case auth.IssuerURL != "":
		return authctx.NewOIDCVerifier(ctx, auth.IssuerURL, auth.Audience, auth.TenantClaim)
	default:
		return authctx.NewSharedSecretVerifier(auth.JWTSecret, auth.TenantClaim), nil
	}
}
