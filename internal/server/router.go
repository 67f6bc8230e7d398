package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"graphgate/internal/api"
	"graphgate/internal/config"
	"graphgate/internal/graph"
	"graphgate/internal/metrics"
	"graphgate/internal/middleware"
)

// NewRouter assembles the gateway's HTTP surface: health and schema
// endpoints, the metrics scrape endpoint, the graph endpoint, and (outside
// production only) the interactive explorer.
func NewRouter(cfg *config.Config, handler *api.Handler, engine graph.Engine, engineCfg graph.EngineConfig) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))

	r.Get("/health", handler.GetHealth)
	r.Get("/schema", handler.GetSchema)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Handle(cfg.GraphRoute, engine.Handler())
	if engineCfg.EnableExplorer {
		r.Get(cfg.ExplorerRoute, graph.ExplorerHandler(cfg.GraphRoute))
	}

	return r
}
