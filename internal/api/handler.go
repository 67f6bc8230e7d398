// Package api implements the gateway's own HTTP endpoints: health and
// schema introspection. The graph endpoint itself is mounted by the
// schema-graph engine.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"graphgate/internal/pool"
)

// HealthChecker performs a trivial database round-trip.
type HealthChecker interface {
	Health(ctx context.Context) (pool.Health, error)
}

// SchemaIntrospector lists columns for an allow-list of tables.
type SchemaIntrospector interface {
	TableColumns(ctx context.Context, tables []string) (map[string]pool.Table, error)
}

// Handler serves the gateway's supplementary read endpoints.
type Handler struct {
	health     HealthChecker
	schema     SchemaIntrospector
	tables     []string
	production bool
	logger     *slog.Logger
}

// NewHandler creates the handler. tables is the fixed allow-list exposed by
// GET /schema; production gates error detail in responses.
func NewHandler(health HealthChecker, schema SchemaIntrospector, tables []string, production bool, logger *slog.Logger) *Handler {
	return &Handler{
		health:     health,
		schema:     schema,
		tables:     tables,
		production: production,
		logger:     logger,
	}
}

// GetHealth reports readiness by round-tripping the database. A failure
// reports degraded with 503 but never alters the process lifecycle.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	health, err := h.health.Health(r.Context())
	if err != nil {
		h.logger.Warn("health probe failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":   "degraded",
			"database": "disconnected",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"db_time":   health.DBTime.UTC().Format(time.RFC3339),
	})
}

// GetSchema lists columns for the allow-listed tables.
func (h *Handler) GetSchema(w http.ResponseWriter, r *http.Request) {
	tables, err := h.schema.TableColumns(r.Context(), h.tables)
	if err != nil {
		h.logger.Error("schema introspection failed", "error", err)
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
