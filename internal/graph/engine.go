package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"graphgate/internal/pool"
)

// SettingsFunc resolves the inbound request's credential into transaction-
// scoped session variables. It is total: an absent or invalid credential
// yields nil (anonymous), never an error.
type SettingsFunc func(ctx context.Context, header http.Header) map[string]string

// Engine is the external schema-graph engine. Implementations receive the
// connection pool, a SettingsFunc, and an EngineConfig at construction; they
// must call the SettingsFunc exactly once per query execution and apply its
// result as transaction-scoped state before running the query.
type Engine interface {
	Handler() http.Handler
}

// NewEngineFunc constructs an engine. main wires a concrete implementation;
// tests and unlinked builds use Placeholder.
type NewEngineFunc func(p *pool.Manager, settings SettingsFunc, cfg EngineConfig) (Engine, error)

// Placeholder is mounted when no schema-graph engine is linked into the
// binary. It answers 503 so the rest of the gateway (health, schema,
// metrics) stays serviceable.
func Placeholder() Engine {
	return placeholderEngine{}
}

type placeholderEngine struct{}

func (placeholderEngine) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{
				{"message": "schema-graph engine is not configured"},
			},
		})
	})
}

// ExplorerHandler serves the interactive explorer page pointing at the graph
// endpoint. Mounted only outside production.
func ExplorerHandler(graphRoute string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>GraphiQL</title>
    <meta charset="utf-8" />
    <style>html, body, #graphiql { height: 100%%; margin: 0; }</style>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/graphiql@3/graphiql.min.css" />
</head>
<body>
    <div id="graphiql"></div>
    <script src="https://cdn.jsdelivr.net/npm/react@18/umd/react.production.min.js"></script>
    <script src="https://cdn.jsdelivr.net/npm/react-dom@18/umd/react-dom.production.min.js"></script>
    <script src="https://cdn.jsdelivr.net/npm/graphiql@3/graphiql.min.js"></script>
    <script>
        ReactDOM.createRoot(document.getElementById('graphiql')).render(
            React.createElement(GraphiQL, { fetcher: GraphiQL.createFetcher({ url: %q }) })
        );
    </script>
</body>
</html>`, graphRoute)
	}
}
