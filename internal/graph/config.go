// Package graph defines the contract with the schema-graph engine: the
// configuration it receives, the settings-resolution callback it must call
// once per query execution, and the handler it exposes.
package graph

// Unlimited disables a cost cap.
const Unlimited = 0

// EngineConfig is the operational configuration handed to the schema-graph
// engine. It is assembled exclusively by BuildEngineConfig; no other
// component re-derives tier-sensitive behavior.
type EngineConfig struct {
	// EnableExplorer mounts the interactive schema explorer route.
	EnableExplorer bool
	// WatchSchema re-introspects the database schema on change.
	WatchSchema bool
	// ShowErrorHints includes hints and internal error codes in responses.
	ShowErrorHints bool
	// ExposeStack includes stack traces in error responses.
	ExposeStack bool
	// MaxComplexity caps query cost; Unlimited disables the cap.
	MaxComplexity int
	// MaxDepth caps query nesting; Unlimited disables the cap.
	MaxDepth int
}

// Limits are the production cost caps, carried from the service configuration.
type Limits struct {
	MaxComplexity int
	MaxDepth      int
}

// BuildEngineConfig derives the engine configuration from the deployment
// tier. Production disables the explorer, live re-introspection, and all
// error detail, and enforces the cost caps; non-production enables everything
// and leaves queries unlimited.
func BuildEngineConfig(production bool, limits Limits) EngineConfig {
	if production {
		return EngineConfig{
			EnableExplorer: false,
			WatchSchema:    false,
			ShowErrorHints: false,
			ExposeStack:    false,
			MaxComplexity:  limits.MaxComplexity,
			MaxDepth:       limits.MaxDepth,
		}
	}
	return EngineConfig{
		EnableExplorer: true,
		WatchSchema:    true,
		ShowErrorHints: true,
		ExposeStack:    true,
		MaxComplexity:  Unlimited,
		MaxDepth:       Unlimited,
	}
}
