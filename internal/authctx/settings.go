package authctx

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// SettingsExecer is the slice of pgx.Tx that ApplyLocal needs. pgx.Tx and
// pgxpool.Conn both satisfy it.
type SettingsExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ApplyLocal sets the given session variables on tx with set_config's is_local
// flag, so they live exactly as long as the transaction. Applying them
// connection-wide would leak identity between requests under connection reuse.
func ApplyLocal(ctx context.Context, tx SettingsExecer, settings map[string]string) error {
	for key, value := range settings {
		if _, err := tx.Exec(ctx, "SELECT set_config($1, $2, true)", key, value); err != nil {
			return fmt.Errorf("set_config %s: %w", key, err)
		}
	}
	return nil
}
