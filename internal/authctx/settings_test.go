package authctx

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

type fakeExecer struct {
	calls []execCall
	err   error
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return pgconn.CommandTag{}, f.err
}

func TestApplyLocal_SetsEachVariableTransactionLocally(t *testing.T) {
	t.Parallel()

	tx := &fakeExecer{}
	settings := map[string]string{
		SubjectKey: "user-42",
		TenantKey:  "acme",
	}

	require.NoError(t, ApplyLocal(context.Background(), tx, settings))
	require.Len(t, tx.calls, 2)

	seen := map[string]string{}
	for _, call := range tx.calls {
		// is_local must be true so nothing survives the transaction.
		assert.Equal(t, "SELECT set_config($1, $2, true)", call.sql)
		require.Len(t, call.args, 2)
		seen[call.args[0].(string)] = call.args[1].(string)
	}
	assert.Equal(t, map[string]string{SubjectKey: "user-42", TenantKey: "acme"}, seen)
}

func TestApplyLocal_EmptySettingsIsNoOp(t *testing.T) {
	t.Parallel()

	tx := &fakeExecer{}
	require.NoError(t, ApplyLocal(context.Background(), tx, nil))
	assert.Empty(t, tx.calls)
}

func TestApplyLocal_ExecFailureNamesTheKey(t *testing.T) {
	t.Parallel()

	tx := &fakeExecer{err: errors.New("permission denied")}
	err := ApplyLocal(context.Background(), tx, map[string]string{SubjectKey: "user-42"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), SubjectKey)
}
