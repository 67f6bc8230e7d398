package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphgate/internal/domain"
	"graphgate/internal/pool"
)

type fakeDB struct {
	health    pool.Health
	healthErr error
	tables    map[string]pool.Table
	tablesErr error
}

func (f *fakeDB) Health(context.Context) (pool.Health, error) {
	return f.health, f.healthErr
}

func (f *fakeDB) TableColumns(_ context.Context, _ []string) (map[string]pool.Table, error) {
	return f.tables, f.tablesErr
}

func newTestHandler(db *fakeDB, production bool) *Handler {
	return NewHandler(db, db, []string{"users"}, production, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGetHealth_Connected(t *testing.T) {
	t.Parallel()

	dbTime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := newTestHandler(&fakeDB{health: pool.Health{DBTime: dbTime}}, false)

	rec := httptest.NewRecorder()
	h.GetHealth(rec, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, 200, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "connected", body["database"])
	assert.Equal(t, "2026-03-01T12:00:00Z", body["db_time"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestGetHealth_Degraded(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeDB{healthErr: errors.New("connection refused")}, false)

	rec := httptest.NewRecorder()
	h.GetHealth(rec, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, 503, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "disconnected", body["database"])
}

func TestGetSchema_ListsAllowedTables(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeDB{tables: map[string]pool.Table{
		"users": {Columns: []pool.Column{
			{Name: "id", Type: "integer", Nullable: false},
			{Name: "email", Type: "text", Nullable: true},
		}},
	}}, false)

	rec := httptest.NewRecorder()
	h.GetSchema(rec, httptest.NewRequest("GET", "/schema", nil))

	assert.Equal(t, 200, rec.Code)
	body := decodeBody(t, rec)
	tables := body["tables"].(map[string]any)
	users := tables["users"].(map[string]any)
	cols := users["columns"].([]any)
	require.Len(t, cols, 2)
	first := cols[0].(map[string]any)
	assert.Equal(t, "id", first["name"])
	assert.Equal(t, "integer", first["type"])
	assert.Equal(t, false, first["nullable"])
}

func TestGetSchema_QueryFailure(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeDB{tablesErr: domain.ErrQuery("introspect columns", errors.New("relation gone"))}, false)

	rec := httptest.NewRecorder()
	h.GetSchema(rec, httptest.NewRequest("GET", "/schema", nil))

	assert.Equal(t, 500, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["message"], "relation gone")
}

func TestWriteError_ProductionHidesDetail(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeDB{tablesErr: errors.New("secret internals: table app_user")}, true)

	rec := httptest.NewRecorder()
	h.GetSchema(rec, httptest.NewRequest("GET", "/schema", nil))

	assert.Equal(t, 500, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "internal server error", body["message"])
	assert.NotContains(t, rec.Body.String(), "app_user")
}

func TestWriteError_PoolExhaustedIsRetryable(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeDB{tablesErr: domain.ErrPoolExhausted(5 * time.Second)}, true)

	rec := httptest.NewRecorder()
	h.GetSchema(rec, httptest.NewRequest("GET", "/schema", nil))

	assert.Equal(t, 503, rec.Code)
	assert.Equal(t, "6", rec.Header().Get("Retry-After"))
}
