package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/pathconvert/pathconvert/internal/api"
)

type fakeRow struct{ err error }

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}

	if p, ok := dest[0].(*int); ok {
		*p = 0
	}

	return nil
}

type fakeDB struct {
	pingErr   error
	schemaErr error
}

func (f *fakeDB) HealthCheck(context.Context) error { return f.pingErr }

func (f *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row { return fakeRow{err: f.schemaErr} }

type fakeCache struct{ err error }

func (f fakeCache) Ping(context.Context) error { return f.err }

func TestLiveness_ReturnsOK(t *testing.T) {
	t.Parallel()

	h := api.NewHealthHandler(nil, nil, func() int { return 3 }, testLogger(), "test-v1", "text-embedding-3-small", 1536)

	r := gin.New()
	r.GET("/health", h.Liveness)

	w := doRequest(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if body["status"] != "ok" || body["version"] != "test-v1" || body["database"] != "not_configured" {
		t.Errorf("body = %v", body)
	}

	if body["websocket_clients"] != float64(3) {
		t.Errorf("websocket_clients = %v", body["websocket_clients"])
	}
}

func TestReadiness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		db        api.Database
		cache     api.Pinger
		wantCode  int
		wantCheck map[string]string
	}{
		{name: "healthy", db: &fakeDB{}, wantCode: http.StatusOK, wantCheck: map[string]string{"database": "ok", "schema": "ok"}},
		{name: "db down", db: &fakeDB{pingErr: errors.New("refused")}, wantCode: http.StatusServiceUnavailable, wantCheck: map[string]string{"database": "error"}},
		{name: "schema missing", db: &fakeDB{schemaErr: errors.New("relation does not exist")}, wantCode: http.StatusServiceUnavailable, wantCheck: map[string]string{"schema": "error"}},
		{name: "cache down still ready", db: &fakeDB{}, cache: fakeCache{err: errors.New("refused")}, wantCode: http.StatusOK, wantCheck: map[string]string{"cache": "degraded"}},
		{name: "no database", wantCode: http.StatusServiceUnavailable, wantCheck: map[string]string{"database": "not_configured"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := api.NewHealthHandler(tc.db, tc.cache, nil, testLogger(), "v", "m", 8)

			r := gin.New()
			r.GET("/ready", h.Readiness)

			w := doRequest(r, http.MethodGet, "/ready", "")
			if w.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantCode)
			}

			var body struct {
				Checks map[string]string `json:"checks"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}

			for k, want := range tc.wantCheck {
				if body.Checks[k] != want {
					t.Errorf("checks[%s] = %q, want %q", k, body.Checks[k], want)
				}
			}
		})
	}
}
