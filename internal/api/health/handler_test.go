package health

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestHealthAndLive(t *testing.T) {
	h := NewHandler()

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || decode(t, w).Status != "ok" {
		t.Errorf("health: %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.Live(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if w.Code != http.StatusOK || decode(t, w).Status != "live" {
		t.Errorf("live: %d", w.Code)
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		checkers   []Checker
		wantStatus int
		wantChecks map[string]string
	}{
		{"no checkers", nil, http.StatusOK, map[string]string{}},
		{
			"all healthy",
			[]Checker{NewFuncChecker("a", func(context.Context) error { return nil })},
			http.StatusOK,
			map[string]string{"a": "ok"},
		},
		{
			"one failing",
			[]Checker{
				NewFuncChecker("a", func(context.Context) error { return nil }),
				NewFuncChecker("b", func(context.Context) error { return errors.New("down") }),
			},
			http.StatusServiceUnavailable,
			map[string]string{"a": "ok", "b": "down"},
		},
		{"unconfigured redis", []Checker{NewRedisChecker(nil)}, http.StatusServiceUnavailable, map[string]string{"redis": "redis not configured"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler()
			for _, c := range tc.checkers {
				h.RegisterChecker(c)
			}

			w := httptest.NewRecorder()
			h.Ready(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			resp := decode(t, w)
			for name, want := range tc.wantChecks {
				if resp.Checks[name] != want {
					t.Errorf("check %s = %q, want %q", name, resp.Checks[name], want)
				}
			}
		})
	}
}

func TestSQLiteChecker(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "health.db"))
	if err != nil {
		t.Fatal(err)
	}
	c := NewSQLiteChecker(db)
	if err := c.Check(context.Background()); err != nil {
		t.Errorf("open db: %v", err)
	}
	db.Close()
	if err := c.Check(context.Background()); err == nil {
		t.Error("closed db should fail")
	}
	if err := NewSQLiteChecker(nil).Check(context.Background()); err == nil {
		t.Error("nil db should fail")
	}
}

type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

func TestRedisChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewRedisChecker(redisPinger{client})
	if err := c.Check(context.Background()); err != nil {
		t.Errorf("healthy redis: %v", err)
	}
	mr.Close()
	if err := c.Check(context.Background()); err == nil {
		t.Error("stopped redis should fail")
	}
}
