package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gcalsync/internal/config"
	"gcalsync/internal/reconcile"
)

func TestStatusBeforeFirstRun(t *testing.T) {
	t.Parallel()

	srv := NewServer(&config.Config{Listen: "127.0.0.1:0"})
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body["last_run"] != nil {
		t.Errorf("last_run = %v before any run", body["last_run"])
	}
}

func TestStatusAfterRun(t *testing.T) {
	t.Parallel()

	srv := NewServer(&config.Config{Listen: "127.0.0.1:0"})
	srv.SetStatus(RunStatus{
		LastRun:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Events:   reconcile.Summary{Upserted: 3, Failed: 1},
		StoreLen: 3,
	})

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	var got RunStatus
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if got.Events.Upserted != 3 || got.Events.Failed != 1 || got.StoreLen != 3 {
		t.Errorf("status = %+v", got)
	}
}

func TestBasicAuthGuardsStatusNotHealth(t *testing.T) {
	t.Parallel()

	srv := NewServer(&config.Config{
		Listen:    "127.0.0.1:0",
		BasicAuth: &config.BasicAuthConfig{Username: "admin", Password: "pw"},
	})
	h := srv.Handler()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("/health without credentials = %d, want 200", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("/api/status without credentials = %d, want 401", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.SetBasicAuth("admin", "wrong")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("/api/status with bad password = %d, want 401", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.SetBasicAuth("admin", "pw")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("/api/status with credentials = %d, want 200", rr.Code)
	}
}
