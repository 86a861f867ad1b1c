package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dd0wney/mspread/pkg/logging"
	"github.com/dd0wney/mspread/pkg/metrics"
)

func TestServeStopsOnCancel(t *testing.T) {
	reg := metrics.NewRegistry()
	gs := NewGracefulServer("127.0.0.1:0", NewHandler(reg, time.Now()), logging.NewNopLogger())
	if err := gs.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.Serve(ctx) }()

	resp, err := http.Get("http://" + gs.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if !gs.IsShuttingDown() {
		t.Error("expected shutdown to be recorded")
	}
	if err := gs.Shutdown(time.Second); err != nil {
		t.Errorf("second Shutdown = %v, want nil", err)
	}
}

func TestServeReportsListenError(t *testing.T) {
	gs := NewGracefulServer("256.0.0.1:bad", http.NotFoundHandler(), logging.NewNopLogger())
	if err := gs.Serve(context.Background()); err == nil {
		t.Error("expected listen error")
	}
}

func TestHandlerRoutes(t *testing.T) {
	reg := metrics.NewRegistry()
	reg.RecordRun("loop")
	h := NewHandler(reg, time.Now().Add(-time.Minute))

	tests := []struct {
		path     string
		status   int
		contains string
	}{
		{"/", http.StatusOK, `"name":"mspread"`},
		{"/health", http.StatusOK, `"status":"healthy"`},
		{"/metrics", http.StatusOK, `mspread_simulation_runs_total{engine="loop"} 1`},
		{"/metrics", http.StatusOK, `mspread_build_info{go_version=`},
		{"/missing", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			body, _ := io.ReadAll(rec.Body)
			if tt.contains != "" && !strings.Contains(string(body), tt.contains) {
				t.Errorf("body missing %q:\n%s", tt.contains, body)
			}
		})
	}
}

func TestHealthReportsUptime(t *testing.T) {
	h := NewHandler(metrics.NewRegistry(), time.Now().Add(-2*time.Second))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body struct {
		Status string  `json:"status"`
		Uptime float64 `json:"uptime_seconds"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Uptime < 2 {
		t.Errorf("uptime = %v, want >= 2", body.Uptime)
	}
}
