package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dd0wney/mspread/pkg/metrics"
)

// Service identity reported on the root endpoint.
const (
	ServiceName        = "mspread"
	ServiceDescription = "Malware spread simulation engine"
)

// Version is overridden at build time.
var Version = "0.1.0"

// NewHandler routes / (service info), /health and /metrics. The uptime
// gauge is refreshed on every scrape.
func NewHandler(reg *metrics.Registry, started time.Time) http.Handler {
	mux := http.NewServeMux()
	metricsHandler := reg.Handler()
	reg.SetBuildInfo(Version)

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"name":        ServiceName,
			"description": ServiceDescription,
			"version":     Version,
		})
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":         "healthy",
			"uptime_seconds": time.Since(started).Seconds(),
		})
	})
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		reg.UpdateSystemMetrics(started)
		metricsHandler.ServeHTTP(w, r)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
