package metrics

import (
	"io"
	"runtime"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric dto.Metric
	if err := g.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Gauge.GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	if r.TopologyGenerationsTotal == nil {
		t.Error("TopologyGenerationsTotal not initialized")
	}
	if r.SimulationStepsTotal == nil {
		t.Error("SimulationStepsTotal not initialized")
	}
	if r.SpreadAttemptsTotal == nil {
		t.Error("SpreadAttemptsTotal not initialized")
	}
	if r.registry == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	r1 := NewRegistry()
	r2 := NewRegistry()
	r1.RecordRun("loop")

	if got := counterValue(t, r2.SimulationRunsTotal.WithLabelValues("loop")); got != 0 {
		t.Errorf("second registry runs = %v, want 0", got)
	}
}

func TestRecordGeneration(t *testing.T) {
	r := NewRegistry()

	r.RecordGeneration("scale_free", "success", 20*time.Millisecond, 100, 291)
	r.RecordGeneration("scale_free", "success", 10*time.Millisecond, 50, 141)
	r.RecordGeneration("mesh", "error", time.Millisecond, 0, 0)

	if got := counterValue(t, r.TopologyGenerationsTotal.WithLabelValues("scale_free", "success")); got != 2 {
		t.Errorf("success counter = %v, want 2", got)
	}
	if got := counterValue(t, r.TopologyGenerationsTotal.WithLabelValues("mesh", "error")); got != 1 {
		t.Errorf("error counter = %v, want 1", got)
	}

	// Failed generations leave the size gauges at the last success.
	if got := gaugeValue(t, r.TopologyDevicesTotal); got != 50 {
		t.Errorf("devices gauge = %v, want 50", got)
	}
	if got := gaugeValue(t, r.TopologyConnectionsTotal); got != 141 {
		t.Errorf("connections gauge = %v, want 141", got)
	}
}

func TestRecordBatchesAndSkips(t *testing.T) {
	r := NewRegistry()

	r.RecordBatches("devices", 8)
	r.RecordBatches("connections", 3)
	r.RecordBatches("connections", 2)
	r.RecordSkippedInterconnect()

	if got := counterValue(t, r.TopologyBatchesTotal.WithLabelValues("connections")); got != 5 {
		t.Errorf("connection batches = %v, want 5", got)
	}
	if got := counterValue(t, r.InterconnectsSkippedTotal); got != 1 {
		t.Errorf("skipped interconnects = %v, want 1", got)
	}
}

func TestRecordStep(t *testing.T) {
	r := NewRegistry()

	r.RecordStep("loop", 100*time.Microsecond, 3, 5)
	r.RecordStep("loop", 200*time.Microsecond, 4, 9)
	r.RecordRun("loop")

	if got := counterValue(t, r.SimulationStepsTotal.WithLabelValues("loop")); got != 2 {
		t.Errorf("steps = %v, want 2", got)
	}
	if got := counterValue(t, r.SimulationInfectionsTotal.WithLabelValues("loop")); got != 7 {
		t.Errorf("infections = %v, want 7", got)
	}
	if got := gaugeValue(t, r.SimulationInfectedDevices.WithLabelValues("loop")); got != 9 {
		t.Errorf("infected gauge = %v, want 9", got)
	}
	if got := counterValue(t, r.SimulationRunsTotal.WithLabelValues("loop")); got != 1 {
		t.Errorf("runs = %v, want 1", got)
	}

	histogram, err := r.SimulationStepDuration.GetMetricWithLabelValues("loop")
	if err != nil {
		t.Fatalf("Failed to get histogram: %v", err)
	}
	var metric dto.Metric
	if err := histogram.(prometheus.Histogram).Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 2 {
		t.Errorf("Sample count = %v, want 2", metric.Histogram.GetSampleCount())
	}
}

func TestRecordSpreadAttemptLabels(t *testing.T) {
	r := NewRegistry()

	r.RecordSpreadAttempt("infected")
	r.RecordSpreadAttempt("firewall")
	r.RecordSpreadAttempt("firewall")

	if got := counterValue(t, r.SpreadAttemptsTotal.WithLabelValues("infected")); got != 1 {
		t.Errorf("infected = %v, want 1", got)
	}
	if got := counterValue(t, r.SpreadAttemptsTotal.WithLabelValues("firewall")); got != 2 {
		t.Errorf("firewall = %v, want 2", got)
	}
}

func TestSystemMetrics(t *testing.T) {
	r := NewRegistry()
	r.UpdateSystemMetrics(time.Now().Add(-2 * time.Second))

	if got := gaugeValue(t, r.UptimeSeconds); got < 2 {
		t.Errorf("uptime = %v, want >= 2", got)
	}

	r.SetBuildInfo("1.2.3")
	if got := gaugeValue(t, r.BuildInfo.WithLabelValues("1.2.3", runtime.Version())); got != 1 {
		t.Errorf("build info = %v, want 1", got)
	}

	families, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "go_goroutines" {
			found = true
		}
	}
	if !found {
		t.Error("go runtime collector not registered")
	}
}

func TestConcurrentMetricUpdates(t *testing.T) {
	r := NewRegistry()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				r.RecordSpreadAttempt("draw_failed")
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if got := counterValue(t, r.SpreadAttemptsTotal.WithLabelValues("draw_failed")); got != 1000 {
		t.Errorf("Counter = %v, want 1000", got)
	}
}

func TestMetricNaming(t *testing.T) {
	r := NewRegistry()
	r.RecordStep("fast", time.Millisecond, 1, 1)

	metrics, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	if len(metrics) == 0 {
		t.Fatal("No metrics registered")
	}

	for _, m := range metrics {
		if strings.HasPrefix(m.GetName(), "go_") {
			continue
		}
		if !strings.HasPrefix(m.GetName(), "mspread_") {
			t.Errorf("Metric %s does not have mspread_ prefix", m.GetName())
		}
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRegistry()
	r.RecordRun("fast")

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), `mspread_simulation_runs_total{engine="fast"} 1`) {
		t.Errorf("runs counter missing from exposition:\n%s", body)
	}
}

func BenchmarkRecordSpreadAttempt(b *testing.B) {
	r := NewRegistry()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.RecordSpreadAttempt("infected")
	}
}
