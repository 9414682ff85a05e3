package goSession

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledIgnoresUpdates(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false, EnableLatencyHistograms: true})
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricAuthorizeLatency, time.Millisecond)

	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("disabled metrics must not count")
	}
	if m.LatencyEnabled() {
		t.Fatal("latency requires metrics enabled")
	}
	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricLogout)
	if nilMetrics.Enabled() {
		t.Fatal("nil metrics must report disabled")
	}
}

func TestMetricsConcurrentIncrements(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers, perWorker = 8, 1000
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricRefreshSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricRefreshSuccess); got != workers*perWorker {
		t.Fatalf("expected %d, got %d", workers*perWorker, got)
	}
	if got := m.Snapshot().Counters[MetricRefreshSuccess]; got != workers*perWorker {
		t.Fatalf("snapshot mismatch: %d", got)
	}
	m.Inc(metricIDCount)
}

func TestMetricsLatencyBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	for _, d := range []time.Duration{
		50 * time.Microsecond,
		200 * time.Microsecond,
		time.Millisecond,
		3 * time.Millisecond,
		time.Second,
	} {
		m.Observe(MetricAuthorizeLatency, d)
	}
	// only Authorize has a histogram
	m.Observe(MetricLoginSuccess, time.Millisecond)

	snap := m.Snapshot()
	got := snap.Histograms[MetricAuthorizeLatency]
	want := []uint64{1, 1, 0, 1, 0, 1, 0, 1}
	if len(got) != len(want) {
		t.Fatalf("expected %d buckets, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bucket %d: want %d got %d (%v)", i, want[i], got[i], got)
		}
	}
	if _, ok := snap.Histograms[MetricLoginSuccess]; ok {
		t.Fatal("unexpected histogram for login")
	}
	wantSum := 50*time.Microsecond + 200*time.Microsecond + time.Millisecond + 3*time.Millisecond + time.Second
	if got := snap.HistogramSums[MetricAuthorizeLatency]; got != wantSum {
		t.Fatalf("expected latency sum %v, got %v", wantSum, got)
	}
}

func TestEngineRecordsAuthorizeLatency(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.EnableLatencyHistograms = true
	engine, _ := newTestEngine(t, cfg)

	pair, err := engine.Login(t.Context(), "42")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := engine.Authorize(t.Context(), pair.AccessToken); err != nil {
			t.Fatalf("authorize failed: %v", err)
		}
	}

	var total uint64
	for _, n := range engine.MetricsSnapshot().Histograms[MetricAuthorizeLatency] {
		total += n
	}
	if total != 3 {
		t.Fatalf("expected 3 latency observations, got %d", total)
	}
	if engine.MetricsSnapshot().HistogramSums[MetricAuthorizeLatency] <= 0 {
		t.Fatal("expected a positive latency sum")
	}
}
