package goGate

import (
	"context"
	"testing"
	"time"
)

func TestMetricsDisabledIsNoop(t *testing.T) {
	m := NewMetrics(MetricsConfig{})
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricInvokeLatency, time.Millisecond)
	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("disabled metrics must not count")
	}
	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricLoginSuccess)
	if nilMetrics.Enabled() {
		t.Fatal("nil metrics must report disabled")
	}
}

func TestMetricsCountersAndHistogram(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Inc(MetricInvokeSuccess)
	m.Inc(MetricInvokeSuccess)
	m.Inc(metricIDCount)
	m.Observe(MetricInvokeLatency, 3*time.Millisecond)
	m.Observe(MetricInvokeLatency, 2*time.Second)
	m.Observe(MetricLoginSuccess, time.Millisecond)

	snap := m.Snapshot()
	if snap.Counters[MetricInvokeSuccess] != 2 {
		t.Fatalf("expected 2 invoke successes, got %d", snap.Counters[MetricInvokeSuccess])
	}
	buckets := snap.Histograms[MetricInvokeLatency]
	if len(buckets) != histBucketCount || buckets[0] != 1 || buckets[histBucketCount-1] != 1 {
		t.Fatalf("unexpected buckets %v", buckets)
	}
	if _, ok := snap.Histograms[MetricLoginSuccess]; ok {
		t.Fatal("only invoke latency carries a histogram")
	}
}

func TestBucketIndexBoundaries(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{5 * time.Millisecond, 0},
		{6 * time.Millisecond, 1},
		{25 * time.Millisecond, 2},
		{100 * time.Millisecond, 4},
		{500 * time.Millisecond, 6},
		{time.Second, 7},
	}
	for _, tc := range cases {
		if got := bucketIndex(tc.d); got != tc.want {
			t.Fatalf("bucketIndex(%v) = %d, want %d", tc.d, got, tc.want)
		}
	}
}

func TestEngineMetricsTrackFlows(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.EnableLatencyHistograms = true
	f := newTestEngine(t, cfg)
	ctx := context.Background()

	res := f.login(t, "bob")
	if _, err := f.engine.Invoke(ctx, res.SessionID, InvokeRequest{Area: "sales", Object: "orders", Method: "list"}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	_, _ = f.engine.Login(ctx, "", "alice", "wrong-pass")

	snap := f.engine.MetricsSnapshot()
	want := map[MetricID]uint64{
		MetricLoginSuccess:    1,
		MetricLoginFailure:    1,
		MetricSessionCreated:  1,
		MetricProfileSelected: 1,
		MetricInvokeSuccess:   1,
	}
	for id, n := range want {
		if snap.Counters[id] != n {
			t.Fatalf("metric %d = %d, want %d", id, snap.Counters[id], n)
		}
	}
	var observed uint64
	for _, n := range snap.Histograms[MetricInvokeLatency] {
		observed += n
	}
	if observed != 1 {
		t.Fatalf("expected one latency observation, got %d", observed)
	}
}
