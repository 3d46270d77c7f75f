package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goGate "github.com/MrEthical07/goGate"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot goGate.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goGate.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                    { return f.dropped }

func TestCollectOnlyAuditDropWhenMetricsDisabled(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goGate.MetricsSnapshot{
			Counters:   map[goGate.MetricID]uint64{},
			Histograms: map[goGate.MetricID][]uint64{},
		},
	})

	if n := testutil.CollectAndCount(exp); n != 1 {
		t.Fatalf("expected only the audit drop counter, got %d metrics", n)
	}
}

func TestCollectCountersAndHistogram(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goGate.MetricsSnapshot{
			Counters: map[goGate.MetricID]uint64{
				goGate.MetricLoginSuccess: 7,
			},
			Histograms: map[goGate.MetricID][]uint64{
				goGate.MetricInvokeLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	expected := `
# HELP gogate_login_success_total Successful logins.
# TYPE gogate_login_success_total counter
gogate_login_success_total 7
# HELP gogate_audit_dropped_total Dropped audit events due to dispatcher backpressure.
# TYPE gogate_audit_dropped_total counter
gogate_audit_dropped_total 2
`
	if err := testutil.CollectAndCompare(exp, strings.NewReader(expected),
		"gogate_login_success_total", "gogate_audit_dropped_total"); err != nil {
		t.Fatalf("unexpected counters: %v", err)
	}

	histogram := `
# HELP gogate_invoke_latency_seconds Operation dispatch latency.
# TYPE gogate_invoke_latency_seconds histogram
gogate_invoke_latency_seconds_bucket{le="0.005"} 1
gogate_invoke_latency_seconds_bucket{le="0.01"} 3
gogate_invoke_latency_seconds_bucket{le="0.025"} 6
gogate_invoke_latency_seconds_bucket{le="0.05"} 10
gogate_invoke_latency_seconds_bucket{le="0.1"} 15
gogate_invoke_latency_seconds_bucket{le="0.25"} 21
gogate_invoke_latency_seconds_bucket{le="0.5"} 28
gogate_invoke_latency_seconds_bucket{le="+Inf"} 36
gogate_invoke_latency_seconds_sum 0
gogate_invoke_latency_seconds_count 36
`
	if err := testutil.CollectAndCompare(exp, strings.NewReader(histogram), "gogate_invoke_latency_seconds"); err != nil {
		t.Fatalf("unexpected histogram: %v", err)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goGate.MetricsSnapshot{
			Counters:   map[goGate.MetricID]uint64{goGate.MetricLoginSuccess: 1},
			Histograms: map[goGate.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "gogate_login_success_total 1") {
		t.Fatalf("expected login counter in body, got:\n%s", rec.Body.String())
	}
}

func BenchmarkCollect(b *testing.B) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goGate.MetricsSnapshot{
			Counters: map[goGate.MetricID]uint64{
				goGate.MetricLoginSuccess:   1000,
				goGate.MetricLoginFailure:   40,
				goGate.MetricSessionCreated: 800,
				goGate.MetricInvokeSuccess:  5000,
			},
			Histograms: map[goGate.MetricID][]uint64{
				goGate.MetricInvokeLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = testutil.CollectAndCount(exp)
	}
}
