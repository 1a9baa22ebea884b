package goSession

import (
	"testing"
	"time"
)

// Metric updates made by one Evaluate call, per outcome. Mixes with more than
// one counter went through the refresher.
var evaluateMetricMixes = map[string][]MetricID{
	"serve":     {MetricGuardServe},
	"bypass":    {MetricGuardBypass},
	"refreshed": {MetricRefreshSuccess, MetricGuardRefreshed},
	"coalesced": {MetricRefreshCoalesced, MetricGuardRefreshed},
	"redirect":  {MetricRefreshFailure, MetricGuardRedirect, MetricRedirectRefreshFailed},
}

func recordEvaluate(m *Metrics, ids []MetricID, refreshed bool) {
	for _, id := range ids {
		m.Inc(id)
	}
	if refreshed {
		m.Observe(MetricRefreshLatency, 40*time.Millisecond)
	}
	m.Observe(MetricEvaluateLatency, 2*time.Millisecond)
}

func BenchmarkMetricsEvaluateMix(b *testing.B) {
	for name, ids := range evaluateMetricMixes {
		refreshed := len(ids) > 1
		b.Run(name, func(b *testing.B) {
			m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				recordEvaluate(m, ids, refreshed)
			}
		})
	}
}

func BenchmarkMetricsEvaluateMixDisabled(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	ids := evaluateMetricMixes["refreshed"]
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		recordEvaluate(m, ids, true)
	}
}

// BenchmarkMetricsEvaluateMixParallel spreads a production-like outcome mix
// (mostly served, some bypassed, few refreshes) over all CPUs.
func BenchmarkMetricsEvaluateMixParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	weighted := [...]string{"serve", "serve", "serve", "serve", "bypass", "bypass", "refreshed", "redirect"}
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			ids := evaluateMetricMixes[weighted[i%len(weighted)]]
			recordEvaluate(m, ids, len(ids) > 1)
			i++
		}
	})
}
