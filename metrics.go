package goSession

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one counter or histogram.
type MetricID uint16

const (
	// MetricGuardBypass counts requests on bypassed paths.
	MetricGuardBypass MetricID = iota
	// MetricGuardUnprotected counts requests outside protected prefixes.
	MetricGuardUnprotected
	// MetricGuardServe counts protected requests served with the existing access token.
	MetricGuardServe
	// MetricGuardRefreshed counts protected requests served after a refresh.
	MetricGuardRefreshed
	// MetricGuardRedirect counts protected requests sent to login.
	MetricGuardRedirect
	MetricRedirectNoTokens
	MetricRedirectNoRefreshToken
	MetricRedirectRefreshFailed
	// MetricRefreshSuccess counts successful refresh calls made by this process.
	MetricRefreshSuccess
	MetricRefreshFailure
	// MetricRefreshCoalesced counts refreshes that joined an in-flight call.
	MetricRefreshCoalesced
	// MetricRefreshGraceHit counts refreshes answered from the grace window.
	MetricRefreshGraceHit
	MetricRefreshThrottled
	MetricThrottleUnavailable
	// MetricDecodeFailure counts access tokens that could not be decoded.
	MetricDecodeFailure
	MetricUserCacheFailure
	// MetricSyncPass counts agent reconciliation passes.
	MetricSyncPass
	// MetricRotationCaptured counts token pairs captured from response headers.
	MetricRotationCaptured
	MetricStorageWriteFailure
	MetricJarWriteFailure
	// MetricUnauthorizedReplay counts requests replayed after a 401-driven refresh.
	MetricUnauthorizedReplay
	MetricLogin
	MetricLogout
	MetricOnboardingRedirect
	// MetricEvaluateLatency is the gate decision latency histogram.
	MetricEvaluateLatency
	// MetricRefreshLatency is the upstream refresh latency histogram.
	MetricRefreshLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a set of lock-free counters and latency histograms.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in histogram id. Counter IDs are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || !isHistogram(id) {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when latency is enabled, every histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 2),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if isHistogram(id) {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for _, id := range []MetricID{MetricEvaluateLatency, MetricRefreshLatency} {
			buckets := make([]uint64, histBucketCount)
			for i := 0; i < histBucketCount; i++ {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
		}
	}

	return s
}

func isHistogram(id MetricID) bool {
	return id == MetricEvaluateLatency || id == MetricRefreshLatency
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
