package performance

import (
	"sort"
	"sync"
	"time"
)

const maxLatencySamples = 10000

// LatencyTracker keeps the most recent latency samples and reports
// percentiles over them. It is safe for concurrent use.
type LatencyTracker struct {
	samples []time.Duration
	mu      sync.Mutex
}

// Percentiles summarizes a set of latency samples.
type Percentiles struct {
	P50   time.Duration `json:"p50_ns"`
	P95   time.Duration `json:"p95_ns"`
	P99   time.Duration `json:"p99_ns"`
	Max   time.Duration `json:"max_ns"`
	Count int           `json:"count"`
}

// NewLatencyTracker creates a latency tracker
func NewLatencyTracker() *LatencyTracker {
	return &LatencyTracker{
		samples: make([]time.Duration, 0, 1024),
	}
}

// Record records a latency sample
func (lt *LatencyTracker) Record(d time.Duration) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	lt.samples = append(lt.samples, d)

	// Keep the last maxLatencySamples samples
	if len(lt.samples) > maxLatencySamples {
		lt.samples = append(lt.samples[:0], lt.samples[len(lt.samples)-maxLatencySamples:]...)
	}
}

// Percentiles returns latency percentiles over the retained samples.
func (lt *LatencyTracker) Percentiles() Percentiles {
	lt.mu.Lock()
	sorted := make([]time.Duration, len(lt.samples))
	copy(sorted, lt.samples)
	lt.mu.Unlock()

	if len(sorted) == 0 {
		return Percentiles{}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return Percentiles{
		P50:   sorted[len(sorted)*50/100],
		P95:   sorted[len(sorted)*95/100],
		P99:   sorted[len(sorted)*99/100],
		Max:   sorted[len(sorted)-1],
		Count: len(sorted),
	}
}
