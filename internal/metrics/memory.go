package metrics

import (
	"context"
	"sync"
	"time"
)

// MemoryRecorder keeps aggregates in process memory. Counters reset on
// restart and are not shared between instances.
type MemoryRecorder struct {
	mu sync.RWMutex

	total   int64
	success int64
	failed  int64

	errors     map[string]int64
	categories map[string]int64

	// samples is a ring buffer; next is the slot the next sample goes to.
	samples []float64
	next    int
	full    bool

	now func() time.Time
}

// NewMemoryRecorder constructs an empty MemoryRecorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{
		errors:     make(map[string]int64),
		categories: make(map[string]int64),
		samples:    make([]float64, SampleSize),
		now:        time.Now,
	}
}

// Record implements Recorder. It never fails.
func (m *MemoryRecorder) Record(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	if e.Success {
		m.success++
		if e.Category != "" {
			m.categories[e.Category]++
		}
	} else {
		m.failed++
		m.errors[errorKey(e)]++
	}

	m.samples[m.next] = millis(e.Duration)
	m.next = (m.next + 1) % len(m.samples)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// SystemMetrics returns the global counters.
func (m *MemoryRecorder) SystemMetrics() SystemMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.system()
}

// ErrorBreakdown returns failure counts per error type.
func (m *MemoryRecorder) ErrorBreakdown() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyCounts(m.errors)
}

// CategoryBreakdown returns success counts per main category.
func (m *MemoryRecorder) CategoryBreakdown() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyCounts(m.categories)
}

// PerformanceMetrics returns the mean of retained samples and the latest few.
func (m *MemoryRecorder) PerformanceMetrics() PerformanceMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return performance(m.ordered())
}

// Snapshot implements Recorder. All parts are read under one lock, so
// the counters and breakdowns agree with each other.
func (m *MemoryRecorder) Snapshot(_ context.Context) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		System:      m.system(),
		Errors:      copyCounts(m.errors),
		Categories:  copyCounts(m.categories),
		Performance: performance(m.ordered()),
		Timestamp:   m.now().UTC(),
	}, nil
}

// system builds the counters. Caller holds mu.
func (m *MemoryRecorder) system() SystemMetrics {
	return SystemMetrics{
		TotalRequests:      m.total,
		SuccessfulRequests: m.success,
		FailedRequests:     m.failed,
		SuccessRate:        successRate(m.success, m.total),
	}
}

// ordered returns retained samples oldest first. Caller holds mu.
func (m *MemoryRecorder) ordered() []float64 {
	if !m.full {
		out := make([]float64, m.next)
		copy(out, m.samples[:m.next])
		return out
	}
	out := make([]float64, 0, len(m.samples))
	out = append(out, m.samples[m.next:]...)
	return append(out, m.samples[:m.next]...)
}

func copyCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
