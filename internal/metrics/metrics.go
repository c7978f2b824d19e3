// Package metrics aggregates registration attempt outcomes for the stats
// endpoint.
package metrics

import (
	"context"
	"time"
)

const (
	// SampleSize caps how many processing-time samples are retained.
	SampleSize = 100
	// RecentSamples is how many raw samples PerformanceMetrics reports.
	RecentSamples = 5
)

// Entry describes one registration attempt.
type Entry struct {
	Timestamp time.Time
	Duration  time.Duration
	Success   bool
	ErrorType string
	ErrorCode string
	Category  string
	ClientKey string
}

// SystemMetrics are the global attempt counters.
type SystemMetrics struct {
	TotalRequests      int64   `json:"totalRequests"`
	SuccessfulRequests int64   `json:"successfulRequests"`
	FailedRequests     int64   `json:"failedRequests"`
	SuccessRate        float64 `json:"successRate"`
}

// PerformanceMetrics summarizes retained processing-time samples in
// milliseconds.
type PerformanceMetrics struct {
	AverageProcessingTime float64   `json:"averageProcessingTime"`
	RecentProcessingTimes []float64 `json:"recentProcessingTimes"`
	SampleCount           int       `json:"sampleCount"`
}

// Snapshot is a point-in-time copy of every aggregate.
type Snapshot struct {
	System      SystemMetrics      `json:"system"`
	Errors      map[string]int64   `json:"errors"`
	Categories  map[string]int64   `json:"categories"`
	Performance PerformanceMetrics `json:"performance"`
	Timestamp   time.Time          `json:"timestamp"`
}

// Recorder folds entries into aggregates.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	Snapshot(ctx context.Context) (Snapshot, error)
}

func successRate(success, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(success) / float64(total) * 100
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// performance computes the summary from samples ordered oldest first.
func performance(samples []float64) PerformanceMetrics {
	p := PerformanceMetrics{
		RecentProcessingTimes: []float64{},
		SampleCount:           len(samples),
	}
	if len(samples) == 0 {
		return p
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	p.AverageProcessingTime = sum / float64(len(samples))

	from := len(samples) - RecentSamples
	if from < 0 {
		from = 0
	}
	p.RecentProcessingTimes = append(p.RecentProcessingTimes, samples[from:]...)
	return p
}

func errorKey(e Entry) string {
	if e.ErrorType == "" {
		return "unknown"
	}
	return e.ErrorType
}
