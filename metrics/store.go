package metrics

import (
	"sync"
	"time"
)

// DefaultHistorySize is how many recent samples the store retains.
const DefaultHistorySize = 1000

// Store accumulates request samples and the latest GPU snapshot. All
// methods are safe for concurrent use. The recent-sample history is a
// fixed-size ring; aggregates cover the full process lifetime.
type Store struct {
	mu sync.RWMutex

	startTime time.Time

	// Ring buffer of recent samples.
	recent []Sample
	head   int
	size   int

	// Lifetime aggregates.
	totalRequests  int64
	totalSuccess   int64
	totalErrors    int64
	imagesProduced int64
	byOperation    map[string]*opAccumulator

	gpu    GPUMetrics
	gpuSet bool
}

type opAccumulator struct {
	count         int64
	success       int64
	totalDuration time.Duration
}

// NewStore creates a Store retaining historySize recent samples.
// historySize values below 1 fall back to DefaultHistorySize.
func NewStore(historySize int) *Store {
	if historySize < 1 {
		historySize = DefaultHistorySize
	}
	return &Store{
		startTime:   time.Now(),
		recent:      make([]Sample, historySize),
		byOperation: make(map[string]*opAccumulator),
	}
}

// Record adds a completed request sample.
func (s *Store) Record(sample Sample) {
	if sample.CompletedAt.IsZero() {
		sample.CompletedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.recent[s.head] = sample
	s.head = (s.head + 1) % len(s.recent)
	if s.size < len(s.recent) {
		s.size++
	}

	s.totalRequests++
	if sample.Status == StatusSuccess {
		s.totalSuccess++
		s.imagesProduced += int64(sample.BatchSize)
	} else {
		s.totalErrors++
	}

	acc := s.byOperation[sample.Operation]
	if acc == nil {
		acc = &opAccumulator{}
		s.byOperation[sample.Operation] = acc
	}
	acc.count++
	if sample.Status == StatusSuccess {
		acc.success++
	}
	acc.totalDuration += sample.Duration
}

// UpdateGPU stores the latest GPU snapshot.
func (s *Store) UpdateGPU(gpu GPUMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gpu = gpu
	s.gpuSet = true
}

// Snapshot returns the aggregated statistics.
func (s *Store) Snapshot() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		TotalRequests:  s.totalRequests,
		TotalSuccess:   s.totalSuccess,
		TotalErrors:    s.totalErrors,
		ImagesProduced: s.imagesProduced,
		ByOperation:    make(map[string]*OperationStats, len(s.byOperation)),
		Uptime:         time.Since(s.startTime),
	}

	for op, acc := range s.byOperation {
		entry := &OperationStats{Count: acc.count}
		if acc.count > 0 {
			entry.SuccessRate = float64(acc.success) / float64(acc.count) * 100
			entry.AvgDuration = acc.totalDuration / time.Duration(acc.count)
		}
		stats.ByOperation[op] = entry
	}

	if s.gpuSet {
		gpu := s.gpu
		stats.GPU = &gpu
	}
	return stats
}

// Recent returns up to limit samples, newest first.
func (s *Store) Recent(limit int) []Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > s.size {
		limit = s.size
	}

	out := make([]Sample, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (s.head - 1 - i + len(s.recent)) % len(s.recent)
		out = append(out, s.recent[idx])
	}
	return out
}
