package observability

import (
	"sync"
)

// Metrics provides basic in-memory counters for sync activity.
type Metrics struct {
	mu               sync.Mutex
	fetchApplied     map[string]int64
	fetchDiscarded   map[string]int64
	mutationOK       map[string]int64
	mutationFailed   map[string]int64
	secondaryDegraded map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		fetchApplied:      make(map[string]int64),
		fetchDiscarded:    make(map[string]int64),
		mutationOK:        make(map[string]int64),
		mutationFailed:    make(map[string]int64),
		secondaryDegraded: make(map[string]int64),
	}
}

// RecordFetchApplied counts a fetch result applied to the store.
func (m *Metrics) RecordFetchApplied(slice string) {
	m.bump(&m.fetchApplied, slice)
}

// RecordFetchDiscarded counts a stale fetch result dropped by the
// sequence-number guard.
func (m *Metrics) RecordFetchDiscarded(slice string) {
	m.bump(&m.fetchDiscarded, slice)
}

// RecordMutation counts a mutation outcome by operation name.
func (m *Metrics) RecordMutation(op string, ok bool) {
	if ok {
		m.bump(&m.mutationOK, op)
		return
	}
	m.bump(&m.mutationFailed, op)
}

// RecordSecondaryDegraded counts a failed secondary effect by step name.
func (m *Metrics) RecordSecondaryDegraded(step string) {
	m.bump(&m.secondaryDegraded, step)
}

// FetchDiscarded returns the stale-discard count for a slice.
func (m *Metrics) FetchDiscarded(slice string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchDiscarded[slice]
}

// SecondaryDegraded returns the degraded count for a step.
func (m *Metrics) SecondaryDegraded(step string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.secondaryDegraded[step]
}

func (m *Metrics) bump(counters *map[string]int64, key string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	(*counters)[key]++
}
