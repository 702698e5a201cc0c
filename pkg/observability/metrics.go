package observability

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// Metric names recorded by keystone.
const (
	MetricUoWFlush         = "uow.flush"
	MetricUoWFlushFailed   = "uow.flush.failed"
	MetricUoWFlushDuration = "uow.flush.duration"

	MetricRepositoryLoad     = "repository.load"
	MetricRepositoryCacheHit = "repository.cache_hit"
	MetricRepositoryFlush    = "repository.flush"

	MetricEventsReleased = "events.released"

	MetricStorageBreakerState = "storage.breaker.state"

	MetricOperationDuration = "operation.duration"
	MetricOperationTotal    = "operation.total"
	MetricOperationErrors   = "operation.errors"
)

// Metrics records application metrics.
type Metrics interface {
	Counter(name string, value int64, tags ...Tag)
	Gauge(name string, value float64, tags ...Tag)
	Timing(name string, duration time.Duration, tags ...Tag)
}

// Tag is a key-value label on a metric.
type Tag struct {
	Key   string
	Value string
}

// T creates a new Tag.
func T(key, value string) Tag {
	return Tag{Key: key, Value: value}
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) Counter(string, int64, ...Tag)        {}
func (NoopMetrics) Gauge(string, float64, ...Tag)        {}
func (NoopMetrics) Timing(string, time.Duration, ...Tag) {}

// InMemoryMetrics keeps metrics in memory. The CLI prints its counters and
// tests assert on them.
type InMemoryMetrics struct {
	mu       sync.RWMutex
	counters map[string]int64
	gauges   map[string]float64
	timings  map[string][]time.Duration
}

// NewInMemoryMetrics creates an empty collector.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		counters: make(map[string]int64),
		gauges:   make(map[string]float64),
		timings:  make(map[string][]time.Duration),
	}
}

func (m *InMemoryMetrics) Counter(name string, value int64, tags ...Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[seriesKey(name, tags)] += value
}

func (m *InMemoryMetrics) Gauge(name string, value float64, tags ...Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[seriesKey(name, tags)] = value
}

func (m *InMemoryMetrics) Timing(name string, duration time.Duration, tags ...Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := seriesKey(name, tags)
	m.timings[key] = append(m.timings[key], duration)
}

// GetCounter returns the current value of a counter.
func (m *InMemoryMetrics) GetCounter(name string, tags ...Tag) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[seriesKey(name, tags)]
}

// GetGauge returns the current value of a gauge.
func (m *InMemoryMetrics) GetGauge(name string, tags ...Tag) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gauges[seriesKey(name, tags)]
}

// GetTimings returns all recorded timings.
func (m *InMemoryMetrics) GetTimings(name string, tags ...Tag) []time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.timings[seriesKey(name, tags)])
}

// CounterSeries is one counter with its tags folded into Key.
type CounterSeries struct {
	Key   string
	Value int64
}

// Counters returns every counter sorted by key.
func (m *InMemoryMetrics) Counters() []CounterSeries {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]CounterSeries, 0, len(m.counters))
	for key, value := range m.counters {
		out = append(out, CounterSeries{Key: key, Value: value})
	}
	slices.SortFunc(out, func(a, b CounterSeries) int { return strings.Compare(a.Key, b.Key) })
	return out
}

// seriesKey renders name{k=v,...} with tags sorted by key, so the order in
// which callers pass tags does not split a series.
func seriesKey(name string, tags []Tag) string {
	if len(tags) == 0 {
		return name
	}
	sorted := slices.Clone(tags)
	slices.SortFunc(sorted, func(a, b Tag) int { return strings.Compare(a.Key, b.Key) })

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, t := range sorted {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(t.Key)
		b.WriteByte('=')
		b.WriteString(t.Value)
	}
	b.WriteByte('}')
	return b.String()
}
