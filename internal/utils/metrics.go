// internal/utils/metrics.go
package utils

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MetricsCollector collects application metrics
type MetricsCollector struct {
	counters   map[string]*int64
	gauges     map[string]*int64
	histograms map[string]*Histogram

	mu sync.RWMutex
}

// Histogram tracks count, sum, min and max of recorded values
type Histogram struct {
	count int64
	sum   int64
	min   int64
	max   int64
	mu    sync.Mutex
}

var (
	globalMetrics *MetricsCollector
	metricsOnce   sync.Once
)

// NewMetricsCollector creates an empty collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:   make(map[string]*int64),
		gauges:     make(map[string]*int64),
		histograms: make(map[string]*Histogram),
	}
}

// GetMetricsCollector returns the global metrics collector
func GetMetricsCollector() *MetricsCollector {
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsCollector()
	})
	return globalMetrics
}

// value returns the slot for name in set, creating it on first use
func (m *MetricsCollector) value(set map[string]*int64, name string) *int64 {
	m.mu.RLock()
	v, exists := set[name]
	m.mu.RUnlock()
	if exists {
		return v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if v, exists = set[name]; !exists {
		v = new(int64)
		set[name] = v
	}
	return v
}

// IncrementCounter increments a counter metric
func (m *MetricsCollector) IncrementCounter(name string) {
	m.AddCounter(name, 1)
}

// AddCounter adds a value to a counter metric
func (m *MetricsCollector) AddCounter(name string, value int64) {
	atomic.AddInt64(m.value(m.counters, name), value)
}

// GetCounterValue gets the current value of a counter
func (m *MetricsCollector) GetCounterValue(name string) int64 {
	return atomic.LoadInt64(m.value(m.counters, name))
}

// SetGauge sets a gauge metric
func (m *MetricsCollector) SetGauge(name string, value int64) {
	atomic.StoreInt64(m.value(m.gauges, name), value)
}

// GetGauge gets the current value of a gauge
func (m *MetricsCollector) GetGauge(name string) int64 {
	return atomic.LoadInt64(m.value(m.gauges, name))
}

// RecordHistogram records a value in a histogram
func (m *MetricsCollector) RecordHistogram(name string, value int64) {
	m.mu.RLock()
	histogram, exists := m.histograms[name]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		histogram, exists = m.histograms[name]
		if !exists {
			histogram = &Histogram{min: value, max: value}
			m.histograms[name] = histogram
		}
		m.mu.Unlock()
	}

	histogram.mu.Lock()
	defer histogram.mu.Unlock()

	histogram.count++
	histogram.sum += value
	if value < histogram.min {
		histogram.min = value
	}
	if value > histogram.max {
		histogram.max = value
	}
}

// GetMetrics returns a snapshot of all metrics
func (m *MetricsCollector) GetMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counters := make(map[string]int64, len(m.counters))
	for name, v := range m.counters {
		counters[name] = atomic.LoadInt64(v)
	}

	gauges := make(map[string]int64, len(m.gauges))
	for name, v := range m.gauges {
		gauges[name] = atomic.LoadInt64(v)
	}

	histograms := make(map[string]map[string]int64, len(m.histograms))
	for name, histogram := range m.histograms {
		histogram.mu.Lock()
		histograms[name] = map[string]int64{
			"count": histogram.count,
			"sum":   histogram.sum,
			"min":   histogram.min,
			"max":   histogram.max,
		}
		histogram.mu.Unlock()
	}

	return map[string]interface{}{
		"counters":   counters,
		"gauges":     gauges,
		"histograms": histograms,
	}
}

// APIMetrics records request and wizard metrics on a collector
type APIMetrics struct {
	metrics *MetricsCollector
	logger  *Logger
}

// NewAPIMetrics creates API metrics backed by collector
func NewAPIMetrics(collector *MetricsCollector, logger *Logger) *APIMetrics {
	if collector == nil {
		collector = GetMetricsCollector()
	}
	if logger == nil {
		logger = GetLogger()
	}
	return &APIMetrics{metrics: collector, logger: logger}
}

// Collector returns the underlying collector
func (am *APIMetrics) Collector() *MetricsCollector {
	return am.metrics
}

// RecordAPIRequest records metrics for a completed request
func (am *APIMetrics) RecordAPIRequest(endpoint, method string, statusCode int, duration time.Duration) {
	am.metrics.IncrementCounter("api_requests_total")
	am.metrics.IncrementCounter("api_requests_" + method + "_" + endpoint)
	am.metrics.IncrementCounter(fmt.Sprintf("api_responses_%dxx", statusCode/100))
	am.metrics.RecordHistogram("api_response_time_ms", duration.Milliseconds())

	am.logger.Debug("API request completed", map[string]interface{}{
		"endpoint": endpoint,
		"method":   method,
		"status":   statusCode,
		"duration": duration.Milliseconds(),
	})
}

// RecordWizardAction counts a wizard operation such as advance or generate_images
func (am *APIMetrics) RecordWizardAction(action string) {
	am.metrics.IncrementCounter("wizard_actions_total")
	am.metrics.IncrementCounter("wizard_actions_" + action)
}

// RecordError records an error metric
func (am *APIMetrics) RecordError(errorCode, component string) {
	am.metrics.IncrementCounter("errors_total")
	am.metrics.IncrementCounter("errors_" + errorCode)

	am.logger.Warn("Error recorded", map[string]interface{}{
		"code":      errorCode,
		"component": component,
	})
}
