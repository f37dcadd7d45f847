package utils

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsCollectorCounters(t *testing.T) {
	m := NewMetricsCollector()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncrementCounter("hits")
		}()
	}
	wg.Wait()
	m.AddCounter("hits", 5)

	assert.Equal(t, int64(105), m.GetCounterValue("hits"))
	assert.Equal(t, int64(0), m.GetCounterValue("missing"))
}

func TestMetricsCollectorGaugesAndHistograms(t *testing.T) {
	m := NewMetricsCollector()
	m.SetGauge("sessions", 3)
	m.RecordHistogram("latency", 10)
	m.RecordHistogram("latency", 2)
	m.RecordHistogram("latency", 30)

	snapshot := m.GetMetrics()

	assert.Equal(t, int64(3), snapshot["gauges"].(map[string]int64)["sessions"])
	latency := snapshot["histograms"].(map[string]map[string]int64)["latency"]
	assert.Equal(t, map[string]int64{"count": 3, "sum": 42, "min": 2, "max": 30}, latency)
}

func TestAPIMetricsRecordRequest(t *testing.T) {
	m := NewMetricsCollector()
	am := NewAPIMetrics(m, NewLogger(io.Discard, ERROR))

	am.RecordAPIRequest("/api/sessions", "POST", 201, 3*time.Millisecond)
	am.RecordAPIRequest("/api/sessions/:id", "GET", 404, time.Millisecond)
	am.RecordWizardAction("advance")

	assert.Equal(t, int64(2), m.GetCounterValue("api_requests_total"))
	assert.Equal(t, int64(1), m.GetCounterValue("api_responses_2xx"))
	assert.Equal(t, int64(1), m.GetCounterValue("api_responses_4xx"))
	assert.Equal(t, int64(1), m.GetCounterValue("wizard_actions_advance"))
}
