package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	m := &dto.Metric{}
	if err := (<-ch).Write(m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestRecordRequestIncrementsCounterAndHistogram(t *testing.T) {
	r := New(Config{Namespace: "test_req", Subsystem: "engine"})

	r.RecordRequest("jobs_fixture", "http", 200, 150*time.Millisecond)
	r.RecordRequest("jobs_fixture", "http", 200, 200*time.Millisecond)

	got := counterValue(t, r.requestsTotal.WithLabelValues("jobs_fixture", "http", "200"))
	if got != 2 {
		t.Errorf("requestsTotal = %v, want 2", got)
	}
}

func TestRecordItemDroppedLabelsByReason(t *testing.T) {
	r := New(Config{Namespace: "test_drop", Subsystem: "engine"})

	r.RecordItemDropped("jobs_fixture", "below_min_text_len")
	r.RecordItemDropped("jobs_fixture", "below_min_text_len")
	r.RecordItemDropped("jobs_fixture", "duplicate_content")

	if got := counterValue(t, r.itemsDropped.WithLabelValues("jobs_fixture", "below_min_text_len")); got != 2 {
		t.Errorf("below_min_text_len = %v, want 2", got)
	}
	if got := counterValue(t, r.itemsDropped.WithLabelValues("jobs_fixture", "duplicate_content")); got != 1 {
		t.Errorf("duplicate_content = %v, want 1", got)
	}
}

func TestSetCircuitBreakerStateIsGauge(t *testing.T) {
	r := New(Config{Namespace: "test_cb", Subsystem: "engine"})

	r.SetCircuitBreakerState("jobs_fixture", 2)

	ch := make(chan prometheus.Metric, 1)
	r.circuitBreakerState.WithLabelValues("jobs_fixture").Collect(ch)
	m := &dto.Metric{}
	if err := (<-ch).Write(m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := m.GetGauge().GetValue(); got != 2 {
		t.Errorf("circuitBreakerState = %v, want 2", got)
	}
}
