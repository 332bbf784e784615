package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_IndependentRegistries(t *testing.T) {
	// Two collectors with the same namespace must not collide.
	a := NewCollectorWithRegistry("test", prometheus.NewRegistry())
	b := NewCollectorWithRegistry("test", prometheus.NewRegistry())

	a.RecordFileOutcome("ok")
	a.RecordFileOutcome("ok")
	b.RecordFileOutcome("ok")

	if got := testutil.ToFloat64(a.FilesProcessedTotal.WithLabelValues("ok")); got != 2 {
		t.Errorf("a ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(b.FilesProcessedTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("b ok = %v, want 1", got)
	}
}

func TestCollector_RecordRowsIgnoresNonPositive(t *testing.T) {
	c := NewCollectorWithRegistry("test", prometheus.NewRegistry())

	c.RecordRows("read", 10)
	c.RecordRows("read", 0)
	c.RecordRows("read", -3)

	if got := testutil.ToFloat64(c.RowsTotal.WithLabelValues("read")); got != 10 {
		t.Errorf("read = %v, want 10", got)
	}
}

func TestTimer_ObserveDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectorWithRegistry("test", reg)

	timer := c.NewTimer(c.MergeDuration)
	if d := timer.ObserveDuration(); d < 0 {
		t.Errorf("duration = %v, want >= 0", d)
	}

	if got := testutil.CollectAndCount(c.MergeDuration); got != 1 {
		t.Errorf("histogram series = %d, want 1", got)
	}
}
