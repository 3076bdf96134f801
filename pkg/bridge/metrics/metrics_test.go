package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersCollectors(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CallsPlaced.WithLabelValues("ok").Inc()
	m.ActiveBridges.Inc()
	m.SessionOpens.WithLabelValues("grok-4-realtime", "ok").Add(3)

	if got := testutil.ToFloat64(m.CallsPlaced.WithLabelValues("ok")); got != 1 {
		t.Errorf("calls_placed_total{result=ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ActiveBridges); got != 1 {
		t.Errorf("active_bridges = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SessionOpens.WithLabelValues("grok-4-realtime", "ok")); got != 3 {
		t.Errorf("session_opens_total = %v, want 3", got)
	}
}

func TestIndependentRegistries(t *testing.T) {
	t.Parallel()
	// Two instances must not collide, so handlers can be tested in parallel.
	a := New(prometheus.NewRegistry())
	b := New(prometheus.NewRegistry())
	a.ModelFallbacks.Inc()
	if got := testutil.ToFloat64(b.ModelFallbacks); got != 0 {
		t.Errorf("second registry saw %v fallbacks, want 0", got)
	}
}
