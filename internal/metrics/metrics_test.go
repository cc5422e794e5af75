package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register should tolerate duplicates: %v", err)
	}
}

func TestObserveFetchNormalisesOutcome(t *testing.T) {
	before := testutil.ToFloat64(fetchesTotal.WithLabelValues("calls-test", OutcomeSuccess))
	ObserveFetch("calls-test", 10*time.Millisecond, "weird")
	ObserveFetch("calls-test", -time.Second, OutcomeSuccess)
	after := testutil.ToFloat64(fetchesTotal.WithLabelValues("calls-test", OutcomeSuccess))
	if after-before != 2 {
		t.Fatalf("expected two success observations, got %v", after-before)
	}

	ObserveFetch("calls-test", time.Millisecond, OutcomeStale)
	if got := testutil.ToFloat64(fetchesTotal.WithLabelValues("calls-test", OutcomeStale)); got < 1 {
		t.Fatalf("expected stale outcome to be recorded, got %v", got)
	}
}
