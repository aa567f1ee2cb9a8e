package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterDefaultIdempotent(t *testing.T) {
	RegisterDefault()
	RegisterDefault()
	OptimizerRuns.WithLabelValues("completed").Inc()
	if got := testutil.ToFloat64(OptimizerRuns.WithLabelValues("completed")); got < 1 {
		t.Fatalf("counter not incremented: %v", got)
	}
	n, err := testutil.GatherAndCount(Registry, "optimizer_runs_total")
	if err != nil || n == 0 {
		t.Fatalf("optimizer_runs_total not gathered: n=%d err=%v", n, err)
	}
}
