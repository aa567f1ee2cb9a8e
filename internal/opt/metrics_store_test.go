package opt

import (
    "fmt"
    "testing"
)

func TestMetricsStore_ScopedByScenario(t *testing.T) {
    RecordMetrics("t1", "s1", "r1", Metrics{Generations: 5})
    RecordMetrics("t1", "s1", "r2", Metrics{Generations: 7})
    RecordMetrics("t1", "s2", "r3", Metrics{Generations: 9})
    got := GetMetrics("t1", "s1")
    if len(got) != 2 { t.Fatalf("want 2 runs, got %d", len(got)) }
    if got["r2"].Generations != 7 { t.Fatalf("unexpected metrics: %+v", got["r2"]) }
    if len(GetMetrics("t2", "s1")) != 0 { t.Fatalf("tenant leak") }

    RecordMetrics("t1", "s1", "r2", Metrics{Generations: 8})
    got = GetMetrics("t1", "s1")
    if len(got) != 2 || got["r2"].Generations != 8 { t.Fatalf("re-record should replace: %+v", got) }
}

func TestMetricsStore_Bounded(t *testing.T) {
    for i := 0; i < maxRunsPerScenario+5; i++ {
        RecordMetrics("t9", "big", fmt.Sprintf("r%d", i), Metrics{Generations: i})
    }
    got := GetMetrics("t9", "big")
    if len(got) != maxRunsPerScenario { t.Fatalf("want %d runs, got %d", maxRunsPerScenario, len(got)) }
    if _, ok := got["r0"]; ok { t.Fatalf("oldest run should be evicted") }
    if got[fmt.Sprintf("r%d", maxRunsPerScenario+4)].Generations != maxRunsPerScenario+4 { t.Fatalf("newest run missing") }
}
