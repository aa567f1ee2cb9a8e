package opt

import "sync"

// maxRunsPerScenario bounds the in-process history kept per scenario.
const maxRunsPerScenario = 100

type scenarioKey struct {
    tenant, scenario string
}

type runMetrics struct {
    runID string
    m     Metrics
}

var (
    metricsMu  sync.Mutex
    runHistory = map[scenarioKey][]runMetrics{}
)

// RecordMetrics keeps the metrics of a run in process memory. Re-recording a
// run replaces its entry; beyond maxRunsPerScenario the oldest run is dropped.
func RecordMetrics(tenant, scenarioID, runID string, m Metrics) {
    k := scenarioKey{tenant, scenarioID}
    metricsMu.Lock()
    defer metricsMu.Unlock()
    h := runHistory[k]
    for i := range h {
        if h[i].runID == runID {
            h[i].m = m
            return
        }
    }
    h = append(h, runMetrics{runID, m})
    if len(h) > maxRunsPerScenario {
        h = append(h[:0:0], h[len(h)-maxRunsPerScenario:]...)
    }
    runHistory[k] = h
}

// GetMetrics returns the recorded metrics of every run of a scenario, by run id.
func GetMetrics(tenant, scenarioID string) map[string]Metrics {
    metricsMu.Lock()
    defer metricsMu.Unlock()
    h := runHistory[scenarioKey{tenant, scenarioID}]
    out := make(map[string]Metrics, len(h))
    for _, r := range h {
        out[r.runID] = r.m
    }
    return out
}
