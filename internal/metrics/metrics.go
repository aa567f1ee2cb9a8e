package metrics

import (
    "sync"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
)

var (
    // Registry is the dedicated Prometheus registry for the API
    Registry = prometheus.NewRegistry()
    // HTTPRequests counts requests by method, path, and status
    HTTPRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
        []string{"method", "path", "status"},
    )
    // HTTPDuration records request durations in seconds
    HTTPDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
        []string{"method", "path", "status"},
    )
    // RateLimited counts requests rejected by the per-tenant limiter
    RateLimited = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "http_rate_limited_total", Help: "Requests rejected by the rate limiter."},
        []string{"path"},
    )

    // OptimizerRuns counts optimization runs by outcome
    OptimizerRuns = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "optimizer_runs_total", Help: "Optimization runs by status."},
        []string{"status"},
    )
    // OptimizerDuration records wall time per run in seconds
    OptimizerDuration = prometheus.NewHistogram(
        prometheus.HistogramOpts{Name: "optimizer_run_duration_seconds", Help: "Optimization run duration in seconds.", Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60}},
    )
    // OptimizerEvaluations counts fitness evaluations
    OptimizerEvaluations = prometheus.NewCounter(
        prometheus.CounterOpts{Name: "optimizer_fitness_evaluations_total", Help: "Fitness evaluations performed."},
    )
    // OptimizerBestFitness is the best score of the last finished run
    OptimizerBestFitness = prometheus.NewGauge(
        prometheus.GaugeOpts{Name: "optimizer_best_fitness", Help: "Best fitness of the most recent run."},
    )
    // PathSearches counts point-to-point searches by result (found, none)
    PathSearches = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "path_searches_total", Help: "A* path searches by result."},
        []string{"result"},
    )

    // WebhookDeliveries counts webhook delivery outcomes by event type and status
    WebhookDeliveries = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
        []string{"event_type", "status"},
    )
    // WebhookLatency tracks webhook delivery latencies in milliseconds
    WebhookLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
        []string{"event_type", "status"},
    )
)

// RegisterDefault registers collectors to the API registry. Safe to call more than once.
func RegisterDefault() {
    regOnce.Do(func(){
        Registry.MustRegister(HTTPRequests, HTTPDuration, RateLimited)
        Registry.MustRegister(OptimizerRuns, OptimizerDuration, OptimizerEvaluations, OptimizerBestFitness, PathSearches)
        Registry.MustRegister(WebhookDeliveries, WebhookLatency)
        // Go/process collectors on our registry
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}

var regOnce sync.Once
