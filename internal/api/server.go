// Package api implements the HTTP surface of the route planner.
package api

import (
    "context"
    "net/http"
    "sync"

    "github.com/prometheus/client_golang/prometheus/promhttp"
    "github.com/rs/zerolog"

    "dronenav/internal/auth"
    "dronenav/internal/config"
    "dronenav/internal/metrics"
    "dronenav/internal/store"
    "dronenav/internal/webhooks"
)

type Server struct {
    Store   store.Store
    Pub     *webhooks.Publisher
    Auth    *auth.Verifier
    Broker  EventBroker
    Limiter *TenantLimiter
    Log     zerolog.Logger

    cfg    config.Config
    runs   sync.WaitGroup
    ctx    context.Context // parent of async runs
    cancel context.CancelFunc
}

// NewServer wires a Server. A nil broker selects the in-process Broker.
func NewServer(cfg config.Config, st store.Store, broker EventBroker, log zerolog.Logger) *Server {
    if broker == nil { broker = NewBroker() }
    ctx, cancel := context.WithCancel(context.Background())
    metrics.RegisterDefault()
    return &Server{
        Store:   st,
        Pub:     webhooks.NewPublisher(st, log),
        Auth:    auth.NewVerifier(cfg.Auth),
        Broker:  broker,
        Limiter: NewTenantLimiter(cfg.Rate.RPS, cfg.Rate.Burst),
        Log:     log,
        cfg:     cfg,
        ctx:     ctx,
        cancel:  cancel,
    }
}

// Routes registers every endpoint on a new mux wrapped in the access log
// and metrics middleware.
func (s *Server) Routes() http.Handler {
    mux := http.NewServeMux()

    // Scenarios
    mux.HandleFunc("/v1/scenarios", s.ScenariosHandler)
    mux.HandleFunc("/v1/scenarios/", s.ScenarioByIDHandler) // includes /geojson

    // Optimization
    mux.Handle("/v1/optimize", s.Limiter.Middleware(http.HandlerFunc(s.OptimizeHandler), s.tenantOf))
    mux.HandleFunc("/v1/optimizer/config", s.OptimizerConfigHandler)
    mux.HandleFunc("/v1/admin/optimizer/config", s.AdminOptimizerConfigHandler)
    mux.HandleFunc("/v1/admin/run-metrics", s.RunMetricsHandler)

    // Runs
    mux.HandleFunc("/v1/runs", s.RunsIndexHandler)
    mux.HandleFunc("/v1/runs/", s.RunByIDHandler) // includes /report, /geojson, /events/stream, /ws

    // Point-to-point routing
    mux.HandleFunc("/v1/path", s.PathHandler)

    // Subscriptions and webhook admin
    mux.HandleFunc("/v1/subscriptions", s.SubscriptionsHandler)
    mux.HandleFunc("/v1/subscriptions/", s.SubscriptionByIDHandler)
    mux.HandleFunc("/v1/admin/webhook-deliveries", s.WebhookDeliveriesHandler)
    mux.HandleFunc("/v1/admin/webhook-deliveries/", s.WebhookDeliveryRetryHandler)
    mux.HandleFunc("/v1/admin/webhook-dlq", s.WebhookDLQHandler)
    mux.HandleFunc("/v1/admin/webhook-dlq/", s.WebhookDLQHandler)

    // Health, metrics, docs
    mux.HandleFunc("/healthz", s.HealthHandler)
    mux.HandleFunc("/readyz", s.ReadyHandler)
    mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
    mux.HandleFunc("/debug/info", s.DebugJSON)
    mux.HandleFunc("/openapi.yaml", s.OpenAPIHandler)
    mux.HandleFunc("/openapi.json", s.OpenAPIJSONHandler)
    mux.HandleFunc("/docs", s.DocsHandler)

    return Instrument(mux, s.Log)
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
    return webhooks.NewWorker(s.Store, s.cfg.Webhooks.MaxAttempts, s.cfg.Webhooks.PollInterval, s.Log.With().Str("component", "webhooks").Logger())
}

// Shutdown cancels in-flight async runs and waits for them to record their
// final state, or for ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
    s.cancel()
    done := make(chan struct{})
    go func() { s.runs.Wait(); close(done) }()
    select {
    case <-done:
        return nil
    case <-ctx.Done():
        return ctx.Err()
    }
}
