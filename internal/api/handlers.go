package api

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "dronenav/internal/astar"
    "dronenav/internal/graph"
    "dronenav/internal/loader"
    "dronenav/internal/metrics"
    "dronenav/internal/model"
    "dronenav/internal/opt"
    "dronenav/internal/report"
)

func pageParams(r *http.Request) (string, int) {
    limit := 100
    if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
    return r.URL.Query().Get("cursor"), limit
}

func isYAML(contentType string) bool {
    ct := strings.ToLower(contentType)
    return strings.Contains(ct, "yaml") || strings.Contains(ct, "yml")
}

// ScenariosHandler handles POST/GET /v1/scenarios. POST accepts a JSON
// scenario or, with a YAML content type, a scenario bundle.
func (s *Server) ScenariosHandler(w http.ResponseWriter, r *http.Request) {
    p, ok := s.authorize(w, r, false)
    if !ok { return }
    switch r.Method {
    case http.MethodPost:
        var sc model.Scenario
        if isYAML(r.Header.Get("Content-Type")) {
            var err error
            if sc, err = loader.ReadBundle(r.Body); err != nil {
                writeProblem(w, http.StatusBadRequest, "Invalid YAML", err.Error(), r.URL.Path)
                return
            }
        } else if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if err := sc.Validate(); err != nil { writeError(w, r, "Invalid scenario", err); return }
        sum, err := s.Store.CreateScenario(r.Context(), p.Tenant, sc)
        if err != nil { writeError(w, r, "Create scenario failed", err); return }
        writeJSON(w, http.StatusCreated, sum)
    case http.MethodGet:
        cursor, limit := pageParams(r)
        items, next, err := s.Store.ListScenarios(r.Context(), p.Tenant, cursor, limit)
        if err != nil { writeError(w, r, "List scenarios failed", err); return }
        writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// ScenarioByIDHandler handles GET /v1/scenarios/{id} and /v1/scenarios/{id}/geojson
func (s *Server) ScenarioByIDHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    p, ok := s.authorize(w, r, false)
    if !ok { return }
    parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/v1/scenarios/"), "/")
    if parts[0] == "" { writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path); return }
    sc, err := s.Store.GetScenario(r.Context(), p.Tenant, parts[0])
    if err != nil { writeError(w, r, "Scenario not found", err); return }
    switch {
    case len(parts) == 1:
        if isYAML(r.Header.Get("Accept")) {
            w.Header().Set("Content-Type", "application/yaml")
            _ = loader.WriteBundle(w, sc)
            return
        }
        writeJSON(w, http.StatusOK, sc)
    case len(parts) == 2 && parts[1] == "geojson":
        writeGeoJSON(w, r, sc, opt.Solution{})
    default:
        writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
    }
}

func writeGeoJSON(w http.ResponseWriter, r *http.Request, sc model.Scenario, sol opt.Solution) {
    b, err := report.GeoJSON(sc, sol)
    if err != nil { writeError(w, r, "GeoJSON export failed", err); return }
    w.Header().Set("Content-Type", "application/geo+json")
    w.WriteHeader(http.StatusOK)
    _, _ = w.Write(b)
}

// RunsIndexHandler handles GET /v1/runs?scenarioId=
func (s *Server) RunsIndexHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    p, ok := s.authorize(w, r, false)
    if !ok { return }
    cursor, limit := pageParams(r)
    items, next, err := s.Store.ListRuns(r.Context(), p.Tenant, r.URL.Query().Get("scenarioId"), cursor, limit)
    if err != nil { writeError(w, r, "List runs failed", err); return }
    writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// RunByIDHandler handles GET /v1/runs/{id} and its /report, /geojson,
// /events/stream and /ws sub-resources.
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    p, ok := s.authorize(w, r, false)
    if !ok { return }
    parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/v1/runs/"), "/")
    id := parts[0]
    if id == "" { writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path); return }
    run, err := s.Store.GetRun(r.Context(), p.Tenant, id)
    if err != nil { writeError(w, r, "Run not found", err); return }
    sub := strings.Join(parts[1:], "/")
    switch sub {
    case "":
        writeJSON(w, http.StatusOK, run)
    case "events/stream":
        s.streamSSE(w, r, run)
    case "ws":
        s.streamWS(w, r, run)
    case "report", "geojson":
        if run.Status != runCompleted {
            writeProblem(w, http.StatusConflict, "Run not completed", "status is "+run.Status, r.URL.Path)
            return
        }
        sc, err := s.Store.GetScenario(r.Context(), p.Tenant, run.ScenarioID)
        if err != nil { writeError(w, r, "Scenario not found", err); return }
        sol := opt.FromRoutes(run.Routes)
        if sub == "geojson" { writeGeoJSON(w, r, sc, sol); return }
        writeJSON(w, http.StatusOK, report.Analyze(sc, sol, report.Options{
            StartTime:    run.Config.StartTime,
            Weights:      opt.DefaultWeights().WithOverrides(run.Config.Weights),
            NoFlyPenalty: run.Config.NoFlyPenalty,
        }))
    default:
        writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
    }
}

// PathHandler handles POST /v1/path: A* over the scenario graph.
func (s *Server) PathHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost { w.WriteHeader(http.StatusMethodNotAllowed); return }
    p, ok := s.authorize(w, r, false)
    if !ok { return }
    var req model.PathRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if req.ScenarioID == "" { writeProblem(w, http.StatusBadRequest, "Missing scenarioId", "", r.URL.Path); return }
    sc, err := s.Store.GetScenario(r.Context(), p.Tenant, req.ScenarioID)
    if err != nil { writeError(w, r, "Scenario not found", err); return }
    oc, err := s.tenantOptimizerConfig(r.Context(), p.Tenant)
    if err != nil { writeError(w, r, "Optimizer config invalid", err); return }

    start := req.From
    if req.FromVehicle != 0 {
        start = 0
        for i, v := range sc.Vehicles {
            if v.ID == req.FromVehicle { start = graph.VehicleNode(i); break }
        }
        if start == 0 { writeProblem(w, http.StatusNotFound, "Unknown vehicle", fmt.Sprintf("vehicle %d", req.FromVehicle), r.URL.Path); return }
    }
    g := graph.Build(sc.Deliveries, sc.Vehicles, sc.Zones, oc.NoFlyPenalty)
    if !g.Has(start) || !g.Has(req.To) {
        writeProblem(w, http.StatusNotFound, "Unknown node", fmt.Sprintf("from %d to %d", start, req.To), r.URL.Path)
        return
    }
    path, found := astar.FindPath(g, start, req.To)
    if !found {
        metrics.PathSearches.WithLabelValues("none").Inc()
        writeProblem(w, http.StatusNotFound, "No path", fmt.Sprintf("no path from %d to %d", start, req.To), r.URL.Path)
        return
    }
    metrics.PathSearches.WithLabelValues("found").Inc()
    writeJSON(w, http.StatusOK, map[string]any{"path": path, "cost": pathCost(g, path)})
}

func pathCost(g *graph.Graph, path []int) float64 {
    total := 0.0
    for i := 1; i < len(path); i++ {
        for _, e := range g.Neighbors(path[i-1]) {
            if e.To == path[i] { total += e.Cost; break }
        }
    }
    return total
}

// OptimizerConfigHandler returns the defaults with the tenant overlay applied
func (s *Server) OptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    p, ok := s.authorize(w, r, false)
    if !ok { return }
    oc, err := s.tenantOptimizerConfig(r.Context(), p.Tenant)
    if err != nil { writeError(w, r, "Optimizer config invalid", err); return }
    writeJSON(w, http.StatusOK, map[string]any{"defaults": oc.Map()})
}

// AdminOptimizerConfigHandler gets or replaces the tenant overlay
func (s *Server) AdminOptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
    p, ok := s.authorize(w, r, true)
    if !ok { return }
    switch r.Method {
    case http.MethodGet:
        cfg, err := s.Store.GetOptimizerConfig(r.Context(), p.Tenant)
        if err != nil { writeError(w, r, "Load config failed", err); return }
        if cfg == nil { cfg = map[string]any{} }
        writeJSON(w, http.StatusOK, map[string]any{"config": cfg})
    case http.MethodPut:
        var body struct{ Config map[string]any `json:"config"` }
        if err := json.NewDecoder(r.Body).Decode(&body); err != nil { writeProblem(w, 400, "Invalid JSON", err.Error(), r.URL.Path); return }
        if body.Config == nil { writeProblem(w, 400, "Missing config", "", r.URL.Path); return }
        merged, err := s.cfg.Optimizer.WithOverlay(body.Config)
        if err == nil {
            var ec opt.Config
            if ec, err = merged.Engine(); err == nil { err = ec.Validate() }
        }
        if err != nil { writeProblem(w, 400, "Invalid config", err.Error(), r.URL.Path); return }
        if err := s.Store.SaveOptimizerConfig(r.Context(), p.Tenant, body.Config); err != nil { writeError(w, r, "Save failed", err); return }
        writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// RunMetricsHandler lists the in-process engine metrics of a scenario's runs
func (s *Server) RunMetricsHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    p, ok := s.authorize(w, r, true)
    if !ok { return }
    scenarioID := r.URL.Query().Get("scenarioId")
    if scenarioID == "" { writeProblem(w, 400, "Missing scenarioId", "", r.URL.Path); return }
    items := []map[string]any{}
    for runID, m := range opt.GetMetrics(p.Tenant, scenarioID) {
        items = append(items, map[string]any{
            "runId":        runID,
            "generations":  m.Generations,
            "evaluations":  m.Evaluations,
            "improvements": m.Improvements,
            "bestFitness":  m.BestFitness,
            "elapsedMs":    m.Elapsed.Milliseconds(),
        })
    }
    writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
    p, ok := s.authorize(w, r, true)
    if !ok { return }
    switch r.Method {
    case http.MethodPost:
        var req model.SubscriptionRequest
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        req.TenantID = p.Tenant
        if err := validateSubscription(&req); err != nil { writeError(w, r, "Invalid subscription", err); return }
        sub, err := s.Store.CreateSubscription(r.Context(), req)
        if err != nil { writeError(w, r, "Create subscription failed", err); return }
        writeJSON(w, http.StatusCreated, sub)
    case http.MethodGet:
        cursor, limit := pageParams(r)
        items, next, err := s.Store.ListSubscriptions(r.Context(), p.Tenant, cursor, limit)
        if err != nil { writeError(w, r, "List subscriptions failed", err); return }
        writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodDelete { w.WriteHeader(http.StatusMethodNotAllowed); return }
    p, ok := s.authorize(w, r, true)
    if !ok { return }
    id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
    if err := s.Store.DeleteSubscription(r.Context(), p.Tenant, id); err != nil { writeError(w, r, "Delete subscription failed", err); return }
    w.WriteHeader(http.StatusNoContent)
}

// WebhookDeliveriesHandler lists deliveries, optionally by status
func (s *Server) WebhookDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    p, ok := s.authorize(w, r, true)
    if !ok { return }
    cursor, limit := pageParams(r)
    items, next, err := s.Store.ListWebhookDeliveries(r.Context(), p.Tenant, r.URL.Query().Get("status"), cursor, limit)
    if err != nil { writeError(w, r, "List deliveries failed", err); return }
    writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// WebhookDeliveryRetryHandler handles POST /v1/admin/webhook-deliveries/{id}/retry
func (s *Server) WebhookDeliveryRetryHandler(w http.ResponseWriter, r *http.Request) {
    if !strings.HasSuffix(r.URL.Path, "/retry") { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    if r.Method != http.MethodPost { w.WriteHeader(http.StatusMethodNotAllowed); return }
    p, ok := s.authorize(w, r, true)
    if !ok { return }
    id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/admin/webhook-deliveries/"), "/retry")
    if err := s.Store.RetryWebhookDelivery(r.Context(), p.Tenant, id); err != nil { writeError(w, r, "Retry delivery failed", err); return }
    writeJSON(w, http.StatusAccepted, map[string]int{"accepted": 1})
}

// WebhookDLQHandler lists the DLQ and requeues single entries
func (s *Server) WebhookDLQHandler(w http.ResponseWriter, r *http.Request) {
    p, ok := s.authorize(w, r, true)
    if !ok { return }
    if r.URL.Path == "/v1/admin/webhook-dlq" && r.Method == http.MethodGet {
        cursor, limit := pageParams(r)
        items, next, err := s.Store.ListWebhookDLQ(r.Context(), p.Tenant, cursor, limit)
        if err != nil { writeError(w, r, "List DLQ failed", err); return }
        writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
        return
    }
    if strings.HasPrefix(r.URL.Path, "/v1/admin/webhook-dlq/") && strings.HasSuffix(r.URL.Path, "/requeue") && r.Method == http.MethodPost {
        id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/admin/webhook-dlq/"), "/requeue")
        if err := s.Store.RequeueWebhookDLQ(r.Context(), p.Tenant, id); err != nil { writeError(w, r, "Requeue failed", err); return }
        writeJSON(w, http.StatusAccepted, map[string]int{"accepted": 1})
        return
    }
    writeProblem(w, 404, "Not Found", "", r.URL.Path)
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler checks the store and, when it supports it, the broker.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
    defer cancel()
    if err := s.Store.Ping(ctx); err != nil { writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path); return }
    type pinger interface{ Ping(ctx context.Context) error }
    if b, ok := s.Broker.(pinger); ok {
        if err := b.Ping(ctx); err != nil { writeProblem(w, 503, "Not Ready", "broker: "+err.Error(), r.URL.Path); return }
    }
    writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
