package api

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "time"

    "github.com/google/uuid"

    "dronenav/internal/config"
    "dronenav/internal/metrics"
    "dronenav/internal/model"
    "dronenav/internal/opt"
    "dronenav/internal/report"
    "dronenav/internal/webhooks"
)

const (
    runRunning   = "running"
    runCompleted = "completed"
    runFailed    = "failed"
    runCanceled  = "canceled"
)

// OptimizeHandler handles POST /v1/optimize. The run executes inline and
// the finished run is returned, unless ?async=true, in which case 202 is
// returned with the pending run and progress is streamed on the run's
// events endpoints.
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    p, ok := s.authorize(w, r, false)
    if !ok { return }
    var req model.OptimizeRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if err := validateOptimizeRequest(&req); err != nil {
        writeError(w, r, "Invalid optimize request", err)
        return
    }
    sc, scenarioID, err := s.resolveScenario(r.Context(), p.Tenant, req)
    if err != nil { writeError(w, r, "Scenario unavailable", err); return }
    cfg, oc, err := s.engineConfig(r.Context(), p.Tenant, req)
    if err != nil { writeError(w, r, "Invalid optimizer config", err); return }
    // reject before a run record exists
    if _, err := opt.NewEngine(sc, cfg); err != nil { writeError(w, r, "Invalid optimize request", err); return }

    run := model.Run{
        ID:         uuid.New().String(),
        TenantID:   p.Tenant,
        ScenarioID: scenarioID,
        Status:     runRunning,
        Config:     runConfig(oc, cfg),
        CreatedAt:  time.Now().UTC(),
    }
    if r.URL.Query().Get("async") == "true" {
        if err := s.Store.SaveRun(r.Context(), run); err != nil { writeError(w, r, "Save run failed", err); return }
        s.runs.Add(1)
        go func() {
            defer s.runs.Done()
            _, _ = s.execute(s.ctx, run, sc, cfg)
        }()
        writeJSON(w, http.StatusAccepted, run)
        return
    }
    done, err := s.execute(r.Context(), run, sc, cfg)
    if err != nil { writeError(w, r, "Optimization failed", err); return }
    writeJSON(w, http.StatusOK, done)
}

// resolveScenario loads the referenced scenario or stores the inline one so
// that every run can be reported on later.
func (s *Server) resolveScenario(ctx context.Context, tenant string, req model.OptimizeRequest) (model.Scenario, string, error) {
    if req.Scenario == nil {
        sc, err := s.Store.GetScenario(ctx, tenant, req.ScenarioID)
        return sc, req.ScenarioID, err
    }
    if err := req.Scenario.Validate(); err != nil {
        return model.Scenario{}, "", err
    }
    sum, err := s.Store.CreateScenario(ctx, tenant, *req.Scenario)
    if err != nil {
        return model.Scenario{}, "", err
    }
    return *req.Scenario, sum.ID, nil
}

// tenantOptimizerConfig is the server defaults with the tenant overlay.
func (s *Server) tenantOptimizerConfig(ctx context.Context, tenant string) (config.OptimizerConfig, error) {
    overlay, err := s.Store.GetOptimizerConfig(ctx, tenant)
    if err != nil {
        return config.OptimizerConfig{}, err
    }
    return s.cfg.Optimizer.WithOverlay(overlay)
}

// engineConfig layers request overrides over the tenant configuration.
func (s *Server) engineConfig(ctx context.Context, tenant string, req model.OptimizeRequest) (opt.Config, config.OptimizerConfig, error) {
    oc, err := s.tenantOptimizerConfig(ctx, tenant)
    if err != nil {
        return opt.Config{}, oc, err
    }
    if req.PopulationSize > 0 { oc.PopulationSize = req.PopulationSize }
    if req.Generations > 0 { oc.Generations = req.Generations }
    if req.CrossoverRate != nil { oc.CrossoverRate = *req.CrossoverRate }
    if req.MutationRate != nil { oc.MutationRate = *req.MutationRate }
    if req.NoFlyPenalty != nil { oc.NoFlyPenalty = *req.NoFlyPenalty }
    if req.StartTime != "" { oc.StartTime = req.StartTime }
    if req.Workers > 0 { oc.Workers = req.Workers }
    if req.RepairOffspring { oc.RepairOffspring = true }
    oc.Weights = oc.Weights.WithOverrides(req.Weights)
    cfg, err := oc.Engine()
    if err != nil {
        return opt.Config{}, oc, fmt.Errorf("%w: %v", errBadRequest, err)
    }
    cfg.Seed = req.Seed
    return cfg, oc, nil
}

func runConfig(oc config.OptimizerConfig, cfg opt.Config) model.RunConfig {
    return model.RunConfig{
        PopulationSize:  cfg.PopulationSize,
        Generations:     cfg.Generations,
        CrossoverRate:   cfg.CrossoverRate,
        MutationRate:    cfg.MutationRate,
        NoFlyPenalty:    oc.NoFlyPenalty,
        StartTime:       cfg.StartTime,
        Weights: map[string]float64{
            "delivered":     cfg.Weights.Delivered,
            "energy":        cfg.Weights.Energy,
            "violation":     cfg.Weights.Violation,
            "timeViolation": cfg.Weights.TimeViolation,
        },
        RepairOffspring: cfg.RepairOffspring,
    }
}

// execute runs the engine, records the outcome and notifies stream
// subscribers and webhooks. The returned run is always the stored one.
func (s *Server) execute(ctx context.Context, run model.Run, sc model.Scenario, cfg opt.Config) (model.Run, error) {
    log := s.Log.With().Str("run", run.ID).Str("tenant", run.TenantID).Str("scenario", run.ScenarioID).Logger()
    log.Info().Int("population", cfg.PopulationSize).Int("generations", cfg.Generations).Int64("seed", cfg.Seed).Msg("run started")
    cfg.OnGeneration = func(gs opt.GenerationStats) {
        s.Broker.Publish(run.ID, RunEvent{Type: EventGeneration, Data: map[string]any{
            "runId": run.ID, "generation": gs.Generation, "best": gs.Best, "mean": gs.Mean, "worst": gs.Worst, "bestEver": gs.BestEver,
        }})
    }
    started := time.Now()
    res, err := opt.Optimize(ctx, sc, cfg)
    metrics.OptimizerDuration.Observe(time.Since(started).Seconds())
    // the record must outlive a canceled request
    saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
    defer cancel()
    if err != nil {
        run.Status = runFailed
        if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) { run.Status = runCanceled }
        run.Error = err.Error()
        run.ElapsedMs = time.Since(started).Milliseconds()
        metrics.OptimizerRuns.WithLabelValues(run.Status).Inc()
        if serr := s.Store.SaveRun(saveCtx, run); serr != nil { log.Error().Err(serr).Msg("save run") }
        s.Broker.Publish(run.ID, RunEvent{Type: EventRunFailed, Data: map[string]any{"runId": run.ID, "status": run.Status, "error": run.Error}})
        log.Warn().Err(err).Str("status", run.Status).Msg("run ended without result")
        return run, err
    }

    rep := report.Analyze(sc, res.Best, report.Options{StartTime: cfg.StartTime, Weights: cfg.Weights, NoFlyPenalty: run.Config.NoFlyPenalty})
    run.Status = runCompleted
    run.Seed = res.Seed
    run.Routes = res.Best.Routes()
    run.Fitness = res.Score
    run.Delivered = res.Evaluation.Delivered
    run.Violations = res.Evaluation.Violations
    run.TimeViolations = res.Evaluation.TimeViolations
    run.Energy = res.Evaluation.Energy
    run.Generations = res.Metrics.Generations
    run.History = res.Metrics.History
    run.Summary = &rep.Summary
    run.ElapsedMs = res.Metrics.Elapsed.Milliseconds()

    opt.RecordMetrics(run.TenantID, run.ScenarioID, run.ID, res.Metrics)
    metrics.OptimizerRuns.WithLabelValues(runCompleted).Inc()
    metrics.OptimizerEvaluations.Add(float64(res.Metrics.Evaluations))
    metrics.OptimizerBestFitness.Set(res.Score)

    if err := s.Store.SaveRun(saveCtx, run); err != nil {
        log.Error().Err(err).Msg("save run")
        return run, err
    }
    payload := map[string]any{
        "runId":      run.ID,
        "scenarioId": run.ScenarioID,
        "fitness":    run.Fitness,
        "delivered":  run.Delivered,
        "summary":    run.Summary,
    }
    s.Pub.Emit(saveCtx, run.TenantID, webhooks.EventRunCompleted, payload)
    s.Broker.Publish(run.ID, RunEvent{Type: EventRunCompleted, Data: payload})
    log.Info().Float64("fitness", run.Fitness).Int("delivered", run.Delivered).Int64("elapsedMs", run.ElapsedMs).Msg("run finished")
    return run, nil
}
