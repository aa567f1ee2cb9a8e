package main

import (
    "context"
    "encoding/json"
    "fmt"
    "io"
    "os"
    "strings"
    "text/tabwriter"
    "time"

    flag "github.com/spf13/pflag"

    "dronenav/internal/config"
    "dronenav/internal/integrations"
    "dronenav/internal/logging"
    "dronenav/internal/model"
    "dronenav/internal/opt"
    "dronenav/internal/report"
    "dronenav/internal/scenario"
)

type planOutput struct {
    Source  string        `json:"source"`
    Seed    int64         `json:"seed"`
    Elapsed string        `json:"elapsed"`
    Routes  []model.Route `json:"routes"`
    Report  report.Report `json:"report"`
}

func planCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
    fs := flag.NewFlagSet("plan", flag.ContinueOnError)
    fs.SetOutput(stderr)
    configPath := fs.StringP("config", "c", os.Getenv("DRONENAV_CONFIG"), "config file with optimizer defaults")
    pop := fs.Int("population", 0, "population size (default from config)")
    gens := fs.Int("generations", 0, "generation count (default from config)")
    seed := fs.Int64("seed", 0, "optimizer seed, 0 picks one")
    repair := fs.Bool("repair", false, "re-insert deliveries dropped by crossover")
    jsonOut := fs.Bool("json", false, "print the report as JSON")
    geojsonPath := fs.String("geojson", "", "write the best routes as GeoJSON (single source only)")
    verbose := fs.BoolP("verbose", "v", false, "log every generation")
    if err := fs.Parse(args); err != nil {
        return err
    }
    refs := fs.Args()
    if len(refs) == 0 {
        fmt.Fprintln(stderr, "plan: at least one scenario source is required")
        return errUsage
    }
    if *geojsonPath != "" && len(refs) > 1 {
        return fmt.Errorf("--geojson needs exactly one source, got %d", len(refs))
    }

    cfg, err := config.Load(*configPath)
    if err != nil { return err }
    level := cfg.Log.Level
    if *verbose { level = "debug" }
    log := logging.New(stderr, level, "console")
    base, err := cfg.Optimizer.Engine()
    if err != nil { return err }

    for _, ref := range refs {
        src, err := integrations.Open(ref)
        if err != nil { return err }
        sc, err := src.Fetch(ctx)
        if err != nil { return fmt.Errorf("%s: %w", src.Name(), err) }

        ecfg := base
        ecfg.Seed = *seed
        if _, ok := src.(integrations.RandomSource); ok {
            ecfg.PopulationSize, ecfg.Generations = scenario.Sizing(len(sc.Deliveries))
        }
        if fs.Changed("population") { ecfg.PopulationSize = *pop }
        if fs.Changed("generations") { ecfg.Generations = *gens }
        if *repair { ecfg.RepairOffspring = true }
        slog := log.With().Str("source", src.Name()).Logger()
        ecfg.OnGeneration = func(g opt.GenerationStats) {
            slog.Debug().Int("gen", g.Generation).Float64("best", g.Best).Float64("mean", g.Mean).Msg("generation")
        }

        slog.Info().Int("vehicles", len(sc.Vehicles)).Int("deliveries", len(sc.Deliveries)).Int("zones", len(sc.Zones)).
            Int("population", ecfg.PopulationSize).Int("generations", ecfg.Generations).Msg("optimizing")
        started := time.Now()
        res, err := opt.Optimize(ctx, sc, ecfg)
        if err != nil { return fmt.Errorf("%s: %w", src.Name(), err) }
        elapsed := time.Since(started)

        out := planOutput{
            Source:  src.Name(),
            Seed:    res.Seed,
            Elapsed: elapsed.Round(time.Millisecond).String(),
            Routes:  res.Best.Routes(),
            Report: report.Analyze(sc, res.Best, report.Options{
                StartTime:    ecfg.StartTime,
                Weights:      ecfg.Weights,
                NoFlyPenalty: cfg.Optimizer.NoFlyPenalty,
            }),
        }
        if *jsonOut {
            enc := json.NewEncoder(stdout)
            enc.SetIndent("", "  ")
            if err := enc.Encode(out); err != nil { return err }
        } else {
            printPlan(stdout, sc, out)
        }

        if *geojsonPath != "" {
            b, err := report.GeoJSON(sc, res.Best)
            if err != nil { return err }
            if err := os.WriteFile(*geojsonPath, b, 0o644); err != nil { return err }
            slog.Info().Str("path", *geojsonPath).Msg("wrote geojson")
        }
    }
    return nil
}

func printPlan(w io.Writer, sc model.Scenario, out planOutput) {
    s := out.Report.Summary
    tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
    fmt.Fprintf(tw, "--- %s ---\n", out.Source)
    fmt.Fprintf(tw, "scenario\t%s (%d vehicles, %d deliveries, %d zones)\n", sc.Name, len(sc.Vehicles), len(sc.Deliveries), len(sc.Zones))
    fmt.Fprintf(tw, "completed\t%d/%d (%.1f%%)\n", s.Assigned, s.Total, s.Percent)
    fmt.Fprintf(tw, "fitness\t%.2f\n", s.Fitness)
    fmt.Fprintf(tw, "rule violations\t%d\n", s.RuleViolations)
    fmt.Fprintf(tw, "time-window violations\t%d\n", s.TimeViolations)
    fmt.Fprintf(tw, "elapsed\t%s\n", out.Elapsed)
    fmt.Fprintf(tw, "seed\t%d\n", out.Seed)
    for _, r := range out.Routes {
        ids := make([]string, len(r.Deliveries))
        for i, id := range r.Deliveries {
            ids[i] = fmt.Sprint(id)
        }
        route := strings.Join(ids, " -> ")
        if route == "" { route = "(idle)" }
        fmt.Fprintf(tw, "vehicle %d\t%s\n", r.VehicleID, route)
    }
    for _, d := range out.Report.Detours {
        if !d.Found {
            fmt.Fprintf(tw, "detour %d->%d\tnone\n", d.VehicleID, d.DeliveryID)
            continue
        }
        fmt.Fprintf(tw, "detour %d->%d\t%v\n", d.VehicleID, d.DeliveryID, d.Path)
    }
    _ = tw.Flush()
}
