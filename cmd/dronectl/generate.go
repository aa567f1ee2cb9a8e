package main

import (
    "fmt"
    "io"
    "math/rand"
    "os"
    "path/filepath"
    "strings"
    "time"

    flag "github.com/spf13/pflag"

    "dronenav/internal/loader"
    "dronenav/internal/logging"
    "dronenav/internal/scenario"
)

func generateCmd(args []string, stdout, stderr io.Writer) error {
    fs := flag.NewFlagSet("generate", flag.ContinueOnError)
    fs.SetOutput(stderr)
    seed := fs.Int64("seed", 0, "generator seed, 0 picks one")
    vehicles := fs.Int("vehicles", 0, "vehicle count (random 5-10 when no count is given)")
    deliveries := fs.Int("deliveries", 0, "delivery count (random 20-40 when no count is given)")
    zones := fs.Int("zones", 0, "no-fly zone count (random 2-5 when no count is given)")
    mapSize := fs.Int("map-size", 100, "side of the square map")
    out := fs.StringP("out", "o", "", "output directory, or a .yaml file for a bundle")
    if err := fs.Parse(args); err != nil {
        return err
    }
    if *out == "" {
        fmt.Fprintln(stderr, "generate: --out is required")
        return errUsage
    }
    log := logging.New(stderr, "info", "console")

    if *seed == 0 {
        *seed = time.Now().UnixNano()
    }
    rng := rand.New(rand.NewSource(*seed))
    p := scenario.DefaultParams()
    if fs.Changed("vehicles") || fs.Changed("deliveries") || fs.Changed("zones") {
        if fs.Changed("vehicles") { p.Vehicles = *vehicles }
        if fs.Changed("deliveries") { p.Deliveries = *deliveries }
        if fs.Changed("zones") { p.Zones = *zones }
    } else {
        p = scenario.RandomParams(rng)
    }
    p.MapSize = *mapSize
    sc := scenario.Generate(rng, p)

    if isBundlePath(*out) {
        f, err := os.Create(*out)
        if err != nil { return err }
        if err := loader.WriteBundle(f, sc); err != nil {
            _ = f.Close()
            return err
        }
        if err := f.Close(); err != nil { return err }
    } else if err := loader.SaveDir(*out, sc); err != nil {
        return err
    }
    log.Info().Int64("seed", *seed).Int("vehicles", len(sc.Vehicles)).Int("deliveries", len(sc.Deliveries)).Int("zones", len(sc.Zones)).Msg("generated scenario")
    fmt.Fprintln(stdout, *out)
    return nil
}

func isBundlePath(p string) bool {
    ext := strings.ToLower(filepath.Ext(p))
    return ext == ".yaml" || ext == ".yml"
}
