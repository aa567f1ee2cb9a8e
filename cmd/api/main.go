package main

import (
    "context"
    "errors"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/rs/zerolog"
    flag "github.com/spf13/pflag"

    "dronenav/internal/api"
    "dronenav/internal/buildinfo"
    "dronenav/internal/config"
    "dronenav/internal/logging"
    "dronenav/internal/store"
)

func main() {
    configPath := flag.StringP("config", "c", os.Getenv("DRONENAV_CONFIG"), "config file (yaml, json or toml)")
    flag.Parse()

    envErr := godotenv.Load()
    cfg, err := config.Load(*configPath)
    if err != nil {
        bootLog := logging.New(os.Stderr, "info", "json")
        bootLog.Fatal().Err(err).Msg("load config")
    }
    log := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
    if envErr != nil {
        log.Debug().Msg("no .env file found (using environment variables)")
    }

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    st, closeStore, err := openStore(ctx, cfg, log)
    if err != nil { log.Fatal().Err(err).Msg("open store") }
    defer closeStore()

    var broker api.EventBroker
    if cfg.Redis.URL != "" {
        rb, err := api.NewRedisBroker(ctx, cfg.Redis.URL, log.With().Str("component", "broker").Logger())
        if err != nil {
            log.Warn().Err(err).Msg("redis unavailable, streaming run events in-process only")
        } else {
            defer func() { _ = rb.Close() }()
            broker = rb
        }
    }

    srv := api.NewServer(cfg, st, broker, log)
    worker := srv.NewWebhookWorker()
    worker.Start()
    defer close(worker.Stop)

    httpSrv := &http.Server{
        Addr:              cfg.HTTP.Addr,
        Handler:           srv.Routes(),
        ReadHeaderTimeout: 5 * time.Second,
    }

    errc := make(chan error, 1)
    go func() {
        log.Info().Str("addr", cfg.HTTP.Addr).Str("build", buildinfo.String()).Str("auth", srv.Auth.Mode()).Msg("API listening")
        errc <- httpSrv.ListenAndServe()
    }()

    select {
    case err := <-errc:
        if !errors.Is(err, http.ErrServerClosed) {
            log.Error().Err(err).Msg("server error")
        }
    case <-ctx.Done():
        log.Info().Msg("shutting down")
    }

    shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
    defer cancel()
    if err := httpSrv.Shutdown(shutdownCtx); err != nil {
        log.Warn().Err(err).Msg("http shutdown")
    }
    if err := srv.Shutdown(shutdownCtx); err != nil {
        log.Warn().Err(err).Msg("async runs did not finish")
    }
}

// openStore picks Postgres when database.url is set and the in-memory store
// otherwise.
func openStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (store.Store, func(), error) {
    if cfg.Database.URL == "" {
        log.Info().Msg("using in-memory store")
        return store.NewMemory(), func() {}, nil
    }
    pg, err := store.NewPostgres(cfg.Database.URL)
    if err != nil { return nil, nil, err }
    if err := pg.Migrate(ctx); err != nil {
        _ = pg.Close()
        return nil, nil, err
    }
    log.Info().Msg("using postgres store")
    return pg, func() { _ = pg.Close() }, nil
}
