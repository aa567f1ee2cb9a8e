package api

import (
    "net/http"
    "time"

    "dronenav/internal/buildinfo"
)

// DebugJSON reports build info and the effective non-secret configuration.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
    if _, ok := s.authorize(w, r, true); !ok { return }
    writeJSON(w, http.StatusOK, map[string]any{
        "build": buildinfo.Info(),
        "time":  time.Now().UTC().Format(time.RFC3339),
        "config": map[string]any{
            "httpAddr":         s.cfg.HTTP.Addr,
            "logLevel":         s.cfg.Log.Level,
            "authMode":         s.Auth.Mode(),
            "rateRps":          s.cfg.Rate.RPS,
            "rateBurst":        s.cfg.Rate.Burst,
            "optimizer":        s.cfg.Optimizer.Map(),
            "webhookAttempts":  s.cfg.Webhooks.MaxAttempts,
            "hasDatabaseUrl":   s.cfg.Database.URL != "",
            "hasRedisUrl":      s.cfg.Redis.URL != "",
        },
    })
}
