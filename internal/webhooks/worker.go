package webhooks

import (
    "bytes"
    "context"
    "net/http"
    "strconv"
    "time"

    "github.com/rs/zerolog"

    "dronenav/internal/metrics"
    "dronenav/internal/store"
)

type Worker struct {
    Store       store.Store
    HTTP        *http.Client
    Stop        chan struct{}
    MaxAttempts int
    Interval    time.Duration
    Log         zerolog.Logger
}

func NewWorker(s store.Store, maxAttempts int, interval time.Duration, log zerolog.Logger) *Worker {
    if maxAttempts <= 0 { maxAttempts = 10 }
    if interval <= 0 { interval = time.Second }
    return &Worker{Store: s, HTTP: &http.Client{Timeout: 5 * time.Second}, Stop: make(chan struct{}), MaxAttempts: maxAttempts, Interval: interval, Log: log}
}

func (w *Worker) Start() {
    go func() {
        ticker := time.NewTicker(w.Interval)
        defer ticker.Stop()
        for {
            select {
            case <-w.Stop:
                return
            case <-ticker.C:
                w.processOnce()
            }
        }
    }()
}

func (w *Worker) processOnce() {
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    items, err := w.Store.FetchDueWebhookDeliveries(ctx, 50)
    if err != nil {
        w.Log.Error().Err(err).Msg("fetch due webhooks")
        return
    }
    for _, it := range items {
        success := false
        next := time.Now().Add(nextBackoff(it.Attempts))
        req, err := http.NewRequestWithContext(ctx, http.MethodPost, it.URL, bytes.NewReader(it.Payload))
        if err != nil {
            _ = w.Store.FailWebhookDelivery(ctx, it.ID, err.Error(), 0, 0)
            continue
        }
        req.Header.Set("Content-Type", "application/json")
        req.Header.Set("X-Event-Type", it.EventType)
        req.Header.Set("X-Delivery-Attempt", strconv.Itoa(it.Attempt()))
        if it.Secret != "" {
            req.Header.Set(SignatureHeader, Sign(it.Secret, time.Now(), it.Payload))
        }
        start := time.Now()
        resp, err := w.HTTP.Do(req)
        latency := int(time.Since(start).Milliseconds())
        code := 0
        if err == nil && resp != nil {
            code = resp.StatusCode
            if resp.Body != nil { _ = resp.Body.Close() }
            if code >= 200 && code < 300 { success = true }
        }
        lastErr := ""
        if !success {
            if err != nil { lastErr = err.Error() } else { lastErr = "HTTP " + strconv.Itoa(code) }
        }
        status := store.DeliveryDelivered
        switch {
        case success:
            _ = w.Store.MarkWebhookDelivery(ctx, it.ID, true, nil, "", code, latency)
        case it.Attempt() >= w.MaxAttempts:
            status = store.DeliveryFailed
            _ = w.Store.FailWebhookDelivery(ctx, it.ID, lastErr, code, latency)
            w.Log.Warn().Str("delivery", it.ID).Str("event", it.EventType).Int("code", code).Str("error", lastErr).Msg("webhook dead-lettered")
        default:
            status = store.DeliveryRetry
            _ = w.Store.MarkWebhookDelivery(ctx, it.ID, false, &next, lastErr, code, latency)
        }
        metrics.WebhookDeliveries.WithLabelValues(it.EventType, status).Inc()
        metrics.WebhookLatency.WithLabelValues(it.EventType, status).Observe(float64(latency))
    }
}

// nextBackoff doubles from 1s per attempt, capped at one hour.
func nextBackoff(attempts int) time.Duration {
    if attempts < 0 { attempts = 0 }
    if attempts > 10 { attempts = 10 }
    base := time.Second * time.Duration(1<<attempts)
    if base > time.Hour { base = time.Hour }
    return base
}
