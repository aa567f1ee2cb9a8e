package store

import (
    "context"
    "crypto/sha256"
    "database/sql"
    "embed"
    "encoding/hex"
    "encoding/json"
    "errors"
    "fmt"
    "io/fs"
    "sort"
    "time"

    "github.com/google/uuid"
    _ "github.com/jackc/pgx/v5/stdlib"

    "dronenav/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Postgres struct {
    db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, err
    }
    if err := db.Ping(); err != nil {
        return nil, err
    }
    return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

// Migrate applies the embedded schema files in name order. Every statement is
// idempotent so it is safe to run on each start.
func (p *Postgres) Migrate(ctx context.Context) error {
    names, err := fs.Glob(migrations, "migrations/*.sql")
    if err != nil { return err }
    sort.Strings(names)
    for _, name := range names {
        b, err := migrations.ReadFile(name)
        if err != nil { return err }
        if _, err := p.db.ExecContext(ctx, string(b)); err != nil {
            return fmt.Errorf("migrate %s: %w", name, err)
        }
    }
    return nil
}

// Scenarios
func (p *Postgres) CreateScenario(ctx context.Context, tenantID string, s model.Scenario) (model.ScenarioSummary, error) {
    id := uuid.New().String()
    body, err := json.Marshal(s)
    if err != nil { return model.ScenarioSummary{}, err }
    var created time.Time
    err = p.db.QueryRowContext(ctx, `INSERT INTO scenarios (id, tenant_id, name, vehicles, deliveries, zones, body) VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING created_at`,
        id, tenantID, nullIfEmpty(s.Name), len(s.Vehicles), len(s.Deliveries), len(s.Zones), body).Scan(&created)
    if err != nil { return model.ScenarioSummary{}, err }
    return summarize(id, tenantID, s, created), nil
}

func (p *Postgres) GetScenario(ctx context.Context, tenantID, id string) (model.Scenario, error) {
    var body []byte
    err := p.db.QueryRowContext(ctx, `SELECT body FROM scenarios WHERE tenant_id=$1 AND id::text=$2`, tenantID, id).Scan(&body)
    if errors.Is(err, sql.ErrNoRows) { return model.Scenario{}, ErrNotFound }
    if err != nil { return model.Scenario{}, err }
    var s model.Scenario
    if err := json.Unmarshal(body, &s); err != nil { return model.Scenario{}, err }
    return s, nil
}

func (p *Postgres) ListScenarios(ctx context.Context, tenantID, cursor string, limit int) ([]model.ScenarioSummary, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    rows, err := p.db.QueryContext(ctx, `SELECT id::text, COALESCE(name,''), vehicles, deliveries, zones, created_at FROM scenarios
        WHERE tenant_id=$1 AND ($2 = '' OR id::text > $2) ORDER BY id LIMIT $3`, tenantID, cursor, limit)
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []model.ScenarioSummary{}
    var last string
    for rows.Next() {
        s := model.ScenarioSummary{TenantID: tenantID}
        if err := rows.Scan(&s.ID, &s.Name, &s.Vehicles, &s.Deliveries, &s.Zones, &s.CreatedAt); err != nil { return nil, "", err }
        out = append(out, s)
        last = s.ID
    }
    if err := rows.Err(); err != nil { return nil, "", err }
    next := ""
    if len(out) == limit { next = last }
    return out, next, nil
}

// Runs
func (p *Postgres) SaveRun(ctx context.Context, run model.Run) error {
    body, err := json.Marshal(run)
    if err != nil { return err }
    _, err = p.db.ExecContext(ctx, `INSERT INTO runs (id, tenant_id, scenario_id, status, fitness, body, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (id) DO UPDATE SET status=$4, fitness=$5, body=$6, updated_at=now()`,
        run.ID, run.TenantID, nullIfEmpty(run.ScenarioID), run.Status, run.Fitness, body, run.CreatedAt)
    return err
}

func (p *Postgres) GetRun(ctx context.Context, tenantID, id string) (model.Run, error) {
    var body []byte
    err := p.db.QueryRowContext(ctx, `SELECT body FROM runs WHERE tenant_id=$1 AND id::text=$2`, tenantID, id).Scan(&body)
    if errors.Is(err, sql.ErrNoRows) { return model.Run{}, ErrNotFound }
    if err != nil { return model.Run{}, err }
    var r model.Run
    if err := json.Unmarshal(body, &r); err != nil { return model.Run{}, err }
    return r, nil
}

func (p *Postgres) ListRuns(ctx context.Context, tenantID, scenarioID, cursor string, limit int) ([]model.Run, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    rows, err := p.db.QueryContext(ctx, `SELECT id::text, body FROM runs
        WHERE tenant_id=$1 AND ($2 = '' OR scenario_id::text = $2) AND ($3 = '' OR id::text > $3) ORDER BY id LIMIT $4`, tenantID, scenarioID, cursor, limit)
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []model.Run{}
    var last string
    for rows.Next() {
        var body []byte
        if err := rows.Scan(&last, &body); err != nil { return nil, "", err }
        var r model.Run
        if err := json.Unmarshal(body, &r); err != nil { return nil, "", err }
        out = append(out, r)
    }
    if err := rows.Err(); err != nil { return nil, "", err }
    next := ""
    if len(out) == limit { next = last }
    return out, next, nil
}

// Subscriptions
func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
    id := uuid.New().String()
    ev, _ := json.Marshal(req.Events)
    _, err := p.db.ExecContext(ctx, `INSERT INTO subscriptions (id, tenant_id, url, events, secret) VALUES ($1,$2,$3,$4,$5)`, id, req.TenantID, req.URL, ev, req.Secret)
    if err != nil { return model.Subscription{}, err }
    return model.Subscription{ID: id, TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
    filter, _ := json.Marshal([]string{eventType})
    rows, err := p.db.QueryContext(ctx, `SELECT id::text, url, COALESCE(secret,''), events FROM subscriptions WHERE tenant_id=$1 AND events @> $2::jsonb`, tenantID, string(filter))
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.Subscription{}
    for rows.Next() {
        var s model.Subscription
        var ev []byte
        if err := rows.Scan(&s.ID, &s.URL, &s.Secret, &ev); err != nil { return nil, err }
        s.TenantID = tenantID
        _ = json.Unmarshal(ev, &s.Events)
        out = append(out, s)
    }
    return out, rows.Err()
}

func (p *Postgres) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    rows, err := p.db.QueryContext(ctx, `SELECT id::text, url, COALESCE(secret,''), events FROM subscriptions
        WHERE tenant_id=$1 AND ($2 = '' OR id::text > $2) ORDER BY id LIMIT $3`, tenantID, cursor, limit)
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []model.Subscription{}
    var last string
    for rows.Next() {
        var s model.Subscription
        var ev []byte
        if err := rows.Scan(&s.ID, &s.URL, &s.Secret, &ev); err != nil { return nil, "", err }
        s.TenantID = tenantID
        _ = json.Unmarshal(ev, &s.Events)
        out = append(out, s)
        last = s.ID
    }
    next := ""
    if len(out) == limit { next = last }
    return out, next, nil
}

func (p *Postgres) DeleteSubscription(ctx context.Context, tenantID, id string) error {
    res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE tenant_id=$1 AND id::text=$2`, tenantID, id)
    if err != nil { return err }
    if n, _ := res.RowsAffected(); n == 0 { return ErrNotFound }
    return nil
}

// Webhook deliveries
func (p *Postgres) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
    id := uuid.New().String()
    dk := computeDedupKey(payload)
    _, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries (id, tenant_id, subscription_id, event_type, url, secret, payload, status, attempts, next_attempt_at, dedup_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,'pending',0,now(),$8)
        ON CONFLICT (tenant_id, event_type, url, dedup_key) DO NOTHING`, id, tenantID, nullIfEmpty(subscriptionID), eventType, url, nullIfEmpty(secret), payload, dk)
    if err != nil { return "", err }
    return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT id::text, tenant_id, COALESCE(subscription_id::text,''), event_type, url, COALESCE(secret,''), payload, status, attempts
        FROM webhook_deliveries WHERE status IN ('pending','retry') AND next_attempt_at <= now() ORDER BY next_attempt_at ASC LIMIT $1`, limit)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []WebhookDelivery{}
    for rows.Next() {
        var d WebhookDelivery
        if err := rows.Scan(&d.ID, &d.TenantID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil { return nil, err }
        out = append(out, d)
    }
    return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
    if !success {
        if nextAttemptAt == nil { t := time.Now().Add(1 * time.Minute); nextAttemptAt = &t }
        _, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='retry', last_error=$1, next_attempt_at=$2, updated_at=now(), response_code=$4, latency_ms=$5 WHERE id=$3`, nullIfEmpty(lastError), *nextAttemptAt, id, responseCode, latencyMs)
        return err
    }
    _, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='delivered', delivered_at=now(), updated_at=now(), response_code=$2, latency_ms=$3 WHERE id=$1`, id, responseCode, latencyMs)
    return err
}

// FailWebhookDelivery marks the delivery failed and copies it to the DLQ.
func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
    tx, err := p.db.BeginTx(ctx, nil)
    if err != nil { return err }
    defer tx.Rollback()
    if _, err := tx.ExecContext(ctx, `UPDATE webhook_deliveries SET status='failed', attempts=attempts+1, last_error=$2, updated_at=now(), response_code=$3, latency_ms=$4 WHERE id=$1`, id, nullIfEmpty(lastError), responseCode, latencyMs); err != nil {
        return err
    }
    if _, err := tx.ExecContext(ctx, `INSERT INTO webhook_dlq (id, tenant_id, delivery_id, event_type, url, secret, payload, attempts, last_error)
        SELECT $3, tenant_id, id, event_type, url, secret, payload, attempts, $2 FROM webhook_deliveries WHERE id=$1`, id, nullIfEmpty(lastError), uuid.New().String()); err != nil {
        return err
    }
    return tx.Commit()
}

func (p *Postgres) ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    rows, err := p.db.QueryContext(ctx, `SELECT id::text, event_type, status, attempts, next_attempt_at, COALESCE(last_error,''), url FROM webhook_deliveries
        WHERE tenant_id=$1 AND ($2 = '' OR status=$2) AND ($3 = '' OR id::text > $3) ORDER BY id LIMIT $4`, tenantID, status, cursor, limit)
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []map[string]any{}
    var last string
    for rows.Next() {
        var id, typ, st, lastErr, url string
        var attempts int
        var nextAt sql.NullTime
        if err := rows.Scan(&id, &typ, &st, &attempts, &nextAt, &lastErr, &url); err != nil { return nil, "", err }
        m := map[string]any{"id": id, "eventType": typ, "status": st, "attempts": attempts, "url": url}
        if nextAt.Valid { m["nextAttemptAt"] = nextAt.Time }
        if lastErr != "" { m["lastError"] = lastErr }
        out = append(out, m)
        last = id
    }
    next := ""
    if len(out) == limit { next = last }
    return out, next, nil
}

func (p *Postgres) RetryWebhookDelivery(ctx context.Context, tenantID, id string) error {
    res, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET status='pending', next_attempt_at=now() WHERE tenant_id=$1 AND id::text=$2`, tenantID, id)
    if err != nil { return err }
    if n, _ := res.RowsAffected(); n == 0 { return ErrNotFound }
    return nil
}

func (p *Postgres) ListWebhookDLQ(ctx context.Context, tenantID, cursor string, limit int) ([]map[string]any, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    rows, err := p.db.QueryContext(ctx, `SELECT id::text, delivery_id::text, event_type, COALESCE(last_error,''), attempts, created_at FROM webhook_dlq
        WHERE tenant_id=$1 AND ($2 = '' OR id::text > $2) ORDER BY id LIMIT $3`, tenantID, cursor, limit)
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []map[string]any{}
    var last string
    for rows.Next() {
        var id, did, typ, lastErr string
        var attempts int
        var at time.Time
        if err := rows.Scan(&id, &did, &typ, &lastErr, &attempts, &at); err != nil { return nil, "", err }
        out = append(out, map[string]any{"id": id, "deliveryId": did, "eventType": typ, "lastError": lastErr, "attempts": attempts, "createdAt": at})
        last = id
    }
    next := ""
    if len(out) == limit { next = last }
    return out, next, nil
}

func (p *Postgres) RequeueWebhookDLQ(ctx context.Context, tenantID, id string) error {
    tx, err := p.db.BeginTx(ctx, nil)
    if err != nil { return err }
    defer tx.Rollback()
    var did string
    err = tx.QueryRowContext(ctx, `DELETE FROM webhook_dlq WHERE tenant_id=$1 AND id::text=$2 RETURNING delivery_id::text`, tenantID, id).Scan(&did)
    if errors.Is(err, sql.ErrNoRows) { return ErrNotFound }
    if err != nil { return err }
    if _, err := tx.ExecContext(ctx, `UPDATE webhook_deliveries SET status='pending', attempts=0, next_attempt_at=now(), updated_at=now() WHERE id::text=$1`, did); err != nil {
        return err
    }
    return tx.Commit()
}

func (p *Postgres) GetOptimizerConfig(ctx context.Context, tenantID string) (map[string]any, error) {
    row := p.db.QueryRowContext(ctx, `SELECT config FROM optimizer_config WHERE tenant_id=$1`, tenantID)
    var js []byte
    if err := row.Scan(&js); err != nil {
        if errors.Is(err, sql.ErrNoRows) { return nil, nil }
        return nil, err
    }
    var cfg map[string]any
    if err := json.Unmarshal(js, &cfg); err != nil { return nil, err }
    return cfg, nil
}

func (p *Postgres) SaveOptimizerConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
    js, err := json.Marshal(cfg)
    if err != nil { return err }
    _, err = p.db.ExecContext(ctx, `INSERT INTO optimizer_config (tenant_id, config, updated_at) VALUES ($1, $2, now())
        ON CONFLICT (tenant_id) DO UPDATE SET config=$2, updated_at=now()`, tenantID, js)
    return err
}

// computeDedupKey keys a webhook payload by its "id" field, else by a short
// content hash.
func computeDedupKey(payload []byte) string {
    var m map[string]any
    if json.Unmarshal(payload, &m) == nil {
        if v, ok := m["id"].(string); ok && v != "" {
            return v
        }
    }
    sum := sha256.Sum256(payload)
    return hex.EncodeToString(sum[:8])
}

func nullIfEmpty(s string) any { if s == "" { return nil }; return s }
