package store

import (
    "context"
    "sync"
    "time"

    "github.com/google/uuid"
    "dronenav/internal/model"
)

// Memory is a simple in-memory store used when no database URL is set.
type Memory struct {
    mu        sync.Mutex
    scenarios map[string]memScenario          // id -> scenario
    scenTen   map[string][]string             // tenant -> scenario ids, insertion order
    runs      map[string]model.Run            // id -> run
    runsTen   map[string][]string             // tenant -> run ids, insertion order
    subs      map[string][]model.Subscription // tenant -> subscriptions
    // Webhooks queue state
    deliveries         map[string]*memDelivery // id -> delivery state
    deliveriesByTenant map[string][]string     // tenant -> delivery ids
    deliveryOrder      []string                // all ids, enqueue order
    dlq                []memDLQ
    optCfg             map[string]map[string]any // tenant -> config
}

type memScenario struct {
    summary  model.ScenarioSummary
    scenario model.Scenario
}

type memDLQ struct {
    ID         string
    TenantID   string
    DeliveryID string
    EventType  string
    LastError  string
    Code       int
    At         time.Time
}

func NewMemory() *Memory {
    return &Memory{
        scenarios: map[string]memScenario{},
        scenTen: map[string][]string{},
        runs: map[string]model.Run{},
        runsTen: map[string][]string{},
        subs: map[string][]model.Subscription{},
        deliveries: map[string]*memDelivery{},
        deliveriesByTenant: map[string][]string{},
        optCfg: map[string]map[string]any{},
    }
}

// memDelivery augments WebhookDelivery with scheduling/metrics
type memDelivery struct {
    WebhookDelivery
    NextAttemptAt time.Time
    LastError     string
    ResponseCode  int
    LatencyMs     int
    DeliveredAt   *time.Time
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

// page slices ids after cursor; next is empty on the last page.
func page(ids []string, cursor string, limit int) ([]string, string) {
    start := 0
    if cursor != "" {
        for i, id := range ids { if id == cursor { start = i + 1; break } }
    }
    if limit <= 0 { limit = 100 }
    end := start + limit
    if end > len(ids) { end = len(ids) }
    if start > end { start = end }
    next := ""
    if end < len(ids) { next = ids[end-1] }
    return ids[start:end], next
}

func (m *Memory) CreateScenario(ctx context.Context, tenantID string, s model.Scenario) (model.ScenarioSummary, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    id := uuid.New().String()
    sum := summarize(id, tenantID, s, time.Now().UTC())
    m.scenarios[id] = memScenario{summary: sum, scenario: s}
    m.scenTen[tenantID] = append(m.scenTen[tenantID], id)
    return sum, nil
}

func (m *Memory) GetScenario(ctx context.Context, tenantID, id string) (model.Scenario, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    sc, ok := m.scenarios[id]
    if !ok || sc.summary.TenantID != tenantID { return model.Scenario{}, ErrNotFound }
    return sc.scenario, nil
}

func (m *Memory) ListScenarios(ctx context.Context, tenantID, cursor string, limit int) ([]model.ScenarioSummary, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    ids, next := page(m.scenTen[tenantID], cursor, limit)
    out := make([]model.ScenarioSummary, 0, len(ids))
    for _, id := range ids { out = append(out, m.scenarios[id].summary) }
    return out, next, nil
}

func (m *Memory) SaveRun(ctx context.Context, run model.Run) error {
    m.mu.Lock(); defer m.mu.Unlock()
    if _, exists := m.runs[run.ID]; !exists {
        m.runsTen[run.TenantID] = append(m.runsTen[run.TenantID], run.ID)
    }
    m.runs[run.ID] = run
    return nil
}

func (m *Memory) GetRun(ctx context.Context, tenantID, id string) (model.Run, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    r, ok := m.runs[id]
    if !ok || r.TenantID != tenantID { return model.Run{}, ErrNotFound }
    return r, nil
}

func (m *Memory) ListRuns(ctx context.Context, tenantID, scenarioID, cursor string, limit int) ([]model.Run, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    ids := m.runsTen[tenantID]
    if scenarioID != "" {
        filtered := []string{}
        for _, id := range ids { if m.runs[id].ScenarioID == scenarioID { filtered = append(filtered, id) } }
        ids = filtered
    }
    ids, next := page(ids, cursor, limit)
    out := make([]model.Run, 0, len(ids))
    for _, id := range ids { out = append(out, m.runs[id]) }
    return out, next, nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    s := model.Subscription{ID: uuid.New().String(), TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}
    m.subs[req.TenantID] = append(m.subs[req.TenantID], s)
    return s, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    var out []model.Subscription
    for _, s := range m.subs[tenantID] {
        for _, e := range s.Events { if e == eventType { out = append(out, s); break } }
    }
    return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    list := m.subs[tenantID]
    ids := make([]string, len(list))
    for i, s := range list { ids[i] = s.ID }
    ids, next := page(ids, cursor, limit)
    items := []model.Subscription{}
    for _, s := range list {
        for _, id := range ids { if s.ID == id { items = append(items, s); break } }
    }
    return items, next, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, tenantID, id string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    arr := m.subs[tenantID]
    out := make([]model.Subscription, 0, len(arr))
    for _, s := range arr { if s.ID != id { out = append(out, s) } }
    if len(out) == len(arr) { return ErrNotFound }
    m.subs[tenantID] = out
    return nil
}

// Webhook deliveries
func (m *Memory) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    id := uuid.New().String()
    d := &memDelivery{WebhookDelivery: WebhookDelivery{ID: id, TenantID: tenantID, SubscriptionID: subscriptionID, EventType: eventType, URL: url, Secret: secret, Payload: payload, Status: DeliveryPending, Attempts: 0}, NextAttemptAt: time.Now()}
    m.deliveries[id] = d
    m.deliveriesByTenant[tenantID] = append(m.deliveriesByTenant[tenantID], id)
    m.deliveryOrder = append(m.deliveryOrder, id)
    return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    now := time.Now()
    out := []WebhookDelivery{}
    for _, id := range m.deliveryOrder {
        d := m.deliveries[id]
        if d == nil { continue }
        if d.Due() && !d.NextAttemptAt.After(now) {
            out = append(out, d.WebhookDelivery)
            if limit > 0 && len(out) >= limit { break }
        }
    }
    return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
    m.mu.Lock(); defer m.mu.Unlock()
    d := m.deliveries[id]
    if d == nil { return ErrNotFound }
    d.Attempts++
    d.ResponseCode = responseCode
    d.LatencyMs = latencyMs
    if success {
        d.Status = DeliveryDelivered
        now := time.Now()
        d.DeliveredAt = &now
    } else {
        d.Status = DeliveryRetry
        d.LastError = lastError
        if nextAttemptAt != nil { d.NextAttemptAt = *nextAttemptAt } else { d.NextAttemptAt = time.Now().Add(1 * time.Minute) }
    }
    return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
    m.mu.Lock(); defer m.mu.Unlock()
    d := m.deliveries[id]
    if d == nil { return ErrNotFound }
    d.Status = DeliveryFailed
    d.Attempts++
    d.LastError = lastError
    d.ResponseCode = responseCode
    d.LatencyMs = latencyMs
    m.dlq = append(m.dlq, memDLQ{ID: uuid.New().String(), TenantID: d.TenantID, DeliveryID: id, EventType: d.EventType, LastError: lastError, Code: responseCode, At: time.Now()})
    return nil
}

func (m *Memory) ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    ids := []string{}
    for _, id := range m.deliveriesByTenant[tenantID] {
        if d := m.deliveries[id]; d != nil && (status == "" || d.Status == status) { ids = append(ids, id) }
    }
    ids, next := page(ids, cursor, limit)
    out := []map[string]any{}
    for _, id := range ids {
        d := m.deliveries[id]
        item := map[string]any{"id": d.ID, "eventType": d.EventType, "status": d.Status, "attempts": d.Attempts, "url": d.URL}
        if !d.NextAttemptAt.IsZero() { item["nextAttemptAt"] = d.NextAttemptAt }
        if d.LastError != "" { item["lastError"] = d.LastError }
        out = append(out, item)
    }
    return out, next, nil
}

func (m *Memory) RetryWebhookDelivery(ctx context.Context, tenantID, id string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    d := m.deliveries[id]
    if d == nil || d.TenantID != tenantID { return ErrNotFound }
    d.Status = DeliveryPending
    d.NextAttemptAt = time.Now()
    return nil
}

func (m *Memory) ListWebhookDLQ(ctx context.Context, tenantID, cursor string, limit int) ([]map[string]any, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    ids := []string{}
    byID := map[string]memDLQ{}
    for _, e := range m.dlq {
        if e.TenantID == tenantID { ids = append(ids, e.ID); byID[e.ID] = e }
    }
    ids, next := page(ids, cursor, limit)
    out := []map[string]any{}
    for _, id := range ids {
        e := byID[id]
        out = append(out, map[string]any{"id": e.ID, "deliveryId": e.DeliveryID, "eventType": e.EventType, "lastError": e.LastError, "responseCode": e.Code, "createdAt": e.At})
    }
    return out, next, nil
}

// RequeueWebhookDLQ puts the dead-lettered delivery back on the queue and
// drops the DLQ entry.
func (m *Memory) RequeueWebhookDLQ(ctx context.Context, tenantID, id string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    for i, e := range m.dlq {
        if e.ID != id || e.TenantID != tenantID { continue }
        if d := m.deliveries[e.DeliveryID]; d != nil {
            d.Status = DeliveryPending
            d.Attempts = 0
            d.NextAttemptAt = time.Now()
        }
        m.dlq = append(m.dlq[:i], m.dlq[i+1:]...)
        return nil
    }
    return ErrNotFound
}

func (m *Memory) GetOptimizerConfig(ctx context.Context, tenantID string) (map[string]any, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if cfg, ok := m.optCfg[tenantID]; ok { return cfg, nil }
    return nil, nil
}

func (m *Memory) SaveOptimizerConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
    m.mu.Lock(); defer m.mu.Unlock()
    m.optCfg[tenantID] = cfg
    return nil
}
