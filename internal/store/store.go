package store

import (
    "context"
    "errors"
    "time"

    "dronenav/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
    // Scenarios
    CreateScenario(ctx context.Context, tenantID string, s model.Scenario) (model.ScenarioSummary, error)
    GetScenario(ctx context.Context, tenantID, id string) (model.Scenario, error)
    ListScenarios(ctx context.Context, tenantID, cursor string, limit int) ([]model.ScenarioSummary, string, error)

    // Optimization runs
    SaveRun(ctx context.Context, run model.Run) error
    GetRun(ctx context.Context, tenantID, id string) (model.Run, error)
    ListRuns(ctx context.Context, tenantID, scenarioID, cursor string, limit int) ([]model.Run, string, error)

    // Subscriptions
    CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
    GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error)
    ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error)
    DeleteSubscription(ctx context.Context, tenantID, id string) error

    // Webhook deliveries
    EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
    FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
    MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
    FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
    ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error)
    RetryWebhookDelivery(ctx context.Context, tenantID, id string) error

    // Dead-letter queue
    ListWebhookDLQ(ctx context.Context, tenantID, cursor string, limit int) ([]map[string]any, string, error)
    RequeueWebhookDLQ(ctx context.Context, tenantID, id string) error

    // Optimizer config per tenant
    GetOptimizerConfig(ctx context.Context, tenantID string) (map[string]any, error)
    SaveOptimizerConfig(ctx context.Context, tenantID string, cfg map[string]any) error

    Ping(ctx context.Context) error
}

var ErrNotFound = errors.New("not found")

func summarize(id, tenantID string, s model.Scenario, at time.Time) model.ScenarioSummary {
    return model.ScenarioSummary{ID: id, TenantID: tenantID, Name: s.Name, Vehicles: len(s.Vehicles), Deliveries: len(s.Deliveries), Zones: len(s.Zones), CreatedAt: at}
}
