package store

// Webhook delivery states. Pending and retry rows are due for sending;
// failed rows also have a dead-letter entry.
const (
    DeliveryPending   = "pending"
    DeliveryRetry     = "retry"
    DeliveryDelivered = "delivered"
    DeliveryFailed    = "failed"
)

// WebhookDelivery is a queued notification as handed to the worker.
type WebhookDelivery struct {
    ID             string
    TenantID       string
    SubscriptionID string
    EventType      string
    URL            string
    Secret         string
    Payload        []byte
    Status         string
    Attempts       int
}

// Attempt is the 1-based number of the next send.
func (d WebhookDelivery) Attempt() int { return d.Attempts + 1 }

// Due reports whether the delivery still waits to be sent.
func (d WebhookDelivery) Due() bool { return d.Status == DeliveryPending || d.Status == DeliveryRetry }
