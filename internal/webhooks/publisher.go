package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"dronenav/internal/store"
)

// EventRunCompleted is emitted when an optimization run finishes.
const EventRunCompleted = "run.completed"

type Publisher struct {
	Store store.Store
	Log   zerolog.Logger
}

func NewPublisher(s store.Store, log zerolog.Logger) *Publisher {
	return &Publisher{Store: s, Log: log}
}

// Emit enqueues an event for every subscription of the tenant that listens
// to eventType. It returns the number of deliveries enqueued.
func (p *Publisher) Emit(ctx context.Context, tenantID, eventType string, data any) int {
	subs, err := p.Store.GetSubscriptionsForEvent(ctx, tenantID, eventType)
	if err != nil {
		p.Log.Error().Err(err).Str("tenant", tenantID).Str("event", eventType).Msg("load subscriptions")
		return 0
	}
	if len(subs) == 0 {
		return 0
	}
	payload := map[string]any{
		"id":       fmt.Sprintf("evt_%d", time.Now().UnixNano()),
		"type":     eventType,
		"tenantId": tenantID,
		"ts":       time.Now().UTC().Format(time.RFC3339),
		"data":     data,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		p.Log.Error().Err(err).Str("event", eventType).Msg("encode webhook payload")
		return 0
	}
	n := 0
	for _, s := range subs {
		if _, err := p.Store.EnqueueWebhook(ctx, tenantID, s.ID, eventType, s.URL, s.Secret, body); err != nil {
			p.Log.Error().Err(err).Str("subscription", s.ID).Msg("enqueue webhook")
			continue
		}
		n++
	}
	return n
}
