package api

import (
    "context"
    "encoding/json"
    "sync"
    "time"

    redis "github.com/redis/go-redis/v9"
    "github.com/rs/zerolog"
)

// RedisBroker implements EventBroker over Redis Pub/Sub so any API instance
// can stream a run executed by another.
type RedisBroker struct {
    rdb *redis.Client
    log zerolog.Logger
    mu  sync.Mutex
    ps  map[chan RunEvent]*redis.PubSub
}

func NewRedisBroker(ctx context.Context, url string, log zerolog.Logger) (*RedisBroker, error) {
    opt, err := redis.ParseURL(url)
    if err != nil { return nil, err }
    rdb := redis.NewClient(opt)
    if err := rdb.Ping(ctx).Err(); err != nil {
        _ = rdb.Close()
        return nil, err
    }
    return &RedisBroker{rdb: rdb, log: log, ps: map[chan RunEvent]*redis.PubSub{}}, nil
}

func (b *RedisBroker) Subscribe(runID string) chan RunEvent {
    ch := make(chan RunEvent, 32)
    ctx := context.Background()
    ps := b.rdb.Subscribe(ctx, b.chanName(runID))
    // wait for the subscription confirmation so no publish is missed
    if _, err := ps.Receive(ctx); err != nil {
        b.log.Warn().Err(err).Str("run", runID).Msg("redis subscribe")
    }
    b.mu.Lock()
    b.ps[ch] = ps
    b.mu.Unlock()
    go func() {
        defer close(ch)
        for msg := range ps.Channel() {
            var evt RunEvent
            if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil { continue }
            select { case ch <- evt: default: }
        }
    }()
    return ch
}

// Unsubscribe closes the Pub/Sub; ch is closed by the reader goroutine.
func (b *RedisBroker) Unsubscribe(runID string, ch chan RunEvent) {
    b.mu.Lock()
    ps := b.ps[ch]
    delete(b.ps, ch)
    b.mu.Unlock()
    if ps != nil { _ = ps.Close() }
}

func (b *RedisBroker) Publish(runID string, evt RunEvent) {
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    data, err := json.Marshal(evt)
    if err != nil { return }
    if err := b.rdb.Publish(ctx, b.chanName(runID), data).Err(); err != nil {
        b.log.Warn().Err(err).Str("run", runID).Msg("redis publish")
    }
}

func (b *RedisBroker) Ping(ctx context.Context) error { return b.rdb.Ping(ctx).Err() }

func (b *RedisBroker) Close() error { return b.rdb.Close() }

func (b *RedisBroker) chanName(runID string) string { return "dronenav:run:" + runID }
