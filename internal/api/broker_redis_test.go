package api

import (
    "context"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/rs/zerolog"
)

func TestRedisBrokerPublishSubscribe(t *testing.T) {
    mr := miniredis.RunT(t)
    b, err := NewRedisBroker(context.Background(), "redis://"+mr.Addr(), zerolog.Nop())
    if err != nil { t.Fatalf("new broker: %v", err) }
    defer b.Close()

    ch := b.Subscribe("r1")
    b.Publish("other", RunEvent{Type: EventRunFailed})
    b.Publish("r1", RunEvent{Type: EventGeneration, Data: map[string]any{"generation": 3}})

    select {
    case got := <-ch:
        if got.Type != EventGeneration { t.Fatalf("got type %s", got.Type) }
        if got.Data["generation"].(float64) != 3 { t.Fatalf("bad payload: %+v", got.Data) }
    case <-time.After(2 * time.Second):
        t.Fatal("timeout waiting for event")
    }

    if err := b.Ping(context.Background()); err != nil { t.Fatalf("ping: %v", err) }

    b.Unsubscribe("r1", ch)
    deadline := time.After(2 * time.Second)
    for {
        select {
        case _, ok := <-ch:
            if !ok { return }
        case <-deadline:
            t.Fatal("channel not closed after unsubscribe")
        }
    }
}

func TestRedisBrokerUnreachable(t *testing.T) {
    mr := miniredis.RunT(t)
    addr := mr.Addr()
    mr.Close()
    if _, err := NewRedisBroker(context.Background(), "redis://"+addr, zerolog.Nop()); err == nil {
        t.Fatal("expected ping error")
    }
}
