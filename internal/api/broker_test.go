package api

import (
    "testing"
    "time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
    b := NewBroker()
    rid := "r1"
    ch := b.Subscribe(rid)

    evt := RunEvent{Type: EventGeneration, Data: map[string]any{"generation": 1}}
    b.Publish(rid, evt)
    b.Publish("other", RunEvent{Type: EventRunFailed})

    select {
    case got := <-ch:
        if got.Type != evt.Type { t.Fatalf("got type %s, want %s", got.Type, evt.Type) }
        if got.Data["generation"].(int) != 1 { t.Fatalf("bad payload: %+v", got.Data) }
    case <-time.After(200 * time.Millisecond):
        t.Fatal("timeout waiting for event")
    }

    b.Unsubscribe(rid, ch)
    if _, ok := <-ch; ok { t.Fatal("channel should be closed after unsubscribe") }
    // second unsubscribe is a no-op
    b.Unsubscribe(rid, ch)
    b.Publish(rid, evt)
}

func TestBrokerDropsWhenFull(t *testing.T) {
    b := NewBroker()
    ch := b.Subscribe("r")
    for i := 0; i < 100; i++ {
        b.Publish("r", RunEvent{Type: EventGeneration})
    }
    if len(ch) != cap(ch) { t.Fatalf("expected full buffer, got %d/%d", len(ch), cap(ch)) }
    b.Unsubscribe("r", ch)
}
