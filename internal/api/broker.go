package api

import (
    "sync"
)

// RunEvent is one progress message for a run: a generation's stats, the
// final result, or a failure.
type RunEvent struct {
    Type string         `json:"type"`
    Data map[string]any `json:"data"`
}

const (
    EventGeneration   = "run.generation"
    EventRunCompleted = "run.completed"
    EventRunFailed    = "run.failed"
)

// EventBroker fans run events out to stream subscribers.
type EventBroker interface {
    Subscribe(runID string) chan RunEvent
    Unsubscribe(runID string, ch chan RunEvent)
    Publish(runID string, evt RunEvent)
}

// Broker is the in-process EventBroker.
type Broker struct {
    mu   sync.Mutex
    subs map[string]map[chan RunEvent]struct{} // runID -> set of channels
}

func NewBroker() *Broker {
    return &Broker{subs: map[string]map[chan RunEvent]struct{}{}}
}

func (b *Broker) Subscribe(runID string) chan RunEvent {
    ch := make(chan RunEvent, 32)
    b.mu.Lock()
    if b.subs[runID] == nil { b.subs[runID] = map[chan RunEvent]struct{}{} }
    b.subs[runID][ch] = struct{}{}
    b.mu.Unlock()
    return ch
}

func (b *Broker) Unsubscribe(runID string, ch chan RunEvent) {
    b.mu.Lock()
    defer b.mu.Unlock()
    m := b.subs[runID]
    if _, ok := m[ch]; !ok { return }
    delete(m, ch)
    if len(m) == 0 { delete(b.subs, runID) }
    close(ch)
}

// Publish never blocks; a subscriber with a full buffer misses the event.
func (b *Broker) Publish(runID string, evt RunEvent) {
    b.mu.Lock()
    defer b.mu.Unlock()
    for ch := range b.subs[runID] {
        select { case ch <- evt: default: }
    }
}
