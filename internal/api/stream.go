package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"dronenav/internal/model"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

var heartbeatEvery = 15 * time.Second

func terminal(evt RunEvent) bool {
	return evt.Type == EventRunCompleted || evt.Type == EventRunFailed
}

// finalEvent describes a run that is no longer running.
func finalEvent(run model.Run) RunEvent {
	if run.Status == runCompleted {
		return RunEvent{Type: EventRunCompleted, Data: map[string]any{
			"runId": run.ID, "scenarioId": run.ScenarioID, "fitness": run.Fitness, "delivered": run.Delivered, "summary": run.Summary,
		}}
	}
	return RunEvent{Type: EventRunFailed, Data: map[string]any{"runId": run.ID, "status": run.Status, "error": run.Error}}
}

// subscribeRun subscribes before re-reading the run so a completion between
// the two cannot be missed. A non-nil event means the run already ended.
func (s *Server) subscribeRun(r *http.Request, run model.Run) (chan RunEvent, *RunEvent) {
	ch := s.Broker.Subscribe(run.ID)
	if cur, err := s.Store.GetRun(r.Context(), run.TenantID, run.ID); err == nil {
		run = cur
	}
	if run.Status != runRunning {
		evt := finalEvent(run)
		return ch, &evt
	}
	return ch, nil
}

// streamSSE serves /v1/runs/{id}/events/stream until the run ends or the
// client goes away.
func (s *Server) streamSSE(w http.ResponseWriter, r *http.Request, run model.Run) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	ch, last := s.subscribeRun(r, run)
	defer s.Broker.Unsubscribe(run.ID, ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	send := func(evt RunEvent) {
		b, _ := json.Marshal(evt.Data)
		fmt.Fprintf(w, "event: %s\n", evt.Type)
		fmt.Fprintf(w, "data: %s\n\n", b)
		flusher.Flush()
	}
	heartbeat := func() {
		fmt.Fprintf(w, "event: heartbeat\n")
		fmt.Fprintf(w, "data: {\"runId\":%q,\"ts\":%q}\n\n", run.ID, time.Now().UTC().Format(time.RFC3339))
		flusher.Flush()
	}
	heartbeat()
	if last != nil {
		send(*last)
		return
	}
	ticker := time.NewTicker(heartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			send(evt)
			if terminal(evt) {
				return
			}
		case <-ticker.C:
			heartbeat()
		}
	}
}

// streamWS serves /v1/runs/{id}/ws. Each message is a JSON RunEvent; the
// server closes the socket after the terminal event.
func (s *Server) streamWS(w http.ResponseWriter, r *http.Request, run model.Run) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()
	ch, last := s.subscribeRun(r, run)
	defer s.Broker.Unsubscribe(run.ID, ch)

	closeNormal := func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}
	if last != nil {
		_ = conn.WriteJSON(last)
		closeNormal()
		return
	}

	// reader: only control frames are expected; exits when the peer closes
	gone := make(chan struct{})
	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(60 * time.Second)) })
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(heartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
			if terminal(evt) {
				closeNormal()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
