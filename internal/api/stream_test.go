package api

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"dronenav/internal/model"
)

func startAsyncRun(t *testing.T, srv *httptest.Server) model.Run {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/optimize?async=true", strings.NewReader(optimizeBody(lineScenario)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("async optimize: got %d", resp.StatusCode)
	}
	var run model.Run
	if err := jsonDecode(resp, &run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.ID == "" || run.Status != runRunning {
		t.Fatalf("pending run: %+v", run)
	}
	return run
}

func TestRunEventsSSE(t *testing.T) {
	_, h := newTestServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()
	run := startAsyncRun(t, srv)

	resp, err := http.Get(srv.URL + "/v1/runs/" + run.ID + "/events/stream")
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type %q", ct)
	}
	events := []string{}
	sc := bufio.NewScanner(resp.Body)
	deadline := time.Now().Add(5 * time.Second)
	for sc.Scan() && time.Now().Before(deadline) {
		if line := sc.Text(); strings.HasPrefix(line, "event: ") {
			events = append(events, strings.TrimPrefix(line, "event: "))
		}
	}
	if len(events) < 2 || events[0] != "heartbeat" || events[len(events)-1] != EventRunCompleted {
		t.Fatalf("unexpected events: %v", events)
	}

	// the stored run reached its final state
	rr := do(t, h, http.MethodGet, "/v1/runs/"+run.ID, nil)
	if got := decode[model.Run](t, rr); got.Status != runCompleted || got.Delivered != 3 {
		t.Fatalf("stored run: %+v", got)
	}
}

func TestRunEventsWebSocket(t *testing.T) {
	_, h := newTestServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()
	run := startAsyncRun(t, srv)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/runs/" + run.ID + "/ws"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = c.Close() }()
	_ = c.SetReadDeadline(time.Now().Add(5 * time.Second))
	var last RunEvent
	for {
		var evt RunEvent
		if err := c.ReadJSON(&evt); err != nil {
			break
		}
		if evt.Type == EventGeneration && evt.Data["runId"] != run.ID {
			t.Fatalf("event for another run: %+v", evt)
		}
		last = evt
	}
	if last.Type != EventRunCompleted || last.Data["delivered"] != float64(3) {
		t.Fatalf("last event: %+v", last)
	}
}

func TestStreamUnknownRun(t *testing.T) {
	_, h := newTestServer(t)
	if rr := do(t, h, http.MethodGet, "/v1/runs/nope/events/stream", nil); rr.Code != 404 {
		t.Fatalf("got %d", rr.Code)
	}
}

func jsonDecode(resp *http.Response, v any) error {
	return json.NewDecoder(resp.Body).Decode(v)
}
