// Package main runs a demo WebSocket client that follows an async
// optimization run until it completes.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"

	"github.com/gorilla/websocket"
)

type runEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const demoRequest = `{
  "scenario": {
    "name": "ws-demo",
    "vehicles": [{"id": 1, "maxWeight": 5, "battery": 10000, "speed": 10, "start": {"x": 0, "y": 0}}],
    "deliveries": [
      {"id": 1, "pos": {"x": 10, "y": 0}, "weight": 1, "priority": 3, "timeWindow": {"start": "09:00", "end": "12:00"}},
      {"id": 2, "pos": {"x": 20, "y": 10}, "weight": 2, "priority": 2, "timeWindow": {"start": "09:00", "end": "12:00"}},
      {"id": 3, "pos": {"x": 5, "y": 25}, "weight": 1, "priority": 5, "timeWindow": {"start": "09:00", "end": "12:00"}}
    ],
    "noFlyZones": []
  },
  "populationSize": 20,
  "generations": 40
}`

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	req, _ := http.NewRequest(http.MethodPost, base+"/v1/optimize?async=true", bytes.NewReader([]byte(demoRequest)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", "t_demo")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusAccepted {
		log.Fatalf("optimize: HTTP %d", resp.StatusCode)
	}
	var run struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		log.Fatal(err)
	}
	log.Printf("Run ID: %s", run.ID)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/runs/" + run.ID + "/ws"}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	for {
		var evt runEvent
		if err := c.ReadJSON(&evt); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return
			}
			log.Fatalf("read: %v", err)
		}
		log.Printf("WS <- %s: %s", evt.Type, string(evt.Data))
	}
}
