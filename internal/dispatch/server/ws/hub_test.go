package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/broadcast"
	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
)

type frame struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	return websocket.DefaultDialer.Dial(url, header)
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", h.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLiveName(t *testing.T) {
	tests := map[string]string{
		model.TopicAmbulanceLocation: "ambulance:location:updated",
		model.TopicAmbulanceStatus:   "ambulance:status:changed",
		model.TopicRequestCreated:    "request:created",
		model.TopicRequestStatus:     "request:status",
	}
	for topic, want := range tests {
		if got := LiveName(topic); got != want {
			t.Errorf("LiveName(%q) = %q, want %q", topic, got, want)
		}
	}
}

func TestHubForwardsEvents(t *testing.T) {
	hub := NewHub(nil)
	bus := broadcast.New()
	hub.Attach(bus)
	t.Cleanup(hub.Detach)

	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	conn, _, err := dial(t, srv, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitClients(t, hub, 1)

	payload := &model.StatusChanged{AmbulanceID: 4, PreviousStatus: model.AmbulanceAvailable, NewStatus: model.AmbulanceBusy}
	if err := bus.Publish(context.Background(), model.TopicAmbulanceStatus, "4", payload); err != nil {
		t.Fatalf("publish: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read: %v", err)
	}
	if f.Event != "ambulance:status:changed" || f.Timestamp == 0 {
		t.Fatalf("unexpected frame %+v", f)
	}
	var got model.StatusChanged
	if err := json.Unmarshal(f.Data, &got); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if got.AmbulanceID != 4 || got.NewStatus != model.AmbulanceBusy {
		t.Fatalf("data = %+v", got)
	}
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	hub := NewHub([]string{"https://ops.rapidaid.test"})
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	_, resp, err := dial(t, srv, http.Header{"Origin": {"https://elsewhere.test"}})
	if err == nil {
		t.Fatal("expected the handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("response = %v", resp)
	}

	conn, _, err := dial(t, srv, http.Header{"Origin": {"https://ops.rapidaid.test"}})
	if err != nil {
		t.Fatalf("allowed origin: %v", err)
	}
	conn.Close()
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(nil)
	slow := &client{send: make(chan []byte, 1)}
	if !hub.add(slow) {
		t.Fatal("add refused")
	}

	event := &model.Event{Topic: model.TopicRequestCreated, Timestamp: time.Now(), Payload: &model.RequestChanged{}}
	hub.Handle(context.Background(), event)
	if hub.ClientCount() != 1 {
		t.Fatal("client with room in its buffer must stay connected")
	}
	hub.Handle(context.Background(), event)
	if hub.ClientCount() != 0 {
		t.Fatal("client with a full buffer must be dropped")
	}
	if _, ok := <-slow.send; !ok {
		t.Fatal("queued frame should still be readable")
	}
	if _, ok := <-slow.send; ok {
		t.Fatal("send channel should be closed")
	}
}

func TestHubStartClosesClients(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	conn, _, err := dial(t, srv, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitClients(t, hub, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Start(ctx) }()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("start: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("read after shutdown = %v, want normal closure", err)
	}

	late, _, err := dial(t, srv, nil)
	if err != nil {
		t.Fatalf("dial after shutdown: %v", err)
	}
	defer late.Close()
	_ = late.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := late.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("late client read = %v, want going away", err)
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("client count = %d after shutdown", hub.ClientCount())
	}
}
