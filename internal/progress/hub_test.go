package progress

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"cyber-risk-lab/internal/domain"
)

func dialHub(t *testing.T, serverURL, runID string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(serverURL, "http")
	if runID != "" {
		wsURL += "?run_id=" + runID
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return msg
}

func TestHub_BroadcastToSubscriber(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer server.Close()

	conn := dialHub(t, server.URL, "")
	defer conn.Close()

	// Registration races the first publish; retry until delivered.
	sink := hub.Sink("run-1")
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			sink.Report(500, 1000, domain.RunRunning)
			time.Sleep(20 * time.Millisecond)
		}
	}()

	msg := readMessage(t, conn)
	<-done

	if msg.RunID != "run-1" {
		t.Errorf("run_id = %q, want run-1", msg.RunID)
	}
	if msg.Current != 500 || msg.Total != 1000 {
		t.Errorf("progress = %d/%d, want 500/1000", msg.Current, msg.Total)
	}
	if msg.Percent != 50 {
		t.Errorf("percent = %v, want 50", msg.Percent)
	}
	if msg.Status != string(domain.RunRunning) {
		t.Errorf("status = %q, want %q", msg.Status, domain.RunRunning)
	}
}

func TestHub_RunFilter(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer server.Close()

	conn := dialHub(t, server.URL, "run-b")
	defer conn.Close()

	sinkA := hub.Sink("run-a")
	sinkB := hub.Sink("run-b")
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			sinkA.Report(100, 1000, domain.RunRunning)
			sinkB.Report(200, 1000, domain.RunRunning)
			time.Sleep(20 * time.Millisecond)
		}
	}()

	msg := readMessage(t, conn)
	<-done

	// Subscribed to run-b only; run-a messages must never arrive.
	if msg.RunID != "run-b" {
		t.Errorf("run_id = %q, want run-b", msg.RunID)
	}
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	hub := NewHub()
	// Hub loop deliberately not running; the buffer fills and overflow
	// must be dropped rather than block the caller.

	sink := hub.Sink("run-1")
	doneCh := make(chan struct{})
	go func() {
		for i := 0; i < 1_000; i++ {
			sink.Report(i, 1_000, domain.RunRunning)
		}
		close(doneCh)
	}()

	select {
	case <-doneCh:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked with no consumer")
	}
}
