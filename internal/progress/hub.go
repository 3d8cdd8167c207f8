// Package progress broadcasts run progress to WebSocket subscribers.
package progress

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"cyber-risk-lab/internal/domain"
	"cyber-risk-lab/internal/engine"
)

// Message is a JSON progress update sent to WebSocket clients.
type Message struct {
	RunID     string  `json:"run_id"`
	Current   int     `json:"current_iteration"`
	Total     int     `json:"total_iterations"`
	Percent   float64 `json:"percent"`
	Status    string  `json:"status"`
	Timestamp int64   `json:"timestamp_ms"`
}

// Hub manages WebSocket connections and fans run progress out to
// subscribers. A client subscribes to a single run via the run_id query
// parameter, or to all runs when the parameter is absent.
type Hub struct {
	clients    map[*websocket.Conn]string // conn -> run_id filter, "" means all
	broadcast  chan []byte
	register   chan subscription
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

type subscription struct {
	conn  *websocket.Conn
	runID string
}

// NewHub creates a new progress hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]string),
		broadcast:  make(chan []byte, 256),
		register:   make(chan subscription),
		unregister: make(chan *websocket.Conn),
	}
}

// Run starts the hub's main event loop. Must be called in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.register:
			h.mu.Lock()
			h.clients[sub.conn] = sub.runID
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("[progress] ws client connected, total=%d", total)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()

		case data := <-h.broadcast:
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			h.mu.Lock()
			for conn, filter := range h.clients {
				if filter != "" && filter != msg.RunID {
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Sink returns a ProgressSink publishing to this hub for the given run.
// Its signature matches engine.SinkFactory.
func (h *Hub) Sink(runID string) engine.ProgressSink {
	return &hubSink{hub: h, runID: runID}
}

// publish queues a message for broadcast. Drops if the buffer is full so
// the coordinator's merge loop never stalls on slow clients.
func (h *Hub) publish(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

type hubSink struct {
	hub   *Hub
	runID string
}

// Report implements engine.ProgressSink.
func (s *hubSink) Report(current, total int, status domain.RunStatus) {
	pct := 0.0
	if total > 0 {
		pct = 100 * float64(current) / float64(total)
	}
	s.hub.publish(Message{
		RunID:     s.runID,
		Current:   current,
		Total:     total,
		Percent:   pct,
		Status:    string(status),
		Timestamp: time.Now().UnixMilli(),
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// HandleWS handles WebSocket upgrade requests at GET /ws/progress.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[progress] ws upgrade failed: %v", err)
		return
	}

	h.register <- subscription{conn: conn, runID: r.URL.Query().Get("run_id")}

	// Read pump: keep connection alive and detect disconnects.
	go func() {
		defer func() { h.unregister <- conn }()
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	// Ping ticker to keep connection alive through proxies.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			h.mu.RLock()
			_, ok := h.clients[conn]
			h.mu.RUnlock()
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()
}
