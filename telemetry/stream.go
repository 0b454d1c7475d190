package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const streamWriteTimeout = 2 * time.Second

// StreamMessage is the JSON payload sent to stream clients.
type StreamMessage struct {
	Type  string        `json:"type"`
	Stats *WindowStats  `json:"stats,omitempty"`
	Perf  *PerfStatsCSV `json:"perf,omitempty"`
}

// Stream broadcasts window stats to websocket clients.
type Stream struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex

	server   *http.Server
	listener net.Listener
}

// NewStream creates a stream with no clients.
func NewStream() *Stream {
	return &Stream{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Start listens on addr and serves the websocket endpoint at /ws.
func (s *Stream) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.ServeHTTP)
	s.listener = ln
	s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("stats stream stopped", "error", err)
		}
	}()
	slog.Info("stats stream listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *Stream) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// ServeHTTP upgrades the request and registers the client until it disconnects.
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.mu.Lock()
	s.clients[conn] = &sync.Mutex{}
	s.mu.Unlock()
	defer s.remove(conn)

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Clients returns the number of connected clients.
func (s *Stream) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// BroadcastStats sends a window stats record to every client.
func (s *Stream) BroadcastStats(stats WindowStats) {
	s.broadcast(StreamMessage{Type: "stats", Stats: &stats})
}

// BroadcastPerf sends a perf record to every client.
func (s *Stream) BroadcastPerf(perf PerfStats, windowEnd int32) {
	row := perf.ToCSV(windowEnd)
	s.broadcast(StreamMessage{Type: "perf", Perf: &row})
}

func (s *Stream) broadcast(msg StreamMessage) {
	if s == nil {
		return
	}
	s.mu.RLock()
	var failed []*websocket.Conn
	for conn, lock := range s.clients {
		lock.Lock()
		conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		err := conn.WriteJSON(msg)
		lock.Unlock()
		if err != nil {
			failed = append(failed, conn)
		}
	}
	s.mu.RUnlock()

	for _, conn := range failed {
		s.remove(conn)
		conn.Close()
	}
}

func (s *Stream) remove(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
}

// Close disconnects every client and stops the server.
func (s *Stream) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	for conn := range s.clients {
		conn.Close()
		delete(s.clients, conn)
	}
	s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), streamWriteTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
