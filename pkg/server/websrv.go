package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crystal-mush/godaad/pkg/ddb"
	"github.com/crystal-mush/godaad/pkg/events"
	"github.com/crystal-mush/godaad/pkg/platform"
)

// WSMessage is the JSON frame exchanged with WebSocket clients. Clients
// send {"type":"command","command":"..."}; the server sends "text" frames
// with interpreter output and one frame per forwarded session event.
type WSMessage struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Command string         `json:"command,omitempty"`
}

// routes registers the HTTP endpoints.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())
	if s.auth != nil {
		s.registerRESTRoutes(mux)
	}
	return mux
}

func (s *Server) upgrader() *websocket.Upgrader {
	origins := s.conf.CORSOrigins
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(origins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, o := range origins {
				if strings.EqualFold(o, origin) {
					return true
				}
			}
			return false
		},
	}
}

// handleWebSocket upgrades the request and runs a session over it. The
// handler returns when the session ends.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade error: %v", err)
		return
	}
	s.sessions.Add(1)
	defer s.sessions.Done()

	remoteAddr := r.RemoteAddr
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		remoteAddr, _, _ = strings.Cut(xff, ",")
		remoteAddr = strings.TrimSpace(remoteAddr)
	}

	wc := &wsConn{conn: conn}
	pr, pw := io.Pipe()
	term := platform.NewTerminal(pr, wc)

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		wsReadLoop(wc, pw)
	}()

	ctx := r.Context()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		stop()
		wc.close()
		term.Close()
		pr.Close()
		conn.Close()
		<-readDone
		log.Printf("server: [ws] connection closed from %s", remoteAddr)
	}()

	if s.conf.Welcome != "" {
		wc.sendJSON(WSMessage{Type: "welcome", Text: s.conf.Welcome})
	}
	if err := s.runSession(ctx, TransportWebSocket, remoteAddr, term, wc); err != nil {
		log.Printf("server: [ws] %s: %v", remoteAddr, err)
	}
}

// wsReadLoop feeds command frames into the session's input pipe until
// the connection fails.
func wsReadLoop(wc *wsConn, pw *io.PipeWriter) {
	defer pw.Close()
	for {
		_, msgBytes, err := wc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: [ws] read error: %v", err)
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			wc.sendJSON(WSMessage{Type: "error", Text: "Invalid JSON message"})
			continue
		}
		switch msg.Type {
		case "command":
			line := strings.ReplaceAll(msg.Command, "\n", " ")
			if len(line) > ddb.MaxInputLen {
				line = line[:ddb.MaxInputLen]
			}
			if _, err := io.WriteString(pw, line+"\n"); err != nil {
				return
			}
		default:
			wc.sendJSON(WSMessage{Type: "error", Text: fmt.Sprintf("Unknown message type: %s", msg.Type)})
		}
	}
}

// wsConn is the output side of a WebSocket session: interpreter text
// goes out as "text" frames, and as a session subscriber it forwards
// the events a client needs to drive its input line.
type wsConn struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

func (wc *wsConn) sendJSON(msg WSMessage) error {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	if wc.closed {
		return io.ErrClosedPipe
	}
	wc.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return wc.conn.WriteJSON(msg)
}

// Write implements io.Writer for the terminal platform.
func (wc *wsConn) Write(p []byte) (int, error) {
	if err := wc.sendJSON(WSMessage{Type: "text", Text: string(p)}); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Receive implements events.Subscriber.
func (wc *wsConn) Receive(ev events.Event) {
	switch ev.Type {
	case events.EvPrompt, events.EvSentence, events.EvTimeout, events.EvSave, events.EvLoad, events.EvReload:
		wc.sendJSON(WSMessage{Type: ev.Type.String(), Text: ev.Text, Data: ev.Data})
	}
}

// Closed implements events.Subscriber.
func (wc *wsConn) Closed() bool {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	return wc.closed
}

func (wc *wsConn) close() {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	wc.closed = true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	db := s.DB()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":         "ok",
		"version":        Version,
		"game":           s.conf.Name,
		"language":       db.Header.Language.String(),
		"machine":        db.Header.Machine.String(),
		"uptime_seconds": time.Since(s.metrics.startTime).Seconds(),
	})
}
