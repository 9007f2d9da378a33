// Package devtoolstest provides a scripted in-process debuggee for tests.
package devtoolstest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Request is a frame received by the fake debuggee.
type Request struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
	Type   string          `json:"type"`
}

// Reply is what a Handler answers. Exactly one of Result or Error is sent;
// a nil Result with no Error answers {}. Events are written before the response.
type Reply struct {
	Result any
	Error  any
	Events []Event
}

// Event is a frame pushed by the fake debuggee.
type Event struct {
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// Handler answers one method.
type Handler func(req Request) Reply

// Server is a WebSocket endpoint speaking the DevTools frame format.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]Handler
	requests []Request
	conns    []*websocket.Conn
	writeMu  sync.Mutex
}

// NewServer starts a debuggee that answers every method with {} unless a
// handler was registered for it.
func NewServer() *Server {
	s := &Server{handlers: make(map[string]Handler)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// WebSocketURL returns the ws:// address of the endpoint.
func (s *Server) WebSocketURL() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http")
}

// Handle registers a handler for method.
func (s *Server) Handle(method string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// Requests returns the frames received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Methods returns the method names received so far, in order.
func (s *Server) Methods() []string {
	var methods []string
	for _, r := range s.Requests() {
		methods = append(methods, r.Method)
	}
	return methods
}

// Emit pushes an event to every connected client.
func (s *Server) Emit(method string, params any) {
	s.mu.Lock()
	conns := append([]*websocket.Conn(nil), s.conns...)
	s.mu.Unlock()

	for _, c := range conns {
		s.write(c, Event{Method: method, Params: params})
	}
}

// Close disconnects clients and stops the server.
func (s *Server) Close() {
	s.mu.Lock()
	for _, c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.Server.Close()
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			continue
		}

		s.mu.Lock()
		s.requests = append(s.requests, req)
		h := s.handlers[req.Method]
		s.mu.Unlock()

		reply := Reply{}
		if h != nil {
			reply = h(req)
		}

		for _, evt := range reply.Events {
			s.write(conn, evt)
		}

		switch {
		case reply.Error != nil:
			s.write(conn, map[string]any{"id": req.ID, "error": reply.Error})
		case reply.Result != nil:
			s.write(conn, map[string]any{"id": req.ID, "result": reply.Result})
		default:
			s.write(conn, map[string]any{"id": req.ID, "result": map[string]any{}})
		}
	}
}

func (s *Server) write(conn *websocket.Conn, v any) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.WriteJSON(v)
}
