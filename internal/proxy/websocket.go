package proxy

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shehryarbajwa/devtools-inspector/internal/devtools"
	"github.com/shehryarbajwa/devtools-inspector/internal/session"
)

const (
	eventBuffer = 256
	writeWait   = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server streams session events to WebSocket clients
type Server struct {
	sessionMgr *session.Manager
}

func NewServer(sessionMgr *session.Manager) *Server {
	return &Server{
		sessionMgr: sessionMgr,
	}
}

// HandleEvents forwards every event of a running session as a
// {method, params} text frame until either side goes away.
func (s *Server) HandleEvents(w http.ResponseWriter, r *http.Request, sessionID string) {
	inspector, err := s.sessionMgr.Inspector(sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Session is not running", http.StatusConflict)
		return
	}

	// Subscribe before the handshake completes so no event after it is missed.
	events, cancel := inspector.Hub().Subscribe(eventBuffer)
	defer cancel()

	clientConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}
	defer clientConn.Close()

	log.Printf("✅ Client subscribed to session %s events", shortID(sessionID))

	errChan := make(chan error, 1)

	// Client reads only detect the close; clients have nothing to send.
	go func() {
		for {
			if _, _, err := clientConn.ReadMessage(); err != nil {
				errChan <- err
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				s.closeClient(clientConn, "session ended")
				log.Printf("🔌 Session %s ended, event stream closed", shortID(sessionID))
				return
			}
			if err := s.writeEvent(clientConn, ev); err != nil {
				log.Printf("Failed to write event for session %s: %v", shortID(sessionID), err)
				return
			}
		case err := <-errChan:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error (events %s): %v", shortID(sessionID), err)
			}
			log.Printf("Client unsubscribed from session %s events", shortID(sessionID))
			return
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, ev devtools.Event) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}

func (s *Server) closeClient(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
