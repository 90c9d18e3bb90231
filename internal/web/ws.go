package web

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The board is a single-operator tool served over localhost or behind a
	// reverse proxy that owns origin policy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn serializes writes to one connection. Hub broadcasts and the read
// loop's pong replies come from different goroutines, and the underlying
// connection does not allow concurrent writers.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) writeText(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// wsToken extracts the credential for a WebSocket request. Browsers cannot
// set headers on WebSocket dials, so the token query parameter is accepted
// alongside the usual Authorization header.
func wsToken(r *http.Request) string {
	if tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return tok
	}
	return r.URL.Query().Get("token")
}

// handleWebSocket upgrades the connection and subscribes it to board events.
// The read loop detects disconnects and answers client "ping" messages; all
// other traffic flows server to client.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	tok := wsToken(r)
	if tok == "" || subtle.ConstantTimeCompare([]byte(tok), []byte(s.token)) != 1 {
		s.jsonError(w, "invalid authentication token", http.StatusUnauthorized)
		return
	}

	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	conn := &wsConn{conn: raw}

	s.hub.Register(conn)
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	for {
		_, msg, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		if string(msg) == "ping" {
			if err := conn.writeText([]byte("pong")); err != nil {
				return
			}
		}
	}
}
