package ws

import (
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketConn is the slice of *websocket.Conn the collaboration layer
// needs, so tests can substitute a mock connection.
type WebSocketConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(size int64)
	Close() error
}

type WebSocketWrapper struct {
	*websocket.Conn
}

func NewWebSocketWrapper(conn *websocket.Conn) WebSocketConn {
	return &WebSocketWrapper{Conn: conn}
}
