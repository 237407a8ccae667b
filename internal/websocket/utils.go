package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds one outbound frame; the session's event stream must
	// never stall behind a dead peer.
	writeWait = 10 * time.Second
	// readWait is generous: a candidate may sit on one question for minutes,
	// but the client pings well inside this window.
	readWait = 5 * time.Minute
)

// WriteTyped sends one typed server event, bounded by writeWait.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{Event: EventError, Error: errMsg})
}

// ReadJSON decodes the next client message, bounded by readWait.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetReadDeadline(time.Now().Add(readWait))
	return conn.ReadJSON(v)
}
