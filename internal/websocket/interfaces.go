package websocket

import (
	"time"
)

// Connection abstracts the underlying websocket transport so client pumps
// can be tested against a mock instead of a live gorilla connection.
type Connection interface {
	// WriteMessage writes a message with the given message type and payload
	WriteMessage(messageType int, data []byte) error

	// ReadMessage reads a message from the connection
	ReadMessage() (messageType int, p []byte, err error)

	// Close closes the connection
	Close() error

	// SetReadDeadline sets the read deadline on the connection
	SetReadDeadline(t time.Time) error

	// SetWriteDeadline sets the write deadline on the connection
	SetWriteDeadline(t time.Time) error

	// SetReadLimit sets the maximum size for a message read from the connection
	SetReadLimit(limit int64)

	// SetPongHandler sets the handler for pong messages
	SetPongHandler(h func(string) error)

	// SetPingHandler sets the handler for ping messages
	SetPingHandler(h func(string) error)

	// SetCloseHandler sets the handler for close messages
	SetCloseHandler(h func(code int, text string) error)

	// RemoteAddr returns the remote network address
	RemoteAddr() string
}

// Broadcaster is the hub surface the refresh notifier and transport layer
// depend on. *Hub implements it.
type Broadcaster interface {
	// Broadcast sends a typed message to all connected clients
	Broadcast(messageType string, data interface{})

	// BroadcastRefresh tells dashboards which views should re-query
	BroadcastRefresh(source string, components []string)

	// ClientCount returns the number of connected clients
	ClientCount() int
}
