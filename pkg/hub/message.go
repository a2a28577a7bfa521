// Package hub fans JSON messages out to websocket clients using the
// channel-based broadcast pattern: one goroutine owns the client set and
// each client has its own write pump.
package hub

// Message is a payload to be broadcast to clients.
type Message struct {
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON.
func NewJSONMessage(data []byte) Message {
	return Message{Data: data}
}
