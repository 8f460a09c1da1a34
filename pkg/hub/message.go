// Package hub fans messages out to websocket clients through one goroutine
// that owns the client set.
package hub

import "encoding/json"

// MessageType selects the websocket frame type.
type MessageType int

const (
	JSONMessage MessageType = iota
	BinaryMessage
)

// Message is one payload queued for every client.
type Message struct {
	Type MessageType
	Data []byte
}

// Encode marshals v into a JSON message.
func Encode(v interface{}) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: JSONMessage, Data: data}, nil
}
