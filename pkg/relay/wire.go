// Package relay is the Go client for a castrelay server. It speaks the relay
// frame protocol over a single websocket: id-correlated requests with acks,
// plus server pushes for events emitted into rooms the client has joined.
package relay

import "encoding/json"

const (
	typeAck   = "ack"
	typeEvent = "event"

	opAuth       = "auth"
	opRoomCreate = "room:create"
	opRoomJoin   = "room:join"
	opRoomEmit   = "room:emit"
)

type requestFrame struct {
	ID   uint64          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// serverFrame is the superset of ack and event frames so one decode pass can
// classify whatever arrives.
type serverFrame struct {
	ID    uint64          `json:"id"`
	Type  string          `json:"type"`
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
	Event string          `json:"event,omitempty"`
}

type authRequest struct {
	APIKey string `json:"apiKey"`
	UserID string `json:"userId"`
}

type authAck struct {
	ConnectionID string `json:"connectionId"`
}

type roomCreateRequest struct {
	RoomID string `json:"roomId"`
}

type roomJoinRequest struct {
	RoomID string `json:"roomId"`
}

type roomJoinAck struct {
	Role string `json:"role"`
}

type roomEmitRequest struct {
	RoomID  string          `json:"roomId"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Message is one event pushed to this client.
type Message struct {
	RoomID  string          `json:"roomId"`
	Event   string          `json:"event"`
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload"`
}
