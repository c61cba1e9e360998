package relay

import "encoding/json"

// Frame types on the wire. Every client request carries a monotonically
// increasing id; the server answers each request with exactly one ack frame
// echoing that id. Pushed events carry no id.
const (
	TypeAck   = "ack"
	TypeEvent = "event"

	OpAuth       = "auth"
	OpRoomCreate = "room:create"
	OpRoomJoin   = "room:join"
	OpRoomEmit   = "room:emit"
)

// RequestFrame is a client -> server frame.
type RequestFrame struct {
	ID   uint64          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// AckFrame is the server's reply to one RequestFrame.
type AckFrame struct {
	ID    uint64 `json:"id"`
	Type  string `json:"type"`
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// EventFrame is a server -> client push, named by the event of a prior
// room:emit.
type EventFrame struct {
	Type  string   `json:"type"`
	Event string   `json:"event"`
	Data  Envelope `json:"data"`
}

// Envelope wraps a relayed payload. Payload is carried as raw bytes so
// recipients receive it bit-identical to what the sender submitted.
type Envelope struct {
	RoomID  string          `json:"roomId"`
	Event   string          `json:"event"`
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload"`
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

type roomCreateAck struct {
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

func okAck(id uint64, data any) *AckFrame {
	return &AckFrame{ID: id, Type: TypeAck, OK: true, Data: data}
}

func errAck(id uint64, err error) *AckFrame {
	return &AckFrame{ID: id, Type: TypeAck, OK: false, Error: err.Error()}
}
