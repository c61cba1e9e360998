package messaging

const (
	RoomsQueue      = "rooms"
	DeadLetterQueue = "dead_letter_queue"
)

// RoomEventData is the payload carried by room lifecycle events.
type RoomEventData struct {
	RoomID      string `json:"roomId"`
	UserID      string `json:"userId,omitempty"`
	MemberCount int    `json:"memberCount,omitempty"`
	Reason      string `json:"reason,omitempty"`
}
