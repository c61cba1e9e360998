package rooms

import "castrelay/internal/domain"

// createRoomRequest represents the request to create a new room
type createRoomRequest struct {
	RoomID    string `json:"roomId"`    // Caller-chosen room identifier
	CreatedBy string `json:"createdBy"` // User id recorded as the room owner
}

// roomResponse represents a single room
type roomResponse struct {
	RoomID      string `json:"roomId"`      // Unique room identifier
	CreatedBy   string `json:"createdBy"`   // User id of the room owner
	CreatedAt   int64  `json:"createdAt"`   // Creation timestamp, unix milliseconds
	MemberCount int    `json:"memberCount"` // Connections currently in the room
}

func newRoomResponse(s domain.RoomSummary) roomResponse {
	return roomResponse{
		RoomID:      s.RoomID,
		CreatedBy:   s.CreatedBy,
		CreatedAt:   s.CreatedAt,
		MemberCount: s.MemberCount,
	}
}
