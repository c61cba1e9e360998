package domain

import (
	"time"
)

// Role of a session inside a room. A joiner whose userId matches the room's
// creator is the owner; everybody else is a plain member.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// Room is a named group of sessions that relay events to one another.
// The room id is client-chosen and immutable once created. Membership is a
// set of connection ids; a room never owns the lifecycle of its members'
// connections.
type Room struct {
	ID        string    `json:"roomId"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`

	// connectionId -> userId of currently joined sessions.
	members map[string]string
}

func NewRoom(id, createdBy string) *Room {
	return &Room{
		ID:        id,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
		members:   make(map[string]string),
	}
}

// RoleFor returns the role a user gets when joining this room.
func (r *Room) RoleFor(userID string) Role {
	if userID == r.CreatedBy {
		return RoleOwner
	}
	return RoleMember
}

// AddMember records membership. Idempotent for an already joined connection.
func (r *Room) AddMember(connectionID, userID string) {
	r.members[connectionID] = userID
}

// RemoveMember drops membership. No-op for unknown connections so that
// disconnect cleanup is unconditionally safe.
func (r *Room) RemoveMember(connectionID string) {
	delete(r.members, connectionID)
}

func (r *Room) HasMember(connectionID string) bool {
	_, ok := r.members[connectionID]
	return ok
}

func (r *Room) MemberCount() int {
	return len(r.members)
}

// MemberConnections returns a snapshot of the member connection ids. The
// caller may iterate it without holding any registry lock.
func (r *Room) MemberConnections() []string {
	ids := make([]string, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	return ids
}

// RoomSummary is the admin-facing view of a room.
type RoomSummary struct {
	RoomID      string `json:"roomId"`
	CreatedBy   string `json:"createdBy"`
	CreatedAt   int64  `json:"createdAt"` // unix milliseconds
	MemberCount int    `json:"memberCount"`
}

func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		RoomID:      r.ID,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt.UnixMilli(),
		MemberCount: len(r.members),
	}
}
