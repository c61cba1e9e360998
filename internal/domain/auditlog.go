package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type RoomEventType string

const (
	EventRoomCreated  RoomEventType = "room_created"
	EventRoomDeleted  RoomEventType = "room_deleted"
	EventMemberJoined RoomEventType = "member_joined"
	EventMemberLeft   RoomEventType = "member_left"
)

// RoomAuditLog records room lifecycle events. Relayed payloads are never
// persisted.
type RoomAuditLog struct {
	ID        string         `bson:"_id" json:"id"`
	RoomID    string         `bson:"room_id" json:"roomId"`
	EventType RoomEventType  `bson:"event_type" json:"eventType"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
	Metadata  map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

type RoomAuditRepository interface {
	Log(ctx context.Context, entry *RoomAuditLog) error
	GetByRoomID(ctx context.Context, roomID string, limit int) ([]RoomAuditLog, error)
	DeleteOlderThan(ctx context.Context, before time.Time) error
	EnsureIndexes(ctx context.Context) error
}

func NewRoomCreatedLog(roomID, createdBy string) *RoomAuditLog {
	return &RoomAuditLog{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		EventType: EventRoomCreated,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"created_by": createdBy,
		},
	}
}

func NewRoomDeletedLog(roomID, reason string) *RoomAuditLog {
	return &RoomAuditLog{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		EventType: EventRoomDeleted,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"reason": reason, // "idle_expired", "capacity_evicted"
		},
	}
}

func NewMemberJoinedLog(roomID, userID string, memberCount int) *RoomAuditLog {
	return &RoomAuditLog{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		EventType: EventMemberJoined,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"user_id":      userID,
			"member_count": memberCount,
		},
	}
}

func NewMemberLeftLog(roomID, userID string, memberCount int) *RoomAuditLog {
	return &RoomAuditLog{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		EventType: EventMemberLeft,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"user_id":      userID,
			"member_count": memberCount,
		},
	}
}
