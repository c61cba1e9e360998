package domain

import "testing"

func TestRoom_RoleFor(t *testing.T) {
	room := NewRoom("chat-room", "creator")

	tests := []struct {
		userID string
		want   Role
	}{
		{"creator", RoleOwner},
		{"someone-else", RoleMember},
		{"", RoleMember},
	}

	for _, tt := range tests {
		if got := room.RoleFor(tt.userID); got != tt.want {
			t.Errorf("RoleFor(%q) = %v, want %v", tt.userID, got, tt.want)
		}
	}
}

func TestRoom_Membership(t *testing.T) {
	room := NewRoom("chat-room", "creator")

	room.AddMember("conn-1", "userA")
	room.AddMember("conn-2", "userB")
	room.AddMember("conn-1", "userA") // idempotent

	if got := room.MemberCount(); got != 2 {
		t.Errorf("MemberCount() = %d, want 2", got)
	}
	if !room.HasMember("conn-1") {
		t.Error("HasMember(conn-1) = false, want true")
	}

	room.RemoveMember("conn-1")
	room.RemoveMember("never-joined") // safe no-op

	if room.HasMember("conn-1") {
		t.Error("HasMember(conn-1) = true after removal")
	}
	if got := room.MemberCount(); got != 1 {
		t.Errorf("MemberCount() = %d, want 1", got)
	}
}

func TestRoom_Summary(t *testing.T) {
	room := NewRoom("chat-room", "creator")
	room.AddMember("conn-1", "userA")

	s := room.Summary()
	if s.RoomID != "chat-room" {
		t.Errorf("RoomID = %q, want chat-room", s.RoomID)
	}
	if s.CreatedBy != "creator" {
		t.Errorf("CreatedBy = %q, want creator", s.CreatedBy)
	}
	if s.MemberCount != 1 {
		t.Errorf("MemberCount = %d, want 1", s.MemberCount)
	}
	if s.CreatedAt != room.CreatedAt.UnixMilli() {
		t.Errorf("CreatedAt = %d, want %d", s.CreatedAt, room.CreatedAt.UnixMilli())
	}
}
