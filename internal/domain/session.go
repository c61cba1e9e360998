package domain

import (
	"sync"

	"github.com/google/uuid"
)

// SessionState is the lifecycle of one physical connection.
//
//	Connecting -> Authenticated -> (Idle | InRoom) -> Disconnected
//
// Disconnected is terminal.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateAuthenticated
	StateInRoom
	StateDisconnected
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateInRoom:
		return "in_room"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Session tracks one connection's identity and room membership. The
// connection id is generated at connect time and never reused; the user id is
// a client-supplied opaque identifier set during the auth handshake.
type Session struct {
	ConnectionID string

	mu            sync.Mutex
	userID        string
	state         SessionState
	currentRoomID string
}

func NewSession() *Session {
	return &Session{
		ConnectionID: uuid.NewString(),
		state:        StateConnecting,
	}
}

// Authenticate transitions Connecting -> Authenticated. The api key has
// already been checked by the caller; this only records the outcome, once.
func (s *Session) Authenticate(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateDisconnected:
		return ErrSessionClosed
	case StateConnecting:
		s.userID = userID
		s.state = StateAuthenticated
		return nil
	default:
		// Already authenticated; the flag is set once and never reset.
		return nil
	}
}

func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateAuthenticated || s.state == StateInRoom
}

func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// EnterRoom records the session's single active room. Joining a new room
// replaces the previous one; the caller is responsible for removing the old
// membership from the registry first. Returns the room that was left, if any.
func (s *Session) EnterRoom(roomID string) (left string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateConnecting:
		return "", ErrNotAuthenticated
	case StateDisconnected:
		return "", ErrSessionClosed
	}

	left = s.currentRoomID
	if left == roomID {
		left = ""
	}
	s.currentRoomID = roomID
	s.state = StateInRoom
	return left, nil
}

func (s *Session) CurrentRoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentRoomID
}

// Disconnect moves the session to its terminal state and reports the room the
// session was in so the caller can purge membership. Safe to call repeatedly.
func (s *Session) Disconnect() (roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomID = s.currentRoomID
	s.currentRoomID = ""
	s.state = StateDisconnected
	return roomID
}
