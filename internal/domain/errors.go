package domain

import "errors"

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomAlreadyExists = errors.New("room already exists")
	ErrNotMember         = errors.New("not a member of room")
	ErrNotAuthenticated  = errors.New("session not authenticated")
	ErrHandshakeTimeout  = errors.New("authentication handshake timed out")
	ErrSessionClosed     = errors.New("session closed")
	ErrRegistryFull      = errors.New("room registry is at capacity")
	ErrInvalidInput      = errors.New("invalid input")
)
