package domain

import "github.com/google/uuid"

// RoomCode is an opaque room identifier, generated or user-supplied.
type RoomCode string

// NewRoomCode returns an unguessable code for system-created rooms.
func NewRoomCode() RoomCode {
	return RoomCode(uuid.NewString())
}
