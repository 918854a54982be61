// Package domain contains entities without logic, just meta-data
package domain

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	MaxNameLen     = 36
	MaxRoomCodeLen = 64
)

var (
	ErrNameEmpty   = errors.New("name empty")
	ErrNameTooLong = errors.New("name too long")
	ErrRoomEmpty   = errors.New("room empty")
	ErrRoomTooLong = errors.New("room too long")
	ErrRoleInvalid = errors.New("role invalid")
)

// Identity is who a connection speaks as. It is fixed for the lifetime of
// the connection once resolved.
type Identity struct {
	Name string   `json:"name"`
	Role Role     `json:"role"`
	Room RoomCode `json:"room"`
}

// NewIdentity validates raw session or payload values.
func NewIdentity(name, role, room string) (Identity, error) {
	name = strings.TrimSpace(name)
	room = strings.TrimSpace(room)
	if name == "" {
		return Identity{}, ErrNameEmpty
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		return Identity{}, ErrNameTooLong
	}
	if room == "" {
		return Identity{}, ErrRoomEmpty
	}
	if utf8.RuneCountInString(room) > MaxRoomCodeLen {
		return Identity{}, ErrRoomTooLong
	}
	r, ok := ParseRole(role)
	if !ok {
		return Identity{}, ErrRoleInvalid
	}
	return Identity{Name: name, Role: r, Room: RoomCode(room)}, nil
}
