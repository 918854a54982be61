package core

import "errors"

// Frame is a raw encoded outbound event.
type Frame []byte

// ConnID identifies one live transport connection.
type ConnID string

var ErrBackpressure = errors.New("backpressure")

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend must not block; a full buffer is reported as ErrBackpressure.
	TrySend(Frame) error
	Close()
}
