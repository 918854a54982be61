package app

import "github.com/dkeye/Counsel/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

// Policy decides what happens to a member whose send buffer is full.
type Policy interface {
	OnBackPressure(room *core.Room, member core.MemberSession) BackpressureAction
}

// SimplePolicy disconnects slow readers; they reconnect and get history.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(room *core.Room, member core.MemberSession) BackpressureAction {
	return KickMember
}

// LenientPolicy only drops the frame.
type LenientPolicy struct{}

func (LenientPolicy) OnBackPressure(room *core.Room, member core.MemberSession) BackpressureAction {
	return DropFrame
}
