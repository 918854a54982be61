package app

import (
	"context"

	"github.com/dkeye/Counsel/internal/app/draft"
	"github.com/dkeye/Counsel/internal/core"
	"github.com/dkeye/Counsel/internal/domain"
)

// event is one unit of work for the relay loop.
type event interface {
	kind() string
}

type connectEvent struct {
	sid      core.ConnID
	signal   core.SignalConnection
	identity *domain.Identity
	cancel   context.CancelFunc
}

type joinEvent struct {
	sid              core.ConnID
	name, role, room string
}

type clientMessageEvent struct {
	sid  core.ConnID
	text string
}

type counselorFinalEvent struct {
	sid  core.ConnID
	text string
}

type refineEvent struct {
	sid         core.ConnID
	instruction string
}

type disconnectEvent struct {
	sid core.ConnID
}

// draftDoneEvent brings a pipeline result back onto the loop. room is the
// instance the job was started for, so a result outliving an evicted room is
// recognised.
type draftDoneEvent struct {
	room   *core.Room
	result draft.Result
}

type createRoomEvent struct {
	code  domain.RoomCode
	reply chan<- domain.RoomCode
}

func (connectEvent) kind() string        { return "connect" }
func (joinEvent) kind() string           { return "join" }
func (clientMessageEvent) kind() string  { return "client_message" }
func (counselorFinalEvent) kind() string { return "counselor_send_final" }
func (refineEvent) kind() string         { return "counselor_refine" }
func (disconnectEvent) kind() string     { return "disconnect" }
func (draftDoneEvent) kind() string      { return "draft_done" }
func (createRoomEvent) kind() string     { return "create_room" }
