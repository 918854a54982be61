package app

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Counsel/internal/app/draft"
	"github.com/dkeye/Counsel/internal/core"
	"github.com/dkeye/Counsel/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrRelayStopped = errors.New("relay stopped")

type Options struct {
	// LegacyJoin lets a connection without a session identity attach itself
	// with a join event.
	LegacyJoin   bool
	HistoryLimit int
	// RoomIdleTTL evicts empty rooms after this long; zero keeps them forever.
	RoomIdleTTL time.Duration
	QueueSize   int
}

// Relay owns the connection lifecycle. Every mutation of room and
// connection state happens on the goroutine running Run; the exported
// methods only enqueue events.
type Relay struct {
	Rooms  *core.RoomRegistry
	Conns  *Registry
	Router Router
	Policy Policy
	Drafts *draft.Pipeline

	opts   Options
	events chan event
	done   chan struct{}
	now    func() time.Time
}

func NewRelay(rooms *core.RoomRegistry, conns *Registry, drafts *draft.Pipeline, policy Policy, opts Options) *Relay {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if policy == nil {
		policy = SimplePolicy{}
	}
	return &Relay{
		Rooms:  rooms,
		Conns:  conns,
		Policy: policy,
		Drafts: drafts,
		opts:   opts,
		events: make(chan event, opts.QueueSize),
		done:   make(chan struct{}),
		now:    time.Now,
	}
}

// Run processes events until ctx is cancelled. In-flight draft jobs inherit
// ctx; callers drain them with Drafts.Wait after Run returns.
func (r *Relay) Run(ctx context.Context) {
	defer close(r.done)

	var sweep <-chan time.Time
	if r.opts.RoomIdleTTL > 0 {
		t := time.NewTicker(sweepInterval(r.opts.RoomIdleTTL))
		defer t.Stop()
		sweep = t.C
	}

	log.Info().Str("module", "app.relay").Msg("relay loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.relay").Int("connections", r.Conns.Len()).Msg("relay loop stopped")
			return
		case ev := <-r.events:
			r.dispatch(ctx, ev)
		case now := <-sweep:
			r.Rooms.EvictIdle(now, r.opts.RoomIdleTTL)
		}
	}
}

func sweepInterval(ttl time.Duration) time.Duration {
	if d := ttl / 2; d >= time.Second {
		return d
	}
	return time.Second
}

func (r *Relay) submit(ev event) bool {
	select {
	case r.events <- ev:
		return true
	case <-r.done:
		return false
	}
}

// Connect registers a live connection. A nil identity leaves it inert until
// a legacy join (if enabled).
func (r *Relay) Connect(sid core.ConnID, sig core.SignalConnection, ident *domain.Identity, cancel context.CancelFunc) bool {
	return r.submit(connectEvent{sid: sid, signal: sig, identity: ident, cancel: cancel})
}

func (r *Relay) Join(sid core.ConnID, name, role, room string) {
	r.submit(joinEvent{sid: sid, name: name, role: role, room: room})
}

func (r *Relay) ClientMessage(sid core.ConnID, text string) {
	r.submit(clientMessageEvent{sid: sid, text: text})
}

func (r *Relay) CounselorFinal(sid core.ConnID, text string) {
	r.submit(counselorFinalEvent{sid: sid, text: text})
}

func (r *Relay) CounselorRefine(sid core.ConnID, instruction string) {
	r.submit(refineEvent{sid: sid, instruction: instruction})
}

func (r *Relay) Disconnect(sid core.ConnID) {
	r.submit(disconnectEvent{sid: sid})
}

// CreateRoom makes sure a room exists. An empty code asks for a generated one.
func (r *Relay) CreateRoom(ctx context.Context, code domain.RoomCode) (domain.RoomCode, error) {
	reply := make(chan domain.RoomCode, 1)
	if !r.submit(createRoomEvent{code: code, reply: reply}) {
		return "", ErrRelayStopped
	}
	select {
	case got := <-reply:
		return got, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-r.done:
		return "", ErrRelayStopped
	}
}

func (r *Relay) dispatch(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case connectEvent:
		r.onConnect(ev)
	case joinEvent:
		r.onJoin(ev)
	case clientMessageEvent:
		r.onClientMessage(ctx, ev)
	case counselorFinalEvent:
		r.onCounselorFinal(ev)
	case refineEvent:
		r.onRefine(ctx, ev)
	case disconnectEvent:
		r.onDisconnect(ev)
	case draftDoneEvent:
		r.onDraftDone(ev)
	case createRoomEvent:
		r.onCreateRoom(ev)
	default:
		log.Warn().Str("module", "app.relay").Str("event", ev.kind()).Msg("unknown event")
	}
}

// route fans out and applies the backpressure policy to slow members.
func (r *Relay) route(room *core.Room, a Action, v any) {
	res := r.Router.Route(room, a, v)
	r.onDropped(room, res.Dropped)
}

func (r *Relay) unicast(room *core.Room, ms core.MemberSession, v any) {
	if err := r.Router.Unicast(ms, v); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("sid", string(ms.ID())).Msg("unicast failed")
		if errors.Is(err, core.ErrBackpressure) {
			r.onDropped(room, []core.MemberSession{ms})
		}
	}
}

func (r *Relay) onDropped(room *core.Room, members []core.MemberSession) {
	for _, slow := range members {
		switch r.Policy.OnBackPressure(room, slow) {
		case KickMember:
			log.Warn().Str("module", "app.relay").Str("room", string(room.Code())).Str("sid", string(slow.ID())).Msg("kicking slow member")
			r.Conns.Cancel(slow.ID())
		case DropFrame, NoAction:
		}
	}
}

// member looks up the joined session and room for sid.
func (r *Relay) member(sid core.ConnID) (domain.Identity, *core.Room, bool) {
	code, sess, ok := r.Conns.RoomOf(sid)
	if !ok {
		return domain.Identity{}, nil, false
	}
	ident, ok := sess.Identity()
	if !ok {
		return domain.Identity{}, nil, false
	}
	room, ok := r.Rooms.Get(code)
	if !ok {
		return domain.Identity{}, nil, false
	}
	return ident, room, true
}

func dropped(sid core.ConnID, ev, reason string) {
	log.Debug().Str("module", "app.relay").Str("sid", string(sid)).Str("event", ev).Str("reason", reason).Msg("event dropped")
}
