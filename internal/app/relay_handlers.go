package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/dkeye/Counsel/internal/app/draft"
	"github.com/dkeye/Counsel/internal/core"
	"github.com/dkeye/Counsel/internal/domain"
	"github.com/rs/zerolog/log"
)

func (r *Relay) onConnect(ev connectEvent) {
	sess := core.NewMemberSession(ev.sid, ev.signal)
	r.Conns.BindSignal(ev.sid, sess, ev.cancel)
	if ev.identity == nil {
		log.Info().Str("module", "app.relay").Str("sid", string(ev.sid)).Msg("connected without identity")
		return
	}
	r.attach(sess, *ev.identity)
}

func (r *Relay) onJoin(ev joinEvent) {
	if !r.opts.LegacyJoin {
		dropped(ev.sid, ev.kind(), "legacy join disabled")
		return
	}
	sess, ok := r.Conns.GetSession(ev.sid)
	if !ok {
		dropped(ev.sid, ev.kind(), "unknown connection")
		return
	}
	if _, resolved := sess.Identity(); resolved {
		dropped(ev.sid, ev.kind(), "identity already bound")
		return
	}
	ident, err := domain.NewIdentity(ev.name, ev.role, ev.room)
	if err != nil {
		dropped(ev.sid, ev.kind(), err.Error())
		return
	}
	r.attach(sess, ident)
}

// attach joins sess to its room, replays what the joiner missed and
// announces the arrival.
func (r *Relay) attach(sess core.MemberSession, ident domain.Identity) {
	room := r.Rooms.Ensure(ident.Room)
	bound := sess.WithIdentity(ident)
	if !r.Conns.BindSession(sess.ID(), ident.Room, bound) {
		return
	}
	room.AddMember(bound, r.now())

	if history := room.History(); len(history) > 0 {
		r.unicast(room, bound, NewHistoryEvent(history))
	}
	if ident.Role == domain.RoleCounselor {
		if d, ok := room.CurrentDraft(); ok {
			r.unicast(room, bound, NewDraftEvent(d))
		}
	}

	log.Info().Str("module", "app.relay").Str("sid", string(sess.ID())).Str("room", string(ident.Room)).Str("role", ident.Role.String()).Msg("joined")
	r.route(room, ActionSystemNotice, NewSystemEvent(fmt.Sprintf("%s (%s) entered the room.", ident.Name, ident.Role)))
}

func (r *Relay) onClientMessage(ctx context.Context, ev clientMessageEvent) {
	ident, room, ok := r.member(ev.sid)
	if !ok {
		dropped(ev.sid, ev.kind(), "not joined")
		return
	}
	if !r.Router.Allowed(ActionClientMessage, ident.Role) {
		dropped(ev.sid, ev.kind(), "role "+ident.Role.String())
		return
	}
	if strings.TrimSpace(ev.text) == "" {
		dropped(ev.sid, ev.kind(), "empty text")
		return
	}

	u := domain.Utterance{Speaker: ident.Name, Role: ident.Role, Text: ev.text, At: r.now()}
	r.route(room, ActionClientMessage, NewMessageEvent(u))
	room.AppendHistory(u, r.opts.HistoryLimit)

	// Stored before the job starts so a refine arriving meanwhile sees it.
	room.SetLastClientUtterance(ev.text)
	r.startDraft(ctx, room, draft.Request{Kind: draft.KindReply, Utterance: ev.text})
}

func (r *Relay) onCounselorFinal(ev counselorFinalEvent) {
	ident, room, ok := r.member(ev.sid)
	if !ok {
		dropped(ev.sid, ev.kind(), "not joined")
		return
	}
	if !r.Router.Allowed(ActionCounselorFinal, ident.Role) {
		dropped(ev.sid, ev.kind(), "role "+ident.Role.String())
		return
	}
	if strings.TrimSpace(ev.text) == "" {
		dropped(ev.sid, ev.kind(), "empty text")
		return
	}

	u := domain.Utterance{Speaker: ident.Name, Role: ident.Role, Text: ev.text, At: r.now()}
	r.route(room, ActionCounselorFinal, NewMessageEvent(u))
	room.AppendHistory(u, r.opts.HistoryLimit)
}

func (r *Relay) onRefine(ctx context.Context, ev refineEvent) {
	ident, room, ok := r.member(ev.sid)
	if !ok {
		dropped(ev.sid, ev.kind(), "not joined")
		return
	}
	if !r.Router.Allowed(ActionCounselorRefine, ident.Role) {
		dropped(ev.sid, ev.kind(), "role "+ident.Role.String())
		return
	}
	instruction := strings.TrimSpace(ev.instruction)
	if instruction == "" {
		dropped(ev.sid, ev.kind(), "empty instruction")
		return
	}

	r.startDraft(ctx, room, draft.Request{
		Kind:        draft.KindRefine,
		Utterance:   room.LastClientUtterance(),
		Instruction: instruction,
		RevisedBy:   ident.Name,
	})
}

// startDraft supersedes whatever job the room had in flight.
func (r *Relay) startDraft(ctx context.Context, room *core.Room, req draft.Request) {
	jobCtx, seq := room.BeginDraft(ctx)
	req.Room = room.Code()
	req.Seq = seq
	r.Drafts.Start(jobCtx, req, func(res draft.Result) {
		r.submit(draftDoneEvent{room: room, result: res})
	})
}

func (r *Relay) onDraftDone(ev draftDoneEvent) {
	res := ev.result
	logger := log.With().Str("module", "app.relay").Str("room", string(res.Room)).Str("kind", res.Kind.String()).Uint64("seq", res.Seq).Logger()

	current, ok := r.Rooms.Get(res.Room)
	if !ok || current != ev.room {
		logger.Debug().Msg("draft for evicted room discarded")
		return
	}
	if !current.FinishDraft(res.Seq) {
		logger.Debug().Err(res.Err).Msg("stale draft discarded")
		return
	}

	if res.Err != nil {
		logger.Error().Err(res.Err).Msg("draft generation failed")
		r.route(current, ActionAIError, NewErrorEvent(r.Drafts.ErrorMessage(res.Kind)))
		return
	}
	current.SetDraft(res.Draft)
	r.route(current, ActionAIDraft, NewDraftEvent(res.Draft))
}

func (r *Relay) onDisconnect(ev disconnectEvent) {
	code, sess, joined := r.Conns.RoomOf(ev.sid)
	r.Conns.Unbind(ev.sid)
	if !joined {
		return
	}
	room, ok := r.Rooms.Get(code)
	if !ok {
		return
	}
	if _, ok := room.RemoveMember(ev.sid, r.now()); !ok {
		return
	}
	ident, _ := sess.Identity()
	r.route(room, ActionSystemNotice, NewSystemEvent(fmt.Sprintf("%s (%s) left the room.", ident.Name, ident.Role)))
}

func (r *Relay) onCreateRoom(ev createRoomEvent) {
	code := ev.code
	if code == "" {
		code = domain.NewRoomCode()
	}
	r.Rooms.Ensure(code)
	ev.reply <- code
}
