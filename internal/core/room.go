package core

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dkeye/Counsel/internal/domain"
	"github.com/rs/zerolog/log"
)

// Room is the in-memory state of one counseling session.
// It never closes adapter-owned resources.
type Room struct {
	code domain.RoomCode

	mu       sync.RWMutex
	members  map[ConnID]MemberSession
	clientID ConnID

	lastClientUtterance string
	history             []domain.Utterance
	draft               *domain.Draft

	draftSeq    uint64
	draftCancel context.CancelFunc

	lastActive time.Time
}

func NewRoom(code domain.RoomCode, now time.Time) *Room {
	return &Room{
		code:       code,
		members:    make(map[ConnID]MemberSession),
		lastActive: now,
	}
}

func (r *Room) Code() domain.RoomCode { return r.code }

// AddMember admits a resolved session. A client joiner becomes the tracked
// client connection even if another one is still attached.
func (r *Room) AddMember(ms MemberSession, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[ms.ID()] = ms
	if RoleOf(ms) == domain.RoleClient {
		r.clientID = ms.ID()
	}
	r.lastActive = now
	log.Info().Str("module", "core.room").Str("room", string(r.code)).Str("sid", string(ms.ID())).Msg("member added")
}

// RemoveMember drops the session and clears the tracked client id when it
// still points at the leaving connection.
func (r *Room) RemoveMember(id ConnID, now time.Time) (MemberSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ms, ok := r.members[id]
	if !ok {
		return nil, false
	}
	delete(r.members, id)
	if r.clientID == id {
		r.clientID = ""
	}
	r.lastActive = now
	log.Info().Str("module", "core.room").Str("room", string(r.code)).Str("sid", string(id)).Msg("member removed")
	return ms, true
}

func (r *Room) Members() []MemberSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberSession, 0, len(r.members))
	for _, ms := range r.members {
		out = append(out, ms)
	}
	return out
}

// MembersWithRole filters on the role recorded at join time.
func (r *Room) MembersWithRole(role domain.Role) []MemberSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberSession, 0, len(r.members))
	for _, ms := range r.members {
		if RoleOf(ms) == role {
			out = append(out, ms)
		}
	}
	return out
}

func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *Room) ClientID() (ConnID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clientID, r.clientID != ""
}

func (r *Room) MembersSnapshot() []MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberDTO, 0, len(r.members))
	for _, ms := range r.members {
		ident, _ := ms.Identity()
		out = append(out, MemberDTO{Name: ident.Name, Role: ident.Role})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role < out[j].Role
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (r *Room) Info() RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info := RoomInfo{Code: r.code, MemberCount: len(r.members), HasClient: r.clientID != ""}
	for _, ms := range r.members {
		if RoleOf(ms) == domain.RoleCounselor {
			info.Counselors++
		}
	}
	return info
}

func (r *Room) SetLastClientUtterance(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastClientUtterance = text
}

func (r *Room) LastClientUtterance() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastClientUtterance
}

// AppendHistory keeps at most limit utterances; limit <= 0 disables history.
func (r *Room) AppendHistory(u domain.Utterance, limit int) {
	if limit <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, u)
	if len(r.history) > limit {
		r.history = append([]domain.Utterance(nil), r.history[len(r.history)-limit:]...)
	}
	r.lastActive = u.At
}

func (r *Room) History() []domain.Utterance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Utterance(nil), r.history...)
}

func (r *Room) SetDraft(d domain.Draft) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draft = &d
}

func (r *Room) CurrentDraft() (domain.Draft, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.draft == nil {
		return domain.Draft{}, false
	}
	return *r.draft, true
}

// BeginDraft claims the room's single in-flight slot. Any job started
// earlier is cancelled and its sequence number goes stale.
func (r *Room) BeginDraft(parent context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.draftCancel != nil {
		r.draftCancel()
	}
	r.draftSeq++
	r.draftCancel = cancel
	return ctx, r.draftSeq
}

// FinishDraft releases the slot if seq is still current and reports whether
// the result should be delivered.
func (r *Room) FinishDraft(seq uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.draftSeq {
		return false
	}
	if r.draftCancel != nil {
		r.draftCancel()
		r.draftCancel = nil
	}
	return true
}

// Close cancels any in-flight draft job.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.draftCancel != nil {
		r.draftCancel()
		r.draftCancel = nil
	}
}

// Idle reports whether the room is empty and untouched for at least ttl.
func (r *Room) Idle(now time.Time, ttl time.Duration) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members) == 0 && r.draftCancel == nil && now.Sub(r.lastActive) >= ttl
}
