package app

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/Counsel/internal/core"
	"github.com/dkeye/Counsel/internal/domain"
	"github.com/rs/zerolog/log"
)

// Action is something the relay may fan out to a room.
type Action int

const (
	ActionClientMessage Action = iota
	ActionCounselorFinal
	ActionSystemNotice
	ActionAIDraft
	ActionAIError
	ActionCounselorRefine
)

func (a Action) String() string {
	switch a {
	case ActionClientMessage:
		return "client_message"
	case ActionCounselorFinal:
		return "counselor_final"
	case ActionSystemNotice:
		return "system_notice"
	case ActionAIDraft:
		return "ai_draft"
	case ActionAIError:
		return "ai_error"
	case ActionCounselorRefine:
		return "counselor_refine"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

type Audience int

const (
	AudienceRoom Audience = iota
	AudienceCounselors
	// AudienceNone marks actions that only trigger work and fan nothing out.
	AudienceNone
)

type route struct {
	// sender is empty for synthetic actions no connection may trigger.
	sender   domain.Role
	audience Audience
}

var routingTable = map[Action]route{
	ActionClientMessage:   {sender: domain.RoleClient, audience: AudienceRoom},
	ActionCounselorFinal:  {sender: domain.RoleCounselor, audience: AudienceRoom},
	ActionSystemNotice:    {audience: AudienceRoom},
	ActionAIDraft:         {audience: AudienceCounselors},
	ActionAIError:         {audience: AudienceCounselors},
	ActionCounselorRefine: {sender: domain.RoleCounselor, audience: AudienceNone},
}

// Router applies the role-partitioned broadcast rules over room membership.
type Router struct{}

// Allowed reports whether a connection with role may trigger a.
func (Router) Allowed(a Action, role domain.Role) bool {
	rt, ok := routingTable[a]
	return ok && rt.sender != "" && rt.sender == role
}

// Recipients resolves the audience against the room's current membership.
func (Router) Recipients(room *core.Room, a Action) []core.MemberSession {
	rt, ok := routingTable[a]
	if !ok {
		return nil
	}
	switch rt.audience {
	case AudienceCounselors:
		return room.MembersWithRole(domain.RoleCounselor)
	case AudienceNone:
		return nil
	}
	return room.Members()
}

// Route encodes v once and fans it out to the audience of a.
func (rt Router) Route(room *core.Room, a Action, v any) core.PublishResult {
	res := core.PublishResult{}
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Str("action", a.String()).Msg("marshal")
		return res
	}
	for _, m := range rt.Recipients(room, a) {
		if err := m.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, m)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "app.router").Str("room", string(room.Code())).Str("action", a.String()).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

// Unicast sends v to a single session, bypassing the routing table.
func (Router) Unicast(ms core.MemberSession, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return ms.Signal().TrySend(data)
}
