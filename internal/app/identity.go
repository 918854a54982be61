package app

import (
	"github.com/dkeye/Counsel/internal/domain"
	"github.com/rs/zerolog/log"
)

// Session keys written by the HTTP layer on /enter.
const (
	SessionKeyName = "name"
	SessionKeyRole = "role"
	SessionKeyRoom = "room"
)

// SessionValues is the read side of an external session store.
// gin-contrib/sessions.Session satisfies it.
type SessionValues interface {
	Get(key any) any
}

// ResolveIdentity reads {name, role, room} from the session. Any missing or
// malformed value means the connection stays un-joined; the caller must not
// report this to the user.
func ResolveIdentity(s SessionValues) (domain.Identity, bool) {
	if s == nil {
		return domain.Identity{}, false
	}
	name, ok1 := s.Get(SessionKeyName).(string)
	role, ok2 := s.Get(SessionKeyRole).(string)
	room, ok3 := s.Get(SessionKeyRoom).(string)
	if !ok1 || !ok2 || !ok3 {
		return domain.Identity{}, false
	}
	ident, err := domain.NewIdentity(name, role, room)
	if err != nil {
		log.Debug().Err(err).Str("module", "app.identity").Msg("session identity rejected")
		return domain.Identity{}, false
	}
	return ident, true
}
