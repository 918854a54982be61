package core

import "github.com/dkeye/Counsel/internal/domain"

// MemberSession binds a connection, its transport endpoint and the identity
// it resolved to. This is what a room stores and fans out to.
type MemberSession interface {
	ID() ConnID
	Signal() SignalConnection
	// Identity reports false until the connection has resolved one.
	Identity() (domain.Identity, bool)
	// WithIdentity returns a new session bound to ident; the receiver is left untouched.
	WithIdentity(ident domain.Identity) MemberSession
}

type memberSession struct {
	id       ConnID
	signal   SignalConnection
	identity *domain.Identity
}

func NewMemberSession(id ConnID, signal SignalConnection) MemberSession {
	return &memberSession{id: id, signal: signal}
}

func (m *memberSession) ID() ConnID               { return m.id }
func (m *memberSession) Signal() SignalConnection { return m.signal }

func (m *memberSession) Identity() (domain.Identity, bool) {
	if m.identity == nil {
		return domain.Identity{}, false
	}
	return *m.identity, true
}

func (m *memberSession) WithIdentity(ident domain.Identity) MemberSession {
	return &memberSession{id: m.id, signal: m.signal, identity: &ident}
}

// RoleOf is a shorthand for sessions already admitted to a room.
func RoleOf(ms MemberSession) domain.Role {
	ident, _ := ms.Identity()
	return ident.Role
}
