package app

import (
	"testing"

	"github.com/dkeye/Counsel/internal/domain"
	"github.com/stretchr/testify/assert"
)

type mapSession map[string]any

func (m mapSession) Get(key any) any {
	k, _ := key.(string)
	return m[k]
}

func TestResolveIdentity(t *testing.T) {
	cases := []struct {
		name    string
		session SessionValues
		want    domain.Identity
		ok      bool
	}{
		{
			name:    "complete",
			session: mapSession{"name": " Kim ", "role": "counselor", "room": "R7"},
			want:    domain.Identity{Name: "Kim", Role: domain.RoleCounselor, Room: "R7"},
			ok:      true,
		},
		{name: "nil session", session: nil},
		{name: "empty", session: mapSession{}},
		{name: "missing room", session: mapSession{"name": "A", "role": "client"}},
		{name: "unknown role", session: mapSession{"name": "A", "role": "admin", "room": "R7"}},
		{name: "role case", session: mapSession{"name": "A", "role": "Client", "room": "R7"}},
		{name: "non-string", session: mapSession{"name": 42, "role": "client", "room": "R7"}},
		{name: "blank name", session: mapSession{"name": "  ", "role": "client", "room": "R7"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ResolveIdentity(tc.session)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
