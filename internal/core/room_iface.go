package core

import "github.com/dkeye/Counsel/internal/domain"

// PublishResult reports delivery stats/backpressure to the relay.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	Name string      `json:"name"`
	Role domain.Role `json:"role"`
}

type RoomInfo struct {
	Code        domain.RoomCode `json:"code"`
	MemberCount int             `json:"member_count"`
	HasClient   bool            `json:"has_client"`
	Counselors  int             `json:"counselors"`
}
