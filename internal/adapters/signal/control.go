package signal

import (
	"encoding/json"

	"github.com/dkeye/Counsel/internal/core"
	"github.com/rs/zerolog/log"
)

type joinPayload struct {
	Name string `json:"name"`
	Room string `json:"room"`
	Role string `json:"role"`
}

type textPayload struct {
	Text string `json:"text"`
}

type refinePayload struct {
	Instruction string `json:"instruction"`
}

func decode(sid core.ConnID, data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad payload")
		return false
	}
	return true
}

// allow applies the per-connection rate limit to chat traffic.
func (ctl *SignalWSController) allow(sid core.ConnID) bool {
	if ctl.Limiter == nil || ctl.Limiter.Allow(sid) {
		return true
	}
	log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("rate limited")
	return false
}

func (ctl *SignalWSController) handleJoin(sid core.ConnID, data []byte) {
	var p joinPayload
	if !decode(sid, data, &p) {
		return
	}
	ctl.Relay.Join(sid, p.Name, p.Role, p.Room)
}

func (ctl *SignalWSController) handleClientMessage(sid core.ConnID, data []byte) {
	var p textPayload
	if !decode(sid, data, &p) || !ctl.allow(sid) {
		return
	}
	ctl.Relay.ClientMessage(sid, p.Text)
}

func (ctl *SignalWSController) handleCounselorFinal(sid core.ConnID, data []byte) {
	var p textPayload
	if !decode(sid, data, &p) || !ctl.allow(sid) {
		return
	}
	ctl.Relay.CounselorFinal(sid, p.Text)
}

func (ctl *SignalWSController) handleRefine(sid core.ConnID, data []byte) {
	var p refinePayload
	if !decode(sid, data, &p) || !ctl.allow(sid) {
		return
	}
	ctl.Relay.CounselorRefine(sid, p.Instruction)
}

func (ctl *SignalWSController) handlePing(
	conn *WsSignalConn,
) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(conn, resp)
}
