package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Space/internal/core"
	"github.com/dkeye/Space/internal/domain"
)

// handleTick validates the position payload before it reaches shared state.
// A malformed tick is rejected without mutation or broadcast and without
// closing the connection; ticks above the rate limit are dropped the same
// way.
func (ctl *SignalWSController) handleTick(
	sid core.SessionID,
	conn *wsSignalConn,
	data []byte,
) {
	type tickPayload struct {
		Type string          `json:"type"`
		Data domain.Position `json:"data"`
	}
	var p tickPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Data == nil {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("bad tick payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	if !ctl.Limiter.Allow(sid) {
		log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("tick over rate limit, dropped")
		return
	}

	ctl.Disp.Tick(sid, p.Data)
}
