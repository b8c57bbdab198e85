package signal

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Space/internal/core"
)

// The relay handlers never open a PeerConnection: negotiation artifacts are
// forwarded verbatim between browsers and only typed for the wire.

func (ctl *SignalWSController) handleRelayCandidate(
	sid core.SessionID,
	conn *wsSignalConn,
	data []byte,
) {
	type candidatePayload struct {
		Type      string                  `json:"type"`
		PeerID    string                  `json:"peer_id"`
		Candidate webrtc.ICECandidateInit `json:"ice_candidate"`
	}
	var p candidatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad candidate payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if p.PeerID == "" {
		ctl.sendError(conn, "missing peer_id")
		return
	}

	ctl.Disp.RelayICECandidate(sid, core.SessionID(p.PeerID), p.Candidate)
}

func (ctl *SignalWSController) handleRelayDescription(
	sid core.SessionID,
	conn *wsSignalConn,
	data []byte,
) {
	type descriptionPayload struct {
		Type        string                    `json:"type"`
		PeerID      string                    `json:"peer_id"`
		Description webrtc.SessionDescription `json:"session_description"`
	}
	var p descriptionPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad session description payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if p.PeerID == "" {
		ctl.sendError(conn, "missing peer_id")
		return
	}

	ctl.Disp.RelaySessionDescription(sid, core.SessionID(p.PeerID), p.Description)
}
