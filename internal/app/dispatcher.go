package app

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Space/internal/core"
	"github.com/dkeye/Space/internal/domain"
)

// Dispatcher applies the per-connection event reactions on top of State and
// fans notifications out to affected peers. Delivery is fire and forget:
// deliver reports whether the frame was handed to a live transport, and
// peer notifications deliberately ignore that result because a miss just
// means the peer raced a disconnect.
type Dispatcher struct {
	state *State
}

func NewDispatcher(state *State) *Dispatcher {
	return &Dispatcher{state: state}
}

type addPeerMsg struct {
	Type              string         `json:"type"`
	PeerID            core.SessionID `json:"peer_id"`
	ShouldCreateOffer bool           `json:"should_create_offer"`
}

type removePeerMsg struct {
	Type   string         `json:"type"`
	PeerID core.SessionID `json:"peer_id"`
}

type usersMsg struct {
	Type  string                            `json:"type"`
	Users map[domain.UserID]domain.Position `json:"users"`
}

// Connect creates the presence record and registers the transport handle,
// then echoes the assigned identity back to this client only.
func (d *Dispatcher) Connect(sid core.SessionID, conn core.SignalConnection) {
	user := d.state.CreateUser(sid)
	d.state.Register(sid, conn)
	d.deliver(sid, struct {
		Type string       `json:"type"`
		User *domain.User `json:"user"`
	}{"userCreated", user})
	log.Info().Str("module", "app.dispatch").Str("sid", string(sid)).Msg("connected")
}

// RequestPeers answers a peer-discovery request with everyone but the
// requester.
func (d *Dispatcher) RequestPeers(sid core.SessionID) {
	d.deliver(sid, usersMsg{"getOthersCallback", d.state.OthersExcept(sid)})
}

// AckPeers acknowledges that the client rendered the initial peer set and
// may start streaming position ticks.
func (d *Dispatcher) AckPeers(sid core.SessionID) {
	d.deliver(sid, struct {
		Type string `json:"type"`
	}{"startTick"})
}

// Ready subscribes the connection to update broadcasts. Nothing is sent
// immediately; future ticks from any user trigger delivery.
func (d *Dispatcher) Ready(sid core.SessionID) {
	d.state.Subscribe(sid)
}

// Tick applies a position update and fans the refreshed snapshot out to
// every subscriber, each view excluding the recipient's own entry. A tick
// racing a disconnect mutates nothing and broadcasts nothing.
func (d *Dispatcher) Tick(sid core.SessionID, data domain.Position) {
	views, ok := d.state.UpdateUser(sid, data)
	if !ok {
		log.Debug().Str("module", "app.dispatch").Str("sid", string(sid)).Msg("tick for removed user, dropped")
		return
	}
	for _, v := range views {
		d.deliver(v.To, usersMsg{"usersUpdated", v.Users})
	}
}

// JoinRoom moves the connection into a room and runs the handshake: every
// pre-existing member learns of the newcomer with should_create_offer
// false, and the newcomer learns of each pre-existing member with
// should_create_offer true. Exactly one side of each new pair initiates the
// WebRTC offer, and it is always the arriving one.
func (d *Dispatcher) JoinRoom(sid core.SessionID, name domain.RoomName) {
	res := d.state.Join(name, sid)
	d.notifyLeave(sid, res.Left)
	for _, peer := range res.Prior {
		d.deliver(peer, addPeerMsg{"addPeer", sid, false})
		d.deliver(sid, addPeerMsg{"addPeer", peer, true})
	}
}

// LeaveRoom removes the connection from its current room, if any, and tells
// both sides to tear down their peer connections.
func (d *Dispatcher) LeaveRoom(sid core.SessionID) {
	d.notifyLeave(sid, d.state.Leave(sid))
}

// notifyLeave sends removePeer in both directions. During disconnect the
// leaver is already unregistered, so its sends silently fail.
func (d *Dispatcher) notifyLeave(sid core.SessionID, lv LeaveResult) {
	if !lv.Left {
		return
	}
	for _, peer := range lv.Remaining {
		d.deliver(peer, removePeerMsg{"removePeer", sid})
		d.deliver(sid, removePeerMsg{"removePeer", peer})
	}
}

// RelayICECandidate forwards an ICE candidate to the target, tagged with
// the sender id. Dropped silently when the target is gone.
func (d *Dispatcher) RelayICECandidate(from, target core.SessionID, candidate webrtc.ICECandidateInit) {
	delivered := d.deliver(target, struct {
		Type      string                  `json:"type"`
		PeerID    core.SessionID          `json:"peer_id"`
		Candidate webrtc.ICECandidateInit `json:"ice_candidate"`
	}{"iceCandidate", from, candidate})
	log.Debug().Str("module", "app.dispatch").Str("from", string(from)).Str("to", string(target)).Bool("delivered", delivered).Msg("relayed ICE candidate")
}

// RelaySessionDescription forwards an offer or answer to the target, tagged
// with the sender id. Dropped silently when the target is gone.
func (d *Dispatcher) RelaySessionDescription(from, target core.SessionID, desc webrtc.SessionDescription) {
	delivered := d.deliver(target, struct {
		Type        string                    `json:"type"`
		PeerID      core.SessionID            `json:"peer_id"`
		Description webrtc.SessionDescription `json:"session_description"`
	}{"sessionDescription", from, desc})
	log.Debug().Str("module", "app.dispatch").Str("from", string(from)).Str("to", string(target)).Bool("delivered", delivered).Msg("relayed session description")
}

// Disconnect tears the connection down: implicit leave of the current room
// with the usual removePeer fan-out, then a removeUser broadcast so every
// remaining client drops the avatar.
func (d *Dispatcher) Disconnect(sid core.SessionID) {
	res := d.state.Disconnect(sid)
	d.notifyLeave(sid, res.Left)
	for _, other := range res.Present {
		d.deliver(other, struct {
			Type string        `json:"type"`
			ID   domain.UserID `json:"id"`
		}{"removeUser", domain.UserID(sid)})
	}
	log.Info().Str("module", "app.dispatch").Str("sid", string(sid)).Msg("disconnected")
}

// deliver marshals v and hands it to the target's transport.
func (d *Dispatcher) deliver(sid core.SessionID, v any) bool {
	conn, ok := d.state.Lookup(sid)
	if !ok {
		return false
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.dispatch").Msg("marshal outbound frame")
		return false
	}
	return conn.TrySend(core.Frame(b)) == nil
}
