package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Space/internal/core"
	"github.com/dkeye/Space/internal/domain"
)

// State is the process-wide shared-state surface: the connection registry,
// the user directory and the room membership table. A single mutex guards
// all three, so one logical operation (a tick, a join, a disconnect) reads
// and mutates them atomically. Lifecycle is tied to the server process;
// nothing here survives a restart.
type State struct {
	mu     sync.Mutex
	conns  map[core.SessionID]core.SignalConnection
	users  map[core.SessionID]*domain.User
	subs   map[core.SessionID]struct{}
	rooms  map[domain.RoomName]map[core.SessionID]struct{}
	roomOf map[core.SessionID]domain.RoomName
}

func NewState() *State {
	return &State{
		conns:  make(map[core.SessionID]core.SignalConnection),
		users:  make(map[core.SessionID]*domain.User),
		subs:   make(map[core.SessionID]struct{}),
		rooms:  make(map[domain.RoomName]map[core.SessionID]struct{}),
		roomOf: make(map[core.SessionID]domain.RoomName),
	}
}

// Register stores the transport handle under sid. The transport layer
// guarantees unique session ids, so an overwrite is a logic error; it is
// logged and the newer handle wins.
func (s *State) Register(sid core.SessionID, conn core.SignalConnection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[sid]; ok {
		log.Error().Str("module", "app.state").Str("sid", string(sid)).Msg("duplicate session id on register")
	}
	s.conns[sid] = conn
	log.Info().Str("module", "app.state").Str("sid", string(sid)).Msg("registered connection")
}

// Lookup returns the transport handle for sid. Callers that merely notify
// peers best effort treat a miss as "peer already gone".
func (s *State) Lookup(sid core.SessionID) (core.SignalConnection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, ok := s.conns[sid]
	return conn, ok
}

// DisconnectResult carries everything the dispatcher needs to notify the
// rest of the space after a connection is torn down.
type DisconnectResult struct {
	Left    LeaveResult
	Present []core.SessionID // connections still registered afterwards
	Removed bool
}

// Disconnect tears down every trace of sid: the implicit departure from its
// current room, the user record, the update subscription and the registry
// entry. All of it happens inside one critical section, so a concurrent
// tick or join referencing sid sees either the fully present or the fully
// absent state.
func (s *State) Disconnect(sid core.SessionID) DisconnectResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := DisconnectResult{Left: s.leaveLocked(sid)}
	if _, ok := s.users[sid]; ok {
		delete(s.users, sid)
		res.Removed = true
	}
	delete(s.subs, sid)
	delete(s.conns, sid)
	for other := range s.conns {
		res.Present = append(res.Present, other)
	}
	log.Info().Str("module", "app.state").Str("sid", string(sid)).Str("room", string(res.Left.Room)).Msg("disconnected")
	return res
}
