package app

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Space/internal/core"
	"github.com/dkeye/Space/internal/domain"
)

// LeaveResult reports the outcome of a room departure.
type LeaveResult struct {
	Room      domain.RoomName
	Remaining []core.SessionID
	Left      bool
}

// JoinResult reports the members present before the join, plus the implicit
// departure from the previous room when there was one.
type JoinResult struct {
	Prior []core.SessionID
	Left  LeaveResult
}

// Join adds sid to the named room, creating the room on first use, and
// records the room on the connection. A connection is in at most one room
// at a time: joining while already in another room leaves that room first,
// inside the same critical section, so the membership sets and the
// back-reference never disagree.
func (s *State) Join(name domain.RoomName, sid core.SessionID) JoinResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := JoinResult{Left: s.leaveLocked(sid)}
	set, ok := s.rooms[name]
	if !ok {
		set = make(map[core.SessionID]struct{})
		s.rooms[name] = set
		log.Info().Str("module", "app.state").Str("room", string(name)).Msg("created room")
	}
	for member := range set {
		res.Prior = append(res.Prior, member)
	}
	set[sid] = struct{}{}
	s.roomOf[sid] = name
	log.Info().Str("module", "app.state").Str("sid", string(sid)).Str("room", string(name)).Msg("joined room")
	return res
}

// Leave removes sid from its current room and returns the remaining
// members. No-op when sid is in no room. Rooms persist after emptying:
// recreation is cheap and room existence is not observable from outside.
func (s *State) Leave(sid core.SessionID) LeaveResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaveLocked(sid)
}

func (s *State) leaveLocked(sid core.SessionID) LeaveResult {
	name, ok := s.roomOf[sid]
	if !ok {
		return LeaveResult{}
	}
	delete(s.roomOf, sid)
	set := s.rooms[name]
	delete(set, sid)

	res := LeaveResult{Room: name, Left: true}
	for member := range set {
		res.Remaining = append(res.Remaining, member)
	}
	log.Info().Str("module", "app.state").Str("sid", string(sid)).Str("room", string(name)).Msg("left room")
	return res
}

// RoomOf returns the room currently recorded on the connection.
func (s *State) RoomOf(sid core.SessionID) (domain.RoomName, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.roomOf[sid]
	return name, ok
}

// MembersOf snapshots the membership set of a room.
func (s *State) MembersOf(name domain.RoomName) []core.SessionID {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.rooms[name]
	out := make([]core.SessionID, 0, len(set))
	for member := range set {
		out = append(out, member)
	}
	return out
}
