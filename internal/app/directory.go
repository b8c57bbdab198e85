package app

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Space/internal/core"
	"github.com/dkeye/Space/internal/domain"
)

// SubscriberView is one personalized broadcast: the refreshed snapshot of
// everyone except the recipient itself.
type SubscriberView struct {
	To    core.SessionID
	Users map[domain.UserID]domain.Position
}

// CreateUser inserts the presence record for a fresh connection, with an
// empty payload until the first tick, and returns it so the dispatcher can
// echo the assigned identity back to the client.
func (s *State) CreateUser(sid core.SessionID) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := domain.NewUser(domain.UserID(sid))
	s.users[sid] = u
	log.Info().Str("module", "app.state").Str("sid", string(sid)).Msg("created user")
	return u
}

// UpdateUser replaces the user's position payload. A tick can race a
// disconnect, so a missing id is a silent no-op. On success it returns one
// view per subscriber, computed inside the critical section so every
// broadcast reflects the state at the moment the mutation applied.
func (s *State) UpdateUser(sid core.SessionID, data domain.Position) ([]SubscriberView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[sid]
	if !ok {
		return nil, false
	}
	u.Data = data

	views := make([]SubscriberView, 0, len(s.subs))
	for sub := range s.subs {
		views = append(views, SubscriberView{To: sub, Users: s.othersExceptLocked(sub)})
	}
	return views, true
}

// Subscribe marks sid as a recipient of future update broadcasts. The
// subscription lives until disconnect.
func (s *State) Subscribe(sid core.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sid] = struct{}{}
	log.Info().Str("module", "app.state").Str("sid", string(sid)).Msg("subscribed to updates")
}

// AllUsers returns a snapshot of every presence payload keyed by id.
func (s *State) AllUsers() map[domain.UserID]domain.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.UserID]domain.Position, len(s.users))
	for _, u := range s.users {
		out[u.ID] = u.Data
	}
	return out
}

// OthersExcept is the directory minus the caller's own entry. Clients never
// receive their own data back.
func (s *State) OthersExcept(sid core.SessionID) map[domain.UserID]domain.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.othersExceptLocked(sid)
}

func (s *State) othersExceptLocked(sid core.SessionID) map[domain.UserID]domain.Position {
	out := make(map[domain.UserID]domain.Position, len(s.users))
	for other, u := range s.users {
		if other == sid {
			continue
		}
		out[u.ID] = u.Data
	}
	return out
}
