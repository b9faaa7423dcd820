package bridge

import "sync"

// Session holds the process-lifetime active game and active profile
// pointers. It lives outside the relational store: switching either
// pointer never mutates persisted data, and the selection does not
// survive the process. Callers pass the session explicitly rather than
// reaching for package-level state.
type Session struct {
	mu              sync.RWMutex
	activeGameID    uint
	activeProfileID uint
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) SetActiveGame(gameID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeGameID != gameID {
		// Profile selection is per game.
		s.activeProfileID = 0
	}
	s.activeGameID = gameID
}

func (s *Session) ActiveGame() uint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeGameID
}

func (s *Session) SetActiveProfile(profileID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeProfileID = profileID
}

func (s *Session) ActiveProfile() uint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeProfileID
}
