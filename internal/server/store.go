package server

import "sync"

// Store is the lobby registry: an index of lobby entries keyed by code.
// The store mutex only guards the map itself; every entry carries its own
// lock, so operations on different lobbies never contend.
type Store struct {
	mu      sync.Mutex
	lobbies map[string]*lobbyEntry
}

type lobbyEntry struct {
	mu      sync.Mutex
	lobby   *Lobby
	deleted bool
}

func NewStore() *Store {
	return &Store{
		lobbies: make(map[string]*lobbyEntry),
	}
}

// Create registers a new lobby with a freshly generated code and the host as
// its sole member. Codes are collision-checked against live lobbies.
func (s *Store) Create(host Member, startingEvents int) *Lobby {
	s.mu.Lock()
	defer s.mu.Unlock()

	var code string
	for {
		code = newLobbyCode()
		if _, taken := s.lobbies[code]; !taken {
			break
		}
	}

	lobby := &Lobby{
		Code:            code,
		HostID:          host.ID,
		Status:          statusWaiting,
		EventsRemaining: startingEvents,
		Members:         []Member{host},
		CreatedAt:       timeNowUTC(),
	}
	s.lobbies[code] = &lobbyEntry{lobby: lobby}
	return lobby.clone()
}

func (s *Store) entry(code string) (*lobbyEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.lobbies[code]
	return entry, ok
}

// Update runs fn with exclusive access to one lobby and returns a deep copy
// of the result. If fn fails the error is returned as-is and any partial
// mutation fn made is the caller's responsibility to avoid.
func (s *Store) Update(code string, fn func(lobby *Lobby) error) (*Lobby, error) {
	entry, ok := s.entry(code)
	if !ok {
		return nil, ErrLobbyNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.deleted {
		return nil, ErrLobbyNotFound
	}
	if err := fn(entry.lobby); err != nil {
		return nil, err
	}
	return entry.lobby.clone(), nil
}

// Snapshot returns a deep copy of the lobby, never a torn read.
func (s *Store) Snapshot(code string) (*Lobby, error) {
	entry, ok := s.entry(code)
	if !ok {
		return nil, ErrLobbyNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.deleted {
		return nil, ErrLobbyNotFound
	}
	return entry.lobby.clone(), nil
}

// Delete removes the lobby from the index. The entry is flagged so callers
// that already hold a reference observe it as gone.
func (s *Store) Delete(code string) {
	s.mu.Lock()
	entry, ok := s.lobbies[code]
	delete(s.lobbies, code)
	s.mu.Unlock()
	if !ok {
		return
	}
	entry.mu.Lock()
	entry.deleted = true
	entry.mu.Unlock()
}

// Len reports the number of live lobbies.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lobbies)
}
