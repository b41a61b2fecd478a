package lobby

import (
	"sync"
)

// Store is the process-wide lobby map. Reads run concurrently; create and
// delete exclude them. Per-lobby mutation is serialized by the lobby's own
// mutex, not by the store.
type Store struct {
	mu      sync.RWMutex
	lobbies map[string]*Lobby
	order   []string
}

func NewStore() *Store {
	return &Store{lobbies: make(map[string]*Lobby)}
}

// Create stores the lobby. On id collision the existing lobby is returned
// untouched, so replaying a create event is harmless.
func (s *Store) Create(l *Lobby) (*Lobby, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.lobbies[l.ID]; ok {
		return existing, false
	}
	s.lobbies[l.ID] = l
	s.order = append(s.order, l.ID)
	return l, true
}

func (s *Store) Get(id string) (*Lobby, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lobbies[id]
	return l, ok
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lobbies[id]; !ok {
		return
	}
	delete(s.lobbies, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// List returns the lobbies in creation order.
func (s *Store) List() []*Lobby {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Lobby, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.lobbies[id])
	}
	return out
}

// ForEachObserver calls fn for every observer connection of the lobby.
func (s *Store) ForEachObserver(id string, fn func(conn string)) {
	l, ok := s.Get(id)
	if !ok {
		return
	}
	l.Lock()
	conns := make([]string, 0, len(l.Observers))
	for conn := range l.Observers {
		conns = append(conns, conn)
	}
	l.Unlock()
	for _, conn := range conns {
		fn(conn)
	}
}
