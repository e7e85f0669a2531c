package graph

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned when no explanation graph exists for an event id,
// either because it was never computed or because the store was rebuilt
// since.
var ErrNotFound = errors.New("explanation graph not found")

// Store retains the winning hypothesis graph per event for one loaded
// corpus. Rebuilt wholesale on reload, never partially mutated.
type Store struct {
	mu     sync.RWMutex
	loadID string
	graphs map[int]*Graph
}

// NewStore creates an empty graph store.
func NewStore() *Store {
	return &Store{graphs: make(map[int]*Graph)}
}

// Reset clears the store for a new corpus load.
func (s *Store) Reset(loadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadID = loadID
	s.graphs = make(map[int]*Graph)
}

// LoadID returns the id of the load the stored graphs belong to.
func (s *Store) LoadID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadID
}

// Record stores a sealed graph for an event.
func (s *Store) Record(eventID int, g *Graph) error {
	if !g.Sealed() {
		return fmt.Errorf("record graph for event %d: graph not sealed", eventID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[eventID] = g
	return nil
}

// Get returns the graph for an event, or ErrNotFound.
func (s *Store) Get(eventID int) (*Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[eventID]
	if !ok {
		return nil, fmt.Errorf("event %d: %w", eventID, ErrNotFound)
	}
	return g, nil
}

// Len returns the number of stored graphs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.graphs)
}
