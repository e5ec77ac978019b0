// internal/room/room_store.go
package room

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store manages the active rooms in memory.
// It provides thread-safe access to add, retrieve, list and delete rooms.
type Store struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]*Room
}

// NewStore initializes and returns an empty Store.
func NewStore() *Store {
	return &Store{
		rooms: make(map[uuid.UUID]*Room),
	}
}

// AddRoom adds a new room instance to the store.
// Configure the room's OnEmpty callback before adding it so the room removes
// itself when the last participant leaves.
func (s *Store) AddRoom(r *Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[r.ID]; exists {
		log.Printf("Store WARNING: attempted to add room %s which already exists.", r.ID)
		return
	}
	s.rooms[r.ID] = r
	log.Printf("Store: added room %s.", r.ID)
}

// DeleteRoom removes a room from the store by its ID.
// Typically called via the room's OnEmpty callback.
func (s *Store) DeleteRoom(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[id]; exists {
		delete(s.rooms, id)
		log.Printf("Store: deleted room %s.", id)
	} else {
		log.Printf("Store WARNING: attempted to delete non-existent room %s.", id)
	}
}

// GetRoom retrieves a room by its ID.
func (s *Store) GetRoom(id uuid.UUID) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	return r, ok
}

// Summary is the listing projection of a room.
type Summary struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	IsPublic     bool      `json:"isPublic"`
	Phase        string    `json:"phase"`
	Participants int       `json:"participants"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ListVisible returns summaries of the rooms the requester may discover:
// public rooms, plus private rooms the requester already participates in,
// excluding rooms older than the retention window.
func (s *Store) ListVisible(requester uuid.UUID, retention time.Duration) []Summary {
	s.mu.Lock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	s.mu.Unlock()

	cutoff := time.Now().Add(-retention)
	out := []Summary{}
	for _, r := range rooms {
		r.Mu.Lock()
		if r.closed || r.CreatedAt.Before(cutoff) {
			r.Mu.Unlock()
			continue
		}
		_, isMember := r.Connections[requester]
		if !r.IsPublic && !isMember {
			r.Mu.Unlock()
			continue
		}
		out = append(out, Summary{
			ID:           r.ID,
			Name:         r.Name,
			IsPublic:     r.IsPublic,
			Phase:        string(r.Phase),
			Participants: len(r.Connections),
			CreatedAt:    r.CreatedAt,
		})
		r.Mu.Unlock()
	}
	return out
}
