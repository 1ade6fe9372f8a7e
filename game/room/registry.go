package room

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/bingo-server/game/bingo"
)

var (
	ErrRoomNotFound      = errors.New("room does not exist")
	ErrRoomAlreadyExists = errors.New("room already exists")
	ErrInvalidRoomID     = errors.New("invalid room ID")
	ErrAdminExists       = errors.New("room already has an admin")
	ErrNotAdmin          = errors.New("only the room admin can call numbers")
	ErrAlreadyCalled     = errors.New("number already called")
	ErrNumberOutOfRange  = errors.New("number out of range")
)

// Registry owns every room in the process, keyed by room ID.
type Registry struct {
	rooms map[string]*Room
	mu    sync.RWMutex
	now   func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		now:   time.Now,
	}
}

// Create registers a room with connID as its admin.
func (r *Registry) Create(roomID, connID string) (Snapshot, error) {
	if roomID == "" {
		return Snapshot{}, ErrInvalidRoomID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[roomID]; exists {
		return Snapshot{}, ErrRoomAlreadyExists
	}

	room := newRoom(roomID, connID, r.now())
	r.rooms[roomID] = room

	log.Debug().Str("module", "room.registry").Str("room", roomID).Str("conn", connID).Msg("room created")
	return room.snapshot(), nil
}

// Get returns a snapshot of the room.
func (r *Registry) Get(roomID string) (Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return Snapshot{}, ErrRoomNotFound
	}
	return room.snapshot(), nil
}

// Join records connID as a player named name and returns the player names in
// join order. A connection that joins again keeps its position and takes the
// new name.
func (r *Registry) Join(roomID, connID, name string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return nil, ErrRoomNotFound
	}

	if i := room.playerIndex(connID); i >= 0 {
		room.Players[i].Name = name
	} else {
		room.Players = append(room.Players, Player{ConnID: connID, Name: name})
	}
	room.LastActiveAt = r.now()

	return room.PlayerNames(), nil
}

// ClaimAdmin makes connID the admin if the room has none.
func (r *Registry) ClaimAdmin(roomID, connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return ErrRoomNotFound
	}
	if room.AdminID != "" {
		return ErrAdminExists
	}

	room.AdminID = connID
	room.LastActiveAt = r.now()
	return nil
}

// IsAdmin reports whether connID administers the room.
func (r *Registry) IsAdmin(roomID, connID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return false, ErrRoomNotFound
	}
	return room.AdminID != "" && room.AdminID == connID, nil
}

// Drawn returns a copy of the room's called numbers as a set.
func (r *Registry) Drawn(roomID string) (map[int]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return nil, ErrRoomNotFound
	}
	return room.drawn(), nil
}

// HasCalled reports whether number has been drawn in the room.
func (r *Registry) HasCalled(roomID string, number int) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return false, ErrRoomNotFound
	}
	return room.called[number], nil
}

// RecordCall appends call to the room's draw history. Numbers outside 1-75 or
// already drawn are rejected so the history never holds duplicates.
func (r *Registry) RecordCall(roomID string, call bingo.Call) error {
	if _, ok := bingo.LetterFor(call.Number); !ok {
		return fmt.Errorf("record call %d: %w", call.Number, ErrNumberOutOfRange)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return ErrRoomNotFound
	}
	if room.called[call.Number] {
		return fmt.Errorf("record call %s: %w", call, ErrAlreadyCalled)
	}

	room.Calls = append(room.Calls, call)
	room.called[call.Number] = true
	room.LastActiveAt = r.now()
	return nil
}

// RecordWinner appends name to the room's winners.
func (r *Registry) RecordWinner(roomID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return ErrRoomNotFound
	}
	room.Winners = append(room.Winners, name)
	room.LastActiveAt = r.now()
	return nil
}

// RemoveConnection drops every player entry for connID and clears the admin
// if connID held it. It returns the remaining player names and whether the
// admin was cleared.
func (r *Registry) RemoveConnection(roomID, connID string) ([]string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return nil, false, ErrRoomNotFound
	}

	kept := room.Players[:0]
	for _, p := range room.Players {
		if p.ConnID != connID {
			kept = append(kept, p)
		}
	}
	room.Players = kept

	adminCleared := false
	if room.AdminID != "" && room.AdminID == connID {
		room.AdminID = ""
		adminCleared = true
	}
	room.LastActiveAt = r.now()

	return room.PlayerNames(), adminCleared, nil
}

// List returns snapshots of all rooms ordered by ID.
func (r *Registry) List() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Snapshot, 0, len(r.rooms))
	for _, room := range r.rooms {
		result = append(result, room.snapshot())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Count returns the number of rooms.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// CleanupIdleRooms removes rooms with no players and no admin that have not
// changed for maxAge. It returns the removed room IDs.
func (r *Registry) CleanupIdleRooms(maxAge time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxAge)
	var removed []string

	for id, room := range r.rooms {
		if room.Idle() && room.LastActiveAt.Before(cutoff) {
			delete(r.rooms, id)
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)

	if len(removed) > 0 {
		log.Info().Str("module", "room.registry").Strs("rooms", removed).Msg("evicted idle rooms")
	}
	return removed
}
