package room

import (
	"time"

	"github.com/wricardo/bingo-server/game/bingo"
)

// Player is one join-room entry: the connection and the name it chose.
type Player struct {
	ConnID string `json:"-"`
	Name   string `json:"name"`
}

// Room is the mutable state of one bingo session. Rooms are owned by a
// Registry and only mutated through it.
type Room struct {
	ID           string
	AdminID      string
	Players      []Player
	Calls        []bingo.Call
	Winners      []string
	CreatedAt    time.Time
	LastActiveAt time.Time

	called map[int]bool
}

func newRoom(id, adminID string, now time.Time) *Room {
	return &Room{
		ID:           id,
		AdminID:      adminID,
		Players:      []Player{},
		Calls:        []bingo.Call{},
		Winners:      []string{},
		CreatedAt:    now,
		LastActiveAt: now,
		called:       make(map[int]bool),
	}
}

// PlayerNames returns player names in join order.
func (r *Room) PlayerNames() []string {
	names := make([]string, len(r.Players))
	for i, p := range r.Players {
		names[i] = p.Name
	}
	return names
}

// Idle reports whether nobody holds the room: no players and no admin.
func (r *Room) Idle() bool {
	return len(r.Players) == 0 && r.AdminID == ""
}

func (r *Room) playerIndex(connID string) int {
	for i, p := range r.Players {
		if p.ConnID == connID {
			return i
		}
	}
	return -1
}

func (r *Room) drawn() map[int]bool {
	out := make(map[int]bool, len(r.called))
	for n := range r.called {
		out[n] = true
	}
	return out
}

func (r *Room) snapshot() Snapshot {
	return Snapshot{
		ID:           r.ID,
		AdminID:      r.AdminID,
		HasAdmin:     r.AdminID != "",
		Players:      append([]Player(nil), r.Players...),
		Calls:        append([]bingo.Call(nil), r.Calls...),
		Winners:      append([]string(nil), r.Winners...),
		CreatedAt:    r.CreatedAt,
		LastActiveAt: r.LastActiveAt,
	}
}

// Snapshot is a read-only copy of a room, safe to hand to other goroutines.
type Snapshot struct {
	ID           string       `json:"id"`
	AdminID      string       `json:"-"`
	HasAdmin     bool         `json:"has_admin"`
	Players      []Player     `json:"players"`
	Calls        []bingo.Call `json:"calls"`
	Winners      []string     `json:"winners"`
	CreatedAt    time.Time    `json:"created_at"`
	LastActiveAt time.Time    `json:"last_active_at"`
}

// Drawn returns the called numbers as a set.
func (s Snapshot) Drawn() map[int]bool {
	out := make(map[int]bool, len(s.Calls))
	for _, c := range s.Calls {
		out[c.Number] = true
	}
	return out
}

// PlayerNames returns player names in join order.
func (s Snapshot) PlayerNames() []string {
	names := make([]string, len(s.Players))
	for i, p := range s.Players {
		names[i] = p.Name
	}
	return names
}

// Remaining is how many numbers are still available to draw.
func (s Snapshot) Remaining() int {
	return bingo.MaxNumber - len(s.Calls)
}
