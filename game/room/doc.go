// Package room provides the in-memory room registry for the bingo server.
//
// The room package implements:
//   - Thread-safe room storage keyed by a client-chosen room ID
//   - Player membership per connection, in join order
//   - Single-admin ownership with claim and release
//   - Append-only draw history without duplicate numbers
//   - Idle room eviction
//
// Core Types:
//
// Registry owns every Room. All reads hand out Snapshot copies so callers on
// other goroutines (the REST API, MCP tools) never observe a room mid-update.
//
// Room Lifecycle:
//
// A room is created once per ID with the creating connection as admin. Join,
// ClaimAdmin, RecordCall, RecordWinner and RemoveConnection mutate it. Rooms
// are only removed by CleanupIdleRooms, and only when they have neither
// players nor an admin.
//
// Usage:
//
//	rooms := room.NewRegistry()
//	if _, err := rooms.Create("A1", connID); errors.Is(err, room.ErrRoomAlreadyExists) {
//		// tell the caller
//	}
//	names, err := rooms.Join("A1", otherConn, "Bob")
package room
