// Package api provides the HTTP surface of the bingo server.
//
// The api package implements:
//   - A plain-text health check
//   - Read-only room inspection endpoints
//   - A dry-run card check against a room's draw history
//   - WebSocket upgrade delegation
//
// Endpoints:
//
//   - GET  /health                 - "Bingo server is running"
//   - GET  /api/rooms              - List rooms: {count, rooms}
//   - GET  /api/rooms/{id}         - Room snapshot (players, admin, calls, winners)
//   - GET  /api/rooms/{id}/calls   - Draw history: {room_id, calls, remaining}
//   - POST /api/rooms/{id}/check   - Body {card}; returns {room_id, winning, rule}
//   - GET  /api/rules              - Active win rule and letter bands
//   - GET  /ws                     - WebSocket upgrade for game events
//
// None of these endpoints change room state. Gameplay (creating rooms,
// joining, drawing, claiming bingo) happens over the WebSocket connection.
//
// Errors are JSON objects of the form {"error": "message"} with a matching
// status code: 400 for bad input, 404 for unknown rooms.
package api
