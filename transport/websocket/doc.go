// Package websocket provides WebSocket transport for the bingo server.
//
// The websocket package implements:
//   - Connection upgrade with an origin allow-list
//   - Per-room broadcast groups
//   - Named events with JSON payloads in both directions
//   - Acknowledgement frames correlated by a client supplied ack id
//   - Disconnect reconciliation for every room a connection joined
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Each connection has a read pump and a write pump
// goroutine. The read pump decodes frames and hands them to the hub; the hub's
// Run loop is the only goroutine that touches connection state, broadcast
// groups or the installed Handler, so each event is handled to completion
// before the next one starts.
//
// Message Protocol:
//
//   - Incoming: {"event": "join-room", "data": {"roomId": "A1", "playerName": "Bob"}, "ack": 3}
//   - Outgoing: {"event": "player-joined", "data": ["Bob"]}
//   - Ack:      {"event": "ack", "ack": 3, "data": {"success": true}}
//
// Frames that are not valid JSON or carry no event name are answered with an
// error-msg event.
//
// Usage:
//
//	hub := websocket.NewHub(websocket.Options{AllowedOrigins: origins})
//	hub.SetHandler(coord)
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", hub.ServeWS)
//
// Work that must observe a consistent view of room state, such as idle room
// eviction, is scheduled on the loop with Submit.
//
// Slow Clients:
//
// A connection whose outbound queue is full is disconnected after the current
// event finishes, which triggers the usual disconnect reconciliation.
package websocket
