// Package mcp provides a Model Context Protocol server for the bingo server.
//
// The mcp package implements:
//   - MCP tool definitions for room inspection
//   - A thin HTTP client that proxies every tool to the REST API
//   - Text formatting of rooms and draw histories for AI agents
//
// MCP Tools:
//   - list_rooms: List rooms with player and draw counts
//   - get_room: Room details (admin present, players, calls, winners)
//   - called_numbers: Draw history and remaining count
//   - check_card: Dry-run a card against a room's draws
//   - bingo_rules: Active win rule and letter bands
//
// The tools never change room state. Gameplay stays on the WebSocket
// transport so that every action goes through the hub's event loop.
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP:  POST JSON-RPC messages to /mcp on the main server
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal().Err(err).Msg("mcp server failed")
//	}
package mcp
