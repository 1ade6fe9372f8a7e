package coordinator

import "github.com/wricardo/bingo-server/game/bingo"

// Inbound event names.
const (
	EventCreateRoom   = "create-room"
	EventJoinRoom     = "join-room"
	EventRequestAdmin = "request-admin"
	EventCallNumber   = "call-number"
	EventPlayerBingo  = "player-bingo"
	EventMarkCell     = "mark-cell"
)

// Outbound event names.
const (
	EventRoomCreated   = "room-created"
	EventSystemMessage = "system-message"
	EventErrorRoom     = "error-room"
	EventPlayerJoined  = "player-joined"
	EventAdminApproved = "admin-approved"
	EventAdminDenied   = "admin-denied"
	EventNumberCalled  = "number-called"
	EventErrorMsg      = "error-msg"
	EventWinner        = "winner"
	EventInvalidBingo  = "invalid-bingo"
)

// RoomPayload carries the room ID for create-room, request-admin and call-number.
type RoomPayload struct {
	RoomID string `json:"roomId"`
}

// JoinPayload is the join-room body.
type JoinPayload struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

// BingoPayload is a win claim.
type BingoPayload struct {
	RoomID     string     `json:"roomId"`
	PlayerName string     `json:"playerName"`
	Card       bingo.Card `json:"card"`
}

// MarkPayload asks whether a number has been called.
type MarkPayload struct {
	RoomID string `json:"roomId"`
	Number int    `json:"number"`
}

// MarkResult is the acknowledgement for mark-cell.
type MarkResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// User facing texts.
const (
	msgRoomExists       = "Room already exists"
	msgRoomNotFound     = "Room does not exist"
	msgInvalidRoomID    = "Room ID is required"
	msgAdminExists      = "Admin already exists"
	msgNotAdmin         = "Only the admin can call numbers"
	msgAllNumbersDrawn  = "All numbers have been drawn"
	msgAdminLeft        = "The admin has left the room"
	msgNewAdmin         = "A new admin has taken over the room"
	msgNumberNotCalled  = "Number has not been called"
	msgMarkRoomNotFound = "room does not exist"
)
