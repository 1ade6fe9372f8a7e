package coordinator

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/bingo-server/game/bingo"
	"github.com/wricardo/bingo-server/game/room"
)

var (
	ErrInvalidClaim    = errors.New("card does not win")
	ErrNumberNotCalled = errors.New("number has not been called")
	ErrUnknownEvent    = errors.New("unknown event")
	ErrInvalidPayload  = errors.New("invalid payload")
)

// Notifier delivers outbound events. The websocket hub implements it.
type Notifier interface {
	// Unicast sends an event to a single connection.
	Unicast(connID, event string, payload any)
	// Broadcast sends an event to every connection joined to roomID.
	Broadcast(roomID, event string, payload any)
	// Join adds connID to roomID's broadcast group.
	Join(connID, roomID string)
}

// Rooms is the registry surface the coordinator needs.
type Rooms interface {
	Create(roomID, connID string) (room.Snapshot, error)
	Join(roomID, connID, name string) ([]string, error)
	ClaimAdmin(roomID, connID string) error
	IsAdmin(roomID, connID string) (bool, error)
	Drawn(roomID string) (map[int]bool, error)
	HasCalled(roomID string, number int) (bool, error)
	RecordCall(roomID string, call bingo.Call) error
	RecordWinner(roomID, name string) error
	RemoveConnection(roomID, connID string) ([]string, bool, error)
}

// Coordinator turns client events into registry changes and notifications.
// Its methods are meant to be called from a single goroutine, the hub loop.
type Coordinator struct {
	rooms     Rooms
	drawer    *bingo.Drawer
	validator bingo.Validator
	notify    Notifier
}

// New creates a coordinator.
func New(rooms Rooms, drawer *bingo.Drawer, validator bingo.Validator, notify Notifier) *Coordinator {
	if drawer == nil {
		drawer = bingo.NewDrawer(nil)
	}
	return &Coordinator{
		rooms:     rooms,
		drawer:    drawer,
		validator: validator,
		notify:    notify,
	}
}

// CreateRoom registers roomID with connID as admin and joins it to the room.
func (c *Coordinator) CreateRoom(connID, roomID string) error {
	if _, err := c.rooms.Create(roomID, connID); err != nil {
		c.notify.Unicast(connID, EventErrorRoom, roomErrorText(err))
		return fmt.Errorf("create room %q: %w", roomID, err)
	}

	c.notify.Join(connID, roomID)
	c.notify.Unicast(connID, EventRoomCreated, roomID)
	c.notify.Broadcast(roomID, EventSystemMessage, fmt.Sprintf("Room %s created. You are the admin.", roomID))

	log.Info().Str("module", "coordinator").Str("room", roomID).Str("conn", connID).Msg("room created")
	return nil
}

// JoinRoom adds connID as a player and announces the new player list.
func (c *Coordinator) JoinRoom(connID, roomID, name string) error {
	names, err := c.rooms.Join(roomID, connID, name)
	if err != nil {
		c.notify.Unicast(connID, EventErrorRoom, roomErrorText(err))
		return fmt.Errorf("join room %q: %w", roomID, err)
	}

	c.notify.Join(connID, roomID)
	c.notify.Broadcast(roomID, EventPlayerJoined, names)

	log.Debug().Str("module", "coordinator").Str("room", roomID).Str("conn", connID).Str("player", name).Msg("player joined")
	return nil
}

// RequestAdmin hands an admin-less room to connID.
func (c *Coordinator) RequestAdmin(connID, roomID string) error {
	if err := c.rooms.ClaimAdmin(roomID, connID); err != nil {
		c.notify.Unicast(connID, EventAdminDenied, roomErrorText(err))
		return fmt.Errorf("request admin %q: %w", roomID, err)
	}

	// the admin must be in the group so its disconnect releases the room
	c.notify.Join(connID, roomID)
	c.notify.Unicast(connID, EventAdminApproved, nil)
	c.notify.Broadcast(roomID, EventSystemMessage, msgNewAdmin)

	log.Info().Str("module", "coordinator").Str("room", roomID).Str("conn", connID).Msg("admin claimed")
	return nil
}

// CallNumber draws the next number for roomID. Only the admin may call.
func (c *Coordinator) CallNumber(connID, roomID string) error {
	isAdmin, err := c.rooms.IsAdmin(roomID, connID)
	if err != nil {
		c.notify.Unicast(connID, EventErrorMsg, roomErrorText(err))
		return fmt.Errorf("call number %q: %w", roomID, err)
	}
	if !isAdmin {
		c.notify.Unicast(connID, EventErrorMsg, msgNotAdmin)
		return fmt.Errorf("call number %q: %w", roomID, room.ErrNotAdmin)
	}

	drawn, err := c.rooms.Drawn(roomID)
	if err != nil {
		c.notify.Unicast(connID, EventErrorMsg, roomErrorText(err))
		return fmt.Errorf("call number %q: %w", roomID, err)
	}

	call, err := c.drawer.Draw(drawn)
	if err != nil {
		c.notify.Unicast(connID, EventErrorMsg, msgAllNumbersDrawn)
		return fmt.Errorf("call number %q: %w", roomID, err)
	}
	if err := c.rooms.RecordCall(roomID, call); err != nil {
		c.notify.Unicast(connID, EventErrorMsg, roomErrorText(err))
		return fmt.Errorf("call number %q: %w", roomID, err)
	}

	c.notify.Broadcast(roomID, EventNumberCalled, call)

	log.Debug().Str("module", "coordinator").Str("room", roomID).Str("call", call.String()).Int("drawn", len(drawn)+1).Msg("number called")
	return nil
}

// PlayerBingo checks a win claim against the room's draw history.
func (c *Coordinator) PlayerBingo(connID, roomID, name string, card bingo.Card) error {
	drawn, err := c.rooms.Drawn(roomID)
	if err != nil {
		c.notify.Unicast(connID, EventErrorRoom, roomErrorText(err))
		return fmt.Errorf("bingo claim %q: %w", roomID, err)
	}

	if !c.validator.IsWinning(card, drawn) {
		c.notify.Unicast(connID, EventInvalidBingo, nil)
		log.Debug().Str("module", "coordinator").Str("room", roomID).Str("player", name).Msg("bingo claim rejected")
		return fmt.Errorf("bingo claim by %q: %w", name, ErrInvalidClaim)
	}

	if err := c.rooms.RecordWinner(roomID, name); err != nil {
		log.Warn().Str("module", "coordinator").Str("room", roomID).Err(err).Msg("failed to record winner")
	}
	c.notify.Broadcast(roomID, EventWinner, name)

	log.Info().Str("module", "coordinator").Str("room", roomID).Str("player", name).Msg("bingo")
	return nil
}

// MarkCell reports whether number has been called in roomID.
func (c *Coordinator) MarkCell(connID, roomID string, number int) MarkResult {
	called, err := c.rooms.HasCalled(roomID, number)
	if err != nil {
		return MarkResult{Success: false, Message: msgMarkRoomNotFound}
	}
	if !called {
		return MarkResult{Success: false, Message: msgNumberNotCalled}
	}
	return MarkResult{Success: true}
}

// HandleDisconnect removes connID from every room it joined and tells the
// people still there.
func (c *Coordinator) HandleDisconnect(connID string, roomIDs []string) {
	for _, roomID := range roomIDs {
		names, adminCleared, err := c.rooms.RemoveConnection(roomID, connID)
		if err != nil {
			log.Debug().Str("module", "coordinator").Str("room", roomID).Str("conn", connID).Err(err).Msg("skip disconnect cleanup")
			continue
		}

		if adminCleared {
			c.notify.Broadcast(roomID, EventSystemMessage, msgAdminLeft)
		}
		c.notify.Broadcast(roomID, EventPlayerJoined, names)
	}

	log.Debug().Str("module", "coordinator").Str("conn", connID).Int("rooms", len(roomIDs)).Msg("connection reconciled")
}

func roomErrorText(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return msgRoomNotFound
	case errors.Is(err, room.ErrRoomAlreadyExists):
		return msgRoomExists
	case errors.Is(err, room.ErrInvalidRoomID):
		return msgInvalidRoomID
	case errors.Is(err, room.ErrAdminExists):
		return msgAdminExists
	case errors.Is(err, room.ErrNotAdmin):
		return msgNotAdmin
	case errors.Is(err, room.ErrAlreadyCalled):
		return "Number already called"
	default:
		return err.Error()
	}
}
