package coordinator

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/bingo-server/game/bingo"
)

// bingoClaim is BingoPayload with the card left raw, so a card that does not
// parse is judged as a losing claim instead of a bad payload.
type bingoClaim struct {
	RoomID     string          `json:"roomId"`
	PlayerName string          `json:"playerName"`
	Card       json.RawMessage `json:"card"`
}

// claimedCard decodes a claimed card. A card that does not parse comes back
// nil, which never wins.
func claimedCard(connID string, data json.RawMessage) bingo.Card {
	var card bingo.Card
	if err := json.Unmarshal(data, &card); err != nil {
		log.Debug().Str("module", "coordinator").Str("conn", connID).Err(err).Msg("unreadable bingo card")
		return nil
	}
	return card
}

// HandleEvent decodes data for the named event and runs its handler. A non-nil
// return value is the acknowledgement to send back to connID.
func (c *Coordinator) HandleEvent(connID, event string, data json.RawMessage) any {
	var err error

	switch event {
	case EventCreateRoom:
		var p RoomPayload
		if err = decode(data, &p); err == nil {
			err = c.CreateRoom(connID, p.RoomID)
		}

	case EventJoinRoom:
		var p JoinPayload
		if err = decode(data, &p); err == nil {
			err = c.JoinRoom(connID, p.RoomID, p.PlayerName)
		}

	case EventRequestAdmin:
		var p RoomPayload
		if err = decode(data, &p); err == nil {
			err = c.RequestAdmin(connID, p.RoomID)
		}

	case EventCallNumber:
		var p RoomPayload
		if err = decode(data, &p); err == nil {
			err = c.CallNumber(connID, p.RoomID)
		}

	case EventPlayerBingo:
		var p bingoClaim
		if err = decode(data, &p); err == nil {
			err = c.PlayerBingo(connID, p.RoomID, p.PlayerName, claimedCard(connID, p.Card))
		}

	case EventMarkCell:
		var p MarkPayload
		if err := decode(data, &p); err != nil {
			log.Debug().Str("module", "coordinator").Str("conn", connID).Err(err).Msg("bad mark-cell payload")
			return MarkResult{Success: false, Message: "invalid payload"}
		}
		return c.MarkCell(connID, p.RoomID, p.Number)

	default:
		c.notify.Unicast(connID, EventErrorMsg, fmt.Sprintf("Unknown event %q", event))
		log.Debug().Str("module", "coordinator").Str("conn", connID).Str("event", event).Msg("unknown event")
		return nil
	}

	if err != nil {
		if errors.Is(err, ErrInvalidPayload) {
			c.notify.Unicast(connID, EventErrorMsg, fmt.Sprintf("Invalid payload for %s", event))
		}
		log.Debug().Str("module", "coordinator").Str("conn", connID).Str("event", event).Err(err).Msg("event rejected")
	}
	return nil
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return fmt.Errorf("%w: missing data", ErrInvalidPayload)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
