package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/bingo-server/game/bingo"
	"github.com/wricardo/bingo-server/game/coordinator"
	hub "github.com/wricardo/bingo-server/transport/websocket"
)

const readWait = 10 * time.Second

// ErrExhausted is returned when the server runs out of numbers before any
// bot card wins.
var ErrExhausted = errors.New("all numbers drawn without a winner")

// Conn is a bot's WebSocket connection speaking the bingo event protocol.
type Conn struct {
	ws      *websocket.Conn
	nextAck int64
}

// Dial opens a connection to the server's /ws endpoint.
func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Conn{ws: ws}, nil
}

// Close closes the connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}

func (c *Conn) send(event string, payload any, ack *int64) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event, err)
	}
	return c.ws.WriteJSON(hub.Frame{Event: event, Data: data, Ack: ack})
}

// Send emits an event without expecting an acknowledgement.
func (c *Conn) Send(event string, payload any) error {
	return c.send(event, payload, nil)
}

// Next reads the next frame from the server.
func (c *Conn) Next() (hub.Frame, error) {
	c.ws.SetReadDeadline(time.Now().Add(readWait))
	var frame hub.Frame
	if err := c.ws.ReadJSON(&frame); err != nil {
		return hub.Frame{}, err
	}
	return frame, nil
}

// WaitFor reads frames until one carries any of events, skipping the rest.
func (c *Conn) WaitFor(events ...string) (hub.Frame, error) {
	for {
		frame, err := c.Next()
		if err != nil {
			return hub.Frame{}, err
		}
		for _, e := range events {
			if frame.Event == e {
				return frame, nil
			}
		}
	}
}

// Request emits an event with an ack ID and waits for the matching ack.
func (c *Conn) Request(event string, payload any, result any) error {
	c.nextAck++
	id := c.nextAck
	if err := c.send(event, payload, &id); err != nil {
		return err
	}

	for {
		frame, err := c.WaitFor("ack")
		if err != nil {
			return err
		}
		if frame.Ack != nil && *frame.Ack == id {
			return json.Unmarshal(frame.Data, result)
		}
	}
}

// Player is a bot holding one card.
type Player struct {
	Name  string
	Card  bingo.Card
	conn  *Conn
	drawn map[int]bool
}

// Result describes a finished game.
type Result struct {
	RoomID string
	Winner string
	Calls  []bingo.Call
}

// Game drives one room: an admin bot that calls numbers and player bots that
// mark their cards and claim bingo.
type Game struct {
	URL       string
	RoomID    string
	Players   int
	Validator bingo.Validator
	Rand      *rand.Rand
	// Delay between calls.
	Delay time.Duration
}

// Play runs the game until a player wins or the numbers run out.
func (g *Game) Play(ctx context.Context) (*Result, error) {
	admin, err := Dial(ctx, g.URL)
	if err != nil {
		return nil, err
	}
	defer admin.Close()

	if err := admin.Send(coordinator.EventCreateRoom, coordinator.RoomPayload{RoomID: g.RoomID}); err != nil {
		return nil, err
	}
	frame, err := admin.WaitFor(coordinator.EventRoomCreated, coordinator.EventErrorRoom)
	if err != nil {
		return nil, err
	}
	if frame.Event == coordinator.EventErrorRoom {
		return nil, fmt.Errorf("create room %s: %s", g.RoomID, frame.Data)
	}
	log.Info().Str("module", "bot").Str("room", g.RoomID).Msg("room created")

	players := make([]*Player, 0, g.Players)
	defer func() {
		for _, p := range players {
			p.conn.Close()
		}
	}()

	for i := 1; i <= g.Players; i++ {
		conn, err := Dial(ctx, g.URL)
		if err != nil {
			return nil, err
		}
		p := &Player{
			Name:  fmt.Sprintf("bot-%d", i),
			Card:  bingo.GenerateCard(g.Rand),
			conn:  conn,
			drawn: make(map[int]bool),
		}
		players = append(players, p)

		if err := conn.Send(coordinator.EventJoinRoom, coordinator.JoinPayload{RoomID: g.RoomID, PlayerName: p.Name}); err != nil {
			return nil, err
		}
		if _, err := conn.WaitFor(coordinator.EventPlayerJoined); err != nil {
			return nil, fmt.Errorf("%s join: %w", p.Name, err)
		}
	}

	result := &Result{RoomID: g.RoomID}
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		call, err := g.callNumber(admin)
		if err != nil {
			return result, err
		}
		result.Calls = append(result.Calls, call)

		for _, p := range players {
			winner, err := g.turn(p)
			if err != nil {
				return result, err
			}
			if winner != "" {
				result.Winner = winner
				log.Info().Str("module", "bot").Str("room", g.RoomID).Str("winner", winner).Int("calls", len(result.Calls)).Msg("bingo")
				return result, nil
			}
		}

		if g.Delay > 0 {
			time.Sleep(g.Delay)
		}
	}
}

func (g *Game) callNumber(admin *Conn) (bingo.Call, error) {
	if err := admin.Send(coordinator.EventCallNumber, coordinator.RoomPayload{RoomID: g.RoomID}); err != nil {
		return bingo.Call{}, err
	}
	frame, err := admin.WaitFor(coordinator.EventNumberCalled, coordinator.EventErrorMsg)
	if err != nil {
		return bingo.Call{}, err
	}
	if frame.Event == coordinator.EventErrorMsg {
		return bingo.Call{}, ErrExhausted
	}

	var call bingo.Call
	if err := json.Unmarshal(frame.Data, &call); err != nil {
		return bingo.Call{}, fmt.Errorf("decode call: %w", err)
	}
	log.Debug().Str("module", "bot").Str("room", g.RoomID).Str("call", call.String()).Msg("number called")
	return call, nil
}

// turn lets p see the latest call, mark it through mark-cell and claim bingo
// when its card wins. It returns the announced winner, if any.
func (g *Game) turn(p *Player) (string, error) {
	frame, err := p.conn.WaitFor(coordinator.EventNumberCalled)
	if err != nil {
		return "", fmt.Errorf("%s: %w", p.Name, err)
	}
	var call bingo.Call
	if err := json.Unmarshal(frame.Data, &call); err != nil {
		return "", fmt.Errorf("%s decode call: %w", p.Name, err)
	}

	var mark coordinator.MarkResult
	if err := p.conn.Request(coordinator.EventMarkCell, coordinator.MarkPayload{RoomID: g.RoomID, Number: call.Number}, &mark); err != nil {
		return "", fmt.Errorf("%s mark: %w", p.Name, err)
	}
	if !mark.Success {
		return "", fmt.Errorf("%s mark %s: %s", p.Name, call, mark.Message)
	}
	p.drawn[call.Number] = true

	if !g.Validator.IsWinning(p.Card, p.drawn) {
		return "", nil
	}

	if err := p.conn.Send(coordinator.EventPlayerBingo, coordinator.BingoPayload{
		RoomID:     g.RoomID,
		PlayerName: p.Name,
		Card:       p.Card,
	}); err != nil {
		return "", err
	}
	frame, err = p.conn.WaitFor(coordinator.EventWinner, coordinator.EventInvalidBingo)
	if err != nil {
		return "", fmt.Errorf("%s claim: %w", p.Name, err)
	}
	if frame.Event == coordinator.EventInvalidBingo {
		// server plays a different rule; keep going
		log.Warn().Str("module", "bot").Str("room", g.RoomID).Str("player", p.Name).Msg("bingo claim rejected")
		return "", nil
	}

	var winner string
	if err := json.Unmarshal(frame.Data, &winner); err != nil {
		return "", fmt.Errorf("decode winner: %w", err)
	}
	return winner, nil
}
