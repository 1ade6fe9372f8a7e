// Command bot plays a complete bingo game against a running server. One bot
// creates the room and calls numbers; the others join with random cards,
// confirm each call with mark-cell and claim bingo as soon as their card wins.
// It is handy for smoke-testing a deployment or watching rooms fill up in the
// REST and MCP views.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/bingo-server/game/bingo"
)

func newGame(cmd *cli.Command) (*Game, error) {
	rule, err := bingo.ParseWinRule(cmd.String("rule"))
	if err != nil {
		return nil, err
	}
	players := cmd.Int("players")
	if players <= 0 {
		return nil, fmt.Errorf("players must be positive, got %d", players)
	}

	roomID := cmd.String("room")
	if roomID == "" {
		roomID = "bot-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
	}

	seed := cmd.Int64("seed")
	if !cmd.IsSet("seed") {
		seed = time.Now().UnixNano()
	}

	return &Game{
		URL:       cmd.String("url"),
		RoomID:    roomID,
		Players:   players,
		Validator: bingo.NewValidator(rule),
		Rand:      rand.New(rand.NewSource(seed)),
		Delay:     cmd.Duration("delay"),
	}, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("debug") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	game, err := newGame(cmd)
	if err != nil {
		return err
	}

	result, err := game.Play(ctx)
	if err != nil {
		return err
	}

	calls := make([]string, len(result.Calls))
	for i, c := range result.Calls {
		calls[i] = c.String()
	}
	fmt.Printf("Room: %s\n", result.RoomID)
	fmt.Printf("Winner: %s after %d calls\n", result.Winner, len(result.Calls))
	fmt.Printf("Calls: %s\n", strings.Join(calls, " "))
	return nil
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := &cli.Command{
		Name:  "bot",
		Usage: "Play an automated bingo game against a server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Value: "ws://localhost:8080/ws",
				Usage: "WebSocket endpoint of the bingo server",
			},
			&cli.StringFlag{
				Name:  "room",
				Usage: "Room ID to create (default: random)",
			},
			&cli.IntFlag{
				Name:  "players",
				Value: 3,
				Usage: "Number of player bots",
			},
			&cli.StringFlag{
				Name:  "rule",
				Value: string(bingo.RuleFullCard),
				Usage: "Win rule the server plays: full_card or lines",
			},
			&cli.DurationFlag{
				Name:  "delay",
				Usage: "Pause between calls",
			},
			&cli.Int64Flag{
				Name:  "seed",
				Usage: "Random seed for cards (default: current time)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Log every call",
			},
		},
		Action: run,
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal().Str("module", "bot").Err(err).Msg("bot failed")
	}
}
