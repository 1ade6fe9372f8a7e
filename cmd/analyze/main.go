// Command analyze prints quick, human-readable statistics about how long
// bingo games last. For each win rule it deals random cards, draws numbers
// until the card wins and summarizes the number of calls needed.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/bingo-server/game/bingo"
)

// RuleStats summarizes calls-to-win over many simulated games.
type RuleStats struct {
	Rule   bingo.WinRule
	Games  int
	Min    int
	Max    int
	Mean   float64
	Median int
}

// callsToWin draws numbers for one card until it wins under validator and
// returns how many calls that took.
func callsToWin(card bingo.Card, drawer *bingo.Drawer, validator bingo.Validator) int {
	drawn := make(map[int]bool, bingo.MaxNumber)
	for calls := 1; ; calls++ {
		call, err := drawer.Draw(drawn)
		if err != nil {
			// every number is out, a valid card always wins by now
			return calls - 1
		}
		drawn[call.Number] = true
		if validator.IsWinning(card, drawn) {
			return calls
		}
	}
}

// simulate plays games for rule with a fixed seed so runs are repeatable.
func simulate(rule bingo.WinRule, games int, seed int64) RuleStats {
	rng := rand.New(rand.NewSource(seed))
	drawer := bingo.NewDrawer(rand.NewSource(seed + 1))
	validator := bingo.NewValidator(rule)

	results := make([]int, games)
	total := 0
	for i := range results {
		results[i] = callsToWin(bingo.GenerateCard(rng), drawer, validator)
		total += results[i]
	}

	stats := RuleStats{Rule: rule, Games: games}
	if games == 0 {
		return stats
	}

	sort.Ints(results)
	stats.Min = results[0]
	stats.Max = results[games-1]
	stats.Median = results[games/2]
	stats.Mean = float64(total) / float64(games)
	return stats
}

func printStats(stats RuleStats) {
	fmt.Printf("\n=== Rule: %s ===\n", stats.Rule)
	fmt.Printf("%s\n", stats.Rule.Describe())
	fmt.Printf("Games: %d\n", stats.Games)
	if stats.Games == 0 {
		return
	}
	fmt.Printf("Calls to win: min %d, median %d, mean %.1f, max %d (of %d)\n",
		stats.Min, stats.Median, stats.Mean, stats.Max, bingo.MaxNumber)
}

func run(ctx context.Context, cmd *cli.Command) error {
	games := cmd.Int("games")
	if games <= 0 {
		return fmt.Errorf("games must be positive, got %d", games)
	}

	seed := cmd.Int64("seed")
	if !cmd.IsSet("seed") {
		seed = time.Now().UnixNano()
	}

	fmt.Printf("Simulating %d games per rule (seed %d)\n", games, seed)
	for _, rule := range []bingo.WinRule{bingo.RuleLines, bingo.RuleFullCard} {
		printStats(simulate(rule, games, seed))
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "analyze",
		Usage: "Simulate bingo games and report how many calls it takes to win",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "games",
				Value: 1000,
				Usage: "Games to simulate per rule",
			},
			&cli.Int64Flag{
				Name:  "seed",
				Usage: "Random seed (default: current time)",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
