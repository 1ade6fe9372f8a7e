package bingo

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

// ErrInvalidCard is returned when a card is not a well formed 5x5 grid.
var ErrInvalidCard = errors.New("invalid card")

// WinRule selects which cell patterns count as bingo.
type WinRule string

const (
	// RuleFullCard requires every cell to be free or drawn.
	RuleFullCard WinRule = "full_card"
	// RuleLines accepts any complete row, column or diagonal.
	RuleLines WinRule = "lines"
)

// ParseWinRule maps a configuration value to a WinRule. Empty selects FullCard.
func ParseWinRule(s string) (WinRule, error) {
	switch WinRule(strings.ToLower(strings.TrimSpace(s))) {
	case "", RuleFullCard:
		return RuleFullCard, nil
	case RuleLines:
		return RuleLines, nil
	default:
		return "", fmt.Errorf("unknown win rule %q (expected %s or %s)", s, RuleFullCard, RuleLines)
	}
}

// Describe returns a one-line explanation of the rule for players.
func (r WinRule) Describe() string {
	if r == RuleLines {
		return "Complete any row, column or diagonal. The centre FREE square counts as marked."
	}
	return "Cover the whole card: every one of the 25 squares must be called or FREE."
}

// Validator checks cards against drawn numbers under a single rule.
type Validator struct {
	rule WinRule
}

// NewValidator returns a validator for rule. Unknown rules fall back to FullCard.
func NewValidator(rule WinRule) Validator {
	if rule != RuleLines {
		rule = RuleFullCard
	}
	return Validator{rule: rule}
}

// Rule reports the rule in effect.
func (v Validator) Rule() WinRule {
	return v.rule
}

// IsWinning reports whether card wins given the drawn set. A card that is not
// 5x5 never wins. Neither argument is modified.
func (v Validator) IsWinning(card Card, drawn map[int]bool) bool {
	if !card.square() {
		return false
	}
	marked := func(row, col int) bool {
		cell := card[row][col]
		return cell.Free || drawn[cell.Number]
	}

	if v.rule == RuleLines {
		return anyLine(marked)
	}

	for row := 0; row < CardSize; row++ {
		for col := 0; col < CardSize; col++ {
			if !marked(row, col) {
				return false
			}
		}
	}
	return true
}

func anyLine(marked func(row, col int) bool) bool {
	diag, anti := true, true
	for i := 0; i < CardSize; i++ {
		rowDone, colDone := true, true
		for j := 0; j < CardSize; j++ {
			rowDone = rowDone && marked(i, j)
			colDone = colDone && marked(j, i)
		}
		if rowDone || colDone {
			return true
		}
		diag = diag && marked(i, i)
		anti = anti && marked(i, CardSize-1-i)
	}
	return diag || anti
}

func (c Card) square() bool {
	if len(c) != CardSize {
		return false
	}
	for _, row := range c {
		if len(row) != CardSize {
			return false
		}
	}
	return true
}

// Validate checks the card's shape, that numbers sit in their column's band
// and that no number repeats. Free cells may appear anywhere.
func (c Card) Validate() error {
	if len(c) != CardSize {
		return fmt.Errorf("%w: expected %d rows, got %d", ErrInvalidCard, CardSize, len(c))
	}

	seen := make(map[int]bool, CardSize*CardSize)
	for r, row := range c {
		if len(row) != CardSize {
			return fmt.Errorf("%w: row %d has %d cells, expected %d", ErrInvalidCard, r+1, len(row), CardSize)
		}
		for col, cell := range row {
			if cell.Free {
				continue
			}
			lo, hi := bandRange(col)
			if cell.Number < lo || cell.Number > hi {
				return fmt.Errorf("%w: %d at row %d is outside column %s (%d-%d)",
					ErrInvalidCard, cell.Number, r+1, bands[col], lo, hi)
			}
			if seen[cell.Number] {
				return fmt.Errorf("%w: number %d appears more than once", ErrInvalidCard, cell.Number)
			}
			seen[cell.Number] = true
		}
	}
	return nil
}

// Numbers returns every non-free number on the card in row order.
func (c Card) Numbers() []int {
	var out []int
	for _, row := range c {
		for _, cell := range row {
			if !cell.Free {
				out = append(out, cell.Number)
			}
		}
	}
	return out
}

// GenerateCard deals a random card with five distinct numbers per column band
// and a free centre square.
func GenerateCard(rng *rand.Rand) Card {
	card := make(Card, CardSize)
	for r := range card {
		card[r] = make([]Cell, CardSize)
	}

	for col := 0; col < CardSize; col++ {
		lo, _ := bandRange(col)
		picks := rng.Perm(BandSize)[:CardSize]
		for r, p := range picks {
			card[r][col] = NumberCell(lo + p)
		}
	}

	mid := CardSize / 2
	card[mid][mid] = FreeCell()
	return card
}
