package bingo

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// MinNumber and MaxNumber bound the callable numbers.
	MinNumber = 1
	MaxNumber = 75

	// BandSize is how many numbers share one letter.
	BandSize = 15

	// CardSize is the width and height of a card.
	CardSize = 5

	freeMarker = "FREE"
)

// Letter is the column band a number belongs to.
type Letter string

const (
	LetterB Letter = "B"
	LetterI Letter = "I"
	LetterN Letter = "N"
	LetterG Letter = "G"
	LetterO Letter = "O"
)

var bands = [CardSize]Letter{LetterB, LetterI, LetterN, LetterG, LetterO}

// LetterFor returns the letter band for n. The second result is false when n
// is outside 1-75.
func LetterFor(n int) (Letter, bool) {
	if n < MinNumber || n > MaxNumber {
		return "", false
	}
	return bands[(n-MinNumber)/BandSize], true
}

// bandRange returns the inclusive number range for column col.
func bandRange(col int) (int, int) {
	lo := MinNumber + col*BandSize
	return lo, lo + BandSize - 1
}

// Call is a single drawn number with its letter.
type Call struct {
	Letter Letter `json:"letter"`
	Number int    `json:"number"`
}

// String renders the call the way it is announced, e.g. "B12".
func (c Call) String() string {
	return fmt.Sprintf("%s%d", c.Letter, c.Number)
}

// Cell is one square of a card: either the free square or a number.
type Cell struct {
	Free   bool
	Number int
}

// FreeCell returns the free square.
func FreeCell() Cell { return Cell{Free: true} }

// NumberCell returns a numbered square.
func NumberCell(n int) Cell { return Cell{Number: n} }

// MarshalJSON writes free squares as "FREE" and everything else as a number.
func (c Cell) MarshalJSON() ([]byte, error) {
	if c.Free {
		return json.Marshal(freeMarker)
	}
	return json.Marshal(c.Number)
}

// UnmarshalJSON accepts a number or the string "FREE" in any case.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if !strings.EqualFold(strings.TrimSpace(s), freeMarker) {
			return fmt.Errorf("%w: unknown cell marker %q", ErrInvalidCard, s)
		}
		*c = FreeCell()
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: cell must be a number or %q", ErrInvalidCard, freeMarker)
	}
	*c = NumberCell(n)
	return nil
}

// Card is a player's grid, indexed [row][column]. Column c holds numbers from
// the c-th letter band.
type Card [][]Cell
