package bingo

import (
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrAllNumbersDrawn is returned once every number from 1 to 75 has been called.
var ErrAllNumbersDrawn = errors.New("all numbers have been drawn")

// Drawer selects the next number for a room.
type Drawer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewDrawer creates a drawer backed by src. A nil src seeds from the clock.
func NewDrawer(src rand.Source) *Drawer {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Drawer{rng: rand.New(src)}
}

// Draw picks uniformly among the numbers missing from history.
func (d *Drawer) Draw(history map[int]bool) (Call, error) {
	remaining := Remaining(history)
	if len(remaining) == 0 {
		return Call{}, ErrAllNumbersDrawn
	}

	d.mu.Lock()
	idx := d.rng.Intn(len(remaining))
	d.mu.Unlock()

	n := remaining[idx]
	letter, _ := LetterFor(n)
	return Call{Letter: letter, Number: n}, nil
}

// Remaining lists the numbers not present in history, in ascending order.
func Remaining(history map[int]bool) []int {
	out := make([]int, 0, MaxNumber)
	for n := MinNumber; n <= MaxNumber; n++ {
		if !history[n] {
			out = append(out, n)
		}
	}
	return out
}
