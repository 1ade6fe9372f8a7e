// Package bingo provides the number drawing and card checking rules for
// 75-ball bingo.
//
// The bingo package implements:
//   - Letter band mapping (B 1-15, I 16-30, N 31-45, G 46-60, O 61-75)
//   - Uniform random draws over the numbers not yet called in a room
//   - Card win checks against a set of drawn numbers
//   - Structural card validation and random card generation
//
// Core Types:
//
// Drawer picks the next call for a room given its draw history. It never
// retries: the remaining pool is built first and one entry is picked, so a
// full history surfaces ErrAllNumbersDrawn instead of looping.
//
// Validator decides whether a Card wins. The active rule is FullCard, where
// all 25 cells must be free or drawn. The Lines rule (any row, column or
// diagonal) is available through configuration.
//
// Usage:
//
//	drawer := bingo.NewDrawer(nil)
//	call, err := drawer.Draw(drawn)
//	if errors.Is(err, bingo.ErrAllNumbersDrawn) {
//		// no numbers left in this room
//	}
//
//	validator := bingo.NewValidator(bingo.RuleFullCard)
//	won := validator.IsWinning(card, drawn)
//
// Card Format:
//
// Cards travel as JSON arrays of five rows with five cells each. A cell is a
// number or the string "FREE":
//
//	[[1,16,31,46,61],[2,17,32,47,62],[3,18,"FREE",48,63],...]
//
// Validator and Drawer hold no room state and perform no I/O.
package bingo
