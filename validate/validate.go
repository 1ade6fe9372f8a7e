// Command validate checks bingo card JSON files. A file holds either a bare
// card (5 rows of 5 cells) or an object {"name": "...", "card": [...]}.
// Each cell is a number or "FREE". It checks:
//   - JSON structure and cell values
//   - The 5x5 shape
//   - That each number sits in its column's band (B 1-15 ... O 61-75)
//   - That no number repeats
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/bingo-server/game/bingo"
)

// CardFile mirrors the JSON schema for a named card.
type CardFile struct {
	Name string     `json:"name"`
	Card bingo.Card `json:"card"`
}

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// validateCard loads and validates a single card JSON file.
func validateCard(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	var file CardFile
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &file.Card)
	} else {
		err = json.Unmarshal(data, &file)
	}
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	if file.Card == nil {
		result.Valid = false
		result.Errors = append(result.Errors, "Card is missing")
		return result
	}

	if err := file.Card.Validate(); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	free := 0
	for _, row := range file.Card {
		for _, cell := range row {
			if cell.Free {
				free++
			}
		}
	}
	mid := bingo.CardSize / 2
	centre := "number"
	if file.Card[mid][mid].Free {
		centre = "FREE"
	}

	if file.Name != "" {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", file.Name))
	}
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Grid: %dx%d", bingo.CardSize, bingo.CardSize))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Numbers: %d", len(file.Card.Numbers())))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Free cells: %d (centre: %s)", free, centre))
	result.Errors = append(result.Errors, "✓ Columns within B-I-N-G-O bands")

	return result
}

// cardFiles expands the arguments into JSON file paths. Directories are
// scanned for *.json; files are used as given.
func cardFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.json"))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	return files, nil
}

// report prints each result and returns whether all were valid.
func report(results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All cards are valid!")
	} else {
		fmt.Println("❌ Some cards have errors")
	}
	return allValid
}

func run(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		args = []string{"cards"}
	}

	files, err := cardFiles(args)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error finding card files: %v", err), 1)
	}
	if len(files) == 0 {
		return cli.Exit("No card files found", 1)
	}

	results := make([]ValidationResult, 0, len(files))
	for _, file := range files {
		results = append(results, validateCard(file))
	}

	if !report(results) {
		return cli.Exit("", 1)
	}
	return nil
}

// main validates the card files or directories given as arguments (default
// ./cards), printing a concise report and exiting non-zero if any are invalid.
func main() {
	cmd := &cli.Command{
		Name:      "validate",
		Usage:     "Validate bingo card JSON files",
		ArgsUsage: "[file or directory ...]",
		Action:    run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
