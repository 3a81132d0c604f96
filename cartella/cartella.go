// Package cartella implements bingo board generation, draw sequences and
// win-pattern evaluation. It is pure logic: all randomness is supplied by
// the caller so draws are reproducible in tests.
package cartella

import (
	"errors"
	"fmt"
	"math/rand"
)

const (
	// BoardSize is the number of cells on a generated board
	BoardSize = 25
	// GridSize is the side length of the 5x5 grid
	GridSize = 5
	// MaxNumber is the highest callable number
	MaxNumber = 75
	// FreeCellIndex is the center cell, always the free space
	FreeCellIndex = 12
	// FreeCellValue marks the free space
	FreeCellValue = 0

	// columnSpan is the width of each column's number range: B draws from
	// 1-15, I from 16-30, N from 31-45, G from 46-60, O from 61-75.
	columnSpan = 15
)

// ErrGenerationExhausted is returned when the unique-board retry budget runs
// out before enough distinct boards were produced.
var ErrGenerationExhausted = errors.New("board generation attempt budget exhausted")

// GenerateBoard produces one 25-cell board stored column by column, B
// through O. Each column holds five distinct numbers from its range and the
// center cell is the free space.
func GenerateBoard(rng *rand.Rand) []int {
	board := make([]int, BoardSize)
	for col := 0; col < GridSize; col++ {
		low := col*columnSpan + 1
		perm := rng.Perm(columnSpan)
		for row := 0; row < GridSize; row++ {
			board[col*GridSize+row] = low + perm[row]
		}
	}
	board[FreeCellIndex] = FreeCellValue
	return board
}

// GenerateUniqueBoards produces n boards with pairwise-distinct signatures.
// Collisions are retried up to max(400n, 400) attempts; exceeding the budget
// returns ErrGenerationExhausted.
func GenerateUniqueBoards(n int, rng *rand.Rand) ([][]int, error) {
	if n <= 0 {
		return nil, nil
	}

	maxAttempts := 400 * n
	if maxAttempts < 400 {
		maxAttempts = 400
	}

	boards := make([][]int, 0, n)
	seen := make(map[string]bool, n)
	for attempts := 0; attempts < maxAttempts && len(boards) < n; attempts++ {
		board := GenerateBoard(rng)
		sig := fmt.Sprint(board)
		if seen[sig] {
			continue
		}
		seen[sig] = true
		boards = append(boards, board)
	}

	if len(boards) < n {
		return nil, fmt.Errorf("generated %d of %d boards in %d attempts: %w",
			len(boards), n, maxAttempts, ErrGenerationExhausted)
	}
	return boards, nil
}

// DrawSequence produces a uniformly random permutation of 1..75, the master
// order in which a game's numbers will be called.
func DrawSequence(rng *rand.Rand) []int {
	seq := rng.Perm(MaxNumber)
	for i := range seq {
		seq[i]++
	}
	return seq
}

// FormatCalledNumber maps a number to its letter-prefixed label, e.g.
// 7 -> "B7", 75 -> "O75".
func FormatCalledNumber(n int) (string, error) {
	if n < 1 || n > MaxNumber {
		return "", fmt.Errorf("called number %d out of range 1-%d", n, MaxNumber)
	}
	letter := "BINGO"[(n-1)/columnSpan]
	return fmt.Sprintf("%c%d", letter, n), nil
}
