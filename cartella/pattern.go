package cartella

// Pattern identifies a winning shape a claim is checked against
type Pattern string

const (
	// PatternAuto checks row first, then diagonal
	PatternAuto Pattern = ""
	// PatternRow wins when any of the five grid rows is fully marked
	PatternRow Pattern = "row"
	// PatternDiagonal wins when either full diagonal is fully marked
	PatternDiagonal Pattern = "diagonal"
	// PatternFullCard wins when every number on the board has been called.
	// It is never requested directly: boards without 5x5 geometry (standard
	// mode accepts arbitrary lists) always adjudicate full-card.
	PatternFullCard Pattern = "full_card"
)

// IsValidClaimPattern checks whether a caller-supplied pattern is acceptable
// claim input. Full-card is derived, not requestable.
func IsValidClaimPattern(p Pattern) bool {
	return p == PatternAuto || p == PatternRow || p == PatternDiagonal
}

// Evaluate adjudicates a claim: it reports whether the board wins against
// the called numbers under the given pattern, and which pattern matched.
// A cell is marked when it is the free space or its value has been called.
// Boards that are not 25 cells carry no grid geometry and are evaluated
// full-card regardless of the requested pattern.
func Evaluate(board []int, called []int, pattern Pattern) (bool, Pattern) {
	calledSet := toSet(called)

	if len(board) != BoardSize {
		return fullCardComplete(board, calledSet), PatternFullCard
	}

	marked := markCells(board, calledSet)
	switch pattern {
	case PatternRow:
		return anyRowComplete(marked), PatternRow
	case PatternDiagonal:
		return anyDiagonalComplete(marked), PatternDiagonal
	default:
		if anyRowComplete(marked) {
			return true, PatternRow
		}
		if anyDiagonalComplete(marked) {
			return true, PatternDiagonal
		}
		return false, PatternAuto
	}
}

// Progress reports how far a board is from full coverage: the number of
// non-free cells already called, the number required, and the values still
// missing in board order.
func Progress(board []int, called []int) (matched, required int, missing []int) {
	calledSet := toSet(called)
	for _, v := range board {
		if v == FreeCellValue {
			continue
		}
		required++
		if calledSet[v] {
			matched++
		} else {
			missing = append(missing, v)
		}
	}
	return matched, required, missing
}

func toSet(called []int) map[int]bool {
	set := make(map[int]bool, len(called))
	for _, n := range called {
		set[n] = true
	}
	return set
}

func markCells(board []int, calledSet map[int]bool) []bool {
	marked := make([]bool, len(board))
	for i, v := range board {
		marked[i] = v == FreeCellValue || calledSet[v]
	}
	return marked
}

// Boards are stored column-major, so grid cell (row r, col c) lives at
// index c*GridSize+r.
func anyRowComplete(marked []bool) bool {
	for row := 0; row < GridSize; row++ {
		complete := true
		for col := 0; col < GridSize; col++ {
			if !marked[col*GridSize+row] {
				complete = false
				break
			}
		}
		if complete {
			return true
		}
	}
	return false
}

func anyDiagonalComplete(marked []bool) bool {
	main, anti := true, true
	for col := 0; col < GridSize; col++ {
		if !marked[col*GridSize+col] {
			main = false
		}
		if !marked[col*GridSize+(GridSize-1-col)] {
			anti = false
		}
	}
	return main || anti
}

func fullCardComplete(board []int, calledSet map[int]bool) bool {
	if len(board) == 0 {
		return false
	}
	for _, v := range board {
		if v != FreeCellValue && !calledSet[v] {
			return false
		}
	}
	return true
}
