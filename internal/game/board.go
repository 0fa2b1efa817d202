package game

import (
	"errors"
	"fmt"
	"strings"
)

// PlayerMark represents the mark of a player (X, O) or an empty cell.
type PlayerMark string

// Outcome is the state of a board as seen by Evaluate.
type Outcome string

const (
	// Player marks
	None    PlayerMark = ""
	PlayerX PlayerMark = "X"
	PlayerO PlayerMark = "O"

	// Game outcomes
	InProgress Outcome = "in_progress"
	XWins      Outcome = "x_wins"
	OWins      Outcome = "o_wins"
	Draw       Outcome = "draw"

	// Board boundaries
	BorderMin = 0
	BorderMax = 8
	Size      = 9
)

var (
	ErrInvalidMove = errors.New("invalid move")
	ErrGameOver    = errors.New("game already finished")
	ErrNotYourTurn = errors.New("not player's turn")
)

// Board is the 3x3 grid stored in row-major order.
type Board [Size]PlayerMark

// winPatterns holds every row, column and diagonal.
var winPatterns = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// ApplyMove returns a copy of board with mark placed at index.
// The input board is left untouched, including on error.
func ApplyMove(board Board, index int, mark PlayerMark) (Board, error) {
	if mark != PlayerX && mark != PlayerO {
		return board, fmt.Errorf("%w: unknown mark %q", ErrInvalidMove, mark)
	}
	if index < BorderMin || index > BorderMax {
		return board, fmt.Errorf("%w: index %d out of range", ErrInvalidMove, index)
	}
	if board[index] != None {
		return board, fmt.Errorf("%w: cell %d already occupied", ErrInvalidMove, index)
	}
	board[index] = mark
	return board, nil
}

// Evaluate reports whether a side has completed a pattern, the board is
// full, or play continues. Patterns are checked in a fixed order, so a board
// that could never arise in legal play reports the first completed pattern.
func Evaluate(board Board) Outcome {
	switch Winner(board) {
	case PlayerX:
		return XWins
	case PlayerO:
		return OWins
	}
	if IsBoardFull(board) {
		return Draw
	}
	return InProgress
}

// Winner returns the owner of the first completed pattern, or None.
func Winner(board Board) PlayerMark {
	for _, p := range winPatterns {
		if board[p[0]] != None && board[p[0]] == board[p[1]] && board[p[1]] == board[p[2]] {
			return board[p[0]]
		}
	}
	return None
}

// IsBoardFull checks whether every cell holds a mark.
func IsBoardFull(board Board) bool {
	for _, cell := range board {
		if cell == None {
			return false
		}
	}
	return true
}

// EmptyCells returns the indices of all empty cells in ascending order.
func EmptyCells(board Board) []int {
	cells := make([]int, 0, Size)
	for i, cell := range board {
		if cell == None {
			cells = append(cells, i)
		}
	}
	return cells
}

// Opponent returns the other side's mark.
func Opponent(mark PlayerMark) PlayerMark {
	if mark == PlayerX {
		return PlayerO
	}
	return PlayerX
}

// IsTerminal reports whether no further moves are accepted.
func (o Outcome) IsTerminal() bool {
	return o != InProgress
}

// Winner maps a terminal outcome back to the winning mark.
func (o Outcome) Winner() PlayerMark {
	switch o {
	case XWins:
		return PlayerX
	case OWins:
		return PlayerO
	}
	return None
}

func (b Board) String() string {
	var sb strings.Builder
	for r := range 3 {
		if r > 0 {
			sb.WriteByte('\n')
		}
		for c := range 3 {
			cell := b[r*3+c]
			if cell == None {
				sb.WriteByte('.')
			} else {
				sb.WriteString(string(cell))
			}
		}
	}
	return sb.String()
}
