package bot

import (
	"ctchen222/tictactoe-ai/internal/game"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
)

// Difficulty selects the strategy used by the engine.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

var (
	ErrUnknownDifficulty = errors.New("unknown difficulty")
	ErrNoLegalMove       = errors.New("no legal move")
)

// ParseDifficulty validates a difficulty label. There is no default.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(s); d {
	case Easy, Medium, Hard:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDifficulty, s)
}

// Engine picks moves for the computer player.
// The random source is only used by the easy and medium strategies.
type Engine struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine creates an engine drawing randomness from src.
// A nil src seeds a fresh PCG generator.
func NewEngine(src rand.Source) *Engine {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Engine{rng: rand.New(src)}
}

// SelectMove returns the index of the next move for side.
// It fails with ErrNoLegalMove when the board is already decided or full.
func (e *Engine) SelectMove(board game.Board, difficulty Difficulty, side game.PlayerMark) (int, error) {
	if side != game.PlayerX && side != game.PlayerO {
		return -1, fmt.Errorf("%w: unknown side %q", game.ErrInvalidMove, side)
	}
	if _, err := ParseDifficulty(string(difficulty)); err != nil {
		return -1, err
	}
	if game.Evaluate(board).IsTerminal() {
		return -1, ErrNoLegalMove
	}

	switch difficulty {
	case Easy:
		return e.randomMove(board), nil
	case Medium:
		if e.float64() < 0.5 {
			return minimaxMove(board, side), nil
		}
		return e.randomMove(board), nil
	default:
		return minimaxMove(board, side), nil
	}
}

// randomMove makes a uniformly random move among the empty cells.
func (e *Engine) randomMove(board game.Board) int {
	cells := game.EmptyCells(board)
	if len(cells) == 0 {
		return -1
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return cells[e.rng.IntN(len(cells))]
}

func (e *Engine) float64() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}
