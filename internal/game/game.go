package game

import (
	"fmt"
	"time"
)

// Game tracks one human-vs-computer match. X always moves first.
type Game struct {
	Board       Board
	CurrentTurn PlayerMark
	Outcome     Outcome
}

func NewGame() *Game {
	return &Game{
		Board:       Board{},
		CurrentTurn: PlayerX,
		Outcome:     InProgress,
	}
}

// Move places the current side's mark at index and passes the turn.
func (g *Game) Move(index int) error {
	if g.Outcome.IsTerminal() {
		return ErrGameOver
	}

	board, err := ApplyMove(g.Board, index, g.CurrentTurn)
	if err != nil {
		return err
	}

	g.Board = board
	g.CurrentTurn = Opponent(g.CurrentTurn)
	g.Outcome = Evaluate(board)
	return nil
}

// MoveAs is Move with an explicit check that mark is the side to move.
func (g *Game) MoveAs(mark PlayerMark, index int) error {
	if g.Outcome.IsTerminal() {
		return ErrGameOver
	}
	if mark != g.CurrentTurn {
		return fmt.Errorf("%w: %s to move", ErrNotYourTurn, g.CurrentTurn)
	}
	return g.Move(index)
}

// Reset clears the board for a new round.
func (g *Game) Reset() {
	g.Board = Board{}
	g.CurrentTurn = PlayerX
	g.Outcome = InProgress
}

// GameStateDTO is the persisted form of a session.
type GameStateDTO struct {
	ID          string     `json:"id"`
	Board       Board      `json:"board"`
	CurrentTurn PlayerMark `json:"current_turn"`
	Outcome     Outcome    `json:"outcome"`
	Winner      PlayerMark `json:"winner"`
	Difficulty  string     `json:"difficulty"`
	LastMove    int        `json:"last_move"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewGameState returns a fresh session state.
func NewGameState(id, difficulty string, now time.Time) *GameStateDTO {
	g := NewGame()
	return &GameStateDTO{
		ID:          id,
		Board:       g.Board,
		CurrentTurn: g.CurrentTurn,
		Outcome:     g.Outcome,
		Winner:      None,
		Difficulty:  difficulty,
		LastMove:    -1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Game returns the playable view of the state.
func (s *GameStateDTO) Game() *Game {
	return &Game{Board: s.Board, CurrentTurn: s.CurrentTurn, Outcome: s.Outcome}
}

// Apply copies g back into the state.
func (s *GameStateDTO) Apply(g *Game) {
	s.Board = g.Board
	s.CurrentTurn = g.CurrentTurn
	s.Outcome = g.Outcome
	s.Winner = g.Outcome.Winner()
}

// Redis hash fields for a stored session.
const (
	FieldBoard      = "board"
	FieldNextTurn   = "next_turn"
	FieldOutcome    = "outcome"
	FieldDifficulty = "difficulty"
	FieldLastMove   = "last_move"
	FieldCreatedAt  = "created_at"
	FieldUpdatedAt  = "updated_at"
)
