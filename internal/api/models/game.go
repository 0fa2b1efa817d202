package models

import (
	"ctchen222/tictactoe-ai/internal/game"
	"slices"
)

// CreateGameRequest defines the structure for starting a new game.
type CreateGameRequest struct {
	Difficulty string `json:"difficulty" validate:"required,difficulty"`
}

// MoveRequest defines the structure for a human move.
// Index is a pointer so that a missing field is not read as cell 0.
type MoveRequest struct {
	Index *int `json:"index" validate:"required"`
}

// ThemeRequest defines the structure for a theme change.
type ThemeRequest struct {
	Theme string `json:"theme" validate:"required,oneof=light dark"`
}

// GameResponse is the client view of a session.
type GameResponse struct {
	ID         string              `json:"id"`
	Board      [][]game.PlayerMark `json:"board"`
	Next       game.PlayerMark     `json:"next"`
	Outcome    game.Outcome        `json:"outcome"`
	Winner     game.PlayerMark     `json:"winner"`
	Difficulty string              `json:"difficulty"`
	LastMove   int                 `json:"last_move"`
}

// NewGameResponse converts a stored game into its client view.
func NewGameResponse(state *game.GameStateDTO) GameResponse {
	next := state.CurrentTurn
	if state.Outcome.IsTerminal() {
		next = game.None
	}
	return GameResponse{
		ID:         state.ID,
		Board:      state.Board.Rows(),
		Next:       next,
		Outcome:    state.Outcome,
		Winner:     state.Outcome.Winner(),
		Difficulty: state.Difficulty,
		LastMove:   state.LastMove,
	}
}

// CreateGameResponse defines the structure for a successful game creation.
type CreateGameResponse struct {
	Game  GameResponse `json:"game"`
	Token string       `json:"token"`
}

// MoveScore is the minimax value of one legal move.
type MoveScore struct {
	Index int `json:"index"`
	Score int `json:"score"`
}

// HintResponse lists legal moves from best to worst for the side to move.
type HintResponse struct {
	Moves []MoveScore `json:"moves"`
}

// NewHintResponse orders scores from best to worst, lower index first on ties.
func NewHintResponse(scores map[int]int) HintResponse {
	moves := make([]MoveScore, 0, len(scores))
	for index, score := range scores {
		moves = append(moves, MoveScore{Index: index, Score: score})
	}
	slices.SortFunc(moves, func(a, b MoveScore) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return a.Index - b.Index
	})
	return HintResponse{Moves: moves}
}

// ThemeResponse defines the structure for the current theme.
type ThemeResponse struct {
	Theme string `json:"theme"`
}
