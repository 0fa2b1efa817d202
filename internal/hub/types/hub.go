package types

import (
	"context"
	"ctchen222/tictactoe-ai/internal/player"
)

// RegistrationRequest represents a request to start a game for a new connection.
type RegistrationRequest struct {
	Player     *player.Player
	Difficulty string // "easy", "medium", "hard"
	Ctx        context.Context
}

// PlayerMove is a raw message read from a player's connection.
type PlayerMove struct {
	Player  *player.Player
	Message []byte
}
