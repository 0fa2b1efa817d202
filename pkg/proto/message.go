package proto

import "ctchen222/tictactoe-ai/internal/game"

const (
	TypeMove       = "move"
	TypeRestart    = "restart"
	TypeAssignment = "assignment"
	TypeUpdate     = "update"
	TypeError      = "error"
)

// ClientToServerMessage represents a message from the client to the server.
type ClientToServerMessage struct {
	Type     string `json:"type" mapstructure:"type" validate:"required,oneof=move restart"`
	Position *int   `json:"position,omitempty" mapstructure:"position" validate:"omitempty,min=0,max=8"`
}

// ServerToClientMessage represents a message from the server to the client.
type ServerToClientMessage struct {
	Type     string              `json:"type" validate:"required"`
	Reason   string              `json:"reason,omitempty"`
	Board    [][]game.PlayerMark `json:"board,omitempty"`
	Next     game.PlayerMark     `json:"next,omitempty"`
	Outcome  game.Outcome        `json:"outcome,omitempty"`
	Winner   game.PlayerMark     `json:"winner,omitempty"`
	LastMove *int                `json:"last_move,omitempty"`
}

// PlayerAssignmentMessage informs a player of their assigned mark and game.
type PlayerAssignmentMessage struct {
	Type       string          `json:"type"`
	PlayerID   string          `json:"playerId,omitempty"`
	GameID     string          `json:"gameId"`
	Token      string          `json:"token,omitempty"`
	Difficulty string          `json:"difficulty"`
	Mark       game.PlayerMark `json:"mark"`
}

// NewUpdateMessage builds the update broadcast for state.
func NewUpdateMessage(state *game.GameStateDTO) *ServerToClientMessage {
	msg := &ServerToClientMessage{
		Type:    TypeUpdate,
		Board:   state.Board.Rows(),
		Outcome: state.Outcome,
		Winner:  state.Outcome.Winner(),
	}
	if !state.Outcome.IsTerminal() {
		msg.Next = state.CurrentTurn
	}
	if state.LastMove >= 0 {
		lastMove := state.LastMove
		msg.LastMove = &lastMove
	}
	return msg
}

// NewErrorMessage builds an error reply.
func NewErrorMessage(reason string) *ServerToClientMessage {
	return &ServerToClientMessage{Type: TypeError, Reason: reason}
}
