package hub

import (
	"context"
	"ctchen222/tictactoe-ai/internal/game"
	"ctchen222/tictactoe-ai/internal/player"
	"ctchen222/tictactoe-ai/internal/room"
	"ctchen222/tictactoe-ai/pkg/proto"
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// sendInitialRoomState tells the player their mark and shows the empty board.
func (h *Hub) sendInitialRoomState(ctx context.Context, r *room.Room, state *game.GameStateDTO, token string) {
	ctx, span := tracer.Start(ctx, "hub.sendInitialRoomState", trace.WithAttributes(
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	slog.InfoContext(ctx, "Sending initial room state", "room.id", r.ID)

	assignmentMessage := &proto.PlayerAssignmentMessage{
		Type:       proto.TypeAssignment,
		PlayerID:   r.Player.ID,
		GameID:     state.ID,
		Token:      token,
		Difficulty: state.Difficulty,
		Mark:       game.PlayerX,
	}
	if err := h.send(ctx, r.Player, assignmentMessage); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error sending assignment to player")
	}

	r.Broadcast(ctx, proto.NewUpdateMessage(state))
}

func (h *Hub) send(ctx context.Context, p *player.Player, message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		slog.ErrorContext(ctx, "Error marshalling message", "player.id", p.ID, "error", err)
		return err
	}
	if err := p.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.ErrorContext(ctx, "Error sending message to player", "player.id", p.ID, "error", err)
		return err
	}
	return nil
}
