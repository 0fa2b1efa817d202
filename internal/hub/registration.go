package hub

import (
	"context"
	"ctchen222/tictactoe-ai/internal/hub/types"
	"ctchen222/tictactoe-ai/internal/room"
	"ctchen222/tictactoe-ai/pkg/proto"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// registerGame creates a game for the new connection and opens its room.
func (h *Hub) registerGame(ctx context.Context, req *types.RegistrationRequest) {
	ctx, span := tracer.Start(ctx, "hub.registerGame", trace.WithAttributes(
		attribute.String("player.id", req.Player.ID),
		attribute.String("bot.difficulty", req.Difficulty),
	))
	defer span.End()

	slog.InfoContext(ctx, "Creating game for player", "player.id", req.Player.ID, "bot.difficulty", req.Difficulty)

	state, token, err := h.gameService.Create(ctx, req.Difficulty)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to create game", "player.id", req.Player.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create game")
		h.send(ctx, req.Player, proto.NewErrorMessage(err.Error()))
		req.Player.Conn.Close()
		return
	}
	span.SetAttributes(attribute.String("room.id", state.ID))

	req.Player.Difficulty = state.Difficulty
	newRoom := room.NewRoom(state.ID, req.Player, h.gameService, h.roomOptions)

	h.mu.Lock()
	h.localRooms[state.ID] = newRoom
	h.mu.Unlock()

	h.sendInitialRoomState(ctx, newRoom, state, token)
	newRoom.Start(h.unregister, h.done)
	slog.InfoContext(ctx, "Room created", "room.id", state.ID, "player.id", req.Player.ID)
}
