package room

import (
	"context"
	"ctchen222/tictactoe-ai/internal/bot"
	"ctchen222/tictactoe-ai/internal/game"
	"ctchen222/tictactoe-ai/internal/player"
	"ctchen222/tictactoe-ai/internal/validator"
	"ctchen222/tictactoe-ai/pkg/proto"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HandleMessage handles a message from a player. It acts as a dispatcher and
// returns the resulting game state, or nil when nothing changed.
func (r *Room) HandleMessage(ctx context.Context, p *player.Player, rawMessage []byte) *game.GameStateDTO {
	ctx, span := tracer.Start(ctx, "room.HandleMessage", trace.WithAttributes(
		attribute.String("player.id", p.ID),
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	r.mu.Lock()
	status := p.Status
	r.mu.Unlock()
	if status == player.StatusDisconnected {
		slog.WarnContext(ctx, "ignoring message from disconnected player", "player.id", p.ID)
		span.SetStatus(codes.Error, "Message from disconnected player")
		return nil
	}

	var contents map[string]any
	if err := json.Unmarshal(rawMessage, &contents); err != nil {
		slog.ErrorContext(ctx, "error unmarshalling message", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error unmarshalling message")
		r.Send(ctx, p, proto.NewErrorMessage("malformed message"))
		return nil
	}

	message, err := decodeClientMessage(contents)
	if err != nil {
		slog.WarnContext(ctx, "error decoding message", "player.id", p.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error decoding message")
		r.Send(ctx, p, proto.NewErrorMessage("malformed message"))
		return nil
	}

	if err := validator.GetValidator().Struct(message); err != nil {
		slog.WarnContext(ctx, "invalid message from player", "player.id", p.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid message format")
		r.Send(ctx, p, proto.NewErrorMessage("invalid message"))
		return nil
	}

	span.SetAttributes(attribute.String("message.type", message.Type))

	switch message.Type {
	case proto.TypeMove:
		return r.handleMove(ctx, p, &message)
	case proto.TypeRestart:
		return r.handleRestart(ctx, p)
	}
	return nil
}

// decodeClientMessage maps a generic JSON object onto a client message.
// Unknown fields and non-integral numbers are errors.
func decodeClientMessage(contents map[string]any) (proto.ClientToServerMessage, error) {
	var message proto.ClientToServerMessage
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  rejectFractional,
		ErrorUnused: true,
		Result:      &message,
	})
	if err != nil {
		return message, err
	}
	if err := decoder.Decode(contents); err != nil {
		return message, err
	}
	return message, nil
}

func rejectFractional(from, to reflect.Type, data any) (any, error) {
	f, ok := data.(float64)
	if !ok {
		return data, nil
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%v is not a whole number", f)
	}
	return data, nil
}

// handleMove processes a player's move and the computer's reply.
func (r *Room) handleMove(ctx context.Context, p *player.Player, message *proto.ClientToServerMessage) *game.GameStateDTO {
	if message.Position == nil {
		r.Send(ctx, p, proto.NewErrorMessage("move requires a position"))
		return nil
	}

	ctx, moveSpan := tracer.Start(ctx, "room.handleMove", trace.WithAttributes(
		attribute.String("player.id", p.ID),
		attribute.String("room.id", r.ID),
		attribute.Int("move.index", *message.Position),
	))
	defer moveSpan.End()

	state, err := r.service.Play(ctx, r.ID, *message.Position)
	if err != nil {
		slog.WarnContext(ctx, "invalid move from player", "player.id", p.ID, "error", err)
		moveSpan.SetAttributes(attribute.Bool("move.valid", false))
		moveSpan.RecordError(err)
		moveSpan.SetStatus(codes.Error, "Invalid move")
		r.Send(ctx, p, proto.NewErrorMessage(err.Error()))
		return nil
	}
	moveSpan.SetAttributes(attribute.Bool("move.valid", true))

	r.broadcastReply(ctx, state)
	return state
}

// handleRestart clears the board for another round.
func (r *Room) handleRestart(ctx context.Context, p *player.Player) *game.GameStateDTO {
	ctx, span := tracer.Start(ctx, "room.handleRestart", trace.WithAttributes(
		attribute.String("player.id", p.ID),
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	state, err := r.service.Restart(ctx, r.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to restart game", "room.id", r.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to restart game")
		r.Send(ctx, p, proto.NewErrorMessage(err.Error()))
		return nil
	}

	slog.InfoContext(ctx, "Player restarted the game", "player.id", p.ID, "room.id", r.ID)
	r.Broadcast(ctx, proto.NewUpdateMessage(state))
	return state
}

// handleTimeout lets the engine move for a player who ran out of time.
func (r *Room) handleTimeout(ctx context.Context) *game.GameStateDTO {
	ctx, span := tracer.Start(ctx, "room.handleTimeout", trace.WithAttributes(
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	slog.InfoContext(ctx, "Player timed out", "player.id", r.Player.ID, "room.id", r.ID)
	state, err := r.service.ProxyMove(ctx, r.ID, bot.Medium)
	if err != nil {
		if errors.Is(err, game.ErrGameOver) {
			return nil
		}
		slog.ErrorContext(ctx, "proxy move failed", "room.id", r.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Proxy move failed")
		return nil
	}

	r.broadcastReply(ctx, state)
	return state
}

// broadcastReply sends the board with only X's move first and, after the
// think delay, the board with the computer's reply.
func (r *Room) broadcastReply(ctx context.Context, state *game.GameStateDTO) {
	if state.LastMove >= 0 && r.opts.ThinkDelay > 0 {
		before := *state
		before.Board[state.LastMove] = game.None
		before.CurrentTurn = game.PlayerO
		before.Outcome = game.Evaluate(before.Board)
		before.LastMove = -1
		r.Broadcast(ctx, proto.NewUpdateMessage(&before))

		select {
		case <-time.After(r.opts.ThinkDelay):
		case <-r.Done:
			return
		}
	}
	r.Broadcast(ctx, proto.NewUpdateMessage(state))
}
