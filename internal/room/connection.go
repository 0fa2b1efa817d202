package room

import (
	"context"
	"ctchen222/tictactoe-ai/internal/hub/types"
	"ctchen222/tictactoe-ai/internal/player"
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Broadcast sends a message to the room's player if still connected.
func (r *Room) Broadcast(ctx context.Context, message any) {
	r.Send(ctx, r.Player, message)
}

// Send writes message to p as a JSON text frame.
func (r *Room) Send(ctx context.Context, p *player.Player, message any) {
	ctx, span := tracer.Start(ctx, "room.Send", trace.WithAttributes(
		attribute.String("room.id", r.ID),
		attribute.String("player.id", p.ID),
	))
	defer span.End()

	r.mu.Lock()
	connected := p.Status == player.StatusConnected
	r.mu.Unlock()
	if !connected {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling message", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error marshalling message")
		return
	}

	if err := p.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.ErrorContext(ctx, "error writing message to player", "player.id", p.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error writing message to player")
	}
}

// ReadPump pumps messages from the websocket connection to the room's incomingMoves channel.
func (r *Room) ReadPump(p *player.Player) {
	ctx, span := tracer.Start(context.Background(), "room.ReadPump", trace.WithAttributes(
		attribute.String("player.id", p.ID),
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	defer close(r.pumpDone)
	defer func() {
		p.Conn.Close()

		r.mu.Lock()
		p.Disconnect()
		r.mu.Unlock()

		r.Close()
		slog.InfoContext(ctx, "Player disconnected. Room closed.", "player.id", p.ID, "room.id", r.ID)
		if r.unregister != nil {
			select {
			case r.unregister <- r:
			case <-r.hubDone:
			}
		}
	}()

	for {
		_, msg, err := p.Conn.ReadMessage()
		if err != nil {
			slog.WarnContext(ctx, "Player connection error", "player.id", p.ID, "room.id", r.ID, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Player connection error")
			return
		}

		select {
		case r.incomingMoves <- &types.PlayerMove{Player: p, Message: msg}:
		case <-r.Done:
			return
		}
	}
}
