package bot

import (
	"context"
	"ctchen222/tictactoe-ai/internal/game"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("bot")
	meter  = otel.Meter("bot")
)

// BotMoveCalculator wraps an Engine with tracing and metrics.
// It implements the service.MoveCalculator interface.
type BotMoveCalculator struct {
	engine   *Engine
	moves    metric.Int64Counter
	duration metric.Float64Histogram
}

// NewBotMoveCalculator creates a calculator backed by engine.
func NewBotMoveCalculator(engine *Engine) *BotMoveCalculator {
	moves, err := meter.Int64Counter("bot.moves",
		metric.WithDescription("Moves selected by the engine"),
	)
	if err != nil {
		otel.Handle(err)
		moves = noop.Int64Counter{}
	}
	duration, err := meter.Float64Histogram("bot.move.duration",
		metric.WithDescription("Time spent selecting a move"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		otel.Handle(err)
		duration = noop.Float64Histogram{}
	}
	return &BotMoveCalculator{engine: engine, moves: moves, duration: duration}
}

// CalculateNextMove determines the next move for mark at the given difficulty.
func (c *BotMoveCalculator) CalculateNextMove(ctx context.Context, board game.Board, mark game.PlayerMark, difficulty Difficulty) (int, error) {
	ctx, span := tracer.Start(ctx, "bot.CalculateNextMove", trace.WithAttributes(
		attribute.String("bot.difficulty", string(difficulty)),
		attribute.String("bot.mark", string(mark)),
		attribute.Int("board.empty", len(game.EmptyCells(board))),
	))
	defer span.End()

	start := time.Now()
	index, err := c.engine.SelectMove(board, difficulty, mark)
	elapsed := time.Since(start)
	if err != nil {
		slog.WarnContext(ctx, "Bot could not select a move", "bot.difficulty", difficulty, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Bot could not select a move")
		return -1, err
	}

	attrs := metric.WithAttributes(attribute.String("bot.difficulty", string(difficulty)))
	c.moves.Add(ctx, 1, attrs)
	c.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	span.SetAttributes(attribute.Int("bot.move", index))

	slog.DebugContext(ctx, "Bot selected move", "bot.mark", mark, "bot.difficulty", difficulty, "bot.move", index, "duration", elapsed)
	return index, nil
}
