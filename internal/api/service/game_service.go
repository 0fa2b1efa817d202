package service

import (
	"context"
	"ctchen222/tictactoe-ai/internal/bot"
	"ctchen222/tictactoe-ai/internal/game"
	"ctchen222/tictactoe-ai/internal/repository"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("service.game")

// MoveCalculator defines an agent that can calculate a game move.
type MoveCalculator interface {
	CalculateNextMove(ctx context.Context, board game.Board, mark game.PlayerMark, difficulty bot.Difficulty) (int, error)
}

// GameService defines the business logic of a human (X) vs. computer (O) game.
type GameService interface {
	Create(ctx context.Context, difficulty string) (*game.GameStateDTO, string, error)
	Get(ctx context.Context, id string) (*game.GameStateDTO, error)
	Play(ctx context.Context, id string, index int) (*game.GameStateDTO, error)
	ProxyMove(ctx context.Context, id string, difficulty bot.Difficulty) (*game.GameStateDTO, error)
	Restart(ctx context.Context, id string) (*game.GameStateDTO, error)
	Hint(ctx context.Context, id string) (map[int]int, error)
	Scores(ctx context.Context) (repository.Scores, error)
	ResetScores(ctx context.Context) error
	Theme(ctx context.Context) (string, error)
	SetTheme(ctx context.Context, theme string) error
	VerifyToken(token, gameID string) error
}

type gameService struct {
	gameRepo   repository.GameRepository
	scoreRepo  repository.ScoreRepository
	prefRepo   repository.PreferenceRepository
	calculator MoveCalculator
	tokens     *TokenIssuer
	now        func() time.Time
}

// NewGameService creates a new GameService.
func NewGameService(gameRepo repository.GameRepository, scoreRepo repository.ScoreRepository, prefRepo repository.PreferenceRepository, calculator MoveCalculator, tokens *TokenIssuer) GameService {
	return &gameService{
		gameRepo:   gameRepo,
		scoreRepo:  scoreRepo,
		prefRepo:   prefRepo,
		calculator: calculator,
		tokens:     tokens,
		now:        time.Now,
	}
}

// Create starts a new game at the given difficulty and returns its session token.
func (s *gameService) Create(ctx context.Context, difficulty string) (*game.GameStateDTO, string, error) {
	ctx, span := tracer.Start(ctx, "GameService.Create", trace.WithAttributes(
		attribute.String("game.difficulty", difficulty),
	))
	defer span.End()

	d, err := bot.ParseDifficulty(difficulty)
	if err != nil {
		span.SetStatus(codes.Error, "Unknown difficulty")
		return nil, "", err
	}

	state := game.NewGameState(uuid.New().String(), string(d), s.now())
	span.SetAttributes(attribute.String("game.id", state.ID))

	if err := s.gameRepo.Create(ctx, state); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to store new game")
		return nil, "", fmt.Errorf("failed to create game: %w", err)
	}

	token, err := s.tokens.Issue(state.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to issue session token")
		return nil, "", err
	}

	slog.InfoContext(ctx, "Game created", "game.id", state.ID, "game.difficulty", d)
	return state, token, nil
}

// Get returns the stored game.
func (s *gameService) Get(ctx context.Context, id string) (*game.GameStateDTO, error) {
	ctx, span := tracer.Start(ctx, "GameService.Get", trace.WithAttributes(
		attribute.String("game.id", id),
	))
	defer span.End()

	return s.gameRepo.FindByID(ctx, id)
}

// Play applies the human's move and, if the game goes on, the computer's reply.
func (s *gameService) Play(ctx context.Context, id string, index int) (*game.GameStateDTO, error) {
	ctx, span := tracer.Start(ctx, "GameService.Play", trace.WithAttributes(
		attribute.String("game.id", id),
		attribute.Int("move.index", index),
	))
	defer span.End()

	state, err := s.gameRepo.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Could not find game")
		return nil, err
	}

	g := state.Game()
	if err := g.MoveAs(game.PlayerX, index); err != nil {
		slog.WarnContext(ctx, "invalid move from player", "game.id", id, "move.index", index, "error", err)
		span.SetAttributes(attribute.Bool("move.valid", false))
		span.SetStatus(codes.Error, "Invalid move")
		return nil, err
	}
	span.SetAttributes(attribute.Bool("move.valid", true))
	state.Apply(g)
	state.LastMove = -1

	if err := s.respond(ctx, state, g); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Engine reply failed")
		return nil, err
	}
	return s.commit(ctx, state)
}

// ProxyMove lets the engine play X's move for a player who ran out of time.
func (s *gameService) ProxyMove(ctx context.Context, id string, difficulty bot.Difficulty) (*game.GameStateDTO, error) {
	ctx, span := tracer.Start(ctx, "GameService.ProxyMove", trace.WithAttributes(
		attribute.String("game.id", id),
		attribute.String("bot.difficulty", string(difficulty)),
	))
	defer span.End()

	state, err := s.gameRepo.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Could not find game")
		return nil, err
	}

	g := state.Game()
	if g.Outcome.IsTerminal() {
		return nil, game.ErrGameOver
	}
	if g.CurrentTurn != game.PlayerX {
		return nil, fmt.Errorf("%w: %s to move", game.ErrNotYourTurn, g.CurrentTurn)
	}

	index, err := s.calculator.CalculateNextMove(ctx, g.Board, game.PlayerX, difficulty)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Proxy move failed")
		return nil, err
	}
	if err := g.MoveAs(game.PlayerX, index); err != nil {
		return nil, fmt.Errorf("engine produced an illegal move: %w", err)
	}
	slog.InfoContext(ctx, "Proxy move for player", "game.id", id, "move.index", index)
	state.Apply(g)
	state.LastMove = -1

	if err := s.respond(ctx, state, g); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Engine reply failed")
		return nil, err
	}
	return s.commit(ctx, state)
}

// respond plays O's move when the game is still open.
func (s *gameService) respond(ctx context.Context, state *game.GameStateDTO, g *game.Game) error {
	if g.Outcome.IsTerminal() {
		return nil
	}

	difficulty, err := bot.ParseDifficulty(state.Difficulty)
	if err != nil {
		return err
	}
	index, err := s.calculator.CalculateNextMove(ctx, g.Board, game.PlayerO, difficulty)
	if err != nil {
		return err
	}
	if err := g.MoveAs(game.PlayerO, index); err != nil {
		return fmt.Errorf("engine produced an illegal move: %w", err)
	}

	state.Apply(g)
	state.LastMove = index
	return nil
}

// commit persists state and, for a game that just ended, records the winner.
// The version check in Save lets only one writer finish a game, so each
// result is counted once.
func (s *gameService) commit(ctx context.Context, state *game.GameStateDTO) (*game.GameStateDTO, error) {
	state.UpdatedAt = s.now()
	if err := s.gameRepo.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save game: %w", err)
	}

	if state.Outcome.IsTerminal() {
		slog.InfoContext(ctx, "Game finished", "game.id", state.ID, "game.outcome", state.Outcome)
		if winner := state.Outcome.Winner(); winner != game.None {
			if _, err := s.scoreRepo.RecordWin(ctx, winner); err != nil {
				slog.ErrorContext(ctx, "failed to record game result", "game.id", state.ID, "error", err)
			}
		}
	}
	return state, nil
}

// Restart clears the board and keeps the difficulty.
func (s *gameService) Restart(ctx context.Context, id string) (*game.GameStateDTO, error) {
	ctx, span := tracer.Start(ctx, "GameService.Restart", trace.WithAttributes(
		attribute.String("game.id", id),
	))
	defer span.End()

	state, err := s.gameRepo.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Could not find game")
		return nil, err
	}

	g := state.Game()
	g.Reset()
	state.Apply(g)
	state.LastMove = -1
	state.UpdatedAt = s.now()

	if err := s.gameRepo.Save(ctx, state); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to reset game")
		return nil, fmt.Errorf("failed to reset game: %w", err)
	}

	slog.InfoContext(ctx, "Game restarted", "game.id", id)
	return state, nil
}

// Hint returns the minimax value of each legal move for the side to move.
func (s *gameService) Hint(ctx context.Context, id string) (map[int]int, error) {
	ctx, span := tracer.Start(ctx, "GameService.Hint", trace.WithAttributes(
		attribute.String("game.id", id),
	))
	defer span.End()

	state, err := s.gameRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if state.Outcome.IsTerminal() {
		return nil, game.ErrGameOver
	}
	return bot.ScoreMoves(state.Board, state.CurrentTurn), nil
}

func (s *gameService) Scores(ctx context.Context) (repository.Scores, error) {
	return s.scoreRepo.Get(ctx)
}

func (s *gameService) ResetScores(ctx context.Context) error {
	slog.InfoContext(ctx, "Resetting scores")
	return s.scoreRepo.Reset(ctx)
}

func (s *gameService) Theme(ctx context.Context) (string, error) {
	return s.prefRepo.Theme(ctx)
}

func (s *gameService) SetTheme(ctx context.Context, theme string) error {
	return s.prefRepo.SetTheme(ctx, theme)
}

func (s *gameService) VerifyToken(token, gameID string) error {
	return s.tokens.Verify(token, gameID)
}
