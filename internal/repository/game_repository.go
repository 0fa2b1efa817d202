package repository

//go:generate mockgen -source=game_repository.go -destination=mocks/mock_game_repository.go -package=mocks

import (
	"context"
	"ctchen222/tictactoe-ai/internal/game"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("repository")

var (
	ErrGameNotFound     = errors.New("game not found")
	ErrConcurrentUpdate = errors.New("game was modified concurrently")
)

// GameRepository defines the interface for game session storage.
// Save only succeeds when state.Version matches the stored version; on
// success the version is incremented.
type GameRepository interface {
	Create(ctx context.Context, state *game.GameStateDTO) error
	FindByID(ctx context.Context, id string) (*game.GameStateDTO, error)
	Save(ctx context.Context, state *game.GameStateDTO) error
	Delete(ctx context.Context, id string) error
}

const fieldVersion = "version"

type redisGameRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewGameRepository creates a new Redis-based GameRepository. Sessions
// expire ttl after their last update; zero keeps them forever.
func NewGameRepository(rdb *redis.Client, ttl time.Duration) GameRepository {
	return &redisGameRepository{rdb: rdb, ttl: ttl}
}

func gameKey(id string) string {
	return fmt.Sprintf("game:%s", id)
}

// Create stores a new game session in Redis.
func (r *redisGameRepository) Create(ctx context.Context, state *game.GameStateDTO) error {
	ctx, span := tracer.Start(ctx, "GameRepository.Create")
	defer span.End()

	fields, err := encodeGameState(state)
	if err != nil {
		return err
	}
	fields[fieldVersion] = "0"

	key := gameKey(state.ID)
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create game in redis: %w", err)
	}
	state.Version = 0
	return nil
}

// FindByID retrieves the current game state from Redis.
func (r *redisGameRepository) FindByID(ctx context.Context, id string) (*game.GameStateDTO, error) {
	ctx, span := tracer.Start(ctx, "GameRepository.FindByID")
	defer span.End()

	data, err := r.rdb.HGetAll(ctx, gameKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get game state from redis: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrGameNotFound
	}
	return decodeGameState(id, data)
}

// Save writes the session back inside a WATCH transaction.
func (r *redisGameRepository) Save(ctx context.Context, state *game.GameStateDTO) error {
	ctx, span := tracer.Start(ctx, "GameRepository.Save")
	defer span.End()

	key := gameKey(state.ID)
	fields, err := encodeGameState(state)
	if err != nil {
		return err
	}
	next := state.Version + 1
	fields[fieldVersion] = strconv.FormatInt(next, 10)

	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, fieldVersion).Result()
		if errors.Is(err, redis.Nil) {
			return ErrGameNotFound
		}
		if err != nil {
			return err
		}
		if current != strconv.FormatInt(state.Version, 10) {
			return ErrConcurrentUpdate
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			if r.ttl > 0 {
				pipe.Expire(ctx, key, r.ttl)
			}
			return nil
		})
		return err
	}

	if err := r.rdb.Watch(ctx, txf, key); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return ErrConcurrentUpdate
		}
		return err
	}
	state.Version = next
	return nil
}

// Delete removes a session.
func (r *redisGameRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "GameRepository.Delete")
	defer span.End()

	return r.rdb.Del(ctx, gameKey(id)).Err()
}

func encodeGameState(state *game.GameStateDTO) (map[string]any, error) {
	boardJSON, err := json.Marshal(state.Board)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal board: %w", err)
	}
	return map[string]any{
		game.FieldBoard:      string(boardJSON),
		game.FieldNextTurn:   string(state.CurrentTurn),
		game.FieldOutcome:    string(state.Outcome),
		game.FieldDifficulty: state.Difficulty,
		game.FieldLastMove:   strconv.Itoa(state.LastMove),
		game.FieldCreatedAt:  state.CreatedAt.UTC().Format(time.RFC3339Nano),
		game.FieldUpdatedAt:  state.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

func decodeGameState(id string, data map[string]string) (*game.GameStateDTO, error) {
	var board game.Board
	if err := json.Unmarshal([]byte(data[game.FieldBoard]), &board); err != nil {
		return nil, fmt.Errorf("failed to unmarshal board: %w", err)
	}
	lastMove, err := strconv.Atoi(data[game.FieldLastMove])
	if err != nil {
		return nil, fmt.Errorf("failed to parse last move: %w", err)
	}
	version, err := strconv.ParseInt(data[fieldVersion], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse version: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, data[game.FieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, data[game.FieldUpdatedAt])
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	outcome := game.Outcome(data[game.FieldOutcome])
	return &game.GameStateDTO{
		ID:          id,
		Board:       board,
		CurrentTurn: game.PlayerMark(data[game.FieldNextTurn]),
		Outcome:     outcome,
		Winner:      outcome.Winner(),
		Difficulty:  data[game.FieldDifficulty],
		LastMove:    lastMove,
		Version:     version,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

type memoryGameRepository struct {
	mu    sync.RWMutex
	games map[string]game.GameStateDTO
}

// NewMemoryGameRepository creates a GameRepository that keeps sessions in process.
func NewMemoryGameRepository() GameRepository {
	return &memoryGameRepository{games: make(map[string]game.GameStateDTO)}
}

func (r *memoryGameRepository) Create(ctx context.Context, state *game.GameStateDTO) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state.Version = 0
	r.games[state.ID] = *state
	return nil
}

func (r *memoryGameRepository) FindByID(ctx context.Context, id string) (*game.GameStateDTO, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	return &state, nil
}

func (r *memoryGameRepository) Save(ctx context.Context, state *game.GameStateDTO) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.games[state.ID]
	if !ok {
		return ErrGameNotFound
	}
	if current.Version != state.Version {
		return ErrConcurrentUpdate
	}
	state.Version++
	r.games[state.ID] = *state
	return nil
}

func (r *memoryGameRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.games, id)
	return nil
}
