package repository

//go:generate mockgen -source=score_repository.go -destination=mocks/mock_score_repository.go -package=mocks

import (
	"context"
	"ctchen222/tictactoe-ai/internal/game"
	"fmt"
)

// Keys of the two persisted win counters.
const (
	PlayerWinsKey = "playerWins"
	AIWinsKey     = "aiWins"
)

// Scores holds the win tallies of the human (X) and the computer (O).
type Scores struct {
	PlayerWins int64 `json:"player_wins"`
	AIWins     int64 `json:"ai_wins"`
}

// ScoreRepository defines the interface for the win counters.
type ScoreRepository interface {
	Get(ctx context.Context) (Scores, error)
	// RecordWin adds one win for mark and returns the updated tallies.
	RecordWin(ctx context.Context, mark game.PlayerMark) (Scores, error)
	Reset(ctx context.Context) error
}

type kvScoreRepository struct {
	store KVStore
}

// NewScoreRepository creates a ScoreRepository on top of a KVStore.
func NewScoreRepository(store KVStore) ScoreRepository {
	return &kvScoreRepository{store: store}
}

// Get loads both counters; missing counters read as zero.
func (r *kvScoreRepository) Get(ctx context.Context) (Scores, error) {
	ctx, span := tracer.Start(ctx, "ScoreRepository.Get")
	defer span.End()

	playerWins, err := r.load(ctx, PlayerWinsKey)
	if err != nil {
		return Scores{}, err
	}
	aiWins, err := r.load(ctx, AIWinsKey)
	if err != nil {
		return Scores{}, err
	}
	return Scores{PlayerWins: playerWins, AIWins: aiWins}, nil
}

func (r *kvScoreRepository) RecordWin(ctx context.Context, mark game.PlayerMark) (Scores, error) {
	ctx, span := tracer.Start(ctx, "ScoreRepository.RecordWin")
	defer span.End()

	var key string
	switch mark {
	case game.PlayerX:
		key = PlayerWinsKey
	case game.PlayerO:
		key = AIWinsKey
	default:
		return Scores{}, fmt.Errorf("cannot record a win for mark %q", mark)
	}

	if _, err := r.store.Incr(ctx, key); err != nil {
		return Scores{}, err
	}
	return r.Get(ctx)
}

func (r *kvScoreRepository) Reset(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "ScoreRepository.Reset")
	defer span.End()

	for _, key := range []string{PlayerWinsKey, AIWinsKey} {
		if err := r.store.Set(ctx, key, "0"); err != nil {
			return err
		}
	}
	return nil
}

func (r *kvScoreRepository) load(ctx context.Context, key string) (int64, error) {
	value, _, err := r.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := parseCounter(value)
	if err != nil {
		return 0, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return n, nil
}
