package service

import (
	"context"
	"ctchen222/tictactoe-ai/internal/bot"
	"ctchen222/tictactoe-ai/internal/game"
	"ctchen222/tictactoe-ai/internal/repository"
	"ctchen222/tictactoe-ai/internal/repository/mocks"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// scriptedCalculator replays a fixed list of engine moves.
type scriptedCalculator struct {
	moves []int
	calls int
}

func (c *scriptedCalculator) CalculateNextMove(ctx context.Context, board game.Board, mark game.PlayerMark, difficulty bot.Difficulty) (int, error) {
	c.calls++
	if len(c.moves) == 0 {
		return -1, bot.ErrNoLegalMove
	}
	m := c.moves[0]
	c.moves = c.moves[1:]
	return m, nil
}

func newTestService(t *testing.T, scores repository.ScoreRepository, calc MoveCalculator) GameService {
	t.Helper()
	store := repository.NewMemoryKVStore()
	if scores == nil {
		scores = repository.NewScoreRepository(store)
	}
	return NewGameService(
		repository.NewMemoryGameRepository(),
		scores,
		repository.NewPreferenceRepository(store),
		calc,
		NewTokenIssuer("test-secret", time.Hour),
	)
}

func playAll(t *testing.T, svc GameService, id string, moves ...int) *game.GameStateDTO {
	t.Helper()
	var state *game.GameStateDTO
	var err error
	for _, m := range moves {
		state, err = svc.Play(context.Background(), id, m)
		require.NoError(t, err, "move %d", m)
	}
	return state
}

func TestGameService_Create(t *testing.T) {
	svc := newTestService(t, nil, &scriptedCalculator{})
	ctx := context.Background()

	_, _, err := svc.Create(ctx, "impossible")
	assert.ErrorIs(t, err, bot.ErrUnknownDifficulty)

	state, token, err := svc.Create(ctx, "hard")
	require.NoError(t, err)
	assert.NotEmpty(t, state.ID)
	assert.Equal(t, "hard", state.Difficulty)
	assert.Equal(t, game.PlayerX, state.CurrentTurn)
	assert.Equal(t, game.InProgress, state.Outcome)
	assert.Equal(t, -1, state.LastMove)
	assert.NoError(t, svc.VerifyToken(token, state.ID))

	stored, err := svc.Get(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, state.ID, stored.ID)
}

func TestGameService_PlayWithEngine(t *testing.T) {
	calc := bot.NewBotMoveCalculator(bot.NewEngine(rand.NewPCG(1, 2)))
	svc := newTestService(t, nil, calc)
	ctx := context.Background()

	state, _, err := svc.Create(ctx, "hard")
	require.NoError(t, err)

	state, err = svc.Play(ctx, state.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, game.PlayerX, state.Board[4])
	require.NotEqual(t, -1, state.LastMove)
	assert.Equal(t, game.PlayerO, state.Board[state.LastMove])
	assert.Equal(t, game.PlayerX, state.CurrentTurn)
	assert.Len(t, game.EmptyCells(state.Board), 7)
}

func TestGameService_PlayRejectsInvalidMoves(t *testing.T) {
	svc := newTestService(t, nil, &scriptedCalculator{moves: []int{1}})
	ctx := context.Background()

	state, _, err := svc.Create(ctx, "easy")
	require.NoError(t, err)

	_, err = svc.Play(ctx, state.ID, 9)
	assert.ErrorIs(t, err, game.ErrInvalidMove)

	playAll(t, svc, state.ID, 0)
	_, err = svc.Play(ctx, state.ID, 1)
	assert.ErrorIs(t, err, game.ErrInvalidMove)

	_, err = svc.Play(ctx, "missing", 0)
	assert.ErrorIs(t, err, repository.ErrGameNotFound)
}

func TestGameService_RecordsResultOnce(t *testing.T) {
	tests := []struct {
		name        string
		engineMoves []int
		humanMoves  []int
		want        game.Outcome
	}{
		{
			name:        "player wins",
			engineMoves: []int{3, 4},
			humanMoves:  []int{0, 1, 2},
			want:        game.XWins,
		},
		{
			name:        "computer wins",
			engineMoves: []int{3, 4, 5},
			humanMoves:  []int{0, 1, 8},
			want:        game.OWins,
		},
		{
			name:        "draw",
			engineMoves: []int{1, 4, 6, 5},
			humanMoves:  []int{0, 2, 7, 3, 8},
			want:        game.Draw,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			scores := mocks.NewMockScoreRepository(ctrl)
			if winner := tt.want.Winner(); winner != game.None {
				scores.EXPECT().RecordWin(gomock.Any(), winner).Return(repository.Scores{}, nil).Times(1)
			}

			calc := &scriptedCalculator{moves: tt.engineMoves}
			svc := newTestService(t, scores, calc)
			ctx := context.Background()

			state, _, err := svc.Create(ctx, "hard")
			require.NoError(t, err)

			state = playAll(t, svc, state.ID, tt.humanMoves...)
			assert.Equal(t, tt.want, state.Outcome)
			assert.Equal(t, len(tt.engineMoves), calc.calls)

			_, err = svc.Play(ctx, state.ID, 0)
			assert.ErrorIs(t, err, game.ErrGameOver)
		})
	}
}

func TestGameService_ScoresAccumulate(t *testing.T) {
	svc := newTestService(t, nil, &scriptedCalculator{moves: []int{3, 4, 3, 4}})
	ctx := context.Background()

	first, _, err := svc.Create(ctx, "hard")
	require.NoError(t, err)
	playAll(t, svc, first.ID, 0, 1, 2)

	second, _, err := svc.Create(ctx, "hard")
	require.NoError(t, err)
	playAll(t, svc, second.ID, 0, 1, 2)

	scores, err := svc.Scores(ctx)
	require.NoError(t, err)
	assert.Equal(t, repository.Scores{PlayerWins: 2, AIWins: 0}, scores)

	require.NoError(t, svc.ResetScores(ctx))
	scores, err = svc.Scores(ctx)
	require.NoError(t, err)
	assert.Equal(t, repository.Scores{}, scores)
}

func TestGameService_ProxyMove(t *testing.T) {
	calc := &scriptedCalculator{moves: []int{4, 0}}
	svc := newTestService(t, nil, calc)
	ctx := context.Background()

	state, _, err := svc.Create(ctx, "medium")
	require.NoError(t, err)

	state, err = svc.ProxyMove(ctx, state.ID, bot.Medium)
	require.NoError(t, err)
	assert.Equal(t, game.PlayerX, state.Board[4])
	assert.Equal(t, game.PlayerO, state.Board[0])
	assert.Equal(t, 0, state.LastMove)
	assert.Equal(t, game.PlayerX, state.CurrentTurn)
}

func TestGameService_Restart(t *testing.T) {
	svc := newTestService(t, nil, &scriptedCalculator{moves: []int{3, 4}})
	ctx := context.Background()

	state, _, err := svc.Create(ctx, "easy")
	require.NoError(t, err)
	playAll(t, svc, state.ID, 0, 1, 2)

	state, err = svc.Restart(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, game.Board{}, state.Board)
	assert.Equal(t, game.InProgress, state.Outcome)
	assert.Equal(t, game.PlayerX, state.CurrentTurn)
	assert.Equal(t, "easy", state.Difficulty)
	assert.Equal(t, -1, state.LastMove)
}

func TestGameService_Hint(t *testing.T) {
	svc := newTestService(t, nil, &scriptedCalculator{moves: []int{3}})
	ctx := context.Background()

	state, _, err := svc.Create(ctx, "hard")
	require.NoError(t, err)
	playAll(t, svc, state.ID, 0)

	hint, err := svc.Hint(ctx, state.ID)
	require.NoError(t, err)
	assert.Len(t, hint, 7)
	for _, score := range hint {
		assert.Contains(t, []int{-1, 0, 1}, score)
	}
}

func TestGameService_Theme(t *testing.T) {
	svc := newTestService(t, nil, &scriptedCalculator{})
	ctx := context.Background()

	theme, err := svc.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, repository.DefaultTheme, theme)

	require.NoError(t, svc.SetTheme(ctx, repository.ThemeDark))
	theme, err = svc.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, repository.ThemeDark, theme)

	assert.ErrorIs(t, svc.SetTheme(ctx, "neon"), repository.ErrUnknownTheme)
}

func TestGameService_ConcurrentUpdateSkipsScore(t *testing.T) {
	ctrl := gomock.NewController(t)
	games := mocks.NewMockGameRepository(ctrl)
	scores := mocks.NewMockScoreRepository(ctrl)

	// X completes the top row with this move.
	state := game.NewGameState("g1", "hard", time.Now())
	state.Board = game.Board{game.PlayerX, game.PlayerX, game.None, game.PlayerO, game.PlayerO}

	games.EXPECT().FindByID(gomock.Any(), "g1").Return(state, nil)
	games.EXPECT().Save(gomock.Any(), gomock.Any()).Return(repository.ErrConcurrentUpdate)
	scores.EXPECT().RecordWin(gomock.Any(), gomock.Any()).Times(0)

	calc := &scriptedCalculator{}
	svc := NewGameService(games, scores, repository.NewPreferenceRepository(repository.NewMemoryKVStore()), calc, NewTokenIssuer("s", time.Hour))

	_, err := svc.Play(context.Background(), "g1", 2)
	assert.ErrorIs(t, err, repository.ErrConcurrentUpdate)
	assert.Zero(t, calc.calls)
}
