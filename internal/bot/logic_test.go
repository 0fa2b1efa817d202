package bot

import (
	"ctchen222/tictactoe-ai/internal/game"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	x = game.PlayerX
	o = game.PlayerO
	e = game.None
)

func newTestEngine() *Engine {
	return NewEngine(rand.NewPCG(42, 1024))
}

func TestParseDifficulty(t *testing.T) {
	for _, label := range []string{"easy", "medium", "hard"} {
		d, err := ParseDifficulty(label)
		require.NoError(t, err)
		assert.Equal(t, Difficulty(label), d)
	}

	for _, label := range []string{"", "HARD", "impossible", " easy"} {
		_, err := ParseDifficulty(label)
		assert.ErrorIs(t, err, ErrUnknownDifficulty, "label %q", label)
	}
}

func TestHardMove(t *testing.T) {
	tests := []struct {
		name  string
		board game.Board
		side  game.PlayerMark
		want  int
	}{
		{
			name: "O completes its own row instead of blocking",
			board: game.Board{
				o, o, e,
				x, x, e,
				e, e, e,
			},
			side: o,
			want: 2,
		},
		{
			name: "O blocks with a move that also forks",
			board: game.Board{
				x, x, e,
				o, o, e,
				e, e, e,
			},
			side: o,
			want: 2,
		},
		{
			name: "O must block opponent",
			board: game.Board{
				x, x, e,
				e, o, e,
				e, e, e,
			},
			side: o,
			want: 2,
		},
		{
			name: "O wins on the diagonal",
			board: game.Board{
				e, x, x,
				e, o, x,
				e, e, o,
			},
			side: o,
			want: 0,
		},
		{
			name: "X takes the winning cell",
			board: game.Board{
				x, x, e,
				o, o, e,
				e, e, e,
			},
			side: x,
			want: 2,
		},
		{
			name: "Only one spot left",
			board: game.Board{
				x, o, x,
				x, o, o,
				o, e, x,
			},
			side: x,
			want: 7,
		},
	}

	engine := newTestEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.SelectMove(tt.board, Hard, tt.side)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got, "board:\n%s", tt.board)
		})
	}
}

func TestHardVersusHardIsDraw(t *testing.T) {
	engine := newTestEngine()
	g := game.NewGame()

	for !g.Outcome.IsTerminal() {
		index, err := engine.SelectMove(g.Board, Hard, g.CurrentTurn)
		require.NoError(t, err)
		require.NoError(t, g.Move(index))
	}
	assert.Equal(t, game.Draw, g.Outcome, "final board:\n%s", g.Board)
}

// O playing hard never loses, whatever X does.
func TestHardNeverLosesAsO(t *testing.T) {
	engine := newTestEngine()
	games := 0

	var play func(board game.Board)
	play = func(board game.Board) {
		for _, i := range game.EmptyCells(board) {
			next, err := game.ApplyMove(board, i, x)
			require.NoError(t, err)

			outcome := game.Evaluate(next)
			if outcome == game.XWins {
				t.Fatalf("X won against hard O:\n%s", next)
			}
			if outcome.IsTerminal() {
				games++
				continue
			}

			reply, err := engine.SelectMove(next, Hard, o)
			require.NoError(t, err)
			next, err = game.ApplyMove(next, reply, o)
			require.NoError(t, err)

			if game.Evaluate(next).IsTerminal() {
				games++
				continue
			}
			play(next)
		}
	}
	play(game.Board{})

	assert.Positive(t, games)
}

func TestEasyMove(t *testing.T) {
	t.Run("Only one spot left", func(t *testing.T) {
		board := game.Board{
			x, o, x,
			o, x, o,
			o, e, o,
		}
		got, err := newTestEngine().SelectMove(board, Easy, x)
		require.NoError(t, err)
		assert.Equal(t, 7, got)
	})

	t.Run("Always picks an empty cell", func(t *testing.T) {
		board := game.Board{
			x, e, e,
			e, o, e,
			e, e, x,
		}
		empty := game.EmptyCells(board)
		engine := newTestEngine()
		for range 200 {
			got, err := engine.SelectMove(board, Easy, o)
			require.NoError(t, err)
			assert.True(t, slices.Contains(empty, got), "easy picked occupied cell %d", got)
		}
	})

	t.Run("Uniform over empty cells", func(t *testing.T) {
		const trials = 9000
		engine := newTestEngine()
		observed := make([]float64, game.Size)
		for range trials {
			got, err := engine.SelectMove(game.Board{}, Easy, o)
			require.NoError(t, err)
			observed[got]++
		}

		expected := make([]float64, game.Size)
		for i := range expected {
			expected[i] = trials / game.Size
		}
		chi2 := stat.ChiSquare(observed, expected)
		pValue := distuv.ChiSquared{K: game.Size - 1}.Survival(chi2)
		assert.Greater(t, pValue, 0.001, "observed counts %v", observed)
	})
}

func TestMediumMove(t *testing.T) {
	// Hard always answers 2 here; random lands on it a quarter of the time.
	board := game.Board{
		o, o, e,
		x, x, e,
		x, e, e,
	}

	const trials = 4000
	engine := newTestEngine()
	hits := 0
	for range trials {
		got, err := engine.SelectMove(board, Medium, o)
		require.NoError(t, err)
		require.Contains(t, []int{2, 5, 7, 8}, got)
		if got == 2 {
			hits++
		}
	}

	ratio := float64(hits) / trials
	assert.InDelta(t, 0.625, ratio, 0.05)
}

func TestSelectMoveErrors(t *testing.T) {
	engine := newTestEngine()

	full := game.Board{
		x, o, x,
		o, x, o,
		o, x, o,
	}
	won := game.Board{
		x, x, x,
		o, o, e,
		e, e, e,
	}

	for _, d := range []Difficulty{Easy, Medium, Hard} {
		got, err := engine.SelectMove(full, d, o)
		assert.ErrorIs(t, err, ErrNoLegalMove)
		assert.Equal(t, -1, got)

		got, err = engine.SelectMove(won, d, o)
		assert.ErrorIs(t, err, ErrNoLegalMove)
		assert.Equal(t, -1, got)
	}

	_, err := engine.SelectMove(game.Board{}, Difficulty("nightmare"), o)
	assert.ErrorIs(t, err, ErrUnknownDifficulty)

	_, err = engine.SelectMove(game.Board{}, Hard, e)
	assert.ErrorIs(t, err, game.ErrInvalidMove)
}

func TestSelectMoveDoesNotMutateBoard(t *testing.T) {
	board := game.Board{
		x, e, e,
		e, o, e,
		e, e, e,
	}
	before := board
	_, err := newTestEngine().SelectMove(board, Hard, x)
	require.NoError(t, err)
	assert.Equal(t, before, board)
}

func TestScoreMoves(t *testing.T) {
	board := game.Board{
		o, o, e,
		x, x, e,
		e, e, e,
	}

	scores := ScoreMoves(board, o)
	assert.Len(t, scores, 5)
	assert.Equal(t, 1, scores[2])

	// X to move: taking 5 is the only way not to lose at once.
	xScores := ScoreMoves(board, x)
	assert.Equal(t, 1, xScores[5])
	assert.Equal(t, -1, xScores[6])

	assert.Empty(t, ScoreMoves(game.Board{x, x, x, o, o, e, e, e, e}, o))
}
