package bot

import (
	"ctchen222/tictactoe-ai/internal/game"
)

// Terminal scores, from O's point of view.
const (
	scoreXWins = -1
	scoreDraw  = 0
	scoreOWins = 1
)

// minimaxMove searches the full game tree and returns the best index for
// side. O takes the strictly highest score and X the strictly lowest; ties
// keep the lowest index. It returns -1 on a decided board.
func minimaxMove(board game.Board, side game.PlayerMark) int {
	if game.Evaluate(board).IsTerminal() {
		return -1
	}

	scratch := board
	move, best := -1, 0
	for i := range scratch {
		if scratch[i] != game.None {
			continue
		}
		scratch[i] = side
		score := minimax(&scratch, side == game.PlayerX)
		scratch[i] = game.None

		if move == -1 || improves(side, score, best) {
			move, best = i, score
		}
	}
	return move
}

// minimax scores b with O as the maximizing player. b is restored before
// returning.
func minimax(b *game.Board, maximizing bool) int {
	switch game.Evaluate(*b) {
	case game.XWins:
		return scoreXWins
	case game.OWins:
		return scoreOWins
	case game.Draw:
		return scoreDraw
	}

	mark, best := game.PlayerX, scoreOWins+1
	if maximizing {
		mark, best = game.PlayerO, scoreXWins-1
	}
	for i := range b {
		if b[i] != game.None {
			continue
		}
		b[i] = mark
		score := minimax(b, !maximizing)
		b[i] = game.None

		if maximizing {
			best = max(best, score)
		} else {
			best = min(best, score)
		}
	}
	return best
}

func improves(side game.PlayerMark, score, best int) bool {
	if side == game.PlayerO {
		return score > best
	}
	return score < best
}

// ScoreMoves returns the minimax value of every legal move for side.
// Positive values favour side: 1 is a forced win, 0 a draw, -1 a forced loss.
func ScoreMoves(board game.Board, side game.PlayerMark) map[int]int {
	scores := make(map[int]int)
	if game.Evaluate(board).IsTerminal() {
		return scores
	}

	scratch := board
	for _, i := range game.EmptyCells(board) {
		scratch[i] = side
		score := minimax(&scratch, side == game.PlayerX)
		scratch[i] = game.None

		if side == game.PlayerX {
			score = -score
		}
		scores[i] = score
	}
	return scores
}
