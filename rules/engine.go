// rules/engine.go
package rules

import (
	"math"

	"github.com/notnil/chess"
)

const mateScore = 10000

var pieceValue = map[chess.PieceType]int{
	chess.Pawn:   1,
	chess.Knight: 3,
	chess.Bishop: 3,
	chess.Rook:   5,
	chess.Queen:  9,
}

// material is the piece balance from c's point of view.
func material(pos *chess.Position, c chess.Color) int {
	score := 0
	for _, p := range pos.Board().SquareMap() {
		v := pieceValue[p.Type()]
		if p.Color() == c {
			score += v
		} else {
			score -= v
		}
	}
	return score
}

// bestOnePly takes the move with the best material after it. Ties keep the first.
func bestOnePly(pos *chess.Position, moves []*chess.Move) *chess.Move {
	me := pos.Turn()
	best, bestScore := moves[0], math.MinInt
	for _, m := range moves {
		next := pos.Update(m)
		var score int
		switch next.Status() {
		case chess.Checkmate:
			return m
		case chess.Stalemate:
			score = 0
		default:
			score = material(next, me)
		}
		if score > bestScore {
			best, bestScore = m, score
		}
	}
	return best
}

// bestTwoPly is a plain minimax over our move and the opponent's answer.
func bestTwoPly(pos *chess.Position, moves []*chess.Move) *chess.Move {
	me := pos.Turn()
	best, bestScore := moves[0], math.MinInt
	for _, m := range moves {
		next := pos.Update(m)
		replies := next.ValidMoves()
		if len(replies) == 0 {
			if next.Status() == chess.Checkmate {
				return m
			}
			if 0 > bestScore {
				best, bestScore = m, 0
			}
			continue
		}

		worst := math.MaxInt
		for _, r := range replies {
			leaf := next.Update(r)
			var v int
			switch leaf.Status() {
			case chess.Checkmate:
				v = -mateScore
			case chess.Stalemate:
				v = 0
			default:
				v = material(leaf, me)
			}
			if v < worst {
				worst = v
			}
			if worst <= bestScore {
				break
			}
		}
		if worst > bestScore {
			best, bestScore = m, worst
		}
	}
	return best
}
