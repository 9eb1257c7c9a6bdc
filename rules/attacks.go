package rules

import "github.com/notnil/chess"

var (
	knightSteps = [][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps   = [][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	rookRays    = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	bishopRays  = [][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// kingAttacked reports whether the side to move stands in check.
func kingAttacked(pos *chess.Position) bool {
	b := pos.Board()
	me := pos.Turn()
	for sq, p := range b.SquareMap() {
		if p.Type() == chess.King && p.Color() == me {
			return attacked(b, sq, me.Other())
		}
	}
	return false
}

// attacked reports whether any piece of color by hits sq.
func attacked(b *chess.Board, sq chess.Square, by chess.Color) bool {
	f, r := int(sq.File()), int(sq.Rank())
	at := func(df, dr int) (chess.Piece, bool) {
		nf, nr := f+df, r+dr
		if nf < 0 || nf > 7 || nr < 0 || nr > 7 {
			return chess.NoPiece, false
		}
		return b.Piece(chess.NewSquare(chess.File(nf), chess.Rank(nr))), true
	}
	hits := func(p chess.Piece, types ...chess.PieceType) bool {
		if p.Color() != by {
			return false
		}
		for _, t := range types {
			if p.Type() == t {
				return true
			}
		}
		return false
	}

	for _, s := range knightSteps {
		if p, ok := at(s[0], s[1]); ok && hits(p, chess.Knight) {
			return true
		}
	}
	for _, s := range kingSteps {
		if p, ok := at(s[0], s[1]); ok && hits(p, chess.King) {
			return true
		}
	}

	// pawns capture towards the far rank of their color
	dr := -1
	if by == chess.Black {
		dr = 1
	}
	for _, df := range []int{-1, 1} {
		if p, ok := at(df, dr); ok && hits(p, chess.Pawn) {
			return true
		}
	}

	slide := func(rays [][2]int, types ...chess.PieceType) bool {
		for _, ray := range rays {
			for i := 1; i < 8; i++ {
				p, ok := at(ray[0]*i, ray[1]*i)
				if !ok {
					break
				}
				if p == chess.NoPiece {
					continue
				}
				if hits(p, types...) {
					return true
				}
				break
			}
		}
		return false
	}
	return slide(rookRays, chess.Rook, chess.Queen) || slide(bishopRays, chess.Bishop, chess.Queen)
}
