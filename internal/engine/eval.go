package engine

import "github.com/EvanSeven007/ReeseBot/internal/model"

// Evaluate is the default evaluator: material plus a small positional term.
// Every term is computed from the owning piece's own side of the board, so
// mirroring the position and swapping colors leaves the score unchanged.
func Evaluate(b *model.BoardState) int {
	score := 0
	for rank := 0; rank < 8; rank++ {
		for file := 0; file < 8; file++ {
			piece := b.PieceAt(model.Pos(file, rank))
			if piece.IsNone() {
				continue
			}
			v := piece.Type.Value() + positional(piece, file, rank)
			if piece.Color == b.ActiveColor {
				score += v
			} else {
				score -= v
			}
		}
	}
	return score
}

func positional(p model.Piece, file, rank int) int {
	relRank := rank
	if p.Color == model.Black {
		relRank = 7 - rank
	}
	// 0 on the edge, 3 on the four central squares.
	center := 3 - max(distance(file), distance(rank))

	switch p.Type {
	case model.Pawn:
		return 10*(relRank-1) + 5*center
	case model.Knight:
		return 10 * center
	case model.Bishop:
		return 5 * center
	case model.Rook:
		if relRank == 6 {
			return 20
		}
		return 0
	case model.Queen:
		return 2 * center
	case model.King:
		return -10 * relRank
	}
	return 0
}

// distance of a file or rank from the middle of the board, 0..3.
func distance(x int) int {
	if x < 4 {
		return 3 - x
	}
	return x - 4
}
