package model

import "fmt"

// IsSquareAttacked reports whether any piece of color attacker attacks sq.
// The border makes every probe in-bounds; IsValid rejects border squares
// before they are dereferenced.
func IsSquareAttacked(b *BoardState, sq Position, attacker Color) bool {
	// A pawn attacks sq from one row behind it, as seen from the pawn.
	pawnRow := sq.Row - attacker.forward()
	for _, col := range [2]int{sq.Col - 1, sq.Col + 1} {
		p := Position{Row: pawnRow, Col: col}
		if p.IsValid() && b.PieceAt(p) == NewPiece(Pawn, attacker) {
			return true
		}
	}

	knight := NewPiece(Knight, attacker)
	for _, dir := range knightDirs {
		p := sq.Add(dir)
		if p.IsValid() && b.PieceAt(p) == knight {
			return true
		}
	}

	king := NewPiece(King, attacker)
	for _, dir := range kingDirs {
		p := sq.Add(dir)
		if p.IsValid() && b.PieceAt(p) == king {
			return true
		}
	}

	if rayAttacked(b, sq, attacker, rookDirs, Rook) {
		return true
	}
	return rayAttacked(b, sq, attacker, bishopDirs, Bishop)
}

// rayAttacked walks each direction until the edge or the first piece, which
// attacks only if it is an enemy slider or queen. At most one attacker per ray.
func rayAttacked(b *BoardState, sq Position, attacker Color, dirs []Offset, slider PieceType) bool {
	for _, dir := range dirs {
		for p := sq.Add(dir); p.IsValid(); p = p.Add(dir) {
			piece := b.PieceAt(p)
			if piece.IsNone() {
				continue
			}
			if piece.Color == attacker && (piece.Type == slider || piece.Type == Queen) {
				return true
			}
			break
		}
	}
	return false
}

// InCheck reports whether c's king is attacked. It panics when c has no
// king, which only happens for boards that skipped Validate.
func (b *BoardState) InCheck(c Color) bool {
	king, ok := b.FindKing(c)
	if !ok {
		panic(fmt.Errorf("%w: %s", ErrKingNotFound, c))
	}
	return IsSquareAttacked(b, king, c.Opposite())
}
