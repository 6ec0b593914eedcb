package model

import "fmt"

// Status classifies a position for the side to move.
type Status uint8

const (
	Ongoing Status = iota
	Checkmate
	Stalemate
)

func (s Status) String() string {
	switch s {
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	}
	return "ongoing"
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome is the result of looking at a position: either the legal moves of
// the side to move, or the terminal state the game has reached.
type Outcome struct {
	Status Status `json:"status"`
	Moves  []Move `json:"moves"`
	Winner Color  `json:"winner"` // only meaningful for Checkmate
}

// Analyze generates the legal moves for the side to move and classifies the
// position as ongoing, checkmate or stalemate.
func Analyze(b *BoardState) Outcome {
	moves := GenerateMoves(b, b.ActiveColor)
	if len(moves) > 0 {
		return Outcome{Status: Ongoing, Moves: moves}
	}
	if b.InCheck(b.ActiveColor) {
		return Outcome{Status: Checkmate, Winner: b.ActiveColor.Opposite()}
	}
	return Outcome{Status: Stalemate}
}

// LegalMoves is GenerateMoves for the side to move.
func (b *BoardState) LegalMoves() []Move {
	return GenerateMoves(b, b.ActiveColor)
}

// GenerateMoves returns every legal move for side. Candidates come from the
// per-piece generators and are kept only if side's king is not attacked once
// the move is played on a copy of the board.
//
// It panics if side has no king: such a board never passed Validate.
func GenerateMoves(b *BoardState, side Color) []Move {
	king, ok := b.FindKing(side)
	if !ok {
		panic(fmt.Errorf("%w: %s", ErrKingNotFound, side))
	}

	pseudo := GeneratePseudoLegalMoves(b, side)
	legal := pseudo[:0]
	for _, mv := range pseudo {
		next := b.Apply(mv)
		kingAfter := king
		if mv.Piece.Type == King {
			kingAfter = mv.To
		}
		if !IsSquareAttacked(&next, kingAfter, side.Opposite()) {
			legal = append(legal, mv)
		}
	}
	return legal
}

// GeneratePseudoLegalMoves returns the moves that follow the movement rules of
// side's pieces without regard to the safety of its own king. Squares are
// visited eighth rank first, a-file first, so the order is deterministic.
func GeneratePseudoLegalMoves(b *BoardState, side Color) []Move {
	moves := make([]Move, 0, 48)
	for row := firstRow; row <= lastRow; row++ {
		for col := firstRow; col <= lastRow; col++ {
			piece := b.Squares[row][col].Piece
			if piece.IsNone() || piece.Color != side {
				continue
			}
			from := Position{Row: row, Col: col}
			switch piece.Type {
			case Pawn:
				moves = appendPawnMoves(b, moves, from, side)
			case Knight:
				moves = appendStepMoves(b, moves, from, piece, knightDirs)
			case Bishop:
				moves = appendSlidingMoves(b, moves, from, piece, bishopDirs)
			case Rook:
				moves = appendSlidingMoves(b, moves, from, piece, rookDirs)
			case Queen:
				moves = appendSlidingMoves(b, moves, from, piece, queenDirs)
			case King:
				moves = appendStepMoves(b, moves, from, piece, kingDirs)
				moves = appendCastleMoves(b, moves, side)
			}
		}
	}
	return moves
}

func appendPawnMoves(b *BoardState, moves []Move, from Position, side Color) []Move {
	dir := side.forward()

	one := Position{Row: from.Row + dir, Col: from.Col}
	if one.IsValid() && b.IsEmpty(one) {
		moves = appendPawnAdvance(moves, from, one, side, NoPiece)
		two := Position{Row: from.Row + 2*dir, Col: from.Col}
		if from.Row == side.pawnRow() && b.IsEmpty(two) {
			moves = append(moves, NewStandardMove(from, two, NewPiece(Pawn, side), NoPiece))
		}
	}

	for _, dc := range [2]int{-1, 1} {
		to := Position{Row: from.Row + dir, Col: from.Col + dc}
		if !to.IsValid() {
			continue
		}
		target := b.PieceAt(to)
		switch {
		case !target.IsNone():
			if target.Color != side {
				moves = appendPawnAdvance(moves, from, to, side, target)
			}
		case side == b.ActiveColor && to == b.EnPassant:
			captured := Position{Row: from.Row, Col: to.Col}
			if b.PieceAt(captured) == NewPiece(Pawn, side.Opposite()) {
				moves = append(moves, NewEnPassantMove(from, to, captured, side))
			}
		}
	}
	return moves
}

// appendPawnAdvance adds a pawn move to to, expanded into every promotion
// when to is on the far rank.
func appendPawnAdvance(moves []Move, from, to Position, side Color, captured Piece) []Move {
	if to.Row != side.promotionRow() {
		return append(moves, NewStandardMove(from, to, NewPiece(Pawn, side), captured))
	}
	for _, t := range PromotionTypes {
		moves = append(moves, NewPromotionMove(from, to, side, t, captured))
	}
	return moves
}

// appendStepMoves handles the pieces that jump by a fixed offset.
func appendStepMoves(b *BoardState, moves []Move, from Position, piece Piece, dirs []Offset) []Move {
	for _, dir := range dirs {
		to := from.Add(dir)
		if !to.IsValid() {
			continue
		}
		target := b.PieceAt(to)
		if target.IsNone() || target.Color != piece.Color {
			moves = append(moves, NewStandardMove(from, to, piece, target))
		}
	}
	return moves
}

// appendSlidingMoves walks each ray until the edge or a piece; an enemy piece
// ends the ray with one capture, a friendly one with nothing.
func appendSlidingMoves(b *BoardState, moves []Move, from Position, piece Piece, dirs []Offset) []Move {
	for _, dir := range dirs {
		for to := from.Add(dir); to.IsValid(); to = to.Add(dir) {
			target := b.PieceAt(to)
			if target.IsNone() {
				moves = append(moves, NewStandardMove(from, to, piece, NoPiece))
				continue
			}
			if target.Color != piece.Color {
				moves = append(moves, NewStandardMove(from, to, piece, target))
			}
			break
		}
	}
	return moves
}

// appendCastleMoves adds the castles side may play: the right is held, king
// and rook are home, the squares between them are empty and the king neither
// starts in, crosses nor lands on an attacked square. On the queenside the
// square next to the rook must be empty but may be attacked.
func appendCastleMoves(b *BoardState, moves []Move, side Color) []Move {
	if !b.CastleRights.Can(side, true) && !b.CastleRights.Can(side, false) {
		return moves
	}
	row := side.backRow()
	home := Position{Row: row, Col: kingHomeCol}
	if b.PieceAt(home) != NewPiece(King, side) {
		return moves
	}
	enemy := side.Opposite()
	if IsSquareAttacked(b, home, enemy) {
		return moves
	}

	rook := NewPiece(Rook, side)
	at := func(col int) Position { return Position{Row: row, Col: col} }
	safe := func(cols ...int) bool {
		for _, col := range cols {
			if !b.IsEmpty(at(col)) || IsSquareAttacked(b, at(col), enemy) {
				return false
			}
		}
		return true
	}

	if b.CastleRights.Can(side, true) && b.PieceAt(at(kingRookCol)) == rook &&
		safe(kingsideRookCol, kingsideKingCol) {
		moves = append(moves, NewCastleMove(true, side))
	}
	if b.CastleRights.Can(side, false) && b.PieceAt(at(queenRookCol)) == rook &&
		b.IsEmpty(at(queenRookCol+1)) && safe(queensideRookCol, queensideKingCol) {
		moves = append(moves, NewCastleMove(false, side))
	}
	return moves
}
