package model

import (
	"errors"
	"fmt"
)

var (
	ErrKingNotFound    = errors.New("king not found")
	ErrInvalidPosition = errors.New("invalid position")
)

// Back rank columns of the castling pieces.
const (
	queenRookCol     = 2
	queensideKingCol = 4
	queensideRookCol = 5
	kingHomeCol      = 6
	kingsideRookCol  = 7
	kingsideKingCol  = 8
	kingRookCol      = 9
)

// Square is a cell of the grid: its fixed checkerboard shade plus the piece
// standing on it, if any.
type Square struct {
	Shade Color `json:"shade"`
	Piece Piece `json:"piece"`
}

type CastleRights struct {
	WhiteKingside  bool `json:"whiteKingside"`
	WhiteQueenside bool `json:"whiteQueenside"`
	BlackKingside  bool `json:"blackKingside"`
	BlackQueenside bool `json:"blackQueenside"`
}

func (cr CastleRights) Can(c Color, kingside bool) bool {
	switch {
	case c == White && kingside:
		return cr.WhiteKingside
	case c == White:
		return cr.WhiteQueenside
	case kingside:
		return cr.BlackKingside
	}
	return cr.BlackQueenside
}

func (cr *CastleRights) clearColor(c Color) {
	if c == White {
		cr.WhiteKingside = false
		cr.WhiteQueenside = false
		return
	}
	cr.BlackKingside = false
	cr.BlackQueenside = false
}

// touch drops every right that depends on the piece originally standing on p.
// Rights are never granted back.
func (cr *CastleRights) touch(p Position) {
	switch p {
	case Position{Row: 9, Col: kingRookCol}:
		cr.WhiteKingside = false
	case Position{Row: 9, Col: queenRookCol}:
		cr.WhiteQueenside = false
	case Position{Row: 9, Col: kingHomeCol}:
		cr.clearColor(White)
	case Position{Row: 2, Col: kingRookCol}:
		cr.BlackKingside = false
	case Position{Row: 2, Col: queenRookCol}:
		cr.BlackQueenside = false
	case Position{Row: 2, Col: kingHomeCol}:
		cr.clearColor(Black)
	}
}

// String returns the FEN castling field.
func (cr CastleRights) String() string {
	s := ""
	if cr.WhiteKingside {
		s += "K"
	}
	if cr.WhiteQueenside {
		s += "Q"
	}
	if cr.BlackKingside {
		s += "k"
	}
	if cr.BlackQueenside {
		s += "q"
	}
	if s == "" {
		return "-"
	}
	return s
}

// BoardState is a complete position. It is a small fixed-size value: the
// search copies it per branch instead of undoing moves.
type BoardState struct {
	Squares        [gridSize][gridSize]Square
	ActiveColor    Color
	CastleRights   CastleRights
	EnPassant      Position // square passed over by the last double push, or NoPosition
	LastMove       Move
	HalfmoveClock  int
	FullmoveNumber int
}

// EmptyBoard returns a board without pieces, white to move.
func EmptyBoard() BoardState {
	b := BoardState{FullmoveNumber: 1}
	for row := firstRow; row <= lastRow; row++ {
		for col := firstRow; col <= lastRow; col++ {
			shade := Black
			if (row+col)%2 == 0 {
				shade = White
			}
			b.Squares[row][col].Shade = shade
		}
	}
	return b
}

// NewBoard returns the standard starting position.
func NewBoard() BoardState {
	b := EmptyBoard()
	backRank := []PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}
	for i, t := range backRank {
		col := firstRow + i
		b.set(Position{Row: Black.backRow(), Col: col}, NewPiece(t, Black))
		b.set(Position{Row: Black.pawnRow(), Col: col}, NewPiece(Pawn, Black))
		b.set(Position{Row: White.pawnRow(), Col: col}, NewPiece(Pawn, White))
		b.set(Position{Row: White.backRow(), Col: col}, NewPiece(t, White))
	}
	b.CastleRights = CastleRights{true, true, true, true}
	return b
}

func (b *BoardState) PieceAt(p Position) Piece {
	return b.Squares[p.Row][p.Col].Piece
}

func (b *BoardState) IsEmpty(p Position) bool {
	return b.Squares[p.Row][p.Col].Piece.IsNone()
}

func (b *BoardState) set(p Position, piece Piece) {
	b.Squares[p.Row][p.Col].Piece = piece
}

// Put places piece on p; NoPiece clears the square. It is meant for position
// setup, not for playing moves.
func (b *BoardState) Put(p Position, piece Piece) {
	if !p.IsValid() {
		panic(fmt.Sprintf("model: put on invalid square %v", p))
	}
	b.set(p, piece)
}

// FindKing returns the square of c's king.
func (b *BoardState) FindKing(c Color) (Position, bool) {
	king := NewPiece(King, c)
	for row := firstRow; row <= lastRow; row++ {
		for col := firstRow; col <= lastRow; col++ {
			if b.Squares[row][col].Piece == king {
				return Position{Row: row, Col: col}, true
			}
		}
	}
	return NoPosition, false
}

// Apply returns the position after mv. The move is trusted to be at least
// pseudo-legal; legality is the move generator's concern.
func (b BoardState) Apply(mv Move) BoardState {
	mover := b.ActiveColor
	resetClock := mv.IsCapture()
	b.EnPassant = NoPosition
	b.LastMove = mv

	switch mv.Kind {
	case Standard:
		b.set(mv.From, NoPiece)
		b.set(mv.To, mv.Piece)
		switch mv.Piece.Type {
		case Pawn:
			resetClock = true
			if abs(mv.To.Row-mv.From.Row) == 2 {
				b.EnPassant = Position{Row: (mv.From.Row + mv.To.Row) / 2, Col: mv.From.Col}
			}
		case King:
			b.CastleRights.clearColor(mv.Piece.Color)
		}
	case Castle:
		row := mv.Color.backRow()
		kingTo, rookFrom, rookTo := queensideKingCol, queenRookCol, queensideRookCol
		if mv.Kingside {
			kingTo, rookFrom, rookTo = kingsideKingCol, kingRookCol, kingsideRookCol
		}
		b.set(Position{Row: row, Col: kingHomeCol}, NoPiece)
		b.set(Position{Row: row, Col: rookFrom}, NoPiece)
		b.set(Position{Row: row, Col: kingTo}, NewPiece(King, mv.Color))
		b.set(Position{Row: row, Col: rookTo}, NewPiece(Rook, mv.Color))
		b.CastleRights.clearColor(mv.Color)
	case Promotion:
		resetClock = true
		b.set(mv.From, NoPiece)
		b.set(mv.To, NewPiece(mv.PromoteTo, mv.Color))
	case EnPassant:
		resetClock = true
		b.set(mv.From, NoPiece)
		b.set(mv.To, NewPiece(Pawn, mv.Color))
		b.set(mv.CaptureSquare, NoPiece)
	}

	if mv.Kind != Castle {
		b.CastleRights.touch(mv.From)
		b.CastleRights.touch(mv.To)
	}

	if resetClock {
		b.HalfmoveClock = 0
	} else {
		b.HalfmoveClock++
	}
	if mover == Black {
		b.FullmoveNumber++
	}
	b.ActiveColor = mover.Opposite()
	return b
}

// Validate checks the invariants the move generator relies on: one king per
// side, no pawns on the outer ranks and the side not to move not in check.
func (b *BoardState) Validate() error {
	for _, c := range []Color{White, Black} {
		kings := 0
		for row := firstRow; row <= lastRow; row++ {
			for col := firstRow; col <= lastRow; col++ {
				piece := b.Squares[row][col].Piece
				if piece == NewPiece(King, c) {
					kings++
				}
				if piece.Type == Pawn && (row == firstRow || row == lastRow) {
					return fmt.Errorf("%w: pawn on %v", ErrInvalidPosition, Position{Row: row, Col: col})
				}
			}
		}
		if kings != 1 {
			return fmt.Errorf("%w: %s has %d kings", ErrInvalidPosition, c, kings)
		}
	}
	if b.InCheck(b.ActiveColor.Opposite()) {
		return fmt.Errorf("%w: side not to move is in check", ErrInvalidPosition)
	}
	if b.EnPassant != NoPosition && !b.EnPassant.IsValid() {
		return fmt.Errorf("%w: en passant square off the board", ErrInvalidPosition)
	}
	return nil
}

// Grid returns the playable 8x8 area, eighth rank first, for clients.
func (b *BoardState) Grid() [][]*Piece {
	grid := make([][]*Piece, 8)
	for i := range grid {
		grid[i] = make([]*Piece, 8)
		for j := range grid[i] {
			piece := b.Squares[firstRow+i][firstRow+j].Piece
			if !piece.IsNone() {
				grid[i][j] = &piece
			}
		}
	}
	return grid
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
