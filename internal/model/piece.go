package model

import (
	"errors"
	"fmt"
)

var ErrInvalidColor = errors.New("invalid color")

type Color uint8

const (
	White Color = iota
	Black
)

// Opposite returns the other side.
func (c Color) Opposite() Color {
	return c ^ 1
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	color, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = color
	return nil
}

// ParseColor accepts "white"/"black" as well as the FEN letters "w"/"b".
func ParseColor(s string) (Color, error) {
	switch s {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	}
	return White, fmt.Errorf("%w %q", ErrInvalidColor, s)
}

// forward is the row delta of a pawn push. Row 2 is the eighth rank, so white
// pawns travel towards smaller rows.
func (c Color) forward() int {
	if c == White {
		return -1
	}
	return 1
}

// backRow is the row holding the color's king and rooks at the start.
func (c Color) backRow() int {
	if c == White {
		return 9
	}
	return 2
}

// pawnRow is the row a color's pawns start on.
func (c Color) pawnRow() int {
	if c == White {
		return 8
	}
	return 3
}

// promotionRow is the far rank for the color's pawns.
func (c Color) promotionRow() int {
	return c.Opposite().backRow()
}

type PieceType uint8

const (
	None PieceType = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

// PromotionTypes lists every piece a pawn may become, strongest first.
var PromotionTypes = [4]PieceType{Queen, Rook, Bishop, Knight}

func (p PieceType) String() string {
	switch p {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	}
	return "none"
}

func (p PieceType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PieceType) UnmarshalText(text []byte) error {
	for t := Pawn; t <= King; t++ {
		if t.String() == string(text) {
			*p = t
			return nil
		}
	}
	if len(text) == 0 || string(text) == "none" {
		*p = None
		return nil
	}
	return fmt.Errorf("invalid piece type %q", text)
}

// Notation is the uppercase SAN letter of the piece type; pawns have none.
func (p PieceType) Notation() string {
	switch p {
	case King:
		return "K"
	case Queen:
		return "Q"
	case Rook:
		return "R"
	case Bishop:
		return "B"
	case Knight:
		return "N"
	}
	return ""
}

// Value is the material worth of the piece type in centipawns.
func (p PieceType) Value() int {
	return pieceValues[p]
}

var pieceValues = [...]int{
	None:   0,
	Pawn:   100,
	Knight: 320,
	Bishop: 330,
	Rook:   500,
	Queen:  900,
	King:   20000,
}

// Piece is an immutable value; the zero Piece means "no piece".
type Piece struct {
	Type  PieceType `json:"type"`
	Color Color     `json:"color"`
}

// NoPiece is the empty piece.
var NoPiece = Piece{}

func NewPiece(t PieceType, c Color) Piece {
	return Piece{Type: t, Color: c}
}

func (p Piece) IsNone() bool {
	return p.Type == None
}

// FEN returns the FEN letter of the piece: uppercase for white.
func (p Piece) FEN() byte {
	letters := " pnbrqk"
	ch := letters[p.Type]
	if p.Color == White && p.Type != None {
		ch -= 'a' - 'A'
	}
	return ch
}

func (p Piece) String() string {
	if p.IsNone() {
		return "none"
	}
	return p.Color.String() + " " + p.Type.String()
}

func pieceFromFEN(ch byte) (Piece, bool) {
	color := White
	if ch >= 'a' && ch <= 'z' {
		color = Black
		ch -= 'a' - 'A'
	}
	switch ch {
	case 'P':
		return NewPiece(Pawn, color), true
	case 'N':
		return NewPiece(Knight, color), true
	case 'B':
		return NewPiece(Bishop, color), true
	case 'R':
		return NewPiece(Rook, color), true
	case 'Q':
		return NewPiece(Queen, color), true
	case 'K':
		return NewPiece(King, color), true
	}
	return NoPiece, false
}
