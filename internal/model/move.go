package model

import (
	"errors"
	"fmt"
	"strings"
)

var ErrIllegalMove = errors.New("illegal move")

type MoveKind uint8

const (
	NoMove MoveKind = iota
	Standard
	Castle
	Promotion
	EnPassant
)

func (k MoveKind) String() string {
	switch k {
	case Standard:
		return "standard"
	case Castle:
		return "castle"
	case Promotion:
		return "promotion"
	case EnPassant:
		return "enPassant"
	}
	return "none"
}

func (k MoveKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *MoveKind) UnmarshalText(text []byte) error {
	for kind := NoMove; kind <= EnPassant; kind++ {
		if kind.String() == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("invalid move kind %q", text)
}

// Move is a tagged union over the four move variants. Which fields are
// meaningful depends on Kind:
//
//	Standard:  From, To, Piece
//	Castle:    Kingside, Color (From/To hold the king's squares)
//	Promotion: From, To, PromoteTo
//	EnPassant: From, To, CaptureSquare
//
// Captured is set for every variant that removes an enemy piece. Moves are
// plain values and compare with ==.
type Move struct {
	Kind          MoveKind  `json:"kind"`
	From          Position  `json:"from"`
	To            Position  `json:"to"`
	Piece         Piece     `json:"piece"`
	PromoteTo     PieceType `json:"promoteTo,omitempty"`
	CaptureSquare Position  `json:"captureSquare"`
	Kingside      bool      `json:"kingside,omitempty"`
	Color         Color     `json:"color"`
	Captured      Piece     `json:"captured"`
}

// NewStandardMove relocates piece from one square to another, capturing
// whatever stands on the destination.
func NewStandardMove(from, to Position, piece, captured Piece) Move {
	return Move{
		Kind:     Standard,
		From:     from,
		To:       to,
		Piece:    piece,
		Color:    piece.Color,
		Captured: captured,
	}
}

func NewCastleMove(kingside bool, color Color) Move {
	row := color.backRow()
	to := Position{Row: row, Col: queensideKingCol}
	if kingside {
		to.Col = kingsideKingCol
	}
	return Move{
		Kind:     Castle,
		From:     Position{Row: row, Col: kingHomeCol},
		To:       to,
		Piece:    NewPiece(King, color),
		Kingside: kingside,
		Color:    color,
	}
}

// NewPromotionMove panics when asked to promote to a king or to nothing.
func NewPromotionMove(from, to Position, color Color, promoteTo PieceType, captured Piece) Move {
	if promoteTo == King || promoteTo == Pawn || promoteTo == None {
		panic(fmt.Sprintf("model: cannot promote to %s", promoteTo))
	}
	return Move{
		Kind:      Promotion,
		From:      from,
		To:        to,
		Piece:     NewPiece(Pawn, color),
		PromoteTo: promoteTo,
		Color:     color,
		Captured:  captured,
	}
}

// NewEnPassantMove captures the pawn on captureSquare, which is beside the
// mover and not on the destination.
func NewEnPassantMove(from, to, captureSquare Position, color Color) Move {
	return Move{
		Kind:          EnPassant,
		From:          from,
		To:            to,
		Piece:         NewPiece(Pawn, color),
		CaptureSquare: captureSquare,
		Color:         color,
		Captured:      NewPiece(Pawn, color.Opposite()),
	}
}

func (m Move) IsNone() bool {
	return m.Kind == NoMove
}

func (m Move) IsCapture() bool {
	return !m.Captured.IsNone()
}

// String renders the move in coordinate notation (e2e4, e7e8q, e1g1).
func (m Move) String() string {
	if m.Kind == NoMove {
		return "0000"
	}
	s := m.From.String() + m.To.String()
	if m.Kind == Promotion {
		s += strings.ToLower(m.PromoteTo.Notation())
	}
	return s
}

// SAN renders a simplified standard notation without disambiguation or
// check suffixes, matching what the game history shows.
func (m Move) SAN() string {
	switch m.Kind {
	case NoMove:
		return ""
	case Castle:
		if m.Kingside {
			return "O-O"
		}
		return "O-O-O"
	}
	var sb strings.Builder
	sb.WriteString(m.Piece.Type.Notation())
	if m.IsCapture() {
		if m.Piece.Type == Pawn {
			sb.WriteByte(byte('a' + m.From.File()))
		}
		sb.WriteByte('x')
	}
	sb.WriteString(m.To.String())
	if m.Kind == Promotion {
		sb.WriteByte('=')
		sb.WriteString(m.PromoteTo.Notation())
	}
	return sb.String()
}

// FindMove returns the move in moves whose coordinate notation equals s.
func FindMove(moves []Move, s string) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, mv := range moves {
		if mv.String() == s {
			return mv, nil
		}
	}
	return Move{}, fmt.Errorf("%w: %s", ErrIllegalMove, s)
}
