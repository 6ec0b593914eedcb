package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the FEN string of the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var ErrInvalidFEN = errors.New("invalid FEN")

// ParseFEN decodes a FEN string. The clock fields are optional and may be
// "-". The resulting board is validated, so it is safe to hand to the move
// generator.
func ParseFEN(fen string) (BoardState, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 || len(parts) > 6 {
		return BoardState{}, fmt.Errorf("%w: need 4 to 6 fields, got %d", ErrInvalidFEN, len(parts))
	}

	b := EmptyBoard()
	if err := parsePlacement(&b, parts[0]); err != nil {
		return BoardState{}, err
	}

	switch parts[1] {
	case "w":
		b.ActiveColor = White
	case "b":
		b.ActiveColor = Black
	default:
		return BoardState{}, fmt.Errorf("%w: side to move %q", ErrInvalidFEN, parts[1])
	}

	if parts[2] != "-" {
		for _, c := range parts[2] {
			switch c {
			case 'K':
				b.CastleRights.WhiteKingside = true
			case 'Q':
				b.CastleRights.WhiteQueenside = true
			case 'k':
				b.CastleRights.BlackKingside = true
			case 'q':
				b.CastleRights.BlackQueenside = true
			default:
				return BoardState{}, fmt.Errorf("%w: castling character %q", ErrInvalidFEN, c)
			}
		}
	}

	if parts[3] != "-" {
		sq, err := ParsePosition(parts[3])
		if err != nil {
			return BoardState{}, fmt.Errorf("%w: en passant square: %w", ErrInvalidFEN, err)
		}
		// The passed-over square is on the sixth rank for white to move and
		// the third for black, with the pawn that passed it one row further.
		mover := b.ActiveColor.Opposite()
		if want := mover.pawnRow() + mover.forward(); sq.Row != want {
			return BoardState{}, fmt.Errorf("%w: en passant square %s", ErrInvalidFEN, sq)
		}
		pawn := Position{Row: sq.Row + mover.forward(), Col: sq.Col}
		if b.PieceAt(pawn) != NewPiece(Pawn, mover) || !b.IsEmpty(sq) {
			return BoardState{}, fmt.Errorf("%w: en passant square %s without a double-stepped pawn", ErrInvalidFEN, sq)
		}
		b.EnPassant = sq
	}

	if len(parts) > 4 && parts[4] != "-" {
		n, err := strconv.Atoi(parts[4])
		if err != nil || n < 0 {
			return BoardState{}, fmt.Errorf("%w: halfmove clock %q", ErrInvalidFEN, parts[4])
		}
		b.HalfmoveClock = n
	}
	if len(parts) > 5 && parts[5] != "-" {
		n, err := strconv.Atoi(parts[5])
		if err != nil || n < 1 {
			return BoardState{}, fmt.Errorf("%w: fullmove number %q", ErrInvalidFEN, parts[5])
		}
		b.FullmoveNumber = n
	}

	if err := b.Validate(); err != nil {
		return BoardState{}, fmt.Errorf("%w: %w", ErrInvalidFEN, err)
	}
	return b, nil
}

func parsePlacement(b *BoardState, placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("%w: need 8 ranks, got %d", ErrInvalidFEN, len(ranks))
	}

	for i, rankStr := range ranks {
		row := firstRow + i
		file := 0
		for j := 0; j < len(rankStr); j++ {
			c := rankStr[j]
			if file > 7 {
				return fmt.Errorf("%w: too many squares in rank %d", ErrInvalidFEN, 8-i)
			}
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			piece, ok := pieceFromFEN(c)
			if !ok {
				return fmt.Errorf("%w: piece character %q", ErrInvalidFEN, c)
			}
			b.set(Position{Row: row, Col: firstRow + file}, piece)
			file++
		}
		if file != 8 {
			return fmt.Errorf("%w: rank %d has %d squares", ErrInvalidFEN, 8-i, file)
		}
	}
	return nil
}

// FEN encodes the position.
func (b *BoardState) FEN() string {
	var sb strings.Builder

	for row := firstRow; row <= lastRow; row++ {
		empty := 0
		for col := firstRow; col <= lastRow; col++ {
			piece := b.Squares[row][col].Piece
			if piece.IsNone() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteByte(piece.FEN())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if row < lastRow {
			sb.WriteByte('/')
		}
	}

	sb.WriteByte(' ')
	if b.ActiveColor == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}
	sb.WriteByte(' ')
	sb.WriteString(b.CastleRights.String())
	sb.WriteByte(' ')
	sb.WriteString(b.EnPassant.String())
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(b.HalfmoveClock))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(b.FullmoveNumber))
	return sb.String()
}
