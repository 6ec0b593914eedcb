package model

import (
	"errors"
	"testing"
)

func mustParseFEN(t *testing.T, fen string) BoardState {
	t.Helper()
	b, err := ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return b
}

func mustFindMove(t *testing.T, b *BoardState, s string) Move {
	t.Helper()
	mv, err := FindMove(b.LegalMoves(), s)
	if err != nil {
		t.Fatalf("%s not legal in %s: %v", s, b.FEN(), err)
	}
	return mv
}

func hasMove(moves []Move, s string) bool {
	_, err := FindMove(moves, s)
	return err == nil
}

func TestStartPositionMoves(t *testing.T) {
	b := NewBoard()
	moves := b.LegalMoves()
	if len(moves) != 20 {
		t.Fatalf("got %d moves, want 20", len(moves))
	}
	// Eighth rank first means black's side of the board is scanned first,
	// so white's pawns come before its knights.
	if moves[0].String() != "a2a3" {
		t.Errorf("first move = %s, want a2a3", moves[0])
	}
}

func TestGenerationIsDeterministic(t *testing.T) {
	b := mustParseFEN(t, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	first := b.LegalMoves()
	for i := 0; i < 3; i++ {
		again := b.LegalMoves()
		if len(again) != len(first) {
			t.Fatalf("run %d: %d moves, want %d", i, len(again), len(first))
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d: move %d = %s, want %s", i, j, again[j], first[j])
			}
		}
	}
}

func TestLegalMovesNeverLeaveKingInCheck(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
		"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	}
	for _, fen := range fens {
		b := mustParseFEN(t, fen)
		for _, mv := range b.LegalMoves() {
			next := b.Apply(mv)
			if next.InCheck(b.ActiveColor) {
				t.Errorf("%s: %s leaves the king in check", fen, mv)
			}
			for _, reply := range next.LegalMoves() {
				after := next.Apply(reply)
				if after.InCheck(next.ActiveColor) {
					t.Errorf("%s %s: reply %s leaves the king in check", fen, mv, reply)
				}
			}
		}
	}
}

func TestPinnedPieceCannotMove(t *testing.T) {
	// The e2 knight is pinned against the king by the e8 rook.
	b := mustParseFEN(t, "4r1k1/8/8/8/8/8/4N3/4K3 w - - 0 1")
	for _, mv := range b.LegalMoves() {
		if mv.Piece.Type == Knight {
			t.Errorf("pinned knight may not move, got %s", mv)
		}
	}
}

func TestPromotionEmitsEveryPiece(t *testing.T) {
	b := mustParseFEN(t, "8/4P3/8/8/8/8/k7/4K3 w - - 0 1")
	var got []PieceType
	for _, mv := range b.LegalMoves() {
		if mv.Kind == Promotion {
			got = append(got, mv.PromoteTo)
		}
	}
	if len(got) != 4 {
		t.Fatalf("got %d promotions, want 4", len(got))
	}
	for i, want := range PromotionTypes {
		if got[i] != want {
			t.Errorf("promotion %d = %s, want %s", i, got[i], want)
		}
	}

	next := b.Apply(mustFindMove(t, &b, "e7e8n"))
	if p := next.PieceAt(Pos(4, 7)); p != NewPiece(Knight, White) {
		t.Errorf("e8 = %s, want white knight", p)
	}
	if !next.IsEmpty(Pos(4, 6)) {
		t.Error("e7 should be empty after promoting")
	}
}

func TestPromotionCaptureClearsCastleRight(t *testing.T) {
	b := mustParseFEN(t, "r3k3/1P6/8/8/8/8/8/4K3 w q - 0 1")
	next := b.Apply(mustFindMove(t, &b, "b7a8q"))
	if next.CastleRights.BlackQueenside {
		t.Error("capturing the a8 rook must clear black's queenside right")
	}
	if next.PieceAt(Pos(0, 7)) != NewPiece(Queen, White) {
		t.Errorf("a8 = %s, want white queen", next.PieceAt(Pos(0, 7)))
	}
}

func TestEnPassantWindow(t *testing.T) {
	b := mustParseFEN(t, "4k3/3p4/8/4P3/8/8/8/4K3 b - - 0 1")
	b = b.Apply(mustFindMove(t, &b, "d7d5"))
	if b.EnPassant != Pos(3, 5) {
		t.Fatalf("en passant square = %s, want d6", b.EnPassant)
	}

	ep := mustFindMove(t, &b, "e5d6")
	if ep.Kind != EnPassant {
		t.Fatalf("e5d6 kind = %s, want enPassant", ep.Kind)
	}
	if ep.CaptureSquare != Pos(3, 4) {
		t.Errorf("capture square = %s, want d5", ep.CaptureSquare)
	}
	after := b.Apply(ep)
	if !after.IsEmpty(Pos(3, 4)) {
		t.Error("captured pawn still on d5")
	}
	if after.PieceAt(Pos(3, 5)) != NewPiece(Pawn, White) {
		t.Error("capturing pawn not on d6")
	}

	// A quiet pair of king moves closes the window.
	b = b.Apply(mustFindMove(t, &b, "e1d1"))
	b = b.Apply(mustFindMove(t, &b, "e8f8"))
	if b.EnPassant != NoPosition {
		t.Errorf("en passant square = %s after quiet moves", b.EnPassant)
	}
	if hasMove(b.LegalMoves(), "e5d6") {
		t.Error("en passant must only be available right after the double push")
	}
}

func TestEnPassantRevealingCheckIsIllegal(t *testing.T) {
	// Capturing en passant would clear the fifth rank between king and rook.
	b := mustParseFEN(t, "8/8/8/K2pP2r/8/8/8/7k w - d6 0 1")
	if hasMove(b.LegalMoves(), "e5d6") {
		t.Error("en passant exposing the king must be rejected")
	}
}

func TestCastling(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		want []string
		not  []string
	}{
		{
			name: "both sides",
			fen:  "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1",
			want: []string{"e1g1", "e1c1"},
		},
		{
			name: "no rights",
			fen:  "r3k2r/8/8/8/8/8/8/R3K2R w - - 0 1",
			not:  []string{"e1g1", "e1c1"},
		},
		{
			name: "in check",
			fen:  "r3k2r/8/8/8/8/8/4r3/R3K2R w KQ - 0 1",
			not:  []string{"e1g1", "e1c1"},
		},
		{
			name: "kingside transit attacked",
			fen:  "4k3/8/8/8/8/8/5r2/R3K2R w KQ - 0 1",
			not:  []string{"e1g1"},
		},
		{
			name: "queenside b-file attacked",
			fen:  "1r2k3/8/8/8/8/8/8/R3K3 w Q - 0 1",
			want: []string{"e1c1"},
		},
		{
			name: "queenside b-file occupied",
			fen:  "4k3/8/8/8/8/8/8/RN2K3 w Q - 0 1",
			not:  []string{"e1c1"},
		},
		{
			name: "rook missing",
			fen:  "4k3/8/8/8/8/8/8/4K2R w KQ - 0 1",
			want: []string{"e1g1"},
			not:  []string{"e1c1"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := mustParseFEN(t, tc.fen)
			moves := b.LegalMoves()
			for _, s := range tc.want {
				if !hasMove(moves, s) {
					t.Errorf("%s missing", s)
				}
			}
			for _, s := range tc.not {
				if hasMove(moves, s) {
					t.Errorf("%s should not be legal", s)
				}
			}
		})
	}
}

func TestCastleApply(t *testing.T) {
	b := mustParseFEN(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	b = b.Apply(mustFindMove(t, &b, "e1g1"))
	if b.PieceAt(Pos(6, 0)) != NewPiece(King, White) || b.PieceAt(Pos(5, 0)) != NewPiece(Rook, White) {
		t.Errorf("after O-O: %s", b.FEN())
	}
	if b.CastleRights.WhiteKingside || b.CastleRights.WhiteQueenside {
		t.Error("castling must clear both white rights")
	}

	b = b.Apply(mustFindMove(t, &b, "e8c8"))
	if got, want := b.FEN(), "2kr3r/8/8/8/8/8/8/R4RK1 w - - 2 2"; got != want {
		t.Errorf("FEN = %s, want %s", got, want)
	}
}

func TestRookMoveClearsOneRight(t *testing.T) {
	b := mustParseFEN(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	b = b.Apply(mustFindMove(t, &b, "h1h2"))
	want := CastleRights{WhiteQueenside: true, BlackKingside: true, BlackQueenside: true}
	if b.CastleRights != want {
		t.Errorf("rights = %s, want %s", b.CastleRights, want)
	}
	b = b.Apply(mustFindMove(t, &b, "a8a1"))
	want = CastleRights{BlackKingside: true}
	if b.CastleRights != want {
		t.Errorf("rights = %s, want %s", b.CastleRights, want)
	}
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name   string
		fen    string
		status Status
		winner Color
	}{
		{"back rank mate", "R6k/6pp/8/8/8/8/8/K7 b - - 0 1", Checkmate, White},
		{"fool's mate", "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3", Checkmate, Black},
		{"stalemate", "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", Stalemate, White},
		{"ongoing", StartFEN, Ongoing, White},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := mustParseFEN(t, tc.fen)
			out := Analyze(&b)
			if out.Status != tc.status {
				t.Fatalf("status = %s, want %s", out.Status, tc.status)
			}
			switch tc.status {
			case Checkmate:
				if out.Winner != tc.winner {
					t.Errorf("winner = %s, want %s", out.Winner, tc.winner)
				}
				if !b.InCheck(b.ActiveColor) {
					t.Error("mated side should be in check")
				}
				fallthrough
			case Stalemate:
				if len(out.Moves) != 0 {
					t.Errorf("got %d moves in a terminal position", len(out.Moves))
				}
			case Ongoing:
				if len(out.Moves) == 0 {
					t.Error("ongoing position without moves")
				}
			}
		})
	}
}

func TestMissingKingPanics(t *testing.T) {
	b := EmptyBoard()
	b.Put(Pos(0, 0), NewPiece(King, Black))
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrKingNotFound) {
			t.Fatalf("recovered %v, want ErrKingNotFound", r)
		}
	}()
	GenerateMoves(&b, White)
}

func TestApplyDoesNotMutateReceiver(t *testing.T) {
	b := NewBoard()
	before := b
	_ = b.Apply(mustFindMove(t, &b, "e2e4"))
	if b != before {
		t.Error("Apply changed the original board")
	}
}

func TestIsSquareAttacked(t *testing.T) {
	b := mustParseFEN(t, "4k3/8/8/3p4/8/8/8/R3K2N w - - 0 1")
	tests := []struct {
		sq       string
		attacker Color
		want     bool
	}{
		{"a8", White, true},  // rook up the file
		{"d1", White, true},  // rook along the rank
		{"f1", White, true},  // king
		{"g3", White, true},  // knight
		{"c4", Black, true},  // pawn
		{"e4", Black, true},  // pawn
		{"d4", Black, false}, // square in front of the pawn
		{"h8", White, false},
	}
	for _, tc := range tests {
		sq, err := ParsePosition(tc.sq)
		if err != nil {
			t.Fatal(err)
		}
		if got := IsSquareAttacked(&b, sq, tc.attacker); got != tc.want {
			t.Errorf("IsSquareAttacked(%s, %s) = %v, want %v", tc.sq, tc.attacker, got, tc.want)
		}
	}
}
