package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/EvanSeven007/ReeseBot/internal/model"
)

func TestPerft(t *testing.T) {
	tests := []struct {
		name   string
		fen    string
		counts []uint64 // by depth, starting at 1
	}{
		{
			name:   "start",
			fen:    model.StartFEN,
			counts: []uint64{20, 400, 8902, 197281},
		},
		{
			name:   "kiwipete",
			fen:    "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
			counts: []uint64{48, 2039, 97862},
		},
		{
			name:   "position 3",
			fen:    "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
			counts: []uint64{14, 191, 2812, 43238},
		},
		{
			name:   "position 4",
			fen:    "r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
			counts: []uint64{6, 264, 9467},
		},
		{
			name:   "position 5",
			fen:    "rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
			counts: []uint64{44, 1486, 62379},
		},
		{
			name:   "en passant pin",
			fen:    "8/8/8/K2pP2r/8/8/8/7k w - d6 0 1",
			counts: []uint64{6, 94},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, err := model.ParseFEN(tc.fen)
			if err != nil {
				t.Fatal(err)
			}
			for i, want := range tc.counts {
				depth := i + 1
				if depth >= 4 && testing.Short() {
					break
				}
				if got := Perft(&b, depth); got != want {
					t.Errorf("perft(%d) = %d, want %d", depth, got, want)
				}
			}
		})
	}
}

func TestDivide(t *testing.T) {
	b := model.NewBoard()
	div, err := Divide(context.Background(), &b, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(div) != 20 {
		t.Fatalf("got %d root moves, want 20", len(div))
	}
	var total uint64
	for _, n := range div {
		total += n
	}
	if total != 8902 {
		t.Errorf("total = %d, want 8902", total)
	}
	if div["e2e4"] != 600 {
		t.Errorf("e2e4 = %d, want 600", div["e2e4"])
	}
}

func TestDivideCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := model.NewBoard()
	if _, err := Divide(ctx, &b, 3); err == nil {
		t.Error("expected an error from a cancelled divide")
	}
}

func TestDivideStopsInsideSubtree(t *testing.T) {
	// Every root move of a depth 6 divide runs far longer than the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	b := model.NewBoard()

	start := time.Now()
	_, err := Divide(ctx, &b, 6)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("divide returned %s after its deadline", elapsed-50*time.Millisecond)
	}
}
