package engine

import (
	"context"
	"testing"
	"time"

	"github.com/EvanSeven007/ReeseBot/internal/model"
)

func TestCheckExtendsHorizon(t *testing.T) {
	// Black is mated. At depth 0 the check buys one more ply, so the mate is
	// found instead of a static score.
	b := mustParseFEN(t, "7k/6Q1/6K1/8/8/8/8/8 b - - 0 1")

	s := newSearcher(context.Background(), Evaluate, 0)
	if got, want := s.negamax(&b, -Infinity, Infinity, 0, 1), -(MateValue - 1); got != want {
		t.Errorf("negamax at depth 0 = %d, want %d", got, want)
	}

	s = newSearcher(context.Background(), Evaluate, 0)
	if got := s.quiescence(&b, -Infinity, Infinity, 1); isMateScore(got) {
		t.Errorf("quiescence = %d, expected a static score", got)
	}
}

func TestSearchSeesMateBehindHorizon(t *testing.T) {
	// Rxd7 wins a knight but leaves the back rank to Re1#. The mating check
	// lands on the last ply of a depth 2 search.
	res := search(t, "4r1k1/3n1ppp/8/8/8/8/5PPP/3R2K1 w - - 0 1", Limits{MoveTime: 5 * time.Second, Depth: 2})
	if res.Move.IsNone() {
		t.Fatal("no move found")
	}
	if got := res.Move.String(); got == "d1d7" {
		t.Errorf("best move = %s, which allows Re1#", got)
	}
	if res.Depth != 2 {
		t.Errorf("depth = %d, want 2", res.Depth)
	}
}

func TestSearchNodeLimit(t *testing.T) {
	start := time.Now()
	res := search(t, model.StartFEN, Limits{MoveTime: time.Minute, Depth: MaxDepth, Nodes: 5000})
	if res.Move.IsNone() {
		t.Fatal("no move within the node budget")
	}
	if res.Depth < minDepth || res.Depth >= MaxDepth {
		t.Errorf("depth = %d, want a shallow completed depth", res.Depth)
	}
	if elapsed := time.Since(start); elapsed > 30*time.Second {
		t.Errorf("search ran for %s despite the node limit", elapsed)
	}

	// Too few nodes to finish even the first depth.
	res = search(t, model.StartFEN, Limits{MoveTime: time.Minute, Nodes: 10})
	if !res.Move.IsNone() {
		t.Errorf("got %s from an unfinished first depth", res.Move)
	}
}

func TestInteriorImprovementConfirmsLine(t *testing.T) {
	b := model.NewBoard()
	e4, err := model.FindMove(b.LegalMoves(), "e2e4")
	if err != nil {
		t.Fatal(err)
	}
	next := b.Apply(e4)

	s := newSearcher(context.Background(), Evaluate, 0)
	s.line[0] = e4
	s.negamax(&next, -Infinity, Infinity, 1, 1)

	if len(s.confirmed) != 2 || s.confirmed[0] != e4 {
		t.Fatalf("confirmed = %v, want e2e4 and a reply", s.confirmed)
	}
	if _, err := model.FindMove(next.LegalMoves(), s.confirmed[1].String()); err != nil {
		t.Errorf("confirmed reply %s is not legal: %v", s.confirmed[1], err)
	}
	if mv, ok := s.pvMove(&next, 1); !ok || mv != s.confirmed[1] {
		t.Errorf("pvMove = %s, %v, want the confirmed reply", mv, ok)
	}
	if len(s.rootPV) != 0 {
		t.Errorf("root line = %v, want it untouched below the root", s.rootPV)
	}
}
