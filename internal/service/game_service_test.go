package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/EvanSeven007/ReeseBot/internal/engine"
	"github.com/EvanSeven007/ReeseBot/internal/model"
	"github.com/EvanSeven007/ReeseBot/internal/storage"
)

func newTestService(t *testing.T) (*GameService, *GameManager) {
	t.Helper()
	store, err := storage.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	gm := NewGameManager(engine.NewEngine(nil), store, Options{
		ThinkTime: 300 * time.Millisecond,
		MaxDepth:  3,
		Poll:      5 * time.Millisecond,
	})
	return NewGameService(gm, store), gm
}

func runWorker(t *testing.T, gm *GameManager) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		gm.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEngineRepliesToHumanMove(t *testing.T) {
	gs, gm := newTestService(t)
	runWorker(t, gm)

	id, err := gs.CreateGame("", model.White)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := gs.JoinGame(id, "alice"); err != nil {
		t.Fatal(err)
	}
	if err := gs.HandleMove(id, "alice", model.WSMove{From: "e2", To: "e4"}); err != nil {
		t.Fatalf("HandleMove: %v", err)
	}

	waitFor(t, "engine reply", func() bool {
		state, err := gs.GetGameState(id)
		return err == nil && state.ToMove == model.White
	})
	state, _ := gs.GetGameState(id)
	if state.Thinking {
		t.Error("thinking flag left set after the reply")
	}
	if len(state.MoveHistory) != 1 || state.MoveHistory[0].BlackPly == nil {
		t.Fatalf("history = %+v", state.MoveHistory)
	}
	moves, err := gs.LegalMoves(id)
	if err != nil || len(moves) == 0 {
		t.Errorf("LegalMoves = %v, %v", moves, err)
	}
}

func TestEngineMovesFirst(t *testing.T) {
	gs, gm := newTestService(t)
	runWorker(t, gm)

	id, err := gs.CreateGame("", model.Black)
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, "engine opening move", func() bool {
		state, _ := gs.GetGameState(id)
		return state.ToMove == model.Black
	})
}

func TestEngineMateIsSaved(t *testing.T) {
	gs, gm := newTestService(t)
	runWorker(t, gm)

	id, err := gs.CreateGame("rnbqkbnr/pppp1ppp/8/4p3/6P1/5P2/PPPPP2P/RNBQKBNR b KQkq - 0 2", model.White)
	if err != nil {
		t.Fatal(err)
	}

	var rec *storage.GameRecord
	waitFor(t, "saved record", func() bool {
		rec, err = gm.store.LoadGame(id)
		return err == nil
	})
	if rec.Result != storage.ResultBlackWins || rec.Resolve != model.ResolveCheckmate {
		t.Errorf("record = %+v", rec)
	}
	if len(rec.Moves) != 1 || rec.Moves[0] != "d8h4" {
		t.Errorf("moves = %v, want [d8h4]", rec.Moves)
	}
	if !strings.Contains(rec.PGN, "Qh4#") {
		t.Errorf("pgn missing mate:\n%s", rec.PGN)
	}

	stats, err := gs.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.GamesPlayed != 1 || stats.EngineWins != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestResignIsSaved(t *testing.T) {
	gs, _ := newTestService(t)

	id, err := gs.CreateGame("", model.White)
	if err != nil {
		t.Fatal(err)
	}
	if err := gs.Resign(id, "alice"); !errors.Is(err, model.ErrNotInGame) {
		t.Errorf("resign before joining err = %v, want ErrNotInGame", err)
	}
	if _, err := gs.JoinGame(id, "alice"); err != nil {
		t.Fatal(err)
	}
	if err := gs.HandleMove(id, "alice", model.WSMove{From: "g1", To: "f3"}); err != nil {
		t.Fatal(err)
	}
	if err := gs.Resign(id, "alice"); err != nil {
		t.Fatal(err)
	}

	rec, err := gs.GetRecord(id)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Result != storage.ResultBlackWins || rec.Resolve != model.ResolveResign || rec.FinishedAt.IsZero() {
		t.Errorf("record = %+v", rec)
	}
	if !strings.Contains(rec.PGN, `[Result "0-1"]`) || !strings.Contains(rec.PGN, "Nf3") {
		t.Errorf("pgn:\n%s", rec.PGN)
	}

	list, err := gs.ListRecords()
	if err != nil || len(list) != 1 {
		t.Errorf("ListRecords = %v, %v", list, err)
	}
}

func TestLiveRecord(t *testing.T) {
	gs, _ := newTestService(t)
	id, err := gs.CreateGame("", model.White)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := gs.GetRecord(id)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Result != storage.ResultOngoing || !rec.FinishedAt.IsZero() {
		t.Errorf("record = %+v", rec)
	}
}

func TestServiceErrors(t *testing.T) {
	gs, _ := newTestService(t)

	if _, err := gs.CreateGame("not a fen", model.White); !errors.Is(err, model.ErrInvalidFEN) {
		t.Errorf("CreateGame err = %v, want ErrInvalidFEN", err)
	}
	if _, err := gs.GetGameState("missing"); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("GetGameState err = %v, want ErrGameNotFound", err)
	}
	if err := gs.HandleMove("missing", "alice", model.WSMove{From: "e2", To: "e4"}); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("HandleMove err = %v, want ErrGameNotFound", err)
	}
	if _, err := gs.GetRecord("missing"); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("GetRecord err = %v, want ErrGameNotFound", err)
	}

	id, err := gs.CreateGame("", model.White)
	if err != nil {
		t.Fatal(err)
	}
	gs.JoinGame(id, "alice")
	if _, err := gs.JoinGame(id, "bob"); !errors.Is(err, model.ErrGameFull) {
		t.Errorf("JoinGame err = %v, want ErrGameFull", err)
	}
}

func TestAnalyze(t *testing.T) {
	gs, _ := newTestService(t)
	ctx := context.Background()
	fen := "k7/6q1/5P2/8/8/8/8/K7 w - - 0 1"

	a, err := gs.Analyze(ctx, fen, 500*time.Millisecond, 3)
	if err != nil {
		t.Fatal(err)
	}
	if a.BestMove != "f6g7" {
		t.Errorf("best move = %s, want f6g7", a.BestMove)
	}
	if len(a.PV) == 0 || a.PV[0] != "f6g7" {
		t.Errorf("pv = %v", a.PV)
	}

	again, err := gs.Analyze(ctx, fen, 500*time.Millisecond, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !again.CreatedAt.Equal(a.CreatedAt) {
		t.Error("second analysis was not served from the cache")
	}

	if _, err := gs.Analyze(ctx, fen, time.Hour, 3); !errors.Is(err, ErrInvalidMoveTime) {
		t.Errorf("err = %v, want ErrInvalidMoveTime", err)
	}
	if _, err := gs.Analyze(ctx, fen, time.Second, engine.MaxDepth+1); !errors.Is(err, ErrInvalidDepth) {
		t.Errorf("err = %v, want ErrInvalidDepth", err)
	}
}

func TestAnalyzeTerminal(t *testing.T) {
	gs, _ := newTestService(t)
	a, err := gs.Analyze(context.Background(), "7k/6Q1/6K1/8/8/8/8/8 b - - 0 1", 100*time.Millisecond, 2)
	if err != nil {
		t.Fatal(err)
	}
	if a.BestMove != "" {
		t.Errorf("best move in a mated position = %q", a.BestMove)
	}
}

func TestPerft(t *testing.T) {
	gs, _ := newTestService(t)
	res, err := gs.Perft(context.Background(), "", 2)
	if err != nil {
		t.Fatal(err)
	}
	if res.Nodes != 400 || len(res.Divide) != 20 {
		t.Errorf("nodes = %d, moves = %d", res.Nodes, len(res.Divide))
	}
	if res.Divide[0].Move != "a2a3" || res.Divide[0].Nodes != 20 {
		t.Errorf("first entry = %+v", res.Divide[0])
	}

	for _, depth := range []int{0, MaxPerftDepth + 1} {
		if _, err := gs.Perft(context.Background(), "", depth); !errors.Is(err, ErrInvalidDepth) {
			t.Errorf("depth %d err = %v, want ErrInvalidDepth", depth, err)
		}
	}
}
