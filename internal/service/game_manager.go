// service/game_manager.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/EvanSeven007/ReeseBot/internal/engine"
	"github.com/EvanSeven007/ReeseBot/internal/model"
	"github.com/EvanSeven007/ReeseBot/internal/record"
	"github.com/EvanSeven007/ReeseBot/internal/storage"
	"github.com/EvanSeven007/ReeseBot/internal/ws"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/websocket/v2"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrGameExists   = errors.New("game already exists")
)

// Options tune the engine replies.
type Options struct {
	ThinkTime time.Duration
	MaxDepth  int
	// Poll is how often the worker looks for games waiting on the engine.
	Poll time.Duration
}

// GameManager owns the live games and the worker that plays the engine's
// side of them. Only one search runs at a time.
type GameManager struct {
	games    map[string]*model.Game
	queue    *model.SearchQueue
	engine   *engine.Engine
	store    *storage.Storage
	opts     Options
	searchMu sync.Mutex
	mu       sync.RWMutex
}

func NewGameManager(eng *engine.Engine, store *storage.Storage, opts Options) *GameManager {
	if opts.Poll <= 0 {
		opts.Poll = 100 * time.Millisecond
	}
	return &GameManager{
		games:  make(map[string]*model.Game),
		queue:  model.NewSearchQueue(),
		engine: eng,
		store:  store,
		opts:   opts,
	}
}

// Run replies to queued games until ctx is done.
func (gm *GameManager) Run(ctx context.Context) error {
	ticker := time.NewTicker(gm.opts.Poll)
	defer ticker.Stop()
	log.Infof("search worker started, polling every %s", gm.opts.Poll)

	for {
		select {
		case <-ctx.Done():
			log.Info("search worker stopped")
			return nil
		case <-ticker.C:
			for ctx.Err() == nil {
				next, ok := gm.queue.Next()
				if !ok {
					break
				}
				log.Debugw("engine reply", "game", next.GameID, "waited", time.Since(next.QueuedAt))
				gm.reply(ctx, next.GameID)
			}
		}
	}
}

// reply searches the game's position and plays the engine's move.
func (gm *GameManager) reply(ctx context.Context, gameID string) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		log.Warnf("queued game %s: %v", gameID, err)
		return
	}
	if !game.EngineToMove() {
		return
	}

	game.SetThinking(true)
	b := game.Board()
	res := gm.Search(ctx, b, engine.Limits{MoveTime: gm.opts.ThinkTime, Depth: gm.opts.MaxDepth}, func(r engine.Result) {
		game.BroadcastSearchInfo(SearchInfo(r))
	})
	if ctx.Err() != nil {
		game.SetThinking(false)
		return
	}

	mv := res.Move
	if mv.IsNone() {
		moves := b.LegalMoves()
		if len(moves) == 0 {
			game.SetThinking(false)
			return
		}
		// The first depth did not finish in time.
		mv = moves[0]
		log.Warnw("search returned no move, playing first legal move", "game", gameID, "move", mv.String())
	}
	log.Infow("engine move", "game", gameID, "move", mv.String(), "score", res.Score, "depth", res.Depth, "nodes", res.Nodes)

	if err := game.ApplyEngineMove(mv); err != nil {
		// The human may have resigned while the engine was thinking.
		log.Warnf("engine move %s in game %s: %v", mv, gameID, err)
		game.SetThinking(false)
		return
	}
	if game.IsOver() {
		gm.persist(game)
	}
}

// Search runs one engine search. progress may be nil.
func (gm *GameManager) Search(ctx context.Context, b model.BoardState, limits engine.Limits, progress func(engine.Result)) engine.Result {
	gm.searchMu.Lock()
	defer gm.searchMu.Unlock()

	eng := *gm.engine
	eng.Progress = progress
	return eng.Search(ctx, b, limits)
}

// SearchInfo converts an engine result into the message sent to observers.
func SearchInfo(r engine.Result) ws.SearchInfo {
	return ws.SearchInfo{
		Depth:     r.Depth,
		Score:     r.Score,
		Mate:      r.IsMate(),
		Nodes:     r.Nodes,
		ElapsedMs: r.Elapsed.Milliseconds(),
		PV:        uciMoves(r.PV),
	}
}

func uciMoves(moves []model.Move) []string {
	out := make([]string, len(moves))
	for i, mv := range moves {
		out[i] = mv.String()
	}
	return out
}

// persist saves a game with its PGN.
func (gm *GameManager) persist(game *model.Game) {
	rec := gm.record(game)
	if rec.Result != storage.ResultOngoing {
		rec.FinishedAt = time.Now()
	}
	if err := gm.store.SaveGame(rec); err != nil {
		log.Errorf("save game %s: %v", game.ID, err)
		return
	}
	log.Infow("game saved", "game", game.ID, "result", rec.Result, "resolve", rec.Resolve)
}

func (gm *GameManager) record(game *model.Game) *storage.GameRecord {
	sum := game.Summary()
	state := game.GetState()

	rec := &storage.GameRecord{
		ID:         sum.ID,
		StartFEN:   sum.StartFEN,
		FinalFEN:   sum.FinalFEN,
		HumanColor: sum.HumanColor.String(),
		Moves:      sum.Moves,
		Result:     storage.Result(sum.Result),
		Resolve:    sum.Resolve,
		CreatedAt:  sum.CreatedAt,
	}
	pgn, err := record.PGN(record.Header{
		Date:   sum.CreatedAt,
		White:  state.Players.White.ID,
		Black:  state.Players.Black.ID,
		Result: sum.Result,
	}, sum.StartFEN, sum.Moves)
	if err != nil {
		log.Warnf("pgn of game %s: %v", game.ID, err)
	}
	rec.PGN = pgn
	return rec
}

func (gm *GameManager) CreateGame(gameID string, board model.BoardState, humanColor model.Color) (*model.Game, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if _, exists := gm.games[gameID]; exists {
		return nil, ErrGameExists
	}

	game := model.NewGame(gameID, board, humanColor)
	gm.games[gameID] = game
	log.Infow("game created", "game", gameID, "human", humanColor.String(), "fen", board.FEN())

	switch {
	case game.IsOver():
		gm.persist(game)
	case game.EngineToMove():
		gm.enqueue(gameID)
	}
	return game, nil
}

func (gm *GameManager) enqueue(gameID string) {
	if err := gm.queue.Add(gameID); err != nil && !errors.Is(err, model.ErrAlreadyQueued) {
		log.Errorf("queue game %s: %v", gameID, err)
	}
}

func (gm *GameManager) GetGame(gameID string) (*model.Game, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	game, exists := gm.games[gameID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}

	return game, nil
}

func (gm *GameManager) AddPlayerToGame(gameID string, playerID string) (model.Color, error) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return model.White, err
	}

	return game.AddPlayer(playerID)
}

func (gm *GameManager) GetGameState(gameID string) (model.GameState, error) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return model.GameState{}, err
	}

	return game.GetState(), nil
}

// MakeMove plays the human's move and queues the engine's reply.
func (gm *GameManager) MakeMove(gameID string, playerID string, move model.WSMove) error {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return err
	}

	if err := game.MakeMove(playerID, move); err != nil {
		return err
	}
	if game.IsOver() {
		gm.persist(game)
		return nil
	}
	gm.enqueue(gameID)
	return nil
}

func (gm *GameManager) Resign(gameID string, playerID string) error {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return err
	}

	if err := game.Resign(playerID); err != nil {
		return err
	}
	gm.queue.Remove(gameID)
	gm.persist(game)
	return nil
}

// Record returns the saved record of a game, or a record of its current
// state if it is still being played.
func (gm *GameManager) Record(gameID string) (*storage.GameRecord, error) {
	rec, err := gm.store.LoadGame(gameID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	game, err := gm.GetGame(gameID)
	if err != nil {
		return nil, err
	}
	return gm.record(game), nil
}

func (gm *GameManager) RegisterConnection(gameID string, playerID string, conn *websocket.Conn) error {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return err
	}

	return game.RegisterConnection(playerID, conn)
}

func (gm *GameManager) UnregisterConnection(gameID string, playerID string, conn *websocket.Conn) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return
	}

	game.UnregisterConnection(playerID, conn)
}
