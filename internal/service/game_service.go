package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/EvanSeven007/ReeseBot/internal/engine"
	"github.com/EvanSeven007/ReeseBot/internal/model"
	"github.com/EvanSeven007/ReeseBot/internal/storage"
	"github.com/EvanSeven007/ReeseBot/internal/ws"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

var (
	ErrInvalidDepth    = errors.New("invalid depth")
	ErrInvalidMoveTime = errors.New("invalid move time")
)

const (
	MaxPerftDepth    = 6
	MaxAnalyzeTime   = 30 * time.Second
	defaultMoveTime  = 2 * time.Second
	defaultPerftTime = time.Minute
)

type GameService struct {
	gameManager *GameManager
	store       *storage.Storage
}

func NewGameService(gameManager *GameManager, store *storage.Storage) *GameService {
	return &GameService{
		gameManager: gameManager,
		store:       store,
	}
}

// CreateGame starts a game from fen, or the initial position when fen is
// empty, with the human playing humanColor.
func (gs *GameService) CreateGame(fen string, humanColor model.Color) (string, error) {
	board, err := parseFEN(fen)
	if err != nil {
		return "", err
	}

	gameID := uuid.New().String()
	if _, err := gs.gameManager.CreateGame(gameID, board, humanColor); err != nil {
		return "", fmt.Errorf("failed to create game: %w", err)
	}

	return gameID, nil
}

func parseFEN(fen string) (model.BoardState, error) {
	if fen == "" {
		return model.NewBoard(), nil
	}
	return model.ParseFEN(fen)
}

func (gs *GameService) JoinGame(gameID string, playerID string) (model.Color, error) {
	return gs.gameManager.AddPlayerToGame(gameID, playerID)
}

func (gs *GameService) GetGameState(gameID string) (model.GameState, error) {
	return gs.gameManager.GetGameState(gameID)
}

// LegalMoves lists the moves of the side to move in coordinate notation.
func (gs *GameService) LegalMoves(gameID string) ([]string, error) {
	state, err := gs.gameManager.GetGameState(gameID)
	if err != nil {
		return nil, err
	}
	return state.LegalMoves, nil
}

func (gs *GameService) HandleMove(gameID string, playerID string, move model.WSMove) error {
	return gs.gameManager.MakeMove(gameID, playerID, move)
}

func (gs *GameService) Resign(gameID string, playerID string) error {
	return gs.gameManager.Resign(gameID, playerID)
}

func (gs *GameService) RegisterConnection(gameID string, playerID string, conn *websocket.Conn) error {
	return gs.gameManager.RegisterConnection(gameID, playerID, conn)
}

func (gs *GameService) UnregisterConnection(gameID string, playerID string, conn *websocket.Conn) {
	gs.gameManager.UnregisterConnection(gameID, playerID, conn)
}

// Send writes msg to one connection of the game, serialized with the
// game's broadcasts.
func (gs *GameService) Send(gameID string, conn *websocket.Conn, msg ws.Message) error {
	game, err := gs.gameManager.GetGame(gameID)
	if err != nil {
		return err
	}
	return game.Send(conn, msg)
}

// GetRecord returns the record of a game, live or finished.
func (gs *GameService) GetRecord(gameID string) (*storage.GameRecord, error) {
	rec, err := gs.gameManager.Record(gameID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	return rec, err
}

func (gs *GameService) ListRecords() ([]*storage.GameRecord, error) {
	return gs.store.ListGames()
}

func (gs *GameService) Stats() (*storage.Stats, error) {
	return gs.store.LoadStats()
}

// Analyze searches fen for at most moveTime and depth plies. Results are
// cached per position and budget.
func (gs *GameService) Analyze(ctx context.Context, fen string, moveTime time.Duration, depth int) (*storage.Analysis, error) {
	board, err := parseFEN(fen)
	if err != nil {
		return nil, err
	}
	if moveTime == 0 {
		moveTime = defaultMoveTime
	}
	if moveTime < 0 || moveTime > MaxAnalyzeTime {
		return nil, fmt.Errorf("%w: %s (max %s)", ErrInvalidMoveTime, moveTime, MaxAnalyzeTime)
	}
	if depth < 0 || depth > engine.MaxDepth {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrInvalidDepth, depth, engine.MaxDepth)
	}
	fen = board.FEN()

	cached, err := gs.store.LoadAnalysis(fen, moveTime, depth)
	if err == nil {
		log.Debugw("analysis cache hit", "fen", fen)
		return cached, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	res := gs.gameManager.Search(ctx, board, engine.Limits{MoveTime: moveTime, Depth: depth}, nil)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a := &storage.Analysis{
		FEN:       fen,
		MoveTime:  moveTime,
		Depth:     depth,
		Score:     res.Score,
		Mate:      res.IsMate(),
		PV:        uciMoves(res.PV),
		Reached:   res.Depth,
		Nodes:     res.Nodes,
		CreatedAt: time.Now(),
	}
	if !res.Move.IsNone() {
		a.BestMove = res.Move.String()
	}
	if err := gs.store.SaveAnalysis(a); err != nil {
		log.Warnf("cache analysis of %s: %v", fen, err)
	}
	return a, nil
}

// PerftResult is the number of leaf nodes below each root move.
type PerftResult struct {
	FEN    string       `json:"fen"`
	Depth  int          `json:"depth"`
	Nodes  uint64       `json:"nodes"`
	Divide []PerftEntry `json:"divide"`
}

type PerftEntry struct {
	Move  string `json:"move"`
	Nodes uint64 `json:"nodes"`
}

func (gs *GameService) Perft(ctx context.Context, fen string, depth int) (*PerftResult, error) {
	board, err := parseFEN(fen)
	if err != nil {
		return nil, err
	}
	if depth < 1 || depth > MaxPerftDepth {
		return nil, fmt.Errorf("%w: %d (1 to %d)", ErrInvalidDepth, depth, MaxPerftDepth)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultPerftTime)
	defer cancel()

	divide, err := engine.Divide(ctx, &board, depth)
	if err != nil {
		return nil, fmt.Errorf("perft: %w", err)
	}

	res := &PerftResult{FEN: board.FEN(), Depth: depth, Divide: make([]PerftEntry, 0, len(divide))}
	for mv, n := range divide {
		res.Nodes += n
		res.Divide = append(res.Divide, PerftEntry{Move: mv, Nodes: n})
	}
	sort.Slice(res.Divide, func(i, j int) bool {
		return res.Divide[i].Move < res.Divide[j].Move
	})
	return res, nil
}
