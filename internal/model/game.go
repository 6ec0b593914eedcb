package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/EvanSeven007/ReeseBot/internal/ws"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/websocket/v2"
)

var (
	ErrGameFull    = errors.New("game is full")
	ErrNotInGame   = errors.New("player not in game")
	ErrNotYourTurn = errors.New("not your turn")
	ErrGameOver    = errors.New("game is over")
)

// Ways a game can end.
const (
	ResolveCheckmate = "checkmate"
	ResolveStalemate = "stalemate"
	ResolveResign    = "resign"
)

// DefaultTimeControl is the clock each side starts with.
const DefaultTimeControl = 10 * time.Minute

// GameConnections holds the sockets watching one game.
type GameConnections struct {
	connections map[string]*websocket.Conn // playerID -> connection
	mu          sync.RWMutex
	writeMu     sync.Mutex // a websocket.Conn allows one writer at a time
	sentSeq     uint64     // newest state written, guarded by writeMu
}

// Game is one human-versus-engine game and its observers.
type Game struct {
	ID          string
	mu          sync.Mutex
	board       BoardState
	startFEN    string
	humanColor  Color
	moves       []string // coordinate notation, for records
	state       GameState
	connections *GameConnections
	whiteClock  *Clock
	blackClock  *Clock
	createdAt   time.Time
	stateSeq    uint64 // bumped by every published state
}

type GameState struct {
	ID              string         `json:"id"`
	FEN             string         `json:"fen"`
	Sound           string         `json:"sound"`
	Board           [][]*Piece     `json:"board"`
	ToMove          Color          `json:"toMove"`
	MoveHistory     []FullMove     `json:"moveHistory"`
	CapturedPieces  CapturedPieces `json:"capturedPieces"`
	IsCheck         bool           `json:"isCheck"`
	LegalMoves      []string       `json:"legalMoves"`
	EnPassantTarget *Position      `json:"enPassantTarget"`
	Resolve         *string        `json:"resolve"`
	Winner          *Color         `json:"winner"`
	Thinking        bool           `json:"thinking"`
	Players         struct {
		White ClientPlayer `json:"white"`
		Black ClientPlayer `json:"black"`
	} `json:"players"`
	LastMove *Move `json:"lastMove"`
}

// FullMove pairs white's and black's plies. WhitePly is nil for the first
// move of a game that starts with black to move.
type FullMove struct {
	Number   int  `json:"number"`
	WhitePly *Ply `json:"whitePly"`
	BlackPly *Ply `json:"blackPly"`
}

type Ply struct {
	Move     Move   `json:"move"`
	UCI      string `json:"uci"`
	Notation string `json:"notation"`
	Captured *Piece `json:"captured"`
}

type CapturedPieces struct {
	White []Piece `json:"white"` // taken by white
	Black []Piece `json:"black"`
}

// WSMove is a move as sent by a client: squares in algebraic notation and an
// optional promotion piece ("q", "queen", ...).
type WSMove struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// UCI returns the move in coordinate notation.
func (m WSMove) UCI() (string, error) {
	from, err := ParsePosition(m.From)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIllegalMove, err)
	}
	to, err := ParsePosition(m.To)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIllegalMove, err)
	}
	s := from.String() + to.String()
	if m.Promotion != "" {
		p := strings.ToLower(m.Promotion)
		switch p {
		case "q", "queen", "r", "rook", "b", "bishop":
			s += p[:1]
		case "n", "knight":
			s += "n"
		default:
			return "", fmt.Errorf("%w: promotion %q", ErrIllegalMove, m.Promotion)
		}
	}
	return s, nil
}

// NewGame starts a game from board with the human playing humanColor and
// the engine the other side.
func NewGame(id string, board BoardState, humanColor Color) *Game {
	g := &Game{
		ID:          id,
		board:       board,
		startFEN:    board.FEN(),
		humanColor:  humanColor,
		connections: NewGameConnections(),
		whiteClock:  NewClock(DefaultTimeControl),
		blackClock:  NewClock(DefaultTimeControl),
		createdAt:   time.Now(),
	}
	g.state = newGameState(id)
	engine := ClientPlayer{ID: EngineID, Color: humanColor.Opposite(), IsEngine: true}
	if humanColor == White {
		g.state.Players.Black = engine
		g.state.Players.White.Color = White
	} else {
		g.state.Players.White = engine
		g.state.Players.Black.Color = Black
	}
	g.refresh()
	return g
}

func NewGameConnections() *GameConnections {
	return &GameConnections{
		connections: make(map[string]*websocket.Conn),
	}
}

func newGameState(id string) GameState {
	return GameState{
		ID:             id,
		MoveHistory:    make([]FullMove, 0),
		CapturedPieces: newCapturedPieces(),
		LegalMoves:     make([]string, 0),
	}
}

func newCapturedPieces() CapturedPieces {
	return CapturedPieces{
		White: make([]Piece, 0),
		Black: make([]Piece, 0),
	}
}

// AddPlayer seats playerID as the human. Joining a game one already plays
// in is not an error.
func (g *Game) AddPlayer(playerID string) (Color, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	seat := g.humanSeat()
	switch seat.ID {
	case "":
		seat.ID = playerID
		seat.TimeLeft = g.clock(g.humanColor).tenths()
		log.Infow("player joined game", "game", g.ID, "player", playerID, "color", g.humanColor.String())
		return g.humanColor, nil
	case playerID:
		return g.humanColor, nil
	}
	return g.humanColor, ErrGameFull
}

func (g *Game) humanSeat() *ClientPlayer {
	if g.humanColor == White {
		return &g.state.Players.White
	}
	return &g.state.Players.Black
}

func (g *Game) clock(c Color) *Clock {
	if c == White {
		return g.whiteClock
	}
	return g.blackClock
}

// GetState returns a snapshot safe to marshal outside the lock.
func (g *Game) GetState() GameState {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.snapshot()
}

func (g *Game) snapshot() GameState {
	s := g.state
	s.Players.White.TimeLeft = g.whiteClock.tenths()
	s.Players.Black.TimeLeft = g.blackClock.tenths()
	s.MoveHistory = make([]FullMove, len(g.state.MoveHistory))
	for i, fm := range g.state.MoveHistory {
		s.MoveHistory[i] = fm
		if fm.WhitePly != nil {
			ply := *fm.WhitePly
			s.MoveHistory[i].WhitePly = &ply
		}
		if fm.BlackPly != nil {
			ply := *fm.BlackPly
			s.MoveHistory[i].BlackPly = &ply
		}
	}
	s.CapturedPieces = CapturedPieces{
		White: append([]Piece(nil), g.state.CapturedPieces.White...),
		Black: append([]Piece(nil), g.state.CapturedPieces.Black...),
	}
	return s
}

// Board returns a copy of the current position.
func (g *Game) Board() BoardState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.board
}

func (g *Game) isPlayerInGame(playerID string) bool {
	seat := g.humanSeat()
	return seat.ID != "" && seat.ID == playerID
}

// canSpectate lets observers watch until the human seat is taken.
func (g *Game) canSpectate() bool {
	return g.humanSeat().ID == ""
}

// IsOver reports whether the game has been resolved.
func (g *Game) IsOver() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Resolve != nil
}

// EngineToMove reports whether the game waits for an engine reply.
func (g *Game) EngineToMove() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Resolve == nil && g.board.ActiveColor != g.humanColor
}

// MakeMove plays the human's move after checking it against the legal moves
// of the position.
func (g *Game) MakeMove(playerID string, move WSMove) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	log.Debugw("human move", "game", g.ID, "player", playerID, "from", move.From, "to", move.To)

	if g.state.Resolve != nil {
		return ErrGameOver
	}
	if !g.isPlayerInGame(playerID) {
		return ErrNotInGame
	}
	if g.board.ActiveColor != g.humanColor {
		return ErrNotYourTurn
	}

	uci, err := move.UCI()
	if err != nil {
		return err
	}
	mv, err := FindMove(g.board.LegalMoves(), uci)
	if err != nil {
		return err
	}
	g.executeMove(mv)
	return nil
}

// ApplyEngineMove plays the engine's reply. The move must be legal in the
// current position.
func (g *Game) ApplyEngineMove(mv Move) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state.Resolve != nil {
		return ErrGameOver
	}
	if g.board.ActiveColor == g.humanColor {
		return ErrNotYourTurn
	}
	legal, err := FindMove(g.board.LegalMoves(), mv.String())
	if err != nil {
		return err
	}
	g.state.Thinking = false
	g.executeMove(legal)
	return nil
}

// Resign ends the game in the engine's favour.
func (g *Game) Resign(playerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.isPlayerInGame(playerID) {
		return ErrNotInGame
	}
	if g.state.Resolve != nil {
		return ErrGameOver
	}
	g.stopClocks()
	resolve := ResolveResign
	winner := g.humanColor.Opposite()
	g.state.Resolve = &resolve
	g.state.Winner = &winner
	g.state.Thinking = false
	g.state.LegalMoves = []string{}
	log.Infow("player resigned", "game", g.ID, "player", playerID)

	g.publish()
	return nil
}

// SetThinking flags that the engine is searching and tells the observers.
func (g *Game) SetThinking(thinking bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state.Thinking = thinking
	g.publish()
}

func (g *Game) executeMove(mv Move) {
	mover := g.board.ActiveColor

	// Stop current player's clock, start the opponent's after the move
	g.clock(mover).Stop()

	ply := &Ply{
		Move:     mv,
		UCI:      mv.String(),
		Notation: mv.SAN(),
	}
	if mv.IsCapture() {
		captured := mv.Captured
		ply.Captured = &captured
		if mover == White {
			g.state.CapturedPieces.White = append(g.state.CapturedPieces.White, captured)
		} else {
			g.state.CapturedPieces.Black = append(g.state.CapturedPieces.Black, captured)
		}
	}

	if mover == White || len(g.state.MoveHistory) == 0 {
		g.state.MoveHistory = append(g.state.MoveHistory, FullMove{Number: g.board.FullmoveNumber})
	}
	last := &g.state.MoveHistory[len(g.state.MoveHistory)-1]
	if mover == White {
		last.WhitePly = ply
	} else {
		last.BlackPly = ply
	}

	g.board = g.board.Apply(mv)
	g.moves = append(g.moves, ply.UCI)
	lastMove := mv
	g.state.LastMove = &lastMove

	g.refresh()
	switch {
	case g.state.IsCheck:
		g.state.Sound = "check"
		ply.Notation += "+"
	case mv.Kind == Castle:
		g.state.Sound = "castle"
	case mv.IsCapture():
		g.state.Sound = "capture"
	default:
		g.state.Sound = "move"
	}
	if g.state.Resolve != nil && *g.state.Resolve == ResolveCheckmate {
		ply.Notation = strings.TrimSuffix(ply.Notation, "+") + "#"
		g.state.Sound = "checkmate"
	}

	if g.state.Resolve == nil {
		g.clock(g.board.ActiveColor).Start()
	}

	g.publish()
}

// refresh recomputes everything in the state that derives from the board.
func (g *Game) refresh() {
	g.state.FEN = g.board.FEN()
	g.state.Board = g.board.Grid()
	g.state.ToMove = g.board.ActiveColor
	g.state.IsCheck = g.board.InCheck(g.board.ActiveColor)
	g.state.EnPassantTarget = nil
	if g.board.EnPassant != NoPosition {
		ep := g.board.EnPassant
		g.state.EnPassantTarget = &ep
	}

	outcome := Analyze(&g.board)
	g.state.LegalMoves = make([]string, 0, len(outcome.Moves))
	for _, mv := range outcome.Moves {
		g.state.LegalMoves = append(g.state.LegalMoves, mv.String())
	}

	var resolve string
	switch outcome.Status {
	case Checkmate:
		resolve = ResolveCheckmate
		winner := outcome.Winner
		g.state.Winner = &winner
	case Stalemate:
		resolve = ResolveStalemate
	default:
		return
	}
	g.state.Resolve = &resolve
	g.stopClocks()
	log.Infow("game over", "game", g.ID, "resolve", resolve)
}

func (g *Game) stopClocks() {
	g.whiteClock.Stop()
	g.blackClock.Stop()
}

// Summary is what is kept of a game once it is over.
type Summary struct {
	ID         string
	StartFEN   string
	FinalFEN   string
	HumanColor Color
	Moves      []string
	Result     string // PGN result
	Resolve    string
	CreatedAt  time.Time
}

func (g *Game) Summary() Summary {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := Summary{
		ID:         g.ID,
		StartFEN:   g.startFEN,
		FinalFEN:   g.state.FEN,
		HumanColor: g.humanColor,
		Moves:      append([]string(nil), g.moves...),
		Result:     "*",
		CreatedAt:  g.createdAt,
	}
	if g.state.Resolve != nil {
		s.Resolve = *g.state.Resolve
		switch {
		case g.state.Winner == nil:
			s.Result = "1/2-1/2"
		case *g.state.Winner == White:
			s.Result = "1-0"
		default:
			s.Result = "0-1"
		}
	}
	return s
}

func (g *Game) RegisterConnection(playerID string, conn *websocket.Conn) error {
	connID := fmt.Sprintf("%p", conn)
	log.Debugf("registering connection %s for player %s", connID, playerID)

	g.mu.Lock()
	isAuthorized := g.isPlayerInGame(playerID) || g.canSpectate()
	g.mu.Unlock()

	if !isAuthorized {
		return errors.New("not authorized to join this game")
	}

	g.connections.mu.Lock()
	if _, exists := g.connections.connections[playerID]; exists {
		// If we already have a healthy connection, keep it and reject the new one
		g.connections.mu.Unlock()
		conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(
				websocket.CloseNormalClosure,
				"Connection already exists",
			),
		)
		conn.Close()
		return nil // Not really an error, just rejecting duplicate connection
	}

	g.connections.connections[playerID] = conn
	g.connections.mu.Unlock()
	log.Infow("connection registered", "game", g.ID, "player", playerID, "conn", connID)

	g.mu.Lock()
	g.publish()
	g.mu.Unlock()
	return nil
}

// UnregisterConnection forgets playerID's connection if it is still conn.
func (g *Game) UnregisterConnection(playerID string, conn *websocket.Conn) {
	g.connections.mu.Lock()
	defer g.connections.mu.Unlock()

	if current, exists := g.connections.connections[playerID]; exists && current == conn {
		log.Debugf("unregistering connection %p for player %s", conn, playerID)
		delete(g.connections.connections, playerID)
	}
}

// publish snapshots the state and sends it in the background. The caller
// holds g.mu, so snapshots are numbered in the order the state changed.
func (g *Game) publish() {
	g.stateSeq++
	go g.broadcastState(g.stateSeq, g.snapshot())
}

// broadcastState sends state unless a newer one has already gone out.
func (g *Game) broadcastState(seq uint64, state GameState) {
	msg, err := ws.NewMessage(ws.MessageTypeGameState, state)
	if err != nil {
		log.Errorf("marshal state of game %s: %v", g.ID, err)
		return
	}

	g.connections.writeMu.Lock()
	defer g.connections.writeMu.Unlock()
	if seq <= g.connections.sentSeq {
		log.Tracef("dropping stale state %d of game %s", seq, g.ID)
		return
	}
	g.connections.sentSeq = seq
	g.writeAll(msg)
}

// BroadcastSearchInfo forwards engine progress to every observer.
func (g *Game) BroadcastSearchInfo(info ws.SearchInfo) {
	msg, err := ws.NewMessage(ws.MessageTypeSearchInfo, info)
	if err != nil {
		log.Errorf("marshal search info of game %s: %v", g.ID, err)
		return
	}
	g.Broadcast(msg)
}

// Send writes msg to a single connection of this game.
func (g *Game) Send(conn *websocket.Conn, msg ws.Message) error {
	g.connections.writeMu.Lock()
	defer g.connections.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

// Broadcast writes msg to every connection, dropping the ones that fail.
func (g *Game) Broadcast(msg ws.Message) {
	g.connections.writeMu.Lock()
	defer g.connections.writeMu.Unlock()
	g.writeAll(msg)
}

// writeAll sends msg to every connection. The caller holds writeMu.
func (g *Game) writeAll(msg ws.Message) {
	// Take a snapshot so the connection map is not locked while writing
	g.connections.mu.RLock()
	activeConnections := make(map[string]*websocket.Conn, len(g.connections.connections))
	for playerID, conn := range g.connections.connections {
		activeConnections[playerID] = conn
	}
	g.connections.mu.RUnlock()

	data, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("marshal %s message: %v", msg.Type, err)
		return
	}
	for playerID, conn := range activeConnections {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Warnf("failed to send %s to player %s: %v", msg.Type, playerID, err)
			g.UnregisterConnection(playerID, conn)
		}
	}
}
