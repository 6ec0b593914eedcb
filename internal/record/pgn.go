// Package record exports finished games as PGN.
package record

import (
	"fmt"
	"time"

	"github.com/EvanSeven007/ReeseBot/internal/model"
	"github.com/notnil/chess"
)

// Header holds the PGN tags written for a game. Result uses the PGN result
// strings ("1-0", "0-1", "1/2-1/2", "*").
type Header struct {
	Event  string
	Site   string
	Date   time.Time
	White  string
	Black  string
	Result string
}

// PGN replays moves, given in coordinate notation, from startFEN and returns
// the game as PGN text. A decisive or drawn Result that the moves do not
// reach on the board is recorded as a resignation or an agreed draw.
func PGN(h Header, startFEN string, moves []string) (string, error) {
	opts := []func(*chess.Game){chess.UseNotation(chess.UCINotation{})}
	if startFEN != "" && startFEN != model.StartFEN {
		fen, err := chess.FEN(startFEN)
		if err != nil {
			return "", fmt.Errorf("pgn start position: %w", err)
		}
		opts = append(opts, fen)
	}
	game := chess.NewGame(opts...)

	for i, mv := range moves {
		if err := game.MoveStr(mv); err != nil {
			return "", fmt.Errorf("pgn move %d (%s): %w", i+1, mv, err)
		}
	}

	if game.Outcome() == chess.NoOutcome {
		switch chess.Outcome(h.Result) {
		case chess.WhiteWon:
			game.Resign(chess.Black)
		case chess.BlackWon:
			game.Resign(chess.White)
		case chess.Draw:
			if err := game.Draw(chess.DrawOffer); err != nil {
				return "", fmt.Errorf("pgn draw: %w", err)
			}
		}
	}

	event := h.Event
	if event == "" {
		event = "ReeseBot game"
	}
	date := h.Date
	if date.IsZero() {
		date = time.Now()
	}
	game.AddTagPair("Event", event)
	game.AddTagPair("Site", valueOr(h.Site, "?"))
	game.AddTagPair("Date", date.Format("2006.01.02"))
	game.AddTagPair("White", valueOr(h.White, "?"))
	game.AddTagPair("Black", valueOr(h.Black, "?"))
	game.AddTagPair("Result", string(game.Outcome()))
	if startFEN != "" && startFEN != model.StartFEN {
		game.AddTagPair("SetUp", "1")
		game.AddTagPair("FEN", startFEN)
	}

	return game.String(), nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
