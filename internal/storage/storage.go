package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
)

var ErrNotFound = errors.New("not found")

// Storage keys
const (
	prefixGame     = "game/"
	prefixAnalysis = "analysis/"
	keyStats       = "stats"
)

// Result is the PGN result tag of a game.
type Result string

const (
	ResultWhiteWins Result = "1-0"
	ResultBlackWins Result = "0-1"
	ResultDraw      Result = "1/2-1/2"
	ResultOngoing   Result = "*"
)

// GameRecord is a finished (or abandoned) human-versus-engine game.
type GameRecord struct {
	ID         string    `json:"id"`
	StartFEN   string    `json:"start_fen"`
	FinalFEN   string    `json:"final_fen"`
	HumanColor string    `json:"human_color"`
	Moves      []string  `json:"moves"` // coordinate notation
	Result     Result    `json:"result"`
	Resolve    string    `json:"resolve"`
	PGN        string    `json:"pgn"`
	CreatedAt  time.Time `json:"created_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Winner returns "white", "black" or "" for draws and unfinished games.
func (r *GameRecord) Winner() string {
	switch r.Result {
	case ResultWhiteWins:
		return "white"
	case ResultBlackWins:
		return "black"
	}
	return ""
}

// Analysis caches the outcome of a search on a position.
type Analysis struct {
	FEN       string        `json:"fen"`
	MoveTime  time.Duration `json:"move_time"`
	Depth     int           `json:"depth"`
	BestMove  string        `json:"best_move"`
	Score     int           `json:"score"`
	Mate      bool          `json:"mate"`
	PV        []string      `json:"pv"`
	Reached   int           `json:"reached_depth"`
	Nodes     int64         `json:"nodes"`
	CreatedAt time.Time     `json:"created_at"`
}

// Stats aggregates the results of every saved game.
type Stats struct {
	GamesPlayed int `json:"games_played"`
	HumanWins   int `json:"human_wins"`
	EngineWins  int `json:"engine_wins"`
	Draws       int `json:"draws"`
}

// Storage wraps BadgerDB for persistent storage
type Storage struct {
	db *badger.DB
}

// Open opens (or creates) the database in dir.
func Open(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	return open(opts)
}

// OpenInMemory opens a database that lives only as long as the process.
func OpenInMemory() (*Storage, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts)
}

func open(opts badger.Options) (*Storage, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveGame stores rec. The first time a finished game is saved its result
// is added to the stats.
func (s *Storage) SaveGame(rec *GameRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	key := []byte(prefixGame + rec.ID)

	return s.db.Update(func(txn *badger.Txn) error {
		var previous GameRecord
		err := getJSON(txn, key, &previous)
		switch {
		case errors.Is(err, ErrNotFound):
			previous.Result = ResultOngoing
		case err != nil:
			return err
		}

		if previous.Result == ResultOngoing && rec.Result != ResultOngoing && rec.Result != "" {
			if err := updateStats(txn, rec); err != nil {
				return err
			}
		}
		return txn.Set(key, data)
	})
}

func updateStats(txn *badger.Txn, rec *GameRecord) error {
	var stats Stats
	if err := getJSON(txn, []byte(keyStats), &stats); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	stats.GamesPlayed++
	switch rec.Winner() {
	case "":
		stats.Draws++
	case rec.HumanColor:
		stats.HumanWins++
	default:
		stats.EngineWins++
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return txn.Set([]byte(keyStats), data)
}

// LoadGame returns the record saved under id.
func (s *Storage) LoadGame(id string) (*GameRecord, error) {
	var rec GameRecord
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(prefixGame+id), &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListGames returns every saved game, most recently finished first.
func (s *Storage) ListGames() ([]*GameRecord, error) {
	var games []*GameRecord
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixGame)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rec := new(GameRecord)
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, rec)
			}); err != nil {
				return err
			}
			games = append(games, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(games, func(i, j int) bool {
		return games[i].FinishedAt.After(games[j].FinishedAt)
	})
	return games, nil
}

// LoadStats returns the aggregated results, empty if no game was saved yet.
func (s *Storage) LoadStats() (*Stats, error) {
	stats := new(Stats)
	err := s.db.View(func(txn *badger.Txn) error {
		err := getJSON(txn, []byte(keyStats), stats)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	})
	return stats, err
}

func analysisKey(fen string, moveTime time.Duration, depth int) []byte {
	return []byte(fmt.Sprintf("%s%s/%d/%d", prefixAnalysis, fen, moveTime.Milliseconds(), depth))
}

// SaveAnalysis caches a search result under its position and limits.
func (s *Storage) SaveAnalysis(a *Analysis) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(analysisKey(a.FEN, a.MoveTime, a.Depth), data)
	})
}

// LoadAnalysis returns a cached search result for the same position and
// limits.
func (s *Storage) LoadAnalysis(fen string, moveTime time.Duration, depth int) (*Analysis, error) {
	var a Analysis
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, analysisKey(fen, moveTime, depth), &a)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}
