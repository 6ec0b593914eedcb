package model

import "fmt"

const (
	// gridSize is the side of the backing grid: the 8x8 board plus a two
	// square border on every side.
	gridSize = 12
	firstRow = 2
	lastRow  = 9
)

// Position addresses a cell of the padded grid. Rows 2..9 hold ranks 8..1 and
// columns 2..9 hold files a..h. Positions produced by offset arithmetic may
// point into the border and must be checked with IsValid before use.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// NoPosition is the zero Position; it lies in the border and is never valid.
var NoPosition = Position{}

// Offset is a (row, col) step used by the direction tables.
type Offset struct {
	Row int
	Col int
}

var (
	rookDirs   = []Offset{{Row: -1, Col: 0}, {Row: 1, Col: 0}, {Row: 0, Col: -1}, {Row: 0, Col: 1}}
	bishopDirs = []Offset{{Row: -1, Col: -1}, {Row: -1, Col: 1}, {Row: 1, Col: -1}, {Row: 1, Col: 1}}
	queenDirs  = append(append([]Offset{}, rookDirs...), bishopDirs...)
	knightDirs = []Offset{
		{Row: -2, Col: -1}, {Row: -2, Col: 1}, {Row: -1, Col: -2}, {Row: -1, Col: 2},
		{Row: 1, Col: -2}, {Row: 1, Col: 2}, {Row: 2, Col: -1}, {Row: 2, Col: 1},
	}
	kingDirs = queenDirs
)

// Pos builds a Position from a file (0=a) and rank (0=first rank).
func Pos(file, rank int) Position {
	return Position{Row: lastRow - rank, Col: firstRow + file}
}

// IsValid reports whether p is one of the 64 playable squares.
func (p Position) IsValid() bool {
	return p.Row >= firstRow && p.Row <= lastRow && p.Col >= firstRow && p.Col <= lastRow
}

func (p Position) Add(o Offset) Position {
	return Position{Row: p.Row + o.Row, Col: p.Col + o.Col}
}

// File is 0 for the a-file.
func (p Position) File() int {
	return p.Col - firstRow
}

// Rank is 0 for the first rank.
func (p Position) Rank() int {
	return lastRow - p.Row
}

func (p Position) String() string {
	if !p.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%c%d", 'a'+p.File(), p.Rank()+1)
}

// ParsePosition reads algebraic square notation such as "e4".
func ParsePosition(s string) (Position, error) {
	if len(s) != 2 {
		return NoPosition, fmt.Errorf("invalid square %q", s)
	}
	file := int(s[0] - 'a')
	if s[0] >= 'A' && s[0] <= 'H' {
		file = int(s[0] - 'A')
	}
	rank := int(s[1] - '1')
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoPosition, fmt.Errorf("invalid square %q", s)
	}
	return Pos(file, rank), nil
}
