package engine

import (
	"context"
	"time"

	"github.com/EvanSeven007/ReeseBot/internal/model"
	"github.com/gofiber/fiber/v2/log"
)

const (
	// MateValue is the score of delivering mate at the root. A mate found n
	// plies deep scores MateValue-n, so shorter mates score higher.
	MateValue = 1_000_000_000
	// Infinity bounds every reachable score, mates included.
	Infinity = MateValue + 1

	MaxDepth = 25
	// MaxPly bounds the recursion, check extensions and quiescence included.
	MaxPly = 128

	minDepth     = 2
	pollInterval = 1024
)

// Evaluator scores a position from the point of view of the side to move.
type Evaluator func(b *model.BoardState) int

// Limits bounds one search. Zero fields fall back to the engine defaults.
type Limits struct {
	MoveTime time.Duration
	Depth    int
	Nodes    int64 // per iteration
}

// Result describes the last completed iteration. Move is the zero Move when
// the root has no legal moves or the first iteration did not finish.
type Result struct {
	Move    model.Move    `json:"move"`
	Score   int           `json:"score"`
	Depth   int           `json:"depth"`
	Nodes   int64         `json:"nodes"`
	PV      []model.Move  `json:"pv"`
	Elapsed time.Duration `json:"elapsed"`
}

// IsMate reports whether Score is a forced mate for either side.
func (r Result) IsMate() bool {
	return isMateScore(r.Score)
}

type Engine struct {
	Evaluate        Evaluator
	DefaultMoveTime time.Duration
	DefaultDepth    int
	// Progress, if set, is called after every completed iteration.
	Progress func(Result)
}

func NewEngine(eval Evaluator) *Engine {
	if eval == nil {
		eval = Evaluate
	}
	return &Engine{
		Evaluate:        eval,
		DefaultMoveTime: 5 * time.Second,
		DefaultDepth:    MaxDepth,
	}
}

// Search runs iterative deepening on b until the limits are reached or ctx
// is done, and returns the best move of the last completed depth.
func (e *Engine) Search(ctx context.Context, b model.BoardState, limits Limits) Result {
	start := time.Now()

	moveTime := limits.MoveTime
	if moveTime <= 0 {
		moveTime = e.DefaultMoveTime
	}
	maxDepth := limits.Depth
	if maxDepth <= 0 {
		maxDepth = e.DefaultDepth
	}
	if maxDepth > MaxDepth {
		maxDepth = MaxDepth
	}
	maxDepth = max(maxDepth, minDepth)

	ctx, cancel := context.WithDeadline(ctx, start.Add(moveTime))
	defer cancel()

	outcome := model.Analyze(&b)
	if outcome.Status != model.Ongoing {
		log.Debugw("search on finished position", "fen", b.FEN(), "status", outcome.Status.String())
		return Result{Elapsed: time.Since(start)}
	}

	s := newSearcher(ctx, e.Evaluate, limits.Nodes)
	var result Result
	var total int64
	for depth := minDepth; depth <= maxDepth; depth++ {
		s.nodes = 0
		mv, score, ok := s.searchRoot(&b, outcome.Moves, depth)
		total += s.nodes
		if !ok {
			log.Debugf("search: depth %d interrupted after %d nodes", depth, s.nodes)
			break
		}
		result = Result{
			Move:    mv,
			Score:   score,
			Depth:   depth,
			Nodes:   total,
			PV:      append([]model.Move(nil), s.rootPV...),
			Elapsed: time.Since(start),
		}
		log.Debugf("search: depth %d score %d nodes %d pv %v", depth, score, total, result.PV)
		if e.Progress != nil {
			e.Progress(result)
		}
		if isMateScore(score) {
			break
		}
	}
	result.Nodes = total
	result.Elapsed = time.Since(start)
	return result
}

func isMateScore(score int) bool {
	return score >= MateValue-MaxPly || score <= -MateValue+MaxPly
}
