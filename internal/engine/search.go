package engine

import (
	"context"

	"github.com/EvanSeven007/ReeseBot/internal/model"
)

// searcher holds the bookkeeping of a single search call stack. It is never
// shared between goroutines.
type searcher struct {
	ctx      context.Context
	eval     Evaluator
	maxNodes int64
	nodes    int64
	stopped  bool

	// pv[ply] is the best line found from ply onwards, pvLen[ply] its end.
	pv    [MaxPly][MaxPly]model.Move
	pvLen [MaxPly]int
	// line is the path from the root to the node being searched.
	line [MaxPly]model.Move
	// confirmed is the line of the last alpha raise at any ply. Interior
	// nodes on that line try its move first.
	confirmed []model.Move
	// rootPV is the best root line of the current iteration.
	rootPV []model.Move
}

func newSearcher(ctx context.Context, eval Evaluator, maxNodes int64) *searcher {
	return &searcher{
		ctx:      ctx,
		eval:     eval,
		maxNodes: maxNodes,
	}
}

// searchRoot searches every root move to depth and returns the best one. ok
// is false when the search was stopped before all root moves were scored; the
// partial result must then be discarded.
func (s *searcher) searchRoot(b *model.BoardState, moves []model.Move, depth int) (best model.Move, bestScore int, ok bool) {
	s.pvLen[0] = 0
	if len(s.rootPV) > 0 {
		orderFirst(moves, s.rootPV[0])
	}
	s.rootPV = s.rootPV[:0]

	alpha, beta := -Infinity, Infinity
	bestScore = -Infinity
	for _, mv := range moves {
		if s.expired() {
			s.stopped = true
			return best, bestScore, false
		}
		s.line[0] = mv
		next := b.Apply(mv)
		score := -s.negamax(&next, -beta, -alpha, depth-1, 1)
		if s.stopped {
			return best, bestScore, false
		}
		if score > bestScore {
			best, bestScore = mv, score
		}
		if score > alpha {
			alpha = score
			s.updatePV(0, mv)
			s.confirm(0)
			s.rootPV = append(s.rootPV[:0], s.pv[0][:s.pvLen[0]]...)
		}
	}
	return best, bestScore, true
}

func (s *searcher) negamax(b *model.BoardState, alpha, beta, depth, ply int) int {
	s.pvLen[ply] = ply
	if s.poll() {
		return 0
	}

	inCheck := b.InCheck(b.ActiveColor)
	if depth <= 0 {
		if !inCheck {
			return s.quiescence(b, alpha, beta, ply)
		}
		depth = 1
	}
	if ply >= MaxPly-1 {
		return s.eval(b)
	}

	// mate distance pruning
	alpha = max(alpha, ply-MateValue)
	beta = min(beta, MateValue-ply)
	if alpha >= beta {
		return alpha
	}

	moves := model.GenerateMoves(b, b.ActiveColor)
	if len(moves) == 0 {
		if inCheck {
			return -(MateValue - ply)
		}
		return 0
	}
	if mv, ok := s.pvMove(b, ply); ok {
		orderFirst(moves, mv)
	}

	for _, mv := range moves {
		s.line[ply] = mv
		next := b.Apply(mv)
		score := -s.negamax(&next, -beta, -alpha, depth-1, ply+1)
		if s.stopped {
			return 0
		}
		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
			s.updatePV(ply, mv)
			s.confirm(ply)
		}
	}
	return alpha
}

// quiescence resolves captures until the position is quiet so that the
// horizon never falls in the middle of an exchange.
func (s *searcher) quiescence(b *model.BoardState, alpha, beta, ply int) int {
	s.pvLen[ply] = ply
	if s.poll() {
		return 0
	}

	standPat := s.eval(b)
	if ply >= MaxPly-1 {
		return standPat
	}
	if standPat >= beta {
		return beta
	}
	if standPat > alpha {
		alpha = standPat
	}

	for _, mv := range model.GenerateMoves(b, b.ActiveColor) {
		if !mv.IsCapture() {
			continue
		}
		next := b.Apply(mv)
		score := -s.quiescence(&next, -beta, -alpha, ply+1)
		if s.stopped {
			return 0
		}
		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
		}
	}
	return alpha
}

// pvMove returns the confirmed line's move for ply when the game reached b
// along that line.
func (s *searcher) pvMove(b *model.BoardState, ply int) (model.Move, bool) {
	if ply == 0 || ply >= len(s.confirmed) {
		return model.Move{}, false
	}
	if s.confirmed[ply-1] != b.LastMove {
		return model.Move{}, false
	}
	return s.confirmed[ply], true
}

func (s *searcher) updatePV(ply int, mv model.Move) {
	s.pv[ply][ply] = mv
	end := ply + 1
	if ply+1 < MaxPly {
		end = max(s.pvLen[ply+1], ply+1)
		copy(s.pv[ply][ply+1:end], s.pv[ply+1][ply+1:end])
	}
	s.pvLen[ply] = end
}

// confirm replaces the confirmed line with the path to ply followed by the
// best continuation found from ply.
func (s *searcher) confirm(ply int) {
	s.confirmed = append(s.confirmed[:0], s.line[:ply]...)
	s.confirmed = append(s.confirmed, s.pv[ply][ply:s.pvLen[ply]]...)
}

func (s *searcher) poll() bool {
	s.nodes++
	if s.stopped {
		return true
	}
	if s.maxNodes > 0 && s.nodes >= s.maxNodes {
		s.stopped = true
	} else if s.nodes%pollInterval == 0 && s.expired() {
		s.stopped = true
	}
	return s.stopped
}

func (s *searcher) expired() bool {
	return s.ctx.Err() != nil
}

// orderFirst moves mv to the front of moves, keeping the order of the rest.
func orderFirst(moves []model.Move, mv model.Move) {
	for i, m := range moves {
		if m == mv {
			copy(moves[1:i+1], moves[:i])
			moves[0] = mv
			return
		}
	}
}
