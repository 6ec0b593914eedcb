package engine

import (
	"context"
	"runtime"
	"sync"

	"github.com/EvanSeven007/ReeseBot/internal/model"
	"golang.org/x/sync/errgroup"
)

// Perft counts the leaf nodes of the legal move tree of b to depth.
func Perft(b *model.BoardState, depth int) uint64 {
	n, _ := perft(context.Background(), b, depth)
	return n
}

// perft stops with ctx's error once ctx is done. Leaf parents are counted
// without looking at ctx.
func perft(ctx context.Context, b *model.BoardState, depth int) (uint64, error) {
	if depth <= 0 {
		return 1, nil
	}
	moves := model.GenerateMoves(b, b.ActiveColor)
	if depth == 1 {
		return uint64(len(moves)), nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var nodes uint64
	for _, mv := range moves {
		next := b.Apply(mv)
		n, err := perft(ctx, &next, depth-1)
		if err != nil {
			return 0, err
		}
		nodes += n
	}
	return nodes, nil
}

// Divide runs Perft(depth-1) below every root move, one root move per
// goroutine, and returns the counts keyed by coordinate notation. It gives up
// with ctx's error soon after ctx is done.
func Divide(ctx context.Context, b *model.BoardState, depth int) (map[string]uint64, error) {
	moves := model.GenerateMoves(b, b.ActiveColor)
	result := make(map[string]uint64, len(moves))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, mv := range moves {
		mv := mv
		g.Go(func() error {
			next := b.Apply(mv)
			n, err := perft(ctx, &next, depth-1)
			if err != nil {
				return err
			}
			mu.Lock()
			result[mv.String()] = n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
