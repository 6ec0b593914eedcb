// Command perft counts the leaf nodes of the move tree below a position.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"sort"
	"time"

	"github.com/EvanSeven007/ReeseBot/internal/engine"
	"github.com/EvanSeven007/ReeseBot/internal/model"
	"github.com/gofiber/fiber/v2/log"
)

func main() {
	fen := flag.String("fen", model.StartFEN, "FEN string (defaults to initial position)")
	depth := flag.Int("depth", 0, "Perft depth (required)")
	divide := flag.Bool("divide", false, "Print per-move node counts at root")
	cpuProf := flag.String("cpuprofile", "", "Write CPU profile to file during run")
	flag.Parse()

	if *depth <= 0 {
		fmt.Fprintln(os.Stderr, "-depth must be > 0")
		os.Exit(2)
	}

	board, err := model.ParseFEN(*fen)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ParseFEN error: %v\n", err)
		os.Exit(2)
	}

	if *cpuProf != "" {
		f, err := os.Create(*cpuProf)
		if err != nil {
			log.Fatalf("creating cpuprofile: %v", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("start cpu profile: %v", err)
		}
		defer func() {
			pprof.StopCPUProfile()
			f.Close()
		}()
	}

	start := time.Now()
	var nodes uint64
	if *divide {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		div, err := engine.Divide(ctx, &board, *depth)
		if err != nil {
			fmt.Fprintf(os.Stderr, "divide: %v\n", err)
			return
		}
		moves := make([]string, 0, len(div))
		for mv, n := range div {
			moves = append(moves, mv)
			nodes += n
		}
		sort.Strings(moves)
		for _, mv := range moves {
			fmt.Printf("%s: %d\n", mv, div[mv])
		}
	} else {
		nodes = engine.Perft(&board, *depth)
	}
	elapsed := time.Since(start)

	nps := float64(nodes) / max(elapsed.Seconds(), 1e-9)
	fmt.Printf("Total: %d\n", nodes)
	fmt.Printf("depth=%d time=%s nps=%.0f\n", *depth, elapsed.Round(time.Millisecond), nps)
}
