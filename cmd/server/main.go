package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/EvanSeven007/ReeseBot/internal/config"
	"github.com/EvanSeven007/ReeseBot/internal/controller"
	"github.com/EvanSeven007/ReeseBot/internal/engine"
	"github.com/EvanSeven007/ReeseBot/internal/service"
	"github.com/EvanSeven007/ReeseBot/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	var store *storage.Storage
	if cfg.InMemory {
		store, err = storage.OpenInMemory()
	} else {
		store, err = storage.Open(cfg.DataDir)
	}
	if err != nil {
		return err
	}
	defer store.Close()

	// Initialize services
	eng := engine.NewEngine(engine.Evaluate)
	gameManager := service.NewGameManager(eng, store, service.Options{
		ThinkTime: cfg.ThinkTime,
		MaxDepth:  cfg.MaxDepth,
		Poll:      cfg.SearchPoll,
	})
	gameService := service.NewGameService(gameManager, store)

	app := fiber.New(fiber.Config{
		AppName:               "ReeseBot",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, X-Player-ID",
		AllowMethods:     "GET, POST, OPTIONS",
		AllowCredentials: true,
	}))

	controller.Register(app,
		controller.NewGameController(gameService),
		controller.NewWebSocketController(gameService),
		strings.Split(cfg.AllowOrigins, ","),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gameManager.Run(ctx)
	})
	g.Go(func() error {
		log.Infof("listening on %s", cfg.Addr)
		return app.Listen(cfg.Addr)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
