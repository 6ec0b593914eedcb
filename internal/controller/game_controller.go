package controller

import (
	"context"
	"errors"
	"time"

	"github.com/EvanSeven007/ReeseBot/internal/model"
	"github.com/EvanSeven007/ReeseBot/internal/service"
	"github.com/EvanSeven007/ReeseBot/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

type GameController struct {
	gameService *service.GameService
}

func NewGameController(gameService *service.GameService) *GameController {
	return &GameController{gameService: gameService}
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrGameNotFound), errors.Is(err, storage.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, model.ErrInvalidFEN),
		errors.Is(err, model.ErrIllegalMove),
		errors.Is(err, model.ErrInvalidColor),
		errors.Is(err, service.ErrInvalidDepth),
		errors.Is(err, service.ErrInvalidMoveTime):
		return fiber.StatusBadRequest
	case errors.Is(err, model.ErrNotInGame):
		return fiber.StatusForbidden
	case errors.Is(err, model.ErrGameFull),
		errors.Is(err, model.ErrNotYourTurn),
		errors.Is(err, model.ErrGameOver):
		return fiber.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	}
	return fiber.StatusInternalServerError
}

func errorResponse(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Errorf("%s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func playerID(c *fiber.Ctx) string {
	id, _ := c.Locals("playerID").(string)
	return id
}

type createGameRequest struct {
	FEN   string `json:"fen"`
	Color string `json:"color"`
}

// CreateGame starts a game against the engine and seats the caller.
func (gc *GameController) CreateGame(c *fiber.Ctx) error {
	var req createGameRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
	}
	color := model.White
	if req.Color != "" {
		var err error
		if color, err = model.ParseColor(req.Color); err != nil {
			return badRequest(c, err)
		}
	}

	gameID, err := gc.gameService.CreateGame(req.FEN, color)
	if err != nil {
		return errorResponse(c, err)
	}
	if _, err := gc.gameService.JoinGame(gameID, playerID(c)); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Game created",
		"game_id": gameID,
		"color":   color,
	})
}

func (gc *GameController) JoinGame(c *fiber.Ctx) error {
	gameID := c.Params("gameId")

	color, err := gc.gameService.JoinGame(gameID, playerID(c))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Game joined",
		"color":   color,
	})
}

func (gc *GameController) GetGameState(c *fiber.Ctx) error {
	gameState, err := gc.gameService.GetGameState(c.Params("gameId"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(gameState)
}

func (gc *GameController) LegalMoves(c *fiber.Ctx) error {
	moves, err := gc.gameService.LegalMoves(c.Params("gameId"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"moves": moves,
	})
}

func (gc *GameController) MakeMove(c *fiber.Ctx) error {
	gameID := c.Params("gameId")
	var move model.WSMove
	if err := c.BodyParser(&move); err != nil {
		return badRequest(c, err)
	}

	if err := gc.gameService.HandleMove(gameID, playerID(c), move); err != nil {
		return errorResponse(c, err)
	}

	gameState, err := gc.gameService.GetGameState(gameID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(gameState)
}

func (gc *GameController) Resign(c *fiber.Ctx) error {
	if err := gc.gameService.Resign(c.Params("gameId"), playerID(c)); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Game resigned",
	})
}

// PGN serves the game record as a PGN file.
func (gc *GameController) PGN(c *fiber.Ctx) error {
	rec, err := gc.gameService.GetRecord(c.Params("gameId"))
	if err != nil {
		return errorResponse(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/x-chess-pgn")
	return c.SendString(rec.PGN)
}

func (gc *GameController) ListGames(c *fiber.Ctx) error {
	records, err := gc.gameService.ListRecords()
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(records)
}

func (gc *GameController) Stats(c *fiber.Ctx) error {
	stats, err := gc.gameService.Stats()
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(stats)
}

type analyzeRequest struct {
	FEN        string `json:"fen"`
	MoveTimeMs int    `json:"moveTimeMs"`
	Depth      int    `json:"depth"`
}

func (gc *GameController) Analyze(c *fiber.Ctx) error {
	var req analyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}

	moveTime := time.Duration(req.MoveTimeMs) * time.Millisecond
	analysis, err := gc.gameService.Analyze(c.UserContext(), req.FEN, moveTime, req.Depth)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(analysis)
}

func (gc *GameController) Perft(c *fiber.Ctx) error {
	res, err := gc.gameService.Perft(c.UserContext(), c.Query("fen"), c.QueryInt("depth", 1))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(res)
}
