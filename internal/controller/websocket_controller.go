package controller

import (
	"encoding/json"
	"fmt"

	"github.com/EvanSeven007/ReeseBot/internal/model"
	"github.com/EvanSeven007/ReeseBot/internal/service"
	"github.com/EvanSeven007/ReeseBot/internal/ws"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/websocket/v2"
)

type WebSocketController struct {
	gameService *service.GameService
}

func NewWebSocketController(gameService *service.GameService) *WebSocketController {
	return &WebSocketController{
		gameService: gameService,
	}
}

// HandleConnection is called when a new WebSocket connection is established
func (wsc *WebSocketController) HandleConnection(c *websocket.Conn) {
	gameID, _ := c.Locals("wsGameID").(string)
	playerID, _ := c.Locals("wsPlayerID").(string)
	log.Debugw("websocket connected", "game", gameID, "player", playerID)

	// Register this connection with the game
	if err := wsc.gameService.RegisterConnection(gameID, playerID, c); err != nil {
		log.Warnf("register connection for game %s: %v", gameID, err)
		c.WriteJSON(errorMessage(err.Error()))
		c.Close()
		return
	}
	defer wsc.gameService.UnregisterConnection(gameID, playerID, c)

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("read error in game %s: %v", gameID, err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg ws.Message
		if err := json.Unmarshal(message, &msg); err != nil {
			wsc.sendError(gameID, c, fmt.Sprintf("malformed message: %v", err))
			continue
		}

		if err := wsc.handleMessage(gameID, playerID, msg); err != nil {
			log.Debugf("message %s in game %s: %v", msg.Type, gameID, err)
			wsc.sendError(gameID, c, err.Error())
		}
	}
}

func (wsc *WebSocketController) handleMessage(gameID, playerID string, msg ws.Message) error {
	switch msg.Type {
	case ws.MessageTypeMove:
		var move model.WSMove
		if err := json.Unmarshal(msg.Payload, &move); err != nil {
			return err
		}
		return wsc.gameService.HandleMove(gameID, playerID, move)

	case ws.MessageTypeResign:
		return wsc.gameService.Resign(gameID, playerID)

	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

func errorMessage(text string) ws.Message {
	msg, err := ws.NewMessage(ws.MessageTypeError, ws.ErrorPayload{Message: text})
	if err != nil {
		return ws.Message{Type: ws.MessageTypeError}
	}
	return msg
}

func (wsc *WebSocketController) sendError(gameID string, c *websocket.Conn, text string) {
	if err := wsc.gameService.Send(gameID, c, errorMessage(text)); err != nil {
		log.Warnf("send error to game %s: %v", gameID, err)
	}
}
