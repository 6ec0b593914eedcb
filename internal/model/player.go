package model

// EngineID identifies the engine's seat in a game.
const EngineID = "reesebot"

type ClientPlayer struct {
	ID       string `json:"name"`
	Color    Color  `json:"color"`
	TimeLeft int    `json:"timeLeft"`
	IsEngine bool   `json:"isEngine"`
}
