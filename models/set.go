package models

import "github.com/uptrace/bun"

// MaxSets is the highest set number a match can have.
const MaxSets = 5

// Set holds the game counts of one set of a match.
type Set struct {
	bun.BaseModel `bun:"table:sets,alias:s"`

	ID          int `bun:"id,pk,autoincrement" json:"id"`
	MatchID     int `bun:"match_id,notnull" json:"matchID"`
	SetNumber   int `bun:"set_number,notnull" json:"setNumber"`
	WinnerGames int `bun:"winner_games,notnull" json:"winnerGames"`
	LoserGames  int `bun:"loser_games,notnull" json:"loserGames"`
}
