package models

import "github.com/uptrace/bun"

// Ranking is the rank a player held going into a tournament.
// A second rank for the same player and tournament is stored as another row.
type Ranking struct {
	bun.BaseModel `bun:"table:rankings,alias:rk"`

	ID           int `bun:"id,pk,autoincrement" json:"id"`
	PlayerID     int `bun:"player_id,notnull,unique:rankings_natural_key" json:"playerID"`
	TournamentID int `bun:"tournament_id,notnull,unique:rankings_natural_key" json:"tournamentID"`
	Rank         int `bun:"rank,notnull,unique:rankings_natural_key" json:"rank"`

	Player     *Player     `bun:"rel:belongs-to,join:player_id=id" json:"-"`
	Tournament *Tournament `bun:"rel:belongs-to,join:tournament_id=id" json:"-"`
}
