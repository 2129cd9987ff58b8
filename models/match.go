package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Match is a single played match. Matches have no natural key and are
// inserted unconditionally.
type Match struct {
	bun.BaseModel `bun:"table:matches,alias:m"`

	ID           int       `bun:"id,pk,autoincrement" json:"id"`
	WinnerID     int       `bun:"winner_id,notnull" json:"winnerID"`
	LoserID      int       `bun:"loser_id,notnull" json:"loserID"`
	TournamentID int       `bun:"tournament_id,notnull" json:"tournamentID"`
	Date         time.Time `bun:"date,notnull,type:date" json:"date"`
	Round        string    `bun:"round,notnull" json:"round"`
	WinnerPoints int       `bun:"winner_points,notnull" json:"winnerPoints"`
	LoserPoints  int       `bun:"loser_points,notnull" json:"loserPoints"`
	Status       string    `bun:"status,notnull" json:"status"`

	Tournament *Tournament `bun:"rel:belongs-to,join:tournament_id=id" json:"-"`
	Sets       []*Set      `bun:"rel:has-many,join:id=match_id" json:"-"`
}
