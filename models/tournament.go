package models

import "github.com/uptrace/bun"

// Tournament is an event in the season feed. The full attribute tuple is its
// natural key; two rows differing in any field are different tournaments.
type Tournament struct {
	bun.BaseModel `bun:"table:tournaments,alias:t"`

	ID        int    `bun:"id,pk,autoincrement" json:"id"`
	ATPNumber int    `bun:"atp_number,notnull,unique:tournaments_natural_key" json:"atpNumber"`
	Name      string `bun:"name,notnull,unique:tournaments_natural_key" json:"name"`
	Location  string `bun:"location,notnull,unique:tournaments_natural_key" json:"location"`
	Series    string `bun:"series,notnull,unique:tournaments_natural_key" json:"series"`
	Court     string `bun:"court,notnull,unique:tournaments_natural_key" json:"court"`
	Surface   string `bun:"surface,notnull,unique:tournaments_natural_key" json:"surface"`
	BestOf    int    `bun:"best_of,notnull,unique:tournaments_natural_key" json:"bestOf"`
}
