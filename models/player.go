package models

import "github.com/uptrace/bun"

// Player is identified by name only.
type Player struct {
	bun.BaseModel `bun:"table:players,alias:p"`

	ID   int    `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,notnull,unique" json:"name"`
}
