package models

import "github.com/uptrace/bun"

// User is an admin account allowed to trigger ingestion. Password is a bcrypt hash.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID       int    `bun:"id,pk,autoincrement" json:"id"`
	Username string `bun:"username,notnull,unique" json:"username"`
	Password string `bun:"password,notnull" json:"-"`
}
