package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	"go.uber.org/zap"

	"github.com/padraicbc/tennisapi/config"
	"github.com/padraicbc/tennisapi/models"
)

// Setup opens a PostgreSQL connection using the provided config.
func Setup(cfg *config.Config) *bun.DB {
	db, err := Open(context.Background(), cfg.PostgresDSN(), cfg.Debug)
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}
	return db
}

// Open connects to the database at dsn and checks it is reachable.
func Open(ctx context.Context, dsn string, debug bool) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// CreateTables creates all tables in dependency order, then the foreign keys
// and lookup indexes. Safe to run on every start.
func CreateTables(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{
		(*models.User)(nil),
		(*models.Tournament)(nil),
		(*models.Player)(nil),
		(*models.Ranking)(nil),
		(*models.Match)(nil),
		(*models.Set)(nil),
		(*models.Odds)(nil),
	}

	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("creating table for %T: %w", model, err)
		}
	}

	constraints := []string{
		foreignKey("rankings", "rankings_player_fk", "player_id", "players"),
		foreignKey("rankings", "rankings_tournament_fk", "tournament_id", "tournaments"),
		foreignKey("matches", "matches_winner_fk", "winner_id", "players"),
		foreignKey("matches", "matches_loser_fk", "loser_id", "players"),
		foreignKey("matches", "matches_tournament_fk", "tournament_id", "tournaments"),
		foreignKey("sets", "sets_match_fk", "match_id", "matches"),
		foreignKey("odds", "odds_match_fk", "match_id", "matches"),
		`CREATE INDEX IF NOT EXISTS matches_winner_idx ON matches (winner_id)`,
		`CREATE INDEX IF NOT EXISTS matches_loser_idx ON matches (loser_id)`,
		`CREATE INDEX IF NOT EXISTS matches_tournament_idx ON matches (tournament_id)`,
		`CREATE INDEX IF NOT EXISTS sets_match_idx ON sets (match_id, set_number)`,
		`CREATE INDEX IF NOT EXISTS odds_match_idx ON odds (match_id)`,
	}
	for _, stmt := range constraints {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			zap.L().Warn("schema statement failed", zap.String("stmt", stmt), zap.Error(err))
		}
	}

	return nil
}

func foreignKey(table, name, column, ref string) string {
	return fmt.Sprintf(
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (id) ON DELETE CASCADE; END IF; END $$`,
		name, table, name, column, ref,
	)
}
