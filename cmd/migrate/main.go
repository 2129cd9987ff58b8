// cmd/migrate/main.go
// Copies a legacy MySQL deployment of the tennis data tables into the local
// PostgreSQL database, keeping row ids.
//
// Usage:
//
//	MYSQL_DSN="user:pass@tcp(host:3306)/tennis?parseTime=true" \
//	DB_PASS="pgpass" \
//	go run ./cmd/migrate
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"

	"github.com/padraicbc/tennisapi/config"
	bundb "github.com/padraicbc/tennisapi/db"
	"github.com/padraicbc/tennisapi/models"
)

const batchSize = 500

func main() {
	ctx := context.Background()

	cfg := config.Load()

	// --- MySQL ---
	if cfg.MySQLDSN == "" {
		log.Fatal("MYSQL_DSN required, e.g.: user:pass@tcp(host:3306)/tennis?parseTime=true")
	}
	myDB, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("open mysql: %v", err)
	}
	defer myDB.Close()
	myDB.SetMaxOpenConns(4)
	if err := myDB.PingContext(ctx); err != nil {
		log.Fatalf("ping mysql: %v", err)
	}
	log.Println("connected to MySQL")

	// --- PostgreSQL ---
	pgDB := bundb.Setup(cfg)
	defer pgDB.Close()
	log.Println("connected to PostgreSQL")

	if err := bundb.CreateTables(ctx, pgDB); err != nil {
		log.Fatalf("create tables: %v", err)
	}

	// Parents are copied before children so the foreign keys hold.
	steps := []struct {
		name string
		fn   func() (int, error)
	}{
		{"tournaments", func() (int, error) { return migrateTournaments(ctx, myDB, pgDB) }},
		{"players", func() (int, error) { return migratePlayers(ctx, myDB, pgDB) }},
		{"rankings", func() (int, error) { return migrateRankings(ctx, myDB, pgDB) }},
		{"matches", func() (int, error) { return migrateMatches(ctx, myDB, pgDB) }},
		{"sets", func() (int, error) { return migrateSets(ctx, myDB, pgDB) }},
		{"odds", func() (int, error) { return migrateOdds(ctx, myDB, pgDB) }},
	}

	for _, s := range steps {
		n, err := s.fn()
		if err != nil {
			log.Fatalf("migrate %s: %v", s.name, err)
		}
		log.Printf("%-15s  %d rows migrated", s.name, n)
	}

	resetSequences(ctx, pgDB)
	log.Println("migration complete")
}

// --- helpers ---

// bulkInsert inserts a batch, skipping rows that already exist (idempotent re-runs).
func bulkInsert[T any](ctx context.Context, pgDB *bun.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := pgDB.NewInsert().Model(&rows).On("CONFLICT DO NOTHING").Exec(ctx)
	return err
}

// copyRows runs query against MySQL and inserts the scanned rows in batches.
func copyRows[T any](ctx context.Context, myDB *sql.DB, pgDB *bun.DB, query string, scan func(*sql.Rows) (T, error)) (int, error) {
	rows, err := myDB.QueryContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	batch := make([]T, 0, batchSize)
	total := 0
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return total, err
		}
		batch = append(batch, r)
		if len(batch) >= batchSize {
			if err := bulkInsert(ctx, pgDB, batch); err != nil {
				return total, err
			}
			total += len(batch)
			batch = batch[:0]
		}
	}
	if err := rows.Err(); err != nil {
		return total, err
	}
	if err := bulkInsert(ctx, pgDB, batch); err != nil {
		return total, err
	}
	return total + len(batch), nil
}

// --- per-table migrations ---

func migrateTournaments(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	return copyRows(ctx, myDB, pgDB,
		`SELECT id, atp_number, name, location, series, court, surface, best_of
		 FROM tennis_data_tournament ORDER BY id`,
		func(rows *sql.Rows) (models.Tournament, error) {
			var t models.Tournament
			err := rows.Scan(&t.ID, &t.ATPNumber, &t.Name, &t.Location, &t.Series, &t.Court, &t.Surface, &t.BestOf)
			return t, err
		})
}

func migratePlayers(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	return copyRows(ctx, myDB, pgDB,
		"SELECT id, name FROM tennis_data_player ORDER BY id",
		func(rows *sql.Rows) (models.Player, error) {
			var p models.Player
			err := rows.Scan(&p.ID, &p.Name)
			return p, err
		})
}

func migrateRankings(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	return copyRows(ctx, myDB, pgDB,
		"SELECT id, player_id, tournament_id, `rank` FROM tennis_data_ranking ORDER BY id",
		func(rows *sql.Rows) (models.Ranking, error) {
			var r models.Ranking
			err := rows.Scan(&r.ID, &r.PlayerID, &r.TournamentID, &r.Rank)
			return r, err
		})
}

func migrateMatches(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	return copyRows(ctx, myDB, pgDB,
		"SELECT id, winner_id, loser_id, tournament_id, date, round, winner_points, loser_points, status "+
			"FROM tennis_data_match ORDER BY id",
		func(rows *sql.Rows) (models.Match, error) {
			var m models.Match
			err := rows.Scan(&m.ID, &m.WinnerID, &m.LoserID, &m.TournamentID, &m.Date,
				&m.Round, &m.WinnerPoints, &m.LoserPoints, &m.Status)
			return m, err
		})
}

func migrateSets(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	return copyRows(ctx, myDB, pgDB,
		"SELECT id, match_id, set_number, winner_games, loser_games FROM tennis_data_set ORDER BY id",
		func(rows *sql.Rows) (models.Set, error) {
			var s models.Set
			err := rows.Scan(&s.ID, &s.MatchID, &s.SetNumber, &s.WinnerGames, &s.LoserGames)
			return s, err
		})
}

// migrateOdds copies the bookmaker columns only. The aggregates are
// recomputed by the model on insert.
func migrateOdds(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	return copyRows(ctx, myDB, pgDB,
		`SELECT id, match_id, b365_winner, b365_loser, ex_winner, ex_loser,
		        lb_winner, lb_loser, ps_winner, ps_loser, sj_winner, sj_loser
		 FROM tennis_data_odds ORDER BY id`,
		func(rows *sql.Rows) (models.Odds, error) {
			var o models.Odds
			err := rows.Scan(&o.ID, &o.MatchID,
				&o.B365Winner, &o.B365Loser, &o.EXWinner, &o.EXLoser,
				&o.LBWinner, &o.LBLoser, &o.PSWinner, &o.PSLoser,
				&o.SJWinner, &o.SJLoser)
			o.Aggregate()
			return o, err
		})
}

// resetSequences advances each PG sequence to MAX(id) so new inserts don't conflict.
func resetSequences(ctx context.Context, pgDB *bun.DB) {
	for _, table := range []string{"tournaments", "players", "rankings", "matches", "sets", "odds"} {
		seq := table + "_id_seq"
		q := fmt.Sprintf(
			"SELECT setval('%s', COALESCE((SELECT MAX(id) FROM %s), 1))",
			seq, table,
		)
		if _, err := pgDB.ExecContext(ctx, q); err != nil {
			log.Printf("reset seq %s: %v", seq, err)
		}
	}
	log.Println("sequences reset")
}
