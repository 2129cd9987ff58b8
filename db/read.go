package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"github.com/padraicbc/tennisapi/models"
)

// PlayerRank is a tournament participant with the rank they entered with.
type PlayerRank struct {
	ID   int    `bun:"id"`
	Name string `bun:"name"`
	Rank int    `bun:"rank"`
}

// Players returns every player ordered by id.
func (s *Store) Players(ctx context.Context) ([]models.Player, error) {
	var players []models.Player
	err := s.db.NewSelect().Model(&players).OrderExpr("p.id ASC").Scan(ctx)
	return players, err
}

// Player returns the player with the given id or ErrNotFound.
func (s *Store) Player(ctx context.Context, id int) (*models.Player, error) {
	p := &models.Player{}
	err := s.db.NewSelect().Model(p).Where("p.id = ?", id).Scan(ctx)
	return p, notFound(err)
}

// PlayerMatches returns the matches the player won and lost, each with its
// tournament and sets ordered by set number.
func (s *Store) PlayerMatches(ctx context.Context, playerID int) (won, lost []models.Match, err error) {
	won, err = s.matchesWhere(ctx, "m.winner_id = ?", playerID)
	if err != nil {
		return nil, nil, err
	}
	lost, err = s.matchesWhere(ctx, "m.loser_id = ?", playerID)
	if err != nil {
		return nil, nil, err
	}
	return won, lost, nil
}

func (s *Store) matchesWhere(ctx context.Context, where string, args ...interface{}) ([]models.Match, error) {
	var matches []models.Match
	err := s.db.NewSelect().
		Model(&matches).
		Relation("Tournament").
		Relation("Sets", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("s.set_number ASC")
		}).
		Where(where, args...).
		OrderExpr("m.id ASC").
		Scan(ctx)
	return matches, err
}

// Tournaments returns every tournament ordered by id.
func (s *Store) Tournaments(ctx context.Context) ([]models.Tournament, error) {
	var tournaments []models.Tournament
	err := s.db.NewSelect().Model(&tournaments).OrderExpr("t.id ASC").Scan(ctx)
	return tournaments, err
}

// Tournament returns the tournament with the given id or ErrNotFound.
func (s *Store) Tournament(ctx context.Context, id int) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := s.db.NewSelect().Model(t).Where("t.id = ?", id).Scan(ctx)
	return t, notFound(err)
}

const tournamentPlayersSQL = `
SELECT p.id, p.name, MIN(rk.rank) AS rank
FROM players p
INNER JOIN rankings rk ON rk.player_id = p.id AND rk.tournament_id = ?0
WHERE p.id IN (
	SELECT winner_id FROM matches WHERE tournament_id = ?0
	UNION
	SELECT loser_id FROM matches WHERE tournament_id = ?0
)
GROUP BY p.id, p.name
ORDER BY rank ASC, p.id ASC
`

// TournamentPlayers returns the players who played a match in the tournament,
// ascending by rank. A player with several rankings is listed with the lowest.
func (s *Store) TournamentPlayers(ctx context.Context, tournamentID int) ([]PlayerRank, error) {
	var rows []PlayerRank
	err := s.db.NewRaw(tournamentPlayersSQL, tournamentID).Scan(ctx, &rows)
	return rows, err
}

// Matches returns every match with its tournament, ordered by id.
func (s *Store) Matches(ctx context.Context) ([]models.Match, error) {
	var matches []models.Match
	err := s.db.NewSelect().
		Model(&matches).
		Relation("Tournament").
		OrderExpr("m.id ASC").
		Scan(ctx)
	return matches, err
}

// MatchOdds returns the odds of a match. ErrNotFound covers both an unknown
// match and a match without odds.
func (s *Store) MatchOdds(ctx context.Context, matchID int) (*models.Odds, error) {
	o := &models.Odds{}
	err := s.db.NewSelect().Model(o).
		Where("o.match_id = ?", matchID).
		OrderExpr("o.id ASC").
		Limit(1).
		Scan(ctx)
	return o, notFound(err)
}

// UserByName returns the admin user with the given username or ErrNotFound.
func (s *Store) UserByName(ctx context.Context, username string) (*models.User, error) {
	u := &models.User{}
	err := s.db.NewSelect().Model(u).Where("u.username = ?", username).Scan(ctx)
	return u, notFound(err)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
