package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/padraicbc/tennisapi/models"
)

// ErrNotFound is returned by lookups by id when no row exists.
var ErrNotFound = errors.New("not found")

// Writer is the write side of the store used by ingestion. Tournament, Player
// and Ranking are find-or-insert on their natural keys; Match, Set and Odds
// are always inserted.
type Writer interface {
	FindOrInsertTournament(ctx context.Context, t *models.Tournament) error
	FindOrInsertPlayer(ctx context.Context, name string) (*models.Player, error)
	FindOrInsertRanking(ctx context.Context, r *models.Ranking) error
	InsertMatch(ctx context.Context, m *models.Match) error
	InsertSets(ctx context.Context, sets []*models.Set) error
	InsertOdds(ctx context.Context, o *models.Odds) error

	// RunInTx calls fn with a Writer bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	RunInTx(ctx context.Context, fn func(ctx context.Context, w Writer) error) error
}

// Store implements Writer and the read queries on top of bun.
type Store struct {
	db   bun.IDB
	root *bun.DB // nil when the store is bound to a transaction
}

var _ Writer = (*Store)(nil)

// NewStore wraps an open database.
func NewStore(db *bun.DB) *Store {
	return &Store{db: db, root: db}
}

// RunInTx implements Writer. Nested calls reuse the outer transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, w Writer) error) error {
	if s.root == nil {
		return fn(ctx, s)
	}
	return s.root.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Store{db: tx})
	})
}

// FindOrInsertTournament looks the tournament up by its full attribute tuple
// and inserts it when missing. t.ID is set either way.
func (s *Store) FindOrInsertTournament(ctx context.Context, t *models.Tournament) error {
	find := func() error {
		return s.db.NewSelect().Model(t).
			Where("t.atp_number = ?", t.ATPNumber).
			Where("t.name = ?", t.Name).
			Where("t.location = ?", t.Location).
			Where("t.series = ?", t.Series).
			Where("t.court = ?", t.Court).
			Where("t.surface = ?", t.Surface).
			Where("t.best_of = ?", t.BestOf).
			Limit(1).
			Scan(ctx)
	}
	if err := s.findOrInsert(ctx, t, find); err != nil {
		return fmt.Errorf("find or insert tournament %q: %w", t.Name, err)
	}
	return nil
}

// FindOrInsertPlayer returns the player with the given name, creating it if needed.
func (s *Store) FindOrInsertPlayer(ctx context.Context, name string) (*models.Player, error) {
	p := &models.Player{Name: name}
	find := func() error {
		return s.db.NewSelect().Model(p).Where("p.name = ?", name).Limit(1).Scan(ctx)
	}
	if err := s.findOrInsert(ctx, p, find); err != nil {
		return nil, fmt.Errorf("find or insert player %q: %w", name, err)
	}
	return p, nil
}

// FindOrInsertRanking looks the ranking up by (player, tournament, rank).
func (s *Store) FindOrInsertRanking(ctx context.Context, r *models.Ranking) error {
	find := func() error {
		return s.db.NewSelect().Model(r).
			Where("rk.player_id = ?", r.PlayerID).
			Where("rk.tournament_id = ?", r.TournamentID).
			Where("rk.rank = ?", r.Rank).
			Limit(1).
			Scan(ctx)
	}
	if err := s.findOrInsert(ctx, r, find); err != nil {
		return fmt.Errorf("find or insert ranking for player %d: %w", r.PlayerID, err)
	}
	return nil
}

// findOrInsert runs find, inserts model when nothing matched and runs find
// again so the id of a row inserted concurrently is picked up too.
func (s *Store) findOrInsert(ctx context.Context, model interface{}, find func() error) error {
	err := find()
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	_, err = s.db.NewInsert().Model(model).
		On("CONFLICT DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return err
	}
	return find()
}

// InsertMatch always inserts a new match row and sets m.ID.
func (s *Store) InsertMatch(ctx context.Context, m *models.Match) error {
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

// InsertSets inserts the sets of one match in a single statement.
func (s *Store) InsertSets(ctx context.Context, sets []*models.Set) error {
	if len(sets) == 0 {
		return nil
	}
	if _, err := s.db.NewInsert().Model(&sets).Exec(ctx); err != nil {
		return fmt.Errorf("insert sets: %w", err)
	}
	return nil
}

// InsertOdds inserts an odds row. Aggregates are recomputed by the model hook.
func (s *Store) InsertOdds(ctx context.Context, o *models.Odds) error {
	if _, err := s.db.NewInsert().Model(o).Exec(ctx); err != nil {
		return fmt.Errorf("insert odds: %w", err)
	}
	return nil
}
