package ingest

import (
	"context"
	"fmt"
	"slices"

	"github.com/padraicbc/tennisapi/db"
	"github.com/padraicbc/tennisapi/models"
)

// memStore is an in-memory db.Writer with the same find-or-insert keys as the
// database. RunInTx restores the previous state when fn fails.
type memStore struct {
	tournaments []models.Tournament
	players     []models.Player
	rankings    []models.Ranking
	matches     []models.Match
	sets        []models.Set
	odds        []models.Odds

	// failMatch makes InsertMatch fail for the given round.
	failMatch string
	txCount   int
}

var _ db.Writer = (*memStore)(nil)

func (m *memStore) RunInTx(ctx context.Context, fn func(ctx context.Context, w db.Writer) error) error {
	m.txCount++
	snapshot := memStore{
		tournaments: slices.Clone(m.tournaments),
		players:     slices.Clone(m.players),
		rankings:    slices.Clone(m.rankings),
		matches:     slices.Clone(m.matches),
		sets:        slices.Clone(m.sets),
		odds:        slices.Clone(m.odds),
	}
	if err := fn(ctx, m); err != nil {
		m.tournaments, m.players, m.rankings = snapshot.tournaments, snapshot.players, snapshot.rankings
		m.matches, m.sets, m.odds = snapshot.matches, snapshot.sets, snapshot.odds
		return err
	}
	return nil
}

func (m *memStore) FindOrInsertTournament(_ context.Context, t *models.Tournament) error {
	for _, existing := range m.tournaments {
		candidate := *t
		candidate.ID = existing.ID
		if candidate == existing {
			t.ID = existing.ID
			return nil
		}
	}
	t.ID = len(m.tournaments) + 1
	m.tournaments = append(m.tournaments, *t)
	return nil
}

func (m *memStore) FindOrInsertPlayer(_ context.Context, name string) (*models.Player, error) {
	for _, p := range m.players {
		if p.Name == name {
			return &p, nil
		}
	}
	p := models.Player{ID: len(m.players) + 1, Name: name}
	m.players = append(m.players, p)
	return &p, nil
}

func (m *memStore) FindOrInsertRanking(_ context.Context, r *models.Ranking) error {
	for _, existing := range m.rankings {
		if existing.PlayerID == r.PlayerID && existing.TournamentID == r.TournamentID && existing.Rank == r.Rank {
			r.ID = existing.ID
			return nil
		}
	}
	r.ID = len(m.rankings) + 1
	m.rankings = append(m.rankings, *r)
	return nil
}

func (m *memStore) InsertMatch(_ context.Context, match *models.Match) error {
	if m.failMatch != "" && match.Round == m.failMatch {
		return fmt.Errorf("insert match: injected failure for %q", match.Round)
	}
	match.ID = len(m.matches) + 1
	m.matches = append(m.matches, *match)
	return nil
}

func (m *memStore) InsertSets(_ context.Context, sets []*models.Set) error {
	for _, s := range sets {
		s.ID = len(m.sets) + 1
		m.sets = append(m.sets, *s)
	}
	return nil
}

func (m *memStore) InsertOdds(_ context.Context, o *models.Odds) error {
	o.Aggregate()
	o.ID = len(m.odds) + 1
	m.odds = append(m.odds, *o)
	return nil
}

func (m *memStore) setsOf(matchID int) []models.Set {
	var out []models.Set
	for _, s := range m.sets {
		if s.MatchID == matchID {
			out = append(out, s)
		}
	}
	return out
}
