package ingest

import (
	"context"

	"github.com/padraicbc/tennisapi/db"
	"github.com/padraicbc/tennisapi/models"
)

// written is what one row produced in the store.
type written struct {
	Match *models.Match
	Sets  []*models.Set
	Odds  *models.Odds
}

// writeRecord stores one decoded row in the fixed order tournament, players,
// rankings, match, sets, odds. The match id is carried forward to the sets
// and odds instead of looking the match up again.
func writeRecord(ctx context.Context, w db.Writer, rec *Record) (*written, error) {
	tournament := rec.Tournament
	if err := w.FindOrInsertTournament(ctx, &tournament); err != nil {
		return nil, err
	}

	winner, err := w.FindOrInsertPlayer(ctx, rec.Winner)
	if err != nil {
		return nil, err
	}
	loser, err := w.FindOrInsertPlayer(ctx, rec.Loser)
	if err != nil {
		return nil, err
	}

	for _, r := range []models.Ranking{
		{PlayerID: winner.ID, TournamentID: tournament.ID, Rank: rec.WinnerRank},
		{PlayerID: loser.ID, TournamentID: tournament.ID, Rank: rec.LoserRank},
	} {
		if err := w.FindOrInsertRanking(ctx, &r); err != nil {
			return nil, err
		}
	}

	match := &models.Match{
		WinnerID:     winner.ID,
		LoserID:      loser.ID,
		TournamentID: tournament.ID,
		Date:         rec.Date,
		Round:        rec.Round,
		WinnerPoints: rec.WinnerPoints,
		LoserPoints:  rec.LoserPoints,
		Status:       rec.Status,
	}
	if err := w.InsertMatch(ctx, match); err != nil {
		return nil, err
	}

	sets := make([]*models.Set, 0, len(rec.Sets))
	for _, s := range rec.Sets {
		sets = append(sets, &models.Set{
			MatchID:     match.ID,
			SetNumber:   s.Number,
			WinnerGames: s.WinnerGames,
			LoserGames:  s.LoserGames,
		})
	}
	if err := w.InsertSets(ctx, sets); err != nil {
		return nil, err
	}

	odds := rec.Odds
	odds.MatchID = match.ID
	odds.Aggregate()
	if err := w.InsertOdds(ctx, &odds); err != nil {
		return nil, err
	}

	return &written{Match: match, Sets: sets, Odds: &odds}, nil
}
