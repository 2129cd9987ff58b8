package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/padraicbc/tennisapi/config"
	"github.com/padraicbc/tennisapi/testhelpers"
)

func sheet(rows ...[]interface{}) [][]string {
	out := [][]string{stringRow(testhelpers.Header)}
	for _, r := range rows {
		out = append(out, stringRow(r))
	}
	return out
}

func newTestIngester(store *memStore) *Ingester {
	return NewIngester(store, config.DefaultOddsFloor, zap.NewNop())
}

func TestIngestRows_WritesEveryEntity(t *testing.T) {
	store := &memStore{}
	sum, err := newTestIngester(store).IngestRows(context.Background(), sheet(testhelpers.SampleRow()), false)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Rows)
	assert.Equal(t, 1, sum.Matches)
	assert.Equal(t, 3, sum.Sets)
	assert.Equal(t, 0, sum.Defaulted)

	require.Len(t, store.tournaments, 1)
	require.Len(t, store.players, 2)
	require.Len(t, store.rankings, 2)
	require.Len(t, store.matches, 1)
	require.Len(t, store.sets, 3)
	require.Len(t, store.odds, 1)

	m := store.matches[0]
	assert.Equal(t, store.players[0].ID, m.WinnerID)
	assert.Equal(t, store.players[1].ID, m.LoserID)
	assert.Equal(t, store.tournaments[0].ID, m.TournamentID)
	assert.Equal(t, m.ID, store.odds[0].MatchID)
	for _, s := range store.sets {
		assert.Equal(t, m.ID, s.MatchID)
	}
	assert.Equal(t, 1, store.txCount)
}

func TestIngestRows_HeaderOnly(t *testing.T) {
	store := &memStore{}
	sum, err := newTestIngester(store).IngestRows(context.Background(), sheet(), false)
	require.NoError(t, err)
	assert.Equal(t, Summary{Took: sum.Took}, sum)
	assert.Empty(t, store.matches)
}

func TestIngestRows_ReingestDuplicatesMatchesOnly(t *testing.T) {
	second := testhelpers.SampleRow()
	second[ColRound] = "2nd Round"
	second[ColWinner], second[ColLoser] = "Soderling R.", "Bellucci T."
	second[ColWRank], second[ColLRank] = 5, 36

	rows := sheet(testhelpers.SampleRow(), second)
	store := &memStore{}
	in := newTestIngester(store)

	_, err := in.IngestRows(context.Background(), rows, false)
	require.NoError(t, err)
	_, err = in.IngestRows(context.Background(), rows, false)
	require.NoError(t, err)

	assert.Len(t, store.tournaments, 1, "tournament is found on the second pass")
	assert.Len(t, store.players, 3, "one player per distinct name")
	assert.Len(t, store.rankings, 3, "one ranking per (player, tournament, rank)")

	// Matches, sets and odds have no natural key and are written again.
	assert.Len(t, store.matches, 4)
	assert.Len(t, store.sets, 12)
	assert.Len(t, store.odds, 4)
}

func TestIngestRows_DifferentRankAddsRanking(t *testing.T) {
	second := testhelpers.SampleRow()
	second[ColWRank] = 4

	store := &memStore{}
	_, err := newTestIngester(store).IngestRows(context.Background(), sheet(testhelpers.SampleRow(), second), false)
	require.NoError(t, err)

	assert.Len(t, store.rankings, 3)
}

func TestIngestRows_TournamentKeyIsFullTuple(t *testing.T) {
	second := testhelpers.SampleRow()
	second[ColCourt] = "Indoor"

	store := &memStore{}
	_, err := newTestIngester(store).IngestRows(context.Background(), sheet(testhelpers.SampleRow(), second), false)
	require.NoError(t, err)

	assert.Len(t, store.tournaments, 2)
}

func TestIngestRows_SingleSetRow(t *testing.T) {
	vals := testhelpers.SampleRow()
	for c := ColW2; c <= ColL5; c++ {
		vals[c] = ""
	}

	store := &memStore{}
	_, err := newTestIngester(store).IngestRows(context.Background(), sheet(vals), false)
	require.NoError(t, err)

	require.Len(t, store.sets, 1)
	assert.Equal(t, 1, store.sets[0].SetNumber)
	assert.Equal(t, 6, store.sets[0].WinnerGames)
	assert.Equal(t, 3, store.sets[0].LoserGames)
}

func TestIngestRows_FailureKeepsEarlierRows(t *testing.T) {
	bad := testhelpers.SampleRow()
	bad[ColRound] = "Quarterfinals"
	third := testhelpers.SampleRow()
	third[ColRound] = "Semifinals"

	store := &memStore{failMatch: "Quarterfinals"}
	sum, err := newTestIngester(store).IngestRows(context.Background(), sheet(testhelpers.SampleRow(), bad, third), false)

	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 3, rowErr.Row)
	assert.Equal(t, 1, sum.Rows)

	require.Len(t, store.matches, 1, "the failing row is rolled back and the next is not read")
	assert.Equal(t, "1st Round", store.matches[0].Round)
	assert.Len(t, store.sets, 3)
	assert.Len(t, store.odds, 1)
}

func TestIngestRows_DecodeErrorStopsRun(t *testing.T) {
	bad := testhelpers.SampleRow()
	bad[ColDate] = "not a date"

	store := &memStore{}
	_, err := newTestIngester(store).IngestRows(context.Background(), sheet(testhelpers.SampleRow(), bad), false)
	require.ErrorIs(t, err, ErrBadDate)
	assert.Contains(t, err.Error(), "sheet row 3")
	assert.Len(t, store.matches, 1)
}

func TestIngestRows_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &memStore{}
	_, err := newTestIngester(store).IngestRows(ctx, sheet(testhelpers.SampleRow()), false)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.matches)
}

func TestIngestRows_OddsAggregates(t *testing.T) {
	vals := testhelpers.SampleRow()
	vals[ColPSW] = ""

	store := &memStore{}
	sum, err := newTestIngester(store).IngestRows(context.Background(), sheet(vals), false)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Defaulted)

	o := store.odds[0]
	assert.Equal(t, config.DefaultOddsFloor, o.PSWinner)
	assert.Equal(t, 1.6, o.MaxWinner)
	assert.InDelta(t, (1.5+1.6+1.55+config.DefaultOddsFloor+1.57)/5, o.AvgWinner, 1e-12)
	assert.Equal(t, 2.62, o.MaxLoser)
	assert.Equal(t, 2.404, o.AvgLoser)
}

func TestIngestRows_UsesWorkbookDateMode(t *testing.T) {
	vals := testhelpers.SampleRow()
	vals[ColDate] = 39084

	store := &memStore{}
	_, err := newTestIngester(store).IngestRows(context.Background(), sheet(vals), true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2011, time.January, 3, 0, 0, 0, 0, time.UTC), store.matches[0].Date)
}

func TestRowError(t *testing.T) {
	err := &RowError{Row: 7, Err: ErrPartialSet}
	assert.Equal(t, "sheet row 7: partial set score", err.Error())
	assert.ErrorIs(t, err, ErrPartialSet)
}
