package ingest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/padraicbc/tennisapi/config"
	"github.com/padraicbc/tennisapi/feed"
	"github.com/padraicbc/tennisapi/models"
	"github.com/padraicbc/tennisapi/testhelpers"
)

func seasonArchive(t *testing.T, season string, rows ...[]interface{}) []byte {
	all := append([][]interface{}{testhelpers.Header}, rows...)
	wb := testhelpers.WorkbookBytes(t, season, all, false)
	return testhelpers.ZipArchive(t, testhelpers.Entry{Name: season + ".xlsx", Data: wb})
}

func newTestRunner(t *testing.T, store *memStore, url string, after func(context.Context) error) *Runner {
	r := NewRunner(RunnerConfig{
		Fetcher:    feed.NewFetcher(5*time.Second, zap.NewNop()),
		Ingester:   newTestIngester(store),
		FeedURL:    func(season string) string { return strings.ReplaceAll(url, "{season}", season) },
		AfterWrite: after,
		Logger:     zap.NewNop(),
	})
	t.Cleanup(r.Close)
	return r
}

func waitForJob(t *testing.T, r *Runner, id string) Job {
	t.Helper()
	var job Job
	require.Eventually(t, func() bool {
		var ok bool
		job, ok = r.Job(id)
		return ok && (job.Status == StatusSucceeded || job.Status == StatusFailed)
	}, 10*time.Second, 10*time.Millisecond)
	return job
}

func TestRun_EndToEnd(t *testing.T) {
	srv := testhelpers.FeedServer(t, http.StatusOK, seasonArchive(t, "2011", testhelpers.SampleRow()))
	store := &memStore{}
	r := newTestRunner(t, store, srv.URL+"/{season}.zip", nil)

	sum, err := r.Run(context.Background(), "2011")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Rows)

	require.Len(t, store.tournaments, 1)
	assert.Equal(t, models.Tournament{
		ID:        1,
		ATPNumber: 1,
		Name:      "Brisbane International",
		Location:  "Brisbane",
		Series:    "ATP250",
		Court:     "Outdoor",
		Surface:   "Hard",
		BestOf:    3,
	}, store.tournaments[0])

	require.Len(t, store.players, 2)
	assert.Equal(t, "Soderling R.", store.players[0].Name)
	assert.Equal(t, "Hewitt L.", store.players[1].Name)

	require.Len(t, store.rankings, 2)
	assert.Equal(t, 5, store.rankings[0].Rank)
	assert.Equal(t, store.players[0].ID, store.rankings[0].PlayerID)
	assert.Equal(t, 54, store.rankings[1].Rank)
	assert.Equal(t, store.players[1].ID, store.rankings[1].PlayerID)

	require.Len(t, store.matches, 1)
	m := store.matches[0]
	assert.Equal(t, time.Date(2011, time.January, 3, 0, 0, 0, 0, time.UTC), m.Date)
	assert.Equal(t, "1st Round", m.Round)
	assert.Equal(t, 5785, m.WinnerPoints)
	assert.Equal(t, 1040, m.LoserPoints)
	assert.Equal(t, "Completed", m.Status)

	sets := store.setsOf(m.ID)
	require.Len(t, sets, 3)
	for i, want := range [][2]int{{6, 3}, {3, 6}, {7, 5}} {
		assert.Equal(t, i+1, sets[i].SetNumber)
		assert.Equal(t, want[0], sets[i].WinnerGames)
		assert.Equal(t, want[1], sets[i].LoserGames)
	}

	require.Len(t, store.odds, 1)
	o := store.odds[0]
	assert.Equal(t, []float64{1.5, 1.6, 1.55, 1.52, 1.57}, o.WinnerOdds())
	assert.Equal(t, []float64{2.5, 2.4, 2.3, 2.62, 2.2}, o.LoserOdds())
	// The sheet's own max/avg columns (9.99) are not used.
	assert.Equal(t, 1.6, o.MaxWinner)
	assert.Equal(t, 2.62, o.MaxLoser)
	assert.Equal(t, 1.548, o.AvgWinner)
	assert.Equal(t, 2.404, o.AvgLoser)
}

func TestRun_SheetMustMatchSeason(t *testing.T) {
	srv := testhelpers.FeedServer(t, http.StatusOK, seasonArchive(t, "2011", testhelpers.SampleRow()))
	store := &memStore{}
	r := newTestRunner(t, store, srv.URL+"/{season}.zip", nil)

	_, err := r.Run(context.Background(), "2012")
	assert.ErrorIs(t, err, feed.ErrSheetNotFound)
	assert.Empty(t, store.matches)
}

func TestStart_Succeeds(t *testing.T) {
	srv := testhelpers.FeedServer(t, http.StatusOK, seasonArchive(t, "2011", testhelpers.SampleRow()))
	var purged atomic.Int32
	r := newTestRunner(t, &memStore{}, srv.URL+"/{season}.zip", func(context.Context) error {
		purged.Add(1)
		return nil
	})

	job, err := r.Start("2011")
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "2011", job.Season)
	assert.Equal(t, srv.URL+"/2011.zip", job.URL)

	done := waitForJob(t, r, job.ID)
	assert.Equal(t, StatusSucceeded, done.Status)
	assert.Equal(t, 1, done.Summary.Rows)
	assert.Empty(t, done.Error)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.FinishedAt)
	assert.Equal(t, int32(1), purged.Load())
}

func TestStart_RecordsFailure(t *testing.T) {
	srv := testhelpers.FeedServer(t, http.StatusNotFound, nil)
	var purged atomic.Int32
	r := newTestRunner(t, &memStore{}, srv.URL+"/{season}.zip", func(context.Context) error {
		purged.Add(1)
		return nil
	})

	job, err := r.Start("2011")
	require.NoError(t, err)

	done := waitForJob(t, r, job.ID)
	assert.Equal(t, StatusFailed, done.Status)
	assert.Contains(t, done.Error, "status 404")
	assert.Zero(t, purged.Load())

	// The runner accepts a new job once the failed one is finished.
	_, err = r.Start("2011")
	assert.NoError(t, err)
}

func TestStart_PurgesAfterPartialFailure(t *testing.T) {
	withRound := func(round string) []interface{} {
		row := testhelpers.SampleRow()
		row[ColRound] = round
		return row
	}
	archive := seasonArchive(t, "2011", withRound("1st Round"), withRound("Quarterfinals"), withRound("Final"))
	srv := testhelpers.FeedServer(t, http.StatusOK, archive)

	var purged atomic.Int32
	store := &memStore{failMatch: "Quarterfinals"}
	r := newTestRunner(t, store, srv.URL+"/{season}.zip", func(context.Context) error {
		purged.Add(1)
		return nil
	})

	job, err := r.Start("2011")
	require.NoError(t, err)

	done := waitForJob(t, r, job.ID)
	assert.Equal(t, StatusFailed, done.Status)
	assert.Contains(t, done.Error, "sheet row 3")
	assert.Equal(t, 1, done.Summary.Rows)

	// The first row stays committed, so cached responses must go.
	require.Len(t, store.matches, 1)
	assert.Equal(t, "1st Round", store.matches[0].Round)
	assert.Equal(t, int32(1), purged.Load())
}

func TestRun_LegacyWorkbook(t *testing.T) {
	sheet := testhelpers.XLSBytes(t, "2011", [][]interface{}{testhelpers.Header, testhelpers.SampleRow()}, false)
	archive := testhelpers.ZipArchive(t, testhelpers.Entry{Name: "2011.xls", Data: sheet})
	srv := testhelpers.FeedServer(t, http.StatusOK, archive)
	store := &memStore{}
	r := newTestRunner(t, store, srv.URL+"/{season}.zip", nil)

	sum, err := r.Run(context.Background(), "2011")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Rows)

	require.Len(t, store.matches, 1)
	assert.Equal(t, time.Date(2011, time.January, 3, 0, 0, 0, 0, time.UTC), store.matches[0].Date)
	assert.Len(t, store.setsOf(store.matches[0].ID), 3)
	require.Len(t, store.odds, 1)
	assert.Equal(t, 1.6, store.odds[0].MaxWinner)
}

type blockingFetcher struct {
	release chan struct{}
}

func (f *blockingFetcher) Fetch(ctx context.Context, _ string) (*feed.Workbook, error) {
	select {
	case <-f.release:
		return nil, errors.New("released")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestStart_OneJobAtATime(t *testing.T) {
	fetcher := &blockingFetcher{release: make(chan struct{})}
	r := NewRunner(RunnerConfig{
		Fetcher:  fetcher,
		Ingester: NewIngester(&memStore{}, config.DefaultOddsFloor, zap.NewNop()),
		FeedURL:  func(s string) string { return "http://feed/" + s },
		Logger:   zap.NewNop(),
	})
	defer r.Close()

	first, err := r.Start("2011")
	require.NoError(t, err)

	_, err = r.Start("2012")
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(fetcher.release)
	done := waitForJob(t, r, first.ID)
	assert.Equal(t, StatusFailed, done.Status)
	assert.Equal(t, "released", done.Error)
}

func TestClose_CancelsRunningJob(t *testing.T) {
	fetcher := &blockingFetcher{release: make(chan struct{})}
	r := NewRunner(RunnerConfig{
		Fetcher:  fetcher,
		Ingester: NewIngester(&memStore{}, config.DefaultOddsFloor, zap.NewNop()),
		FeedURL:  func(s string) string { return "http://feed/" + s },
		Logger:   zap.NewNop(),
	})

	job, err := r.Start("2011")
	require.NoError(t, err)

	r.Close()

	done, ok := r.Job(job.ID)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, done.Status)
	assert.Contains(t, done.Error, context.Canceled.Error())

	_, err = r.Start("2011")
	assert.Error(t, err)
}

func TestJob_Unknown(t *testing.T) {
	r := NewRunner(RunnerConfig{Logger: zap.NewNop()})
	defer r.Close()

	_, ok := r.Job("missing")
	assert.False(t, ok)
}

func TestSchedule_RejectsBadSpec(t *testing.T) {
	r := NewRunner(RunnerConfig{Logger: zap.NewNop()})
	defer r.Close()

	assert.Error(t, r.Schedule("not a cron spec", "2011"))
	assert.NoError(t, r.Schedule("0 3 * * *", "2011"))
}
