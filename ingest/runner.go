package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/padraicbc/tennisapi/feed"
	"github.com/padraicbc/tennisapi/metrics"
)

const afterWriteTimeout = 30 * time.Second

// ErrAlreadyRunning is returned by Start while another job is in progress.
var ErrAlreadyRunning = errors.New("an ingestion job is already running")

// Status of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Job is a snapshot of a background ingestion.
type Job struct {
	ID         string     `json:"id"`
	Season     string     `json:"season"`
	URL        string     `json:"url"`
	Status     Status     `json:"status"`
	Summary    Summary    `json:"summary"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Fetcher opens the workbook published at a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*feed.Workbook, error)
}

// RunnerConfig wires a Runner.
type RunnerConfig struct {
	Fetcher  Fetcher
	Ingester *Ingester
	// FeedURL maps a season to its archive URL.
	FeedURL func(season string) string
	// AfterWrite runs once a job that committed at least one row has
	// finished, failed or not, e.g. to purge caches. Its error is logged only.
	AfterWrite func(ctx context.Context) error
	Logger     *zap.Logger
}

// Runner executes ingestion jobs one at a time in the background.
type Runner struct {
	cfg RunnerConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	jobs   map[string]*Job
	active string
	cron   *cron.Cron
}

// NewRunner returns a Runner ready to accept jobs.
func NewRunner(cfg RunnerConfig) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*Job),
	}
}

// Run fetches and ingests a season synchronously. The sheet read is named
// after the season.
func (r *Runner) Run(ctx context.Context, season string) (Summary, error) {
	url := r.cfg.FeedURL(season)
	wb, err := r.cfg.Fetcher.Fetch(ctx, url)
	if err != nil {
		return Summary{}, err
	}
	defer wb.Close()

	rows, err := wb.Rows(season)
	if err != nil {
		return Summary{}, err
	}

	r.cfg.Logger.Info("ingesting sheet",
		zap.String("season", season),
		zap.String("entry", wb.Name),
		zap.Int("rows", len(rows)),
		zap.Bool("date1904", wb.Date1904),
	)
	return r.cfg.Ingester.IngestRows(ctx, rows, wb.Date1904)
}

// Start queues a background job for season and returns its snapshot.
func (r *Runner) Start(season string) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx.Err() != nil {
		return Job{}, fmt.Errorf("runner closed: %w", r.ctx.Err())
	}
	if r.active != "" {
		return Job{}, ErrAlreadyRunning
	}

	job := &Job{
		ID:        uuid.NewString(),
		Season:    season,
		URL:       r.cfg.FeedURL(season),
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	r.jobs[job.ID] = job
	r.active = job.ID

	r.wg.Add(1)
	go r.execute(job.ID, season)

	return *job, nil
}

// Job returns the current snapshot of job id.
func (r *Runner) Job(id string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

func (r *Runner) execute(id, season string) {
	defer r.wg.Done()

	r.update(id, func(j *Job) {
		now := time.Now().UTC()
		j.Status = StatusRunning
		j.StartedAt = &now
	})
	log := r.cfg.Logger.With(zap.String("job", id), zap.String("season", season))
	log.Info("ingestion started")

	start := time.Now()
	sum, err := r.Run(r.ctx, season)
	metrics.IngestDuration.Observe(time.Since(start).Seconds())

	r.mu.Lock()
	job := r.jobs[id]
	now := time.Now().UTC()
	job.FinishedAt = &now
	job.Summary = sum
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
	} else {
		job.Status = StatusSucceeded
	}
	r.active = ""
	r.mu.Unlock()

	if err != nil {
		metrics.IngestRunsTotal.WithLabelValues(string(StatusFailed)).Inc()
		log.Error("ingestion failed", zap.Error(err), zap.Int("rows", sum.Rows))
	} else {
		metrics.IngestRunsTotal.WithLabelValues(string(StatusSucceeded)).Inc()
		log.Info("ingestion finished",
			zap.Int("rows", sum.Rows),
			zap.Int("sets", sum.Sets),
			zap.Int("defaulted", sum.Defaulted),
			zap.Duration("took", sum.Took),
		)
	}

	// Rows commit one transaction each, so a failed run may still have
	// changed what readers see.
	if sum.Rows > 0 && r.cfg.AfterWrite != nil {
		// Still runs when Close cancelled the job part way.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.ctx), afterWriteTimeout)
		defer cancel()
		if err := r.cfg.AfterWrite(ctx); err != nil {
			log.Warn("post-ingestion hook failed", zap.Error(err))
		}
	}
}

func (r *Runner) update(id string, fn func(j *Job)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.jobs[id])
}

// Schedule starts a job for season on the given cron spec. A tick that finds
// a job already running is skipped.
func (r *Runner) Schedule(spec, season string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron == nil {
		r.cron = cron.New()
	}
	_, err := r.cron.AddFunc(spec, func() {
		job, err := r.Start(season)
		if err != nil {
			r.cfg.Logger.Warn("scheduled ingestion skipped", zap.String("season", season), zap.Error(err))
			return
		}
		r.cfg.Logger.Info("scheduled ingestion queued", zap.String("job", job.ID))
	})
	if err != nil {
		return fmt.Errorf("schedule ingestion %q: %w", spec, err)
	}
	r.cron.Start()
	return nil
}

// Close stops the schedule, cancels a running job and waits for it to return.
func (r *Runner) Close() {
	r.mu.Lock()
	c := r.cron
	r.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}

	r.cancel()
	r.wg.Wait()
}
