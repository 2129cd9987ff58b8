package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/padraicbc/tennisapi/cache"
	"github.com/padraicbc/tennisapi/config"
	"github.com/padraicbc/tennisapi/db"
	"github.com/padraicbc/tennisapi/ingest"
	"github.com/padraicbc/tennisapi/models"
)

// Reader is the read side of the store used by the API.
type Reader interface {
	Players(ctx context.Context) ([]models.Player, error)
	Player(ctx context.Context, id int) (*models.Player, error)
	PlayerMatches(ctx context.Context, playerID int) (won, lost []models.Match, err error)
	Tournaments(ctx context.Context) ([]models.Tournament, error)
	Tournament(ctx context.Context, id int) (*models.Tournament, error)
	TournamentPlayers(ctx context.Context, tournamentID int) ([]db.PlayerRank, error)
	Matches(ctx context.Context) ([]models.Match, error)
	MatchOdds(ctx context.Context, matchID int) (*models.Odds, error)
	UserByName(ctx context.Context, username string) (*models.User, error)
}

// Jobs starts and reports ingestion jobs.
type Jobs interface {
	Start(season string) (ingest.Job, error)
	Job(id string) (ingest.Job, bool)
}

// Handler holds shared dependencies used by all route handlers.
type Handler struct {
	store      Reader
	jobs       Jobs
	cache      cache.Store
	cacheTTL   time.Duration
	season     string
	adminUsers []string
	JWTKey     []byte
	logger     *zap.Logger
}

// New creates a Handler serving store and jobs, configured from cfg.
func New(store Reader, jobs Jobs, c cache.Store, cfg *config.Config, logger *zap.Logger) *Handler {
	return &Handler{
		store:      store,
		jobs:       jobs,
		cache:      c,
		cacheTTL:   cfg.CacheTTL,
		season:     cfg.FeedSeason,
		adminUsers: cfg.AdminUsers,
		JWTKey:     cfg.JWTKey(),
		logger:     logger,
	}
}
