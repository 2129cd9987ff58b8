package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/padraicbc/tennisapi/config"
	"github.com/padraicbc/tennisapi/ingest"
)

// Warmup queues an ingestion of the configured season, or of the season
// query parameter when given, and acknowledges with the job id.
func (h *Handler) Warmup(c echo.Context) error {
	season := strings.TrimSpace(c.QueryParam("season"))
	if season == "" {
		season = h.season
	}
	if !config.ValidSeason(season) {
		return echo.NewHTTPError(http.StatusBadRequest, "season must be a year")
	}

	job, err := h.jobs.Start(season)
	if errors.Is(err, ingest.ErrAlreadyRunning) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	requester, _ := c.Get("username").(string)
	h.logger.Info("warmup requested",
		zap.String("job", job.ID),
		zap.String("season", season),
		zap.String("user", requester),
	)
	return c.String(http.StatusAccepted, fmt.Sprintf("ingestion of season %s queued as job %s", season, job.ID))
}

// JobStatus reports the state of an ingestion job.
func (h *Handler) JobStatus(c echo.Context) error {
	job, ok := h.jobs.Job(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	}
	return c.JSON(http.StatusOK, job)
}
