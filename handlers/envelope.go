package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/padraicbc/tennisapi/db"
	"github.com/padraicbc/tennisapi/metrics"
)

const (
	msgMethodNotAllowed = "Only the GET HTTP method is supported"
	msgUnknownID        = "We couldn't find any object with the given id!"
)

type okEnvelope struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

type errorEnvelope struct {
	Status string `json:"status"`
	Msg    string `json:"msg"`
}

type apiFunc func(c echo.Context) (interface{}, error)

// api wraps a read endpoint in the response envelope. Only GET is served,
// unknown ids become an error envelope, and both are answered with 200.
// Successful responses are cached by path.
func (h *Handler) api(fn apiFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().Method != http.MethodGet {
			return c.JSON(http.StatusOK, errorEnvelope{Status: "error", Msg: msgMethodNotAllowed})
		}

		ctx := c.Request().Context()
		key := c.Request().URL.Path

		body, found, err := h.cache.Get(ctx, key)
		if err != nil {
			h.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		if found {
			metrics.CacheHitsTotal.Inc()
			return c.JSONBlob(http.StatusOK, body)
		}
		metrics.CacheMissesTotal.Inc()

		data, err := fn(c)
		if errors.Is(err, db.ErrNotFound) {
			return c.JSON(http.StatusOK, errorEnvelope{Status: "error", Msg: msgUnknownID})
		}
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		body, err = json.Marshal(okEnvelope{Status: "ok", Data: data})
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if err := h.cache.Set(ctx, key, body, h.cacheTTL); err != nil {
			h.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
		return c.JSONBlob(http.StatusOK, body)
	}
}

// paramID reads a numeric path parameter. Anything else is an unknown id.
func paramID(c echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, db.ErrNotFound
	}
	return id, nil
}
