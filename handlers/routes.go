package handlers

import (
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Register mounts the read API under /api and the admin endpoints under
// /admin. auth guards every admin route except signin.
func (h *Handler) Register(e *echo.Echo, auth echo.MiddlewareFunc) {
	e.Pre(optionalTrailingSlash())

	api := e.Group("/api")
	api.Any("/players/", h.api(h.Players))
	api.Any("/player/:id/matches/", h.api(h.PlayerMatches))
	api.Any("/tournaments/", h.api(h.Tournaments))
	api.Any("/tournament/:id/players/", h.api(h.TournamentPlayers))
	api.Any("/matches/", h.api(h.Matches))
	api.Any("/match/:id/odds/", h.api(h.MatchOdds))

	e.POST("/admin/signin", h.Signin)

	admin := e.Group("/admin", auth)
	admin.GET("/warmup/", h.Warmup)
	admin.GET("/jobs/:id", h.JobStatus)
	admin.POST("/password-hash", h.PasswordHash)
}

// optionalTrailingSlash lets the slash-terminated routes be reached without
// the slash. Other routes are left alone.
func optionalTrailingSlash() echo.MiddlewareFunc {
	return echomw.AddTrailingSlashWithConfig(echomw.TrailingSlashConfig{
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return !strings.HasPrefix(p, "/api/") && p != "/admin/warmup"
		},
	})
}
