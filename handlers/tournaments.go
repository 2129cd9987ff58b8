package handlers

import (
	"github.com/labstack/echo/v4"
)

type playerRank struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

// Tournaments lists every tournament.
func (h *Handler) Tournaments(c echo.Context) (interface{}, error) {
	tournaments, err := h.store.Tournaments(c.Request().Context())
	if err != nil {
		return nil, err
	}
	out := make([]idName, 0, len(tournaments))
	for _, t := range tournaments {
		out = append(out, idName{ID: t.ID, Name: t.Name})
	}
	return out, nil
}

// TournamentPlayers lists the players of a tournament by ascending rank.
func (h *Handler) TournamentPlayers(c echo.Context) (interface{}, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	ctx := c.Request().Context()
	if _, err := h.store.Tournament(ctx, id); err != nil {
		return nil, err
	}

	rows, err := h.store.TournamentPlayers(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]playerRank, 0, len(rows))
	for _, r := range rows {
		out = append(out, playerRank{ID: r.ID, Name: r.Name, Rank: r.Rank})
	}
	return out, nil
}
