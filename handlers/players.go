package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/padraicbc/tennisapi/models"
)

const dateLayout = "2006-01-02"

type idName struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type playerMatch struct {
	ID           int      `json:"id"`
	Tournament   idName   `json:"tournament"`
	Date         string   `json:"date"`
	Round        string   `json:"round"`
	WinnerPoints int      `json:"winner_points"`
	LoserPoints  int      `json:"loser_points"`
	Status       string   `json:"status"`
	Sets         [][2]int `json:"sets"`
}

type playerMatches struct {
	Won  []playerMatch `json:"won"`
	Lost []playerMatch `json:"lost"`
}

// Players lists every player.
func (h *Handler) Players(c echo.Context) (interface{}, error) {
	players, err := h.store.Players(c.Request().Context())
	if err != nil {
		return nil, err
	}
	out := make([]idName, 0, len(players))
	for _, p := range players {
		out = append(out, idName{ID: p.ID, Name: p.Name})
	}
	return out, nil
}

// PlayerMatches lists the matches a player won and lost.
func (h *Handler) PlayerMatches(c echo.Context) (interface{}, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	ctx := c.Request().Context()
	if _, err := h.store.Player(ctx, id); err != nil {
		return nil, err
	}

	won, lost, err := h.store.PlayerMatches(ctx, id)
	if err != nil {
		return nil, err
	}
	return playerMatches{Won: toPlayerMatches(won), Lost: toPlayerMatches(lost)}, nil
}

func toPlayerMatches(matches []models.Match) []playerMatch {
	out := make([]playerMatch, 0, len(matches))
	for _, m := range matches {
		sets := make([][2]int, 0, len(m.Sets))
		for _, s := range m.Sets {
			sets = append(sets, [2]int{s.WinnerGames, s.LoserGames})
		}
		out = append(out, playerMatch{
			ID:           m.ID,
			Tournament:   tournamentRef(m),
			Date:         m.Date.Format(dateLayout),
			Round:        m.Round,
			WinnerPoints: m.WinnerPoints,
			LoserPoints:  m.LoserPoints,
			Status:       m.Status,
			Sets:         sets,
		})
	}
	return out
}

func tournamentRef(m models.Match) idName {
	if m.Tournament == nil {
		return idName{ID: m.TournamentID}
	}
	return idName{ID: m.Tournament.ID, Name: m.Tournament.Name}
}
