package handlers

import (
	"github.com/labstack/echo/v4"
)

type matchSummary struct {
	ID         int    `json:"id"`
	Tournament idName `json:"tournament"`
	Round      string `json:"round"`
	Date       string `json:"date"`
}

type matchOdds struct {
	B365Winner float64 `json:"b365_winner"`
	B365Loser  float64 `json:"b365_loser"`
	EXWinner   float64 `json:"ex_winner"`
	EXLoser    float64 `json:"ex_loser"`
	LBWinner   float64 `json:"lb_winner"`
	LBLoser    float64 `json:"lb_loser"`
	PSWinner   float64 `json:"ps_winner"`
	PSLoser    float64 `json:"ps_loser"`
	SJWinner   float64 `json:"sj_winner"`
	SJLoser    float64 `json:"sj_loser"`
	MaxWinner  float64 `json:"max_winner"`
	MaxLoser   float64 `json:"max_loser"`
	AvgWinner  float64 `json:"avg_winner"`
	AvgLoser   float64 `json:"avg_loser"`
}

// Matches lists every match.
func (h *Handler) Matches(c echo.Context) (interface{}, error) {
	matches, err := h.store.Matches(c.Request().Context())
	if err != nil {
		return nil, err
	}
	out := make([]matchSummary, 0, len(matches))
	for _, m := range matches {
		out = append(out, matchSummary{
			ID:         m.ID,
			Tournament: tournamentRef(m),
			Round:      m.Round,
			Date:       m.Date.Format(dateLayout),
		})
	}
	return out, nil
}

// MatchOdds returns the bookmaker odds of a match.
func (h *Handler) MatchOdds(c echo.Context) (interface{}, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	o, err := h.store.MatchOdds(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	return matchOdds{
		B365Winner: o.B365Winner,
		B365Loser:  o.B365Loser,
		EXWinner:   o.EXWinner,
		EXLoser:    o.EXLoser,
		LBWinner:   o.LBWinner,
		LBLoser:    o.LBLoser,
		PSWinner:   o.PSWinner,
		PSLoser:    o.PSLoser,
		SJWinner:   o.SJWinner,
		SJLoser:    o.SJLoser,
		MaxWinner:  o.MaxWinner,
		MaxLoser:   o.MaxLoser,
		AvgWinner:  o.AvgWinner,
		AvgLoser:   o.AvgLoser,
	}, nil
}
