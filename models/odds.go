package models

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Bookmakers lists the bookmaker column prefixes of the feed in sheet order.
var Bookmakers = []string{"b365", "ex", "lb", "ps", "sj"}

// Odds holds decimal odds for a match from five bookmakers plus the derived
// maximum and average per side. The derived fields are recomputed on every
// insert or update and are never taken from the caller.
type Odds struct {
	bun.BaseModel `bun:"table:odds,alias:o"`

	ID         int     `bun:"id,pk,autoincrement" json:"id"`
	MatchID    int     `bun:"match_id,notnull" json:"matchID"`
	B365Winner float64 `bun:"b365_winner,notnull" json:"b365_winner"`
	B365Loser  float64 `bun:"b365_loser,notnull" json:"b365_loser"`
	EXWinner   float64 `bun:"ex_winner,notnull" json:"ex_winner"`
	EXLoser    float64 `bun:"ex_loser,notnull" json:"ex_loser"`
	LBWinner   float64 `bun:"lb_winner,notnull" json:"lb_winner"`
	LBLoser    float64 `bun:"lb_loser,notnull" json:"lb_loser"`
	PSWinner   float64 `bun:"ps_winner,notnull" json:"ps_winner"`
	PSLoser    float64 `bun:"ps_loser,notnull" json:"ps_loser"`
	SJWinner   float64 `bun:"sj_winner,notnull" json:"sj_winner"`
	SJLoser    float64 `bun:"sj_loser,notnull" json:"sj_loser"`
	MaxWinner  float64 `bun:"max_winner,notnull" json:"max_winner"`
	MaxLoser   float64 `bun:"max_loser,notnull" json:"max_loser"`
	AvgWinner  float64 `bun:"avg_winner,notnull" json:"avg_winner"`
	AvgLoser   float64 `bun:"avg_loser,notnull" json:"avg_loser"`
}

var _ bun.BeforeAppendModelHook = (*Odds)(nil)

// BeforeAppendModel keeps the aggregates in step with the bookmaker values
// whenever the row is written.
func (o *Odds) BeforeAppendModel(_ context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery, *bun.UpdateQuery:
		o.Aggregate()
	}
	return nil
}

// SetBookmaker assigns the winner and loser odds of the named bookmaker.
// Unknown prefixes are ignored.
func (o *Odds) SetBookmaker(prefix string, winner, loser float64) {
	switch prefix {
	case "b365":
		o.B365Winner, o.B365Loser = winner, loser
	case "ex":
		o.EXWinner, o.EXLoser = winner, loser
	case "lb":
		o.LBWinner, o.LBLoser = winner, loser
	case "ps":
		o.PSWinner, o.PSLoser = winner, loser
	case "sj":
		o.SJWinner, o.SJLoser = winner, loser
	}
}

// WinnerOdds returns the five bookmaker odds on the winner in Bookmakers order.
func (o *Odds) WinnerOdds() []float64 {
	return []float64{o.B365Winner, o.EXWinner, o.LBWinner, o.PSWinner, o.SJWinner}
}

// LoserOdds returns the five bookmaker odds on the loser in Bookmakers order.
func (o *Odds) LoserOdds() []float64 {
	return []float64{o.B365Loser, o.EXLoser, o.LBLoser, o.PSLoser, o.SJLoser}
}

// Aggregate computes MaxWinner, MaxLoser, AvgWinner and AvgLoser from the
// five bookmaker values of each side. Calling it repeatedly gives the same result.
func (o *Odds) Aggregate() {
	o.MaxWinner, o.AvgWinner = maxAndMean(o.WinnerOdds())
	o.MaxLoser, o.AvgLoser = maxAndMean(o.LoserOdds())
}

// maxAndMean sums in decimal so the mean of values like 1.1 and 1.2 comes
// out as the nearest float to the exact quotient.
func maxAndMean(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	hi := values[0]
	sum := decimal.Zero
	for _, v := range values {
		hi = max(hi, v)
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	mean, _ := sum.Div(decimal.NewFromInt(int64(len(values)))).Float64()
	return hi, mean
}
