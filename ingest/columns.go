package ingest

import "fmt"

// Column is a zero-based cell position in a season sheet row.
type Column int

// Sheet layout. Positions are fixed for every season.
const (
	ColATP Column = iota
	ColLocation
	ColTournament
	ColDate
	ColSeries
	ColCourt
	ColSurface
	ColRound
	ColBestOf
	ColWinner
	ColLoser
	ColWRank
	ColLRank
	ColWPoints
	ColLPoints
	ColW1
	ColL1
	ColW2
	ColL2
	ColW3
	ColL3
	ColW4
	ColL4
	ColW5
	ColL5
	ColWSets
	ColLSets
	ColComment
	ColB365W
	ColB365L
	ColEXW
	ColEXL
	ColLBW
	ColLBL
	ColPSW
	ColPSL
	ColSJW
	ColSJL
	ColMaxW
	ColMaxL
	ColAvgW
	ColAvgL

	NumColumns
)

var columnNames = [NumColumns]string{
	"atp", "location", "tournament", "date", "series", "court", "surface", "round", "best_of",
	"winner", "loser", "wrank", "lrank", "wpoints", "lpoints",
	"w1", "l1", "w2", "l2", "w3", "l3", "w4", "l4", "w5", "l5",
	"wsets", "lsets", "comment",
	"b365w", "b365l", "exw", "exl", "lbw", "lbl", "psw", "psl", "sjw", "sjl",
	"maxw", "maxl", "avgw", "avgl",
}

func (c Column) String() string {
	if c < 0 || c >= NumColumns {
		return fmt.Sprintf("column(%d)", int(c))
	}
	return columnNames[c]
}

// setColumns returns the winner and loser game columns of set n (1-based).
func setColumns(n int) (Column, Column) {
	w := ColW1 + Column(2*(n-1))
	return w, w + 1
}

// bookmakerColumns maps a bookmaker prefix to its winner and loser odds columns.
var bookmakerColumns = map[string][2]Column{
	"b365": {ColB365W, ColB365L},
	"ex":   {ColEXW, ColEXL},
	"lb":   {ColLBW, ColLBL},
	"ps":   {ColPSW, ColPSL},
	"sj":   {ColSJW, ColSJL},
}

// Row is the raw cell values of one sheet row. Cells past the end of the
// slice read as empty.
type Row []string

// Cell returns the raw value at c.
func (r Row) Cell(c Column) string {
	if int(c) >= len(r) {
		return ""
	}
	return r[c]
}
