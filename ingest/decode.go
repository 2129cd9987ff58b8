package ingest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/padraicbc/tennisapi/models"
)

var (
	// ErrBadDate is returned for a date cell that is not a valid serial number.
	ErrBadDate = errors.New("malformed date cell")
	// ErrPartialSet is returned when only one of a set's two game counts is present.
	ErrPartialSet = errors.New("partial set score")
)

// Reasons attached to defaulted values.
const (
	ReasonEmpty      = "empty"
	ReasonNotNumber  = "not a number"
	ReasonNegative   = "negative"
	ReasonBelowFloor = "below odds floor"
)

// Parsed is a decoded cell. Defaulted is set when the cell could not be used
// as is and Value holds the fallback.
type Parsed[T any] struct {
	Value     T
	Defaulted bool
	Reason    string
}

func parsedOK[T any](v T) Parsed[T] { return Parsed[T]{Value: v} }

func defaulted[T any](v T, reason string) Parsed[T] {
	return Parsed[T]{Value: v, Defaulted: true, Reason: reason}
}

// Decoder turns raw cells into typed values.
type Decoder struct {
	// OddsFloor replaces odds cells that are missing, unparseable or too low.
	OddsFloor float64
	// Date1904 selects the workbook's 1904 date system.
	Date1904 bool
}

// Int parses a count or rank. Numeric cells holding a fraction are truncated.
// Anything else, including negative numbers, decodes as a defaulted zero.
func (d Decoder) Int(cell string) Parsed[int] {
	s := strings.TrimSpace(cell)
	if s == "" {
		return defaulted(0, ReasonEmpty)
	}
	// Integers and "3.0" style floats share one parse so both meet the same
	// int32 bound.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return defaulted(0, ReasonNotNumber)
	}
	n := int(f)
	if n < 0 {
		return defaulted(0, ReasonNegative)
	}
	return parsedOK(n)
}

// Odds parses decimal odds, falling back to the floor.
func (d Decoder) Odds(cell string) Parsed[float64] {
	s := strings.TrimSpace(cell)
	if s == "" {
		return defaulted(d.OddsFloor, ReasonEmpty)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return defaulted(d.OddsFloor, ReasonNotNumber)
	}
	if f < d.OddsFloor {
		return defaulted(d.OddsFloor, ReasonBelowFloor)
	}
	return parsedOK(f)
}

// maxDateSerial is 9999-12-31, the last day a spreadsheet date can hold.
const maxDateSerial = 2958465

// Date converts a date serial to a calendar date at midnight UTC. Serials
// outside 1..maxDateSerial are rejected.
func (d Decoder) Date(cell string) (time.Time, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, cell)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 1 || f > maxDateSerial {
		return time.Time{}, fmt.Errorf("%w: %q out of range", ErrBadDate, cell)
	}
	t, err := excelize.ExcelDateToTime(f, d.Date1904)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrBadDate, cell, err)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// DefaultedCell records a cell whose value was replaced during decoding.
type DefaultedCell struct {
	Column Column
	Raw    string
	Reason string
}

// SetScore is the game count of one set.
type SetScore struct {
	Number      int
	WinnerGames int
	LoserGames  int
}

// Record is a fully decoded data row.
type Record struct {
	Tournament   models.Tournament
	Winner       string
	Loser        string
	WinnerRank   int
	LoserRank    int
	Date         time.Time
	Round        string
	WinnerPoints int
	LoserPoints  int
	Status       string
	Sets         []SetScore
	// Odds carries the five bookmaker pairs; aggregates are filled on write.
	Odds models.Odds

	Defaulted []DefaultedCell
}

// Decode maps a row onto a Record. Unparseable numbers are defaulted and
// listed in Record.Defaulted; a bad date or a half-filled set is an error.
func (d Decoder) Decode(row Row) (*Record, error) {
	rec := &Record{}

	intAt := func(c Column) int {
		p := d.Int(row.Cell(c))
		if p.Defaulted {
			rec.Defaulted = append(rec.Defaulted, DefaultedCell{Column: c, Raw: row.Cell(c), Reason: p.Reason})
		}
		return p.Value
	}
	oddsAt := func(c Column) float64 {
		p := d.Odds(row.Cell(c))
		if p.Defaulted {
			rec.Defaulted = append(rec.Defaulted, DefaultedCell{Column: c, Raw: row.Cell(c), Reason: p.Reason})
		}
		return p.Value
	}

	rec.Tournament = models.Tournament{
		ATPNumber: intAt(ColATP),
		Name:      row.Cell(ColTournament),
		Location:  row.Cell(ColLocation),
		Series:    row.Cell(ColSeries),
		Court:     row.Cell(ColCourt),
		Surface:   row.Cell(ColSurface),
		BestOf:    intAt(ColBestOf),
	}
	rec.Winner = row.Cell(ColWinner)
	rec.Loser = row.Cell(ColLoser)
	rec.WinnerRank = intAt(ColWRank)
	rec.LoserRank = intAt(ColLRank)

	date, err := d.Date(row.Cell(ColDate))
	if err != nil {
		return nil, err
	}
	rec.Date = date
	rec.Round = row.Cell(ColRound)
	rec.WinnerPoints = intAt(ColWPoints)
	rec.LoserPoints = intAt(ColLPoints)
	rec.Status = row.Cell(ColComment)

	for n := 1; n <= models.MaxSets; n++ {
		wc, lc := setColumns(n)
		wEmpty := strings.TrimSpace(row.Cell(wc)) == ""
		lEmpty := strings.TrimSpace(row.Cell(lc)) == ""
		if wEmpty && lEmpty {
			break
		}
		if wEmpty || lEmpty {
			return nil, fmt.Errorf("%w: set %d has %s=%q %s=%q", ErrPartialSet, n, wc, row.Cell(wc), lc, row.Cell(lc))
		}
		rec.Sets = append(rec.Sets, SetScore{Number: n, WinnerGames: intAt(wc), LoserGames: intAt(lc)})
	}

	for _, prefix := range models.Bookmakers {
		cols := bookmakerColumns[prefix]
		rec.Odds.SetBookmaker(prefix, oddsAt(cols[0]), oddsAt(cols[1]))
	}

	return rec, nil
}
