// Package ingest loads season spreadsheets into the store.
package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/padraicbc/tennisapi/db"
	"github.com/padraicbc/tennisapi/metrics"
)

// Summary describes a finished (or aborted) ingestion.
type Summary struct {
	Rows      int           `json:"rows"`
	Matches   int           `json:"matches"`
	Sets      int           `json:"sets"`
	Defaulted int           `json:"defaultedCells"`
	Took      time.Duration `json:"took"`
}

// RowError identifies the sheet row that stopped an ingestion.
type RowError struct {
	Row int // 1-based, as shown by spreadsheet software
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("sheet row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Ingester writes decoded rows through a db.Writer.
type Ingester struct {
	store     db.Writer
	oddsFloor float64
	logger    *zap.Logger
}

// NewIngester returns an Ingester that replaces unusable odds with oddsFloor.
func NewIngester(store db.Writer, oddsFloor float64, logger *zap.Logger) *Ingester {
	return &Ingester{store: store, oddsFloor: oddsFloor, logger: logger}
}

// IngestRows processes rows[1:] in order; rows[0] is the header. Each row is
// written in its own transaction. The first failing row rolls back alone and
// stops the run: rows before it stay committed, rows after it are not read.
func (in *Ingester) IngestRows(ctx context.Context, rows [][]string, date1904 bool) (Summary, error) {
	start := time.Now()
	dec := Decoder{OddsFloor: in.oddsFloor, Date1904: date1904}

	var sum Summary
	for i := 1; i < len(rows); i++ {
		if err := ctx.Err(); err != nil {
			sum.Took = time.Since(start)
			return sum, &RowError{Row: i + 1, Err: err}
		}

		w, rec, err := in.ingestRow(ctx, dec, Row(rows[i]))
		if err != nil {
			metrics.IngestRowsTotal.WithLabelValues("failed").Inc()
			sum.Took = time.Since(start)
			return sum, &RowError{Row: i + 1, Err: err}
		}
		metrics.IngestRowsTotal.WithLabelValues("ok").Inc()

		sum.Rows++
		sum.Matches++
		sum.Sets += len(w.Sets)
		sum.Defaulted += len(rec.Defaulted)
		for _, dc := range rec.Defaulted {
			metrics.IngestDefaultedCellsTotal.WithLabelValues(dc.Reason).Inc()
			in.logger.Debug("cell defaulted",
				zap.Int("row", i+1),
				zap.Stringer("column", dc.Column),
				zap.String("raw", dc.Raw),
				zap.String("reason", dc.Reason),
			)
		}
	}

	sum.Took = time.Since(start)
	return sum, nil
}

func (in *Ingester) ingestRow(ctx context.Context, dec Decoder, row Row) (*written, *Record, error) {
	rec, err := dec.Decode(row)
	if err != nil {
		return nil, nil, err
	}

	var w *written
	err = in.store.RunInTx(ctx, func(ctx context.Context, tx db.Writer) error {
		var err error
		w, err = writeRecord(ctx, tx, rec)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return w, rec, nil
}
