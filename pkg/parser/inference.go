package parser

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/pulsar/pkg/errors"
	"github.com/ajitpratap0/pulsar/pkg/pool"
	"github.com/ajitpratap0/pulsar/pkg/tape"
)

// inference drives the per-row, per-column state machine: it dispatches each
// field to the encoder under the column's current type code and applies the
// resulting promotions. The terminal state for any column is plain string.
type inference struct {
	sc     *scanner
	enc    *encoder
	t      *tape.Tape
	cols   []Column
	o      *Options
	warns  *warningLog
	logger *zap.Logger
}

// run parses rows until the range or the row limit is exhausted. It returns
// the number of rows parsed.
func (inf *inference) run(rowLimit int) (int, error) {
	rows := 0
	for !inf.sc.atEnd() {
		if rowLimit > 0 && rows >= rowLimit {
			break
		}
		if inf.sc.atComment() {
			inf.sc.skipLine()
			continue
		}
		if inf.o.IgnoreEmptyLines && inf.sc.atBlankLine() {
			inf.sc.skipLine()
			continue
		}
		if err := inf.parseRow(); err != nil {
			return rows, err
		}
		rows++
	}
	return rows, nil
}

// parseRow scans and encodes one row. Short rows are backfilled with missing
// values and long rows truncated at the next newline; both are warnings
// unless strict row-length checking is on.
func (inf *inference) parseRow() error {
	row := inf.t.AppendRow()
	ncols := len(inf.cols)
	col := 0

	for {
		tok, err := inf.sc.next()
		if err != nil {
			return err
		}

		if col >= ncols {
			if inf.o.StrictRowLength {
				return errors.Newf(errors.ErrorTypeParse,
					"row %d has more than %d fields", row, ncols)
			}
			inf.warns.addf(WarnLongRow, row, col,
				"extra fields discarded up to the next newline")
			inf.logger.Warn("long row truncated",
				zap.Int("row", row), zap.Int("columns", ncols))
			if !tok.last {
				inf.sc.skipLine()
			}
			return nil
		}

		c := &inf.cols[col]
		before := c.Code.Kind
		if err := inf.enc.encodeField(inf.t, row, col, c, tok); err != nil {
			return err
		}
		// an int column widening to float invalidates the integer bit
		// patterns already on the tape; rewrite them once here so the
		// whole column reads under the final code
		if before == tape.KindInt && c.Code.Kind == tape.KindFloat && row > 0 {
			retroFloat(inf.t, col, row)
		}
		col++

		if tok.last {
			break
		}
	}

	if col < ncols {
		if inf.o.StrictRowLength {
			return errors.Newf(errors.ErrorTypeParse,
				"row %d has %d of %d fields", row, col, ncols)
		}
		inf.warns.addf(WarnShortRow, row, col,
			"missing trailing fields backfilled")
		inf.logger.Warn("short row backfilled",
			zap.Int("row", row), zap.Int("fields", col), zap.Int("columns", ncols))
		end := inf.sc.pos
		for ; col < ncols; col++ {
			inf.t.Set(row, col,
				tape.PackDescriptor(end, 0, true, false),
				tape.RefValue(pool.MissingRef))
			inf.cols[col].Code = inf.cols[col].Code.WithMissing()
		}
	}
	return nil
}

// retroFloat rewrites the value cells of rows [0, upTo) from integer to
// float bit patterns after an int -> float promotion.
func retroFloat(t *tape.Tape, col, upTo int) {
	for r := 0; r < upTo; r++ {
		if tape.DescMissing(t.Descriptor(r, col)) {
			continue
		}
		v := tape.IntFromValue(t.Value(r, col))
		t.SetValue(r, col, tape.FloatValue(float64(v)))
	}
}
