package parser

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ajitpratap0/pulsar/pkg/errors"
	"github.com/ajitpratap0/pulsar/pkg/pool"
	"github.com/ajitpratap0/pulsar/pkg/tape"
)

// Result is the output of parsing one byte range: the tape, the final
// per-column type codes (pools attached for pooled columns), and the bounded
// diagnostics. Row numbers inside the tape are local to the range; the
// caller translates them using BaseOffset ordering.
type Result struct {
	Tape       *tape.Tape
	Columns    []Column
	Names      []string
	Rows       int
	BaseOffset int
	Warnings   []Warning
	// DroppedWarnings counts events past the max-warnings cap
	DroppedWarnings int
}

// Engine parses byte ranges of one input buffer under compiled options. An
// Engine is created once per job; Init resolves the layout (header, column
// names, first data offset), after which ParseRange may be called once per
// chunk, concurrently.
type Engine struct {
	buf    []byte
	o      *Options
	logger *zap.Logger

	names    []string
	datapos  int
	template []Column

	sharedPools []*pool.RefPool

	// transposed layout: per-column data byte ranges
	colRanges [][2]int
}

// NewEngine creates an engine over a fully materialized input buffer.
func NewEngine(buf []byte, o *Options, logger *zap.Logger) *Engine {
	return &Engine{buf: buf, o: o, logger: logger}
}

// Init resolves the input layout: header location, column names and the
// first data byte. Configuration-level mismatches (explicit name list vs
// detected column count) are raised here, before any data row is parsed.
func (e *Engine) Init() error {
	if e.o.Transpose {
		return e.initTransposed()
	}
	return e.initRowMajor()
}

func (e *Engine) initRowMajor() error {
	sc := newScanner(e.buf, 0, len(e.buf), e.o)

	dataRow := e.o.DataRow
	if dataRow == 0 {
		if e.o.HeaderRow > 0 {
			dataRow = e.o.HeaderRow + 1
		} else {
			dataRow = 1
		}
	}

	var headerNames []string
	line := 0
	for line < dataRow-1 && !sc.atEnd() {
		if sc.atComment() || (e.o.IgnoreEmptyLines && sc.atBlankLine()) {
			sc.skipLine()
			continue
		}
		line++
		if line == e.o.HeaderRow {
			names, err := readRowStrings(sc, e.o)
			if err != nil {
				return err
			}
			headerNames = names
		} else if !skipRow(sc) {
			return errors.New(errors.ErrorTypeParse, "malformed row before data section")
		}
	}
	for !sc.atEnd() && (sc.atComment() || (e.o.IgnoreEmptyLines && sc.atBlankLine())) {
		sc.skipLine()
	}
	e.datapos = sc.pos

	probe, err := e.probeFieldCount()
	if err != nil {
		return err
	}

	switch {
	case len(e.o.ColumnNames) > 0:
		e.names = e.o.ColumnNames
		if probe > 0 && probe != len(e.names) {
			return errors.Newf(errors.ErrorTypeConfig,
				"explicit column_names has %d entries but the input has %d columns",
				len(e.names), probe)
		}
	case headerNames != nil:
		e.names = headerNames
	default:
		e.names = generatedNames(probe)
	}

	e.buildTemplate()
	return nil
}

// probeFieldCount counts the fields of the first data row without consuming
// it. Zero means the data section is empty; malformed quoting in the first
// row is a hard error, the same as it would be during the parse proper.
func (e *Engine) probeFieldCount() (int, error) {
	sc := newScanner(e.buf, e.datapos, len(e.buf), e.o)
	for !sc.atEnd() {
		if sc.atComment() || (e.o.IgnoreEmptyLines && sc.atBlankLine()) {
			sc.skipLine()
			continue
		}
		n := 0
		for {
			tok, err := sc.next()
			if err != nil {
				return 0, err
			}
			n++
			if tok.last {
				return n, nil
			}
		}
	}
	return 0, nil
}

func (e *Engine) buildTemplate() {
	e.template = make([]Column, len(e.names))
	for i, name := range e.names {
		col := Column{Name: name}
		if k, ok := e.o.forcedKind(i, name); ok {
			col.Code = tape.Declared(k)
		}
		e.template[i] = col
	}
}

// Names returns the resolved column names.
func (e *Engine) Names() []string { return e.names }

// DataPos returns the byte offset of the first data row.
func (e *Engine) DataPos() int { return e.datapos }

// NumCols returns the resolved column count.
func (e *Engine) NumCols() int { return len(e.names) }

// NewSharedPools builds one cross-chunk reference pool per column for use
// by concurrent chunk workers. Columns forced to a non-pooled kind get a
// nil entry; columns forced pooled get a pool that never abandons. When
// pooling is disabled globally the result is nil.
func (e *Engine) NewSharedPools(estRows int) []*pool.RefPool {
	pools := make([]*pool.RefPool, len(e.template))
	any := false
	for i, col := range e.template {
		switch {
		case col.Code.User && col.Code.Kind == tape.KindPooledString:
			pools[i] = pool.NewRefPool(0, estRows, true)
			any = true
		case col.Code.User:
			// declared non-pooled kinds never pool
		case e.o.PoolThreshold > 0:
			pools[i] = pool.NewRefPool(e.o.PoolThreshold, estRows, true)
			any = true
		}
	}
	if !any {
		return nil
	}
	return pools
}

// SetSharedPools hands the engine cross-chunk reference pools, one entry
// per column (nil entries mean the column pools privately). Shared pools
// must have been created shared so their lock is honored.
func (e *Engine) SetSharedPools(pools []*pool.RefPool) {
	e.sharedPools = pools
}

// ParseRange parses buf[start:end] into a fresh tape. estRows sizes the
// initial tape allocation; rowLimit stops early when positive. ParseRange
// is safe to call concurrently for disjoint ranges.
func (e *Engine) ParseRange(start, end, estRows, rowLimit int) (*Result, error) {
	if e.o.Transpose {
		return e.parseTransposed(estRows, rowLimit)
	}

	cols := e.freshColumns(estRows)
	warns := newWarningLog(e.o.MaxWarnings)
	t := tape.New(estRows, len(cols))

	inf := &inference{
		sc:     newScanner(e.buf, start, end, e.o),
		enc:    &encoder{buf: e.buf, o: e.o, warns: warns, estRows: estRows},
		t:      t,
		cols:   cols,
		o:      e.o,
		warns:  warns,
		logger: e.logger,
	}

	rows, err := inf.run(rowLimit)
	if err != nil {
		// no partial result survives a fatal error
		return nil, err
	}

	e.applySubstitutions(t, cols, rows)

	return &Result{
		Tape:            t,
		Columns:         cols,
		Names:           e.names,
		Rows:            rows,
		BaseOffset:      start,
		Warnings:        warns.warnings,
		DroppedWarnings: warns.dropped,
	}, nil
}

func (e *Engine) freshColumns(estRows int) []Column {
	cols := make([]Column, len(e.template))
	copy(cols, e.template)
	for i := range cols {
		if e.sharedPools != nil && e.sharedPools[i] != nil {
			cols[i].Pool = e.sharedPools[i]
		} else if cols[i].Code.User && cols[i].Code.Kind == tape.KindPooledString {
			// forced pooled columns never abandon pooling
			cols[i].Pool = pool.NewRefPool(0, estRows, false)
		}
	}
	return cols
}

// applySubstitutions applies the configured post-inference type map. Only
// widening substitutions are honored: int -> float rewrites the value
// cells, and any kind may widen to string since string columns read from
// their descriptors. Anything else would lose information and is ignored
// with a log line.
func (e *Engine) applySubstitutions(t *tape.Tape, cols []Column, rows int) {
	if len(e.o.Substitutions) == 0 {
		return
	}
	for i := range cols {
		from := cols[i].Code.Kind
		to, ok := e.o.Substitutions[from]
		if !ok || to == from {
			continue
		}
		switch {
		case from == tape.KindInt && to == tape.KindFloat:
			for r := 0; r < rows; r++ {
				d := t.Descriptor(r, i)
				if tape.DescMissing(d) {
					continue
				}
				v := tape.IntFromValue(t.Value(r, i))
				t.SetValue(r, i, tape.FloatValue(float64(v)))
			}
			cols[i].Code.Kind = to
		case to == tape.KindString:
			cols[i].Code.Kind = to
			cols[i].Pool = nil
		default:
			e.logger.Warn("unsupported type substitution ignored",
				zap.String("column", cols[i].Name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		}
	}
}

func readRowStrings(sc *scanner, o *Options) ([]string, error) {
	var out []string
	for {
		tok, err := sc.next()
		if err != nil {
			return nil, err
		}
		b := tok.view.Bytes(sc.buf)
		if tok.escaped {
			b = unescape(b, o)
		}
		out = append(out, string(b))
		if tok.last {
			return out, nil
		}
	}
}

func generatedNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("Column%d", i+1)
	}
	return names
}

// --- transposed input ---

// initTransposed records one byte range per input line; under transposition
// each line owns one column's data. Chunked parallelism is disabled for
// transposed input: there is a single "chunk" spanning the whole buffer.
func (e *Engine) initTransposed() error {
	sc := newScanner(e.buf, 0, len(e.buf), e.o)
	var names []string
	for !sc.atEnd() {
		if sc.atComment() || (e.o.IgnoreEmptyLines && sc.atBlankLine()) {
			sc.skipLine()
			continue
		}
		start := sc.pos
		var nameTok fieldToken
		var err error
		if e.o.HeaderRow > 0 {
			// under transposition the header is the first field of
			// each line
			nameTok, err = sc.next()
			if err != nil {
				return err
			}
		}
		dataStart := sc.pos
		if !nameTok.last {
			if !skipRow(sc) {
				return errors.New(errors.ErrorTypeParse, "malformed transposed column").
					WithDetail("offset", start)
			}
		}
		if e.o.HeaderRow > 0 {
			b := nameTok.view.Bytes(e.buf)
			if nameTok.escaped {
				b = unescape(b, e.o)
			}
			names = append(names, string(b))
		}
		e.colRanges = append(e.colRanges, [2]int{dataStart, sc.pos})
	}

	switch {
	case len(e.o.ColumnNames) > 0:
		if len(e.o.ColumnNames) != len(e.colRanges) {
			return errors.Newf(errors.ErrorTypeConfig,
				"explicit column_names has %d entries but the input has %d columns",
				len(e.o.ColumnNames), len(e.colRanges))
		}
		e.names = e.o.ColumnNames
	case e.o.HeaderRow > 0:
		e.names = names
	default:
		e.names = generatedNames(len(e.colRanges))
	}
	e.datapos = 0
	e.buildTemplate()
	return nil
}

// parseTransposed walks every column's line in lockstep, encoding one tape
// row per field position. Columns shorter than the longest are backfilled
// with missing values.
func (e *Engine) parseTransposed(estRows, rowLimit int) (*Result, error) {
	cols := e.freshColumns(estRows)
	warns := newWarningLog(e.o.MaxWarnings)
	t := tape.New(estRows, len(cols))
	enc := &encoder{buf: e.buf, o: e.o, warns: warns, estRows: estRows}

	scanners := make([]*scanner, len(cols))
	done := make([]bool, len(cols))
	for i, r := range e.colRanges {
		scanners[i] = newScanner(e.buf, r[0], r[1], e.o)
		done[i] = r[0] >= r[1]
	}

	rows := 0
	for {
		if rowLimit > 0 && rows >= rowLimit {
			break
		}
		active := false
		for i := range scanners {
			if !done[i] {
				active = true
				break
			}
		}
		if !active {
			break
		}

		row := t.AppendRow()
		for i := range cols {
			if done[i] {
				t.Set(row, i,
					tape.PackDescriptor(e.colRanges[i][1], 0, true, false),
					tape.RefValue(pool.MissingRef))
				cols[i].Code = cols[i].Code.WithMissing()
				continue
			}
			tok, err := scanners[i].next()
			if err != nil {
				return nil, err
			}
			before := cols[i].Code.Kind
			if err := enc.encodeField(t, row, i, &cols[i], tok); err != nil {
				return nil, err
			}
			if before == tape.KindInt && cols[i].Code.Kind == tape.KindFloat && row > 0 {
				retroFloat(t, i, row)
			}
			if tok.last || scanners[i].atEnd() {
				done[i] = true
			}
		}
		rows++
	}

	e.applySubstitutions(t, cols, rows)

	return &Result{
		Tape:            t,
		Columns:         cols,
		Names:           e.names,
		Rows:            rows,
		Warnings:        warns.warnings,
		DroppedWarnings: warns.dropped,
	}, nil
}
