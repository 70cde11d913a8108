// Package pipeline drives whole-file parsing: it compiles the configuration,
// plans chunk boundaries, fans chunk ranges out to a worker pool and stitches
// the per-chunk tapes into one result.
package pipeline

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/pulsar/pkg/config"
	"github.com/ajitpratap0/pulsar/pkg/errors"
	"github.com/ajitpratap0/pulsar/pkg/metrics"
	"github.com/ajitpratap0/pulsar/pkg/parser"
	"github.com/ajitpratap0/pulsar/pkg/tape"
)

// minParallelBytes is the smallest data section worth splitting; anything
// below it parses faster on one worker than the plan costs.
const minParallelBytes = 1 << 16

// Pipeline parses complete inputs under one compiled configuration. A
// Pipeline is safe for sequential reuse across inputs; each Parse call is
// independent.
type Pipeline struct {
	o      *parser.Options
	logger *zap.Logger

	rowsParsed  int64
	bytesParsed int64
	runs        int64
}

// New compiles cfg and returns a pipeline ready to parse.
func New(cfg *config.ParseConfig, logger *zap.Logger) (*Pipeline, error) {
	o, err := parser.CompileOptions(cfg)
	if err != nil {
		return nil, err
	}
	return &Pipeline{o: o, logger: logger}, nil
}

// Parse parses buf end to end and returns the merged result. The context
// cancels in-flight chunk workers; the first worker error wins and no
// partial result is returned.
func (p *Pipeline) Parse(ctx context.Context, buf []byte) (*parser.Result, error) {
	start := time.Now()

	eng := parser.NewEngine(buf, p.o, p.logger)
	if err := eng.Init(); err != nil {
		return nil, err
	}

	ncols := eng.NumCols()
	if ncols == 0 {
		return &parser.Result{Tape: tape.New(0, 0), Names: eng.Names()}, nil
	}

	mode, res, err := p.dispatch(ctx, buf, eng)
	if err != nil {
		return nil, err
	}

	// transposed layouts have no row-ordinal footer until after the
	// columns are zipped, so the trailing rows are trimmed here
	if p.o.Transpose && p.o.FooterSkip > 0 && res.Rows > 0 {
		keep := res.Rows - p.o.FooterSkip
		if keep < 0 {
			keep = 0
		}
		res.Tape.Truncate(keep)
		res.Rows = keep
	}

	atomic.AddInt64(&p.rowsParsed, int64(res.Rows))
	atomic.AddInt64(&p.bytesParsed, int64(len(buf)))
	atomic.AddInt64(&p.runs, 1)

	metrics.RowsParsed.WithLabelValues(mode).Add(float64(res.Rows))
	metrics.BytesParsed.WithLabelValues(mode).Add(float64(len(buf)))
	for _, w := range res.Warnings {
		metrics.WarningsEmitted.WithLabelValues(string(w.Kind)).Inc()
	}
	metrics.ParseLatency.WithLabelValues(mode).Observe(time.Since(start).Seconds())

	p.logger.Info("parse complete",
		zap.String("mode", mode),
		zap.Int("rows", res.Rows),
		zap.Int("cols", ncols),
		zap.Int("bytes", len(buf)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Duration("elapsed", time.Since(start)))

	return res, nil
}

// dispatch picks the execution strategy: transposed and limit-bounded jobs
// run on one worker, everything else goes through chunk planning.
func (p *Pipeline) dispatch(ctx context.Context, buf []byte, eng *parser.Engine) (string, *parser.Result, error) {
	datapos := eng.DataPos()
	dataLen := len(buf) - datapos

	if p.o.Transpose {
		res, err := eng.ParseRange(0, len(buf), estRows(dataLen), p.o.RowLimit)
		return "transposed", res, err
	}

	tasks := p.o.Workers
	if tasks <= 0 {
		tasks = runtime.NumCPU()
	}

	// RowLimit and FooterSkip are row-ordinal features; chunk workers
	// cannot know global row numbers, so those jobs stay sequential.
	if tasks == 1 || p.o.RowLimit > 0 || p.o.FooterSkip > 0 || dataLen < minParallelBytes {
		limit := p.o.RowLimit
		if p.o.FooterSkip > 0 {
			// footer rows must not feed inference; a pre-count turns
			// the skip into a hard row limit before any field decodes
			keep := parser.CountRows(buf, datapos, len(buf), p.o) - p.o.FooterSkip
			if keep <= 0 {
				res, serr := eng.ParseRange(datapos, datapos, 0, 0)
				return "single", res, serr
			}
			if limit == 0 || keep < limit {
				limit = keep
			}
		}
		res, err := eng.ParseRange(datapos, len(buf), estRows(dataLen), limit)
		return "single", res, err
	}

	plan, err := parser.PlanChunks(buf, datapos, len(buf), tasks, eng.NumCols(), p.o, p.logger)
	if err != nil {
		if p.o.NoFallback {
			return "", nil, errors.Wrap(err, errors.ErrorTypeConcurrency,
				"chunk planning failed and fallback is disabled")
		}
		metrics.PlanFallbacks.Inc()
		p.logger.Warn("chunk planning failed, parsing on one worker", zap.Error(err))
		res, serr := eng.ParseRange(datapos, len(buf), estRows(dataLen), 0)
		return "single", res, serr
	}
	metrics.ChunksPlanned.Add(float64(plan.Chunks()))

	if plan.Chunks() <= 1 {
		res, serr := eng.ParseRange(datapos, len(buf), planEstRows(plan, dataLen), 0)
		return "single", res, serr
	}

	res, err := p.parseParallel(ctx, eng, plan)
	return "parallel", res, err
}

// parseParallel runs one goroutine per chunk and merges the results in
// chunk order. Reference pools are shared across workers so pooled columns
// intern consistently; the first error cancels the remaining workers.
func (p *Pipeline) parseParallel(ctx context.Context, eng *parser.Engine, plan *parser.Plan) (*parser.Result, error) {
	nchunks := plan.Chunks()
	if pools := eng.NewSharedPools(planEstRows(plan, 0)); pools != nil {
		eng.SetSharedPools(pools)
	}

	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]*parser.Result, nchunks)
	errs := make([]error, nchunks)
	perChunk := planEstRows(plan, 0)/nchunks + 1

	var wg sync.WaitGroup
	for i := 0; i < nchunks; i++ {
		wg.Add(1)
		go func(i, start, end int) {
			defer wg.Done()
			select {
			case <-cctx.Done():
				errs[i] = cctx.Err()
				return
			default:
			}
			res, err := eng.ParseRange(start, end, perChunk, 0)
			if err != nil {
				errs[i] = err
				cancel()
				return
			}
			results[i] = res
		}(i, plan.Boundaries[i], plan.Boundaries[i+1])
	}
	wg.Wait()

	// a real parse error beats the cancellation it caused in siblings
	var firstErr error
	for i := 0; i < nchunks; i++ {
		if errs[i] == nil {
			continue
		}
		if firstErr == nil || firstErr == context.Canceled {
			firstErr = errs[i]
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	return mergeResults(results), nil
}

// mergeResults stitches per-chunk results into one. Column codes join
// through the promotion lattice; chunks whose integer columns were promoted
// to float by a later chunk get their value cells rewritten before the
// tapes are concatenated.
func mergeResults(results []*parser.Result) *parser.Result {
	first := results[0]
	ncols := len(first.Columns)

	cols := make([]parser.Column, ncols)
	copy(cols, first.Columns)
	totalRows := 0
	for _, res := range results {
		totalRows += res.Rows
		for c := 0; c < ncols; c++ {
			cols[c].Code = joinCodes(cols[c].Code, res.Columns[c].Code)
			if res.Columns[c].MaxLen > cols[c].MaxLen {
				cols[c].MaxLen = res.Columns[c].MaxLen
			}
			if cols[c].Pool == nil {
				cols[c].Pool = res.Columns[c].Pool
			}
		}
	}
	for c := 0; c < ncols; c++ {
		if cols[c].Code.Kind != tape.KindPooledString {
			cols[c].Pool = nil
		}
	}

	merged := tape.New(totalRows, ncols)
	out := &parser.Result{
		Tape:    merged,
		Columns: cols,
		Names:   first.Names,
	}

	rowBase := 0
	for _, res := range results {
		for c := 0; c < ncols; c++ {
			if cols[c].Code.Kind == tape.KindFloat && res.Columns[c].Code.Kind == tape.KindInt {
				retroFloatChunk(res.Tape, c, res.Rows)
			}
		}
		merged.AppendTape(res.Tape)
		for _, w := range res.Warnings {
			w.Row += rowBase
			out.Warnings = append(out.Warnings, w)
		}
		out.DroppedWarnings += res.DroppedWarnings
		rowBase += res.Rows
	}
	out.Rows = totalRows
	return out
}

// joinCodes merges two final column codes from sibling chunks.
func joinCodes(a, b tape.TypeCode) tape.TypeCode {
	j := tape.Promote(a, b.Kind)
	if b.Missing {
		j = j.WithMissing()
	}
	return j
}

func retroFloatChunk(t *tape.Tape, col, rows int) {
	for r := 0; r < rows; r++ {
		if tape.DescMissing(t.Descriptor(r, col)) {
			continue
		}
		v := tape.IntFromValue(t.Value(r, col))
		t.SetValue(r, col, tape.FloatValue(float64(v)))
	}
}

// estRows guesses a row count from the data size alone, for paths that
// skip chunk planning.
func estRows(dataLen int) int {
	const assumedRowBytes = 32
	return dataLen/assumedRowBytes + 1
}

func planEstRows(plan *parser.Plan, dataLen int) int {
	if plan.EstRows > 0 {
		return plan.EstRows
	}
	return estRows(dataLen)
}

// Options exposes the compiled options, for consumers that decode tapes.
func (p *Pipeline) Options() *parser.Options { return p.o }

// Stats reports cumulative pipeline counters.
func (p *Pipeline) Stats() (rows, bytes, runs int64) {
	return atomic.LoadInt64(&p.rowsParsed),
		atomic.LoadInt64(&p.bytesParsed),
		atomic.LoadInt64(&p.runs)
}
