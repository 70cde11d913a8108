package parser

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/pulsar/pkg/errors"
)

// sampleRows bounds the density sample taken from the start of the data
// section when estimating the total row count.
const sampleRows = 10

// Plan is the outcome of chunk-boundary discovery: tasks+1 monotonically
// increasing byte offsets, each guaranteed to land on the first byte of a
// row, plus refined size estimates for tape pre-allocation.
type Plan struct {
	Boundaries   []int
	EstRows      int
	MeanRowBytes float64
}

// Chunks returns the number of chunks in the plan.
func (p *Plan) Chunks() int { return len(p.Boundaries) - 1 }

// PlanChunks locates safe chunk boundaries for splitting buf[datapos:end]
// across tasks workers. A candidate boundary is accepted only after a
// quote-aware forward scan over the next linesToCheck rows agrees with the
// expected column count; a candidate that cannot be resolved within the
// retry budget fails the whole plan, and the caller must fall back to
// single-worker parsing.
func PlanChunks(buf []byte, datapos, end, tasks, ncols int, o *Options, logger *zap.Logger) (*Plan, error) {
	sampleBytes, sampleCount := sampleDensity(buf, datapos, end, o)
	if sampleCount == 0 {
		return &Plan{Boundaries: []int{datapos, end}}, nil
	}
	mean := float64(sampleBytes) / float64(sampleCount)

	if tasks <= 1 || end-datapos < tasks*2 {
		est := int(float64(end-datapos)/mean) + 1
		return &Plan{Boundaries: []int{datapos, end}, EstRows: est, MeanRowBytes: mean}, nil
	}

	boundaries := make([]int, 0, tasks+1)
	boundaries = append(boundaries, datapos)

	verifyBytes, verifyCount := sampleBytes, sampleCount
	stride := (end - datapos) / tasks

	for k := 1; k < tasks; k++ {
		candidate := datapos + k*stride
		prev := boundaries[len(boundaries)-1]
		if candidate <= prev {
			continue
		}

		pos, vb, vc, err := resolveBoundary(buf, candidate, end, ncols, o)
		if err != nil {
			logger.Warn("chunk boundary resolution failed",
				zap.Int("candidate", candidate), zap.Error(err))
			return nil, err
		}
		verifyBytes += vb
		verifyCount += vc

		if pos <= prev || pos >= end {
			// candidates collapsed on a short file; fewer chunks result
			continue
		}
		boundaries = append(boundaries, pos)
	}
	boundaries = append(boundaries, end)

	// refined estimate: blend of the initial single-threaded sample and
	// the per-boundary verification samples, weighted by rows observed
	mean = float64(verifyBytes) / float64(verifyCount)
	est := int(float64(end-datapos)/mean) + 1

	logger.Debug("chunk plan ready",
		zap.Int("chunks", len(boundaries)-1),
		zap.Int("estimated_rows", est),
		zap.Float64("mean_row_bytes", mean))

	return &Plan{Boundaries: boundaries, EstRows: est, MeanRowBytes: mean}, nil
}

// sampleDensity measures mean row length over the first few rows of the
// data section. The scan is quote-aware, so rows with embedded newlines
// count once.
func sampleDensity(buf []byte, datapos, end int, o *Options) (bytes, rows int) {
	sc := newScanner(buf, datapos, end, o)
	for rows < sampleRows && !sc.atEnd() {
		if sc.atComment() || (o.IgnoreEmptyLines && sc.atBlankLine()) {
			sc.skipLine()
			continue
		}
		if !skipRow(sc) {
			break
		}
		rows++
	}
	return sc.pos - datapos, rows
}

// CountRows counts the data rows in buf[start:end] with a quote-aware
// scan, skipping comments and blank lines the same way parsing does.
// Malformed input stops the count early; parsing will surface the error.
func CountRows(buf []byte, start, end int, o *Options) int {
	sc := newScanner(buf, start, end, o)
	rows := 0
	for !sc.atEnd() {
		if sc.atComment() || (o.IgnoreEmptyLines && sc.atBlankLine()) {
			sc.skipLine()
			continue
		}
		if !skipRow(sc) {
			break
		}
		rows++
	}
	return rows
}

// skipRow consumes one row quote-aware, reporting false on malformed input.
func skipRow(sc *scanner) bool {
	for {
		tok, err := sc.next()
		if err != nil {
			return false
		}
		if tok.last {
			return true
		}
	}
}

// resolveBoundary turns a raw candidate offset into a verified row-start
// offset at or after it. The naive next-newline guess may land inside a
// quoted multi-line field; each guess is checked by parsing the following
// rows and cross-checking their field counts against the known column
// count, then advanced to the next newline if the check fails.
func resolveBoundary(buf []byte, candidate, end, ncols int, o *Options) (pos, vBytes, vRows int, err error) {
	pos = nextLineStart(buf, candidate, end)
	budget := o.LinesToCheck + 4

	for attempt := 0; attempt < budget; attempt++ {
		if pos >= end {
			return end, vBytes, vRows, nil
		}
		ok, b, r := verifyRowStart(buf, pos, end, ncols, o)
		if ok {
			return pos, b, r, nil
		}
		pos = nextLineStart(buf, pos, end)
	}

	return 0, 0, 0, errors.Newf(errors.ErrorTypeConcurrency,
		"no safe row boundary near offset %d", candidate)
}

// verifyRowStart parses up to linesToCheck rows from pos and accepts the
// offset only if every complete row agrees with the expected column count.
func verifyRowStart(buf []byte, pos, end, ncols int, o *Options) (ok bool, bytes, rows int) {
	sc := newScanner(buf, pos, end, o)
	for rows < o.LinesToCheck && !sc.atEnd() {
		if sc.atComment() || (o.IgnoreEmptyLines && sc.atBlankLine()) {
			sc.skipLine()
			continue
		}
		fields := 0
		for {
			tok, err := sc.next()
			if err != nil {
				return false, 0, 0
			}
			fields++
			if tok.last {
				break
			}
		}
		if fields != ncols {
			return false, 0, 0
		}
		rows++
	}
	if rows == 0 {
		return false, 0, 0
	}
	return true, sc.pos - pos, rows
}

// nextLineStart returns the offset just past the next newline at or after
// from. Quote state is deliberately ignored; callers verify the result.
func nextLineStart(buf []byte, from, end int) int {
	i := from
	for i < end && buf[i] != '\n' {
		i++
	}
	if i >= end {
		return end
	}
	return i + 1
}
