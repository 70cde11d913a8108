package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/pulsar/pkg/config"
	"github.com/ajitpratap0/pulsar/pkg/errors"
	"github.com/ajitpratap0/pulsar/pkg/parser"
	"github.com/ajitpratap0/pulsar/pkg/tape"
)

// bigCorpus generates enough data to clear the parallel-dispatch size
// floor. The category column repeats three values so it stays pooled,
// and the tail rows switch the score column from int to float.
func bigCorpus(rows int) []byte {
	cats := []string{"alpha", "beta", "gamma"}
	var b strings.Builder
	b.WriteString("id,category,score,note\n")
	for i := 0; i < rows; i++ {
		score := fmt.Sprintf("%d", i)
		if i > rows-rows/10 {
			score = fmt.Sprintf("%d.25", i)
		}
		fmt.Fprintf(&b, "%d,%s,%s,note for row %d\n", i, cats[i%3], score, i)
	}
	return []byte(b.String())
}

func runPipeline(t *testing.T, buf []byte, mutate func(*config.ParseConfig)) (*Pipeline, *parser.Result) {
	t.Helper()
	cfg := config.NewParseConfig()
	if mutate != nil {
		mutate(cfg)
	}
	p, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	res, err := p.Parse(context.Background(), buf)
	require.NoError(t, err)
	return p, res
}

func TestParallelMatchesSingleWorker(t *testing.T) {
	buf := bigCorpus(6000)
	require.Greater(t, len(buf), minParallelBytes)

	_, want := runPipeline(t, buf, func(c *config.ParseConfig) { c.Concurrency.Workers = 1 })
	p, got := runPipeline(t, buf, func(c *config.ParseConfig) { c.Concurrency.Workers = 4 })

	require.Equal(t, want.Rows, got.Rows)
	require.Equal(t, want.Names, got.Names)
	for col := range want.Columns {
		assert.Equal(t, want.Columns[col].Code.Kind, got.Columns[col].Code.Kind, "column %d kind", col)
	}

	wantRd := parser.NewTapeReader(buf, want, p.Options())
	gotRd := parser.NewTapeReader(buf, got, p.Options())
	for row := 0; row < want.Rows; row++ {
		for col := range want.Columns {
			assert.Equal(t, wantRd.Value(row, col), gotRd.Value(row, col), "cell %d,%d", row, col)
		}
	}
}

func TestParallelPromotesIntToFloatAcrossChunks(t *testing.T) {
	buf := bigCorpus(6000)
	p, res := runPipeline(t, buf, func(c *config.ParseConfig) { c.Concurrency.Workers = 4 })

	require.Equal(t, 6000, res.Rows)
	assert.Equal(t, tape.KindFloat, res.Columns[2].Code.Kind)
	assert.Equal(t, tape.KindPooledString, res.Columns[1].Code.Kind)

	// early rows were written as ints by their chunk and must read back
	// as floats once the merged column settles on float
	rd := parser.NewTapeReader(buf, res, p.Options())
	assert.Equal(t, float64(0), rd.Value(0, 2))
	assert.Equal(t, float64(100), rd.Value(100, 2))
	assert.Equal(t, 5999.25, rd.Value(5999, 2))
	assert.Equal(t, "beta", rd.Value(1, 1))
}

func TestPipelineFooterSkip(t *testing.T) {
	buf := []byte("a,b\n1,2\n3,4\ntotal,6\n")
	_, res := runPipeline(t, buf, func(c *config.ParseConfig) { c.Layout.FooterSkip = 1 })

	require.Equal(t, 2, res.Rows)
	assert.Equal(t, tape.KindInt, res.Columns[0].Code.Kind)
}

func TestPipelineRowLimit(t *testing.T) {
	buf := bigCorpus(6000)
	p, res := runPipeline(t, buf, func(c *config.ParseConfig) {
		c.Concurrency.Workers = 4
		c.Limits.RowLimit = 10
	})

	require.Equal(t, 10, res.Rows)
	rd := parser.NewTapeReader(buf, res, p.Options())
	assert.Equal(t, int64(9), rd.Value(9, 0))
}

func TestPipelineEmptyInput(t *testing.T) {
	_, res := runPipeline(t, []byte("a,b\n"), nil)
	assert.Equal(t, 0, res.Rows)
	assert.Equal(t, []string{"a", "b"}, res.Names)
}

func TestPipelineStats(t *testing.T) {
	p, _ := runPipeline(t, []byte("a,b\n1,2\n"), nil)
	rows, bytes, runs := p.Stats()
	assert.Equal(t, int64(1), rows)
	assert.Greater(t, bytes, int64(0))
	assert.Equal(t, int64(1), runs)
}

func TestPipelineMalformedFirstRowFails(t *testing.T) {
	cfg := config.NewParseConfig()
	cfg.Layout.HeaderRow = 0
	p, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	// an unterminated quote in the row that determines the column count
	// must fail the parse, never degrade to an empty result
	_, err = p.Parse(context.Background(), []byte("\"oops\nx,y\n"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeParse))
}

func TestPipelineParallelWarningRows(t *testing.T) {
	// a short row deep in the second half must be reported with its
	// global row number after the chunk results are stitched
	var b strings.Builder
	b.WriteString("a,b\n")
	for i := 0; i < 4000; i++ {
		if i == 3500 {
			b.WriteString("only_one_field\n")
			continue
		}
		fmt.Fprintf(&b, "%d,%d\n", i, i)
	}
	buf := []byte(b.String())
	require.Greater(t, len(buf), minParallelBytes)

	_, res := runPipeline(t, buf, func(c *config.ParseConfig) { c.Concurrency.Workers = 4 })
	require.Equal(t, 4000, res.Rows)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, parser.WarnShortRow, res.Warnings[0].Kind)
	assert.Equal(t, 3500, res.Warnings[0].Row)
}
