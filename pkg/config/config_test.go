package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/pulsar/pkg/errors"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := NewParseConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ",", cfg.Syntax.Delimiter)
	assert.Equal(t, 1, cfg.Layout.HeaderRow)
	assert.True(t, cfg.Layout.IgnoreEmptyLines)
	assert.Equal(t, []string{""}, cfg.Syntax.Missing)
	assert.Equal(t, 0.25, cfg.Types.PoolThreshold)
	assert.Equal(t, 100, cfg.Limits.MaxWarnings)
	assert.Equal(t, 5, cfg.Concurrency.LinesToCheck)
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ParseConfig)
	}{
		{"two byte delimiter", func(c *ParseConfig) { c.Syntax.Delimiter = "||" }},
		{"empty delimiter", func(c *ParseConfig) { c.Syntax.Delimiter = "" }},
		{"newline delimiter", func(c *ParseConfig) { c.Syntax.Delimiter = "\n" }},
		{"delimiter equals quote", func(c *ParseConfig) { c.Syntax.Delimiter = `"` }},
		{"no missing sentinels", func(c *ParseConfig) { c.Syntax.Missing = nil }},
		{"no true literals", func(c *ParseConfig) { c.Syntax.TrueStrings = nil }},
		{"empty date format", func(c *ParseConfig) { c.Syntax.DateFormat = "" }},
		{"header and explicit names", func(c *ParseConfig) { c.Layout.ColumnNames = []string{"a"} }},
		{"negative header row", func(c *ParseConfig) { c.Layout.HeaderRow = -1 }},
		{"header after data row", func(c *ParseConfig) { c.Layout.HeaderRow = 5; c.Layout.DataRow = 2 }},
		{"pool threshold above one", func(c *ParseConfig) { c.Types.PoolThreshold = 1.5 }},
		{"bad forced type by name", func(c *ParseConfig) { c.Types.ForcedByName = map[string]string{"a": "decimal"} }},
		{"negative forced index", func(c *ParseConfig) { c.Types.ForcedByIndex = map[int]string{-1: "int"} }},
		{"bad default type", func(c *ParseConfig) { c.Types.DefaultType = "varchar" }},
		{"bad substitution", func(c *ParseConfig) { c.Types.Substitutions = map[string]string{"int": "decimal"} }},
		{"negative max warnings", func(c *ParseConfig) { c.Limits.MaxWarnings = -1 }},
		{"negative row limit", func(c *ParseConfig) { c.Limits.RowLimit = -1 }},
		{"zero lines to check", func(c *ParseConfig) { c.Concurrency.LinesToCheck = 0 }},
		{"transpose with strict chunking", func(c *ParseConfig) {
			c.Layout.Transpose = true
			c.Concurrency.Workers = 4
			c.Concurrency.NoFallback = true
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewParseConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
		})
	}
}

func TestValidateAccepts(t *testing.T) {
	cfg := NewParseConfig()
	cfg.Layout.HeaderRow = 0
	cfg.Layout.ColumnNames = []string{"x", "y"}
	cfg.Syntax.Delimiter = ";"
	cfg.Syntax.DecimalSeparator = ","
	cfg.Types.ForcedByName = map[string]string{"x": "float"}
	cfg.Types.Substitutions = map[string]string{"int": "float"}
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parse.yaml")
	body := `
layout:
  header_row: 0
  column_names: [id, amount]
  comment: "#"
syntax:
  delimiter: ";"
  decimal_separator: ","
  missing: ["", "NA"]
types:
  forced_by_name:
    amount: float
  pool_threshold: 0.5
limits:
  max_warnings: 10
concurrency:
  workers: 2
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "amount"}, cfg.Layout.ColumnNames)
	assert.Equal(t, "#", cfg.Layout.Comment)
	assert.Equal(t, ";", cfg.Syntax.Delimiter)
	assert.Equal(t, []string{"", "NA"}, cfg.Syntax.Missing)
	assert.Equal(t, "float", cfg.Types.ForcedByName["amount"])
	assert.Equal(t, 0.5, cfg.Types.PoolThreshold)
	assert.Equal(t, 10, cfg.Limits.MaxWarnings)
	assert.Equal(t, 2, cfg.Concurrency.Workers)

	// fields absent from the file keep their defaults
	assert.Equal(t, `"`, cfg.Syntax.OpenQuote)
	assert.Equal(t, "2006-01-02", cfg.Syntax.DateFormat)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}

func TestLoadFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("syntax:\n  delimiter: ab\n"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
