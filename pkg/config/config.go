// Package config provides the unified configuration system for Pulsar.
// It defines a single ParseConfig structure that every parse job uses,
// organized into logical sections:
//   - Layout: header location, data range, transposition, comments
//   - Syntax: delimiter, quoting, escaping, sentinels, literal sets
//   - Types: forced column types, substitutions, string pooling
//   - Limits: strictness, warning caps, row limits
//   - Concurrency: worker count and chunk-boundary sampling depth
//
// Example usage:
//
//	cfg := config.NewParseConfig()
//	cfg.Syntax.Delimiter = "\t"
//	cfg.Concurrency.Workers = 8
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/pulsar/pkg/errors"
)

// ParseConfig is the single unified configuration structure for a parse job.
// Every configuration error it can detect is raised by Validate before any
// byte of input is parsed.
type ParseConfig struct {
	// Layout controls where rows and columns live in the input
	Layout LayoutConfig `yaml:"layout" json:"layout"`

	// Syntax controls the delimited-text grammar
	Syntax SyntaxConfig `yaml:"syntax" json:"syntax"`

	// Types controls type forcing, substitution and string pooling
	Types TypeConfig `yaml:"types" json:"types"`

	// Limits controls strictness, warning caps and row limits
	Limits LimitConfig `yaml:"limits" json:"limits"`

	// Concurrency controls chunked parallel parsing
	Concurrency ConcurrencyConfig `yaml:"concurrency" json:"concurrency"`
}

// LayoutConfig describes where the header and data live in the input.
type LayoutConfig struct {
	// HeaderRow is the 1-based row index of the header row (0 = no header)
	HeaderRow int `yaml:"header_row" json:"header_row"`
	// ColumnNames supplies explicit column names instead of a header row
	ColumnNames []string `yaml:"column_names" json:"column_names"`
	// DataRow is the 1-based first data row (0 = first row after the header)
	DataRow int `yaml:"data_row" json:"data_row"`
	// FooterSkip drops this many rows from the end of the input
	FooterSkip int `yaml:"footer_skip" json:"footer_skip"`
	// Transpose treats each input line as one column instead of one row
	Transpose bool `yaml:"transpose" json:"transpose"`
	// Comment is a prefix marking lines to skip entirely (empty = none)
	Comment string `yaml:"comment" json:"comment"`
	// IgnoreEmptyLines skips blank lines instead of treating them as rows
	IgnoreEmptyLines bool `yaml:"ignore_empty_lines" json:"ignore_empty_lines"`
}

// SyntaxConfig describes the delimited-text grammar.
type SyntaxConfig struct {
	// Delimiter is the single-byte field separator
	Delimiter string `yaml:"delimiter" json:"delimiter"`
	// OpenQuote is the single-byte opening quote character
	OpenQuote string `yaml:"open_quote" json:"open_quote"`
	// CloseQuote is the single-byte closing quote character
	CloseQuote string `yaml:"close_quote" json:"close_quote"`
	// Escape is the single-byte escape character inside quoted fields
	Escape string `yaml:"escape" json:"escape"`
	// DecimalSeparator is the byte separating integer and fraction digits
	DecimalSeparator string `yaml:"decimal_separator" json:"decimal_separator"`
	// Missing lists the sentinel strings that denote a missing value
	Missing []string `yaml:"missing" json:"missing"`
	// TrueStrings lists the literals recognized as boolean true
	TrueStrings []string `yaml:"true_strings" json:"true_strings"`
	// FalseStrings lists the literals recognized as boolean false
	FalseStrings []string `yaml:"false_strings" json:"false_strings"`
	// DateFormat is the Go layout used for date fields
	DateFormat string `yaml:"date_format" json:"date_format"`
	// DateTimeFormat is the Go layout used for datetime fields
	DateTimeFormat string `yaml:"datetime_format" json:"datetime_format"`
}

// TypeConfig controls type forcing, substitution and pooling.
type TypeConfig struct {
	// ForcedByName fixes a column's type by header name; forced columns
	// never promote
	ForcedByName map[string]string `yaml:"forced_by_name" json:"forced_by_name"`
	// ForcedByIndex fixes a column's type by 0-based index
	ForcedByIndex map[int]string `yaml:"forced_by_index" json:"forced_by_index"`
	// DefaultType forces every column to one type (empty = infer)
	DefaultType string `yaml:"default_type" json:"default_type"`
	// Substitutions maps an inferred type to a replacement applied after
	// inference completes (e.g. int -> float)
	Substitutions map[string]string `yaml:"substitutions" json:"substitutions"`
	// PoolThreshold is the distinct-value/row-count ratio below which a
	// string column is pooled (0 disables pooling)
	PoolThreshold float64 `yaml:"pool_threshold" json:"pool_threshold"`
}

// LimitConfig controls strictness and bounds.
type LimitConfig struct {
	// Strict turns a parse failure on a forced column into a hard error
	// instead of a missing value plus warning
	Strict bool `yaml:"strict" json:"strict"`
	// StrictRowLength turns short/long rows into hard errors instead of
	// backfilled/truncated rows plus warnings
	StrictRowLength bool `yaml:"strict_row_length" json:"strict_row_length"`
	// MaxWarnings caps the number of recorded diagnostic events
	MaxWarnings int `yaml:"max_warnings" json:"max_warnings"`
	// RowLimit stops parsing after this many data rows (0 = all)
	RowLimit int `yaml:"row_limit" json:"row_limit"`
}

// ConcurrencyConfig controls chunked parallel parsing.
type ConcurrencyConfig struct {
	// Workers is the desired worker count (0 = NumCPU)
	Workers int `yaml:"workers" json:"workers"`
	// LinesToCheck is the sampling depth used to verify each candidate
	// chunk boundary
	LinesToCheck int `yaml:"lines_to_check" json:"lines_to_check"`
	// NoFallback makes chunk-boundary resolution failure a hard error
	// instead of degrading to single-worker parsing
	NoFallback bool `yaml:"no_fallback" json:"no_fallback"`
}

// ValidTypeNames lists the type names accepted by ForcedByName,
// ForcedByIndex, DefaultType and Substitutions.
var ValidTypeNames = []string{"int", "float", "date", "datetime", "bool", "string", "pooled"}

// NewParseConfig creates a ParseConfig with the engine's defaults: comma
// delimiter, double-quote quoting with doubled-quote escaping, empty string
// as the missing sentinel, header in the first row.
func NewParseConfig() *ParseConfig {
	return &ParseConfig{
		Layout: LayoutConfig{
			HeaderRow:        1,
			DataRow:          0,
			FooterSkip:       0,
			Transpose:        false,
			Comment:          "",
			IgnoreEmptyLines: true,
		},
		Syntax: SyntaxConfig{
			Delimiter:        ",",
			OpenQuote:        `"`,
			CloseQuote:       `"`,
			Escape:           `"`,
			DecimalSeparator: ".",
			Missing:          []string{""},
			TrueStrings:      []string{"true", "True", "TRUE"},
			FalseStrings:     []string{"false", "False", "FALSE"},
			DateFormat:       "2006-01-02",
			DateTimeFormat:   "2006-01-02T15:04:05",
		},
		Types: TypeConfig{
			PoolThreshold: 0.25,
		},
		Limits: LimitConfig{
			Strict:          false,
			StrictRowLength: false,
			MaxWarnings:     100,
			RowLimit:        0,
		},
		Concurrency: ConcurrencyConfig{
			Workers:      runtime.NumCPU(),
			LinesToCheck: 5,
			NoFallback:   false,
		},
	}
}

// LoadFile reads a YAML configuration file over the defaults.
func LoadFile(path string) (*ParseConfig, error) {
	cfg := NewParseConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read config file")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to decode config file")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration for correctness. Every error it can
// detect is raised here, before any byte of input is parsed.
func (pc *ParseConfig) Validate() error {
	if err := pc.Syntax.validate(); err != nil {
		return err
	}
	if pc.Layout.HeaderRow > 0 && len(pc.Layout.ColumnNames) > 0 {
		return errors.New(errors.ErrorTypeConfig,
			"header_row and column_names are mutually exclusive")
	}
	if pc.Layout.HeaderRow < 0 || pc.Layout.DataRow < 0 || pc.Layout.FooterSkip < 0 {
		return errors.New(errors.ErrorTypeConfig,
			"header_row, data_row and footer_skip cannot be negative")
	}
	if pc.Layout.DataRow > 0 && pc.Layout.HeaderRow > pc.Layout.DataRow {
		return errors.New(errors.ErrorTypeConfig, "header_row cannot follow data_row")
	}
	if pc.Types.PoolThreshold < 0 || pc.Types.PoolThreshold > 1 {
		return errors.New(errors.ErrorTypeConfig, "pool_threshold must be within [0, 1]")
	}
	for name, typ := range pc.Types.ForcedByName {
		if !validTypeName(typ) {
			return errors.Newf(errors.ErrorTypeConfig,
				"invalid forced type %q for column %q", typ, name)
		}
	}
	for idx, typ := range pc.Types.ForcedByIndex {
		if idx < 0 {
			return errors.Newf(errors.ErrorTypeConfig, "forced type index %d is negative", idx)
		}
		if !validTypeName(typ) {
			return errors.Newf(errors.ErrorTypeConfig,
				"invalid forced type %q for column %d", typ, idx)
		}
	}
	if pc.Types.DefaultType != "" && !validTypeName(pc.Types.DefaultType) {
		return errors.Newf(errors.ErrorTypeConfig, "invalid default type %q", pc.Types.DefaultType)
	}
	for from, to := range pc.Types.Substitutions {
		if !validTypeName(from) || !validTypeName(to) {
			return errors.Newf(errors.ErrorTypeConfig,
				"invalid type substitution %q -> %q", from, to)
		}
	}
	if pc.Limits.MaxWarnings < 0 {
		return errors.New(errors.ErrorTypeConfig, "max_warnings cannot be negative")
	}
	if pc.Limits.RowLimit < 0 {
		return errors.New(errors.ErrorTypeConfig, "row_limit cannot be negative")
	}
	if pc.Concurrency.Workers < 0 {
		return errors.New(errors.ErrorTypeConfig, "workers cannot be negative")
	}
	if pc.Concurrency.LinesToCheck <= 0 {
		return errors.New(errors.ErrorTypeConfig, "lines_to_check must be positive")
	}
	if pc.Layout.Transpose && pc.Concurrency.Workers > 1 && pc.Concurrency.NoFallback {
		return errors.New(errors.ErrorTypeConfig,
			"transposed input cannot be chunked; unset no_fallback or set workers to 1")
	}
	return nil
}

func (sc *SyntaxConfig) validate() error {
	singles := map[string]string{
		"delimiter":         sc.Delimiter,
		"open_quote":        sc.OpenQuote,
		"close_quote":       sc.CloseQuote,
		"escape":            sc.Escape,
		"decimal_separator": sc.DecimalSeparator,
	}
	for name, v := range singles {
		if len(v) != 1 {
			return errors.Newf(errors.ErrorTypeConfig, "%s must be exactly one byte", name)
		}
	}
	switch sc.Delimiter[0] {
	case '\n', '\r', 0:
		return errors.New(errors.ErrorTypeConfig,
			"delimiter cannot be a newline or NUL byte")
	}
	if sc.Delimiter == sc.OpenQuote || sc.Delimiter == sc.CloseQuote {
		return errors.New(errors.ErrorTypeConfig, "delimiter cannot equal a quote character")
	}
	if len(sc.Missing) == 0 {
		return errors.New(errors.ErrorTypeConfig, "at least one missing sentinel is required")
	}
	if len(sc.TrueStrings) == 0 || len(sc.FalseStrings) == 0 {
		return errors.New(errors.ErrorTypeConfig, "boolean literal sets cannot be empty")
	}
	if sc.DateFormat == "" || sc.DateTimeFormat == "" {
		return errors.New(errors.ErrorTypeConfig, "date and datetime formats are required")
	}
	return nil
}

// GetWorkers returns the worker count, ensuring it's at least 1
func (cc *ConcurrencyConfig) GetWorkers() int {
	if cc.Workers <= 0 {
		return runtime.NumCPU()
	}
	return cc.Workers
}

// DelimiterByte returns the delimiter as a byte. Validate must have passed.
func (sc *SyntaxConfig) DelimiterByte() byte { return sc.Delimiter[0] }

// OpenQuoteByte returns the opening quote as a byte.
func (sc *SyntaxConfig) OpenQuoteByte() byte { return sc.OpenQuote[0] }

// CloseQuoteByte returns the closing quote as a byte.
func (sc *SyntaxConfig) CloseQuoteByte() byte { return sc.CloseQuote[0] }

// EscapeByte returns the escape character as a byte.
func (sc *SyntaxConfig) EscapeByte() byte { return sc.Escape[0] }

// DecimalByte returns the decimal separator as a byte.
func (sc *SyntaxConfig) DecimalByte() byte { return sc.DecimalSeparator[0] }

func validTypeName(name string) bool {
	for _, v := range ValidTypeNames {
		if name == v {
			return true
		}
	}
	return false
}
