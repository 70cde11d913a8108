// Package parser implements the core parsing engine: field scanning, tape
// encoding, online type inference, chunk planning and the per-chunk parse
// driver.
package parser

import (
	"github.com/ajitpratap0/pulsar/pkg/config"
	"github.com/ajitpratap0/pulsar/pkg/errors"
	"github.com/ajitpratap0/pulsar/pkg/tape"
)

// Options is the compiled, byte-level form of a ParseConfig. It is built
// once per job and shared read-only by every chunk worker.
type Options struct {
	Delim      byte
	OpenQuote  byte
	CloseQuote byte
	Escape     byte
	Decimal    byte

	Missing map[string]struct{}
	True    map[string]struct{}
	False   map[string]struct{}

	DateFormat     string
	DateTimeFormat string

	Comment          []byte
	IgnoreEmptyLines bool
	Transpose        bool

	HeaderRow   int
	DataRow     int
	FooterSkip  int
	ColumnNames []string

	ForcedByName  map[string]tape.Kind
	ForcedByIndex map[int]tape.Kind
	DefaultKind   tape.Kind
	HasDefault    bool
	Substitutions map[tape.Kind]tape.Kind

	PoolThreshold float64

	Strict          bool
	StrictRowLength bool
	MaxWarnings     int
	RowLimit        int

	Workers      int
	LinesToCheck int
	NoFallback   bool
}

// CompileOptions validates cfg and lowers it into byte-level options.
func CompileOptions(cfg *config.ParseConfig) (*Options, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &Options{
		Delim:      cfg.Syntax.DelimiterByte(),
		OpenQuote:  cfg.Syntax.OpenQuoteByte(),
		CloseQuote: cfg.Syntax.CloseQuoteByte(),
		Escape:     cfg.Syntax.EscapeByte(),
		Decimal:    cfg.Syntax.DecimalByte(),

		Missing: stringSet(cfg.Syntax.Missing),
		True:    stringSet(cfg.Syntax.TrueStrings),
		False:   stringSet(cfg.Syntax.FalseStrings),

		DateFormat:     cfg.Syntax.DateFormat,
		DateTimeFormat: cfg.Syntax.DateTimeFormat,

		IgnoreEmptyLines: cfg.Layout.IgnoreEmptyLines,
		Transpose:        cfg.Layout.Transpose,
		HeaderRow:        cfg.Layout.HeaderRow,
		DataRow:          cfg.Layout.DataRow,
		FooterSkip:       cfg.Layout.FooterSkip,
		ColumnNames:      cfg.Layout.ColumnNames,

		Substitutions: make(map[tape.Kind]tape.Kind),

		PoolThreshold: cfg.Types.PoolThreshold,

		Strict:          cfg.Limits.Strict,
		StrictRowLength: cfg.Limits.StrictRowLength,
		MaxWarnings:     cfg.Limits.MaxWarnings,
		RowLimit:        cfg.Limits.RowLimit,

		Workers:      cfg.Concurrency.GetWorkers(),
		LinesToCheck: cfg.Concurrency.LinesToCheck,
		NoFallback:   cfg.Concurrency.NoFallback,
	}

	if cfg.Layout.Comment != "" {
		o.Comment = []byte(cfg.Layout.Comment)
	}

	if len(cfg.Types.ForcedByName) > 0 {
		o.ForcedByName = make(map[string]tape.Kind, len(cfg.Types.ForcedByName))
		for name, typ := range cfg.Types.ForcedByName {
			k, err := tape.ParseKind(typ)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid forced type")
			}
			o.ForcedByName[name] = k
		}
	}
	if len(cfg.Types.ForcedByIndex) > 0 {
		o.ForcedByIndex = make(map[int]tape.Kind, len(cfg.Types.ForcedByIndex))
		for idx, typ := range cfg.Types.ForcedByIndex {
			k, err := tape.ParseKind(typ)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid forced type")
			}
			o.ForcedByIndex[idx] = k
		}
	}
	if cfg.Types.DefaultType != "" {
		k, err := tape.ParseKind(cfg.Types.DefaultType)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid default type")
		}
		o.DefaultKind = k
		o.HasDefault = true
	}
	for from, to := range cfg.Types.Substitutions {
		kf, err := tape.ParseKind(from)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid substitution source")
		}
		kt, err := tape.ParseKind(to)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid substitution target")
		}
		o.Substitutions[kf] = kt
	}

	return o, nil
}

// forcedKind resolves a column's user-declared kind, if any. Index forcing
// wins over name forcing; the uniform default applies last.
func (o *Options) forcedKind(idx int, name string) (tape.Kind, bool) {
	if k, ok := o.ForcedByIndex[idx]; ok {
		return k, true
	}
	if k, ok := o.ForcedByName[name]; ok {
		return k, true
	}
	if o.HasDefault {
		return o.DefaultKind, true
	}
	return tape.KindUndetermined, false
}

// isMissing reports whether raw matches a configured missing sentinel.
func (o *Options) isMissing(raw string) bool {
	_, ok := o.Missing[raw]
	return ok
}

func stringSet(ss []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		m[s] = struct{}{}
	}
	return m
}
