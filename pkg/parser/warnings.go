package parser

import "fmt"

// WarnKind classifies a non-fatal diagnostic event.
type WarnKind string

const (
	// WarnShortRow marks a row with fewer fields than the column count;
	// the missing trailing columns were backfilled
	WarnShortRow WarnKind = "short_row"
	// WarnLongRow marks a row with more fields than the column count;
	// the excess input was discarded up to the next newline
	WarnLongRow WarnKind = "long_row"
	// WarnCoerced marks a field that failed to parse under a
	// user-declared type and was recorded as missing
	WarnCoerced WarnKind = "coerced_missing"
)

// Warning is one bounded diagnostic event. Row numbers are local to the
// chunk that produced the warning.
type Warning struct {
	Kind    WarnKind `json:"kind"`
	Row     int      `json:"row"`
	Col     int      `json:"col"`
	Message string   `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s at row %d col %d: %s", w.Kind, w.Row, w.Col, w.Message)
}

// warningLog accumulates warnings up to a cap. Once the cap is reached
// further events are counted but not stored.
type warningLog struct {
	warnings []Warning
	max      int
	dropped  int
}

func newWarningLog(max int) *warningLog {
	return &warningLog{max: max}
}

func (wl *warningLog) add(w Warning) {
	if wl.max > 0 && len(wl.warnings) >= wl.max {
		wl.dropped++
		return
	}
	wl.warnings = append(wl.warnings, w)
}

func (wl *warningLog) addf(kind WarnKind, row, col int, format string, args ...interface{}) {
	wl.add(Warning{Kind: kind, Row: row, Col: col, Message: fmt.Sprintf(format, args...)})
}
