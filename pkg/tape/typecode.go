package tape

import "fmt"

// Kind is the base kind of a column's inferred or declared type.
type Kind uint8

const (
	// KindUndetermined means no non-missing field has been seen yet
	KindUndetermined Kind = iota
	// KindInt is a 64-bit signed integer column
	KindInt
	// KindFloat is a 64-bit float column
	KindFloat
	// KindDate is a date column stored as days since the Unix epoch
	KindDate
	// KindDateTime is a datetime column stored as Unix microseconds
	KindDateTime
	// KindBool is a boolean column
	KindBool
	// KindPooledString is a string column stored as reference ids
	KindPooledString
	// KindString is a plain string column, terminal in the lattice
	KindString
)

// kindNames indexed by Kind
var kindNames = [...]string{
	"undetermined", "int", "float", "date", "datetime", "bool", "pooled", "string",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind maps a configuration type name to a Kind.
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return KindUndetermined, fmt.Errorf("unknown type name %q", name)
}

// TypeCode describes a column's currently inferred or declared type. The
// Missing flag records whether any field of the column was ever missing; the
// User flag marks a caller-declared type that must never be promoted.
type TypeCode struct {
	Kind    Kind
	Missing bool
	User    bool
}

// Declared returns a user-declared TypeCode for the given kind.
func Declared(k Kind) TypeCode {
	return TypeCode{Kind: k, User: true}
}

// WithMissing returns a copy of t with the missing flag set. The missing
// flag is independent of the kind lattice: an empty field never promotes.
func (t TypeCode) WithMissing() TypeCode {
	t.Missing = true
	return t
}

// Terminal reports whether t can never change for the rest of the job.
// Plain string is terminal, and user-declared columns never change kind.
func (t TypeCode) Terminal() bool {
	return t.User || t.Kind == KindString
}

func (t TypeCode) String() string {
	s := t.Kind.String()
	if t.Missing {
		s += "|missing"
	}
	if t.User {
		s += "|user"
	}
	return s
}

// Promote widens t to accommodate an observed kind. Promotion only ever
// moves up the lattice: undetermined < {int < float} < string, with pooled
// strings below plain string. Two incomparable kinds (for example date vs
// bool) widen to string. User-declared codes are returned unchanged; parse
// failures against them are the encoder's problem, not the lattice's.
func Promote(t TypeCode, observed Kind) TypeCode {
	if t.User || t.Kind == observed || observed == KindUndetermined {
		return t
	}
	switch {
	case t.Kind == KindUndetermined:
		t.Kind = observed
	case t.Kind == KindInt && observed == KindFloat:
		t.Kind = KindFloat
	case t.Kind == KindFloat && observed == KindInt:
		// ints embed in floats; no change
	case t.Kind == KindString:
		// terminal for the remainder of the job
	default:
		// incomparable kinds widen to string
		t.Kind = KindString
	}
	return t
}
