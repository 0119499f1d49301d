package table

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies the scalar type held by a Value
type Kind uint8

const (
	// String values are kept verbatim
	String Kind = iota
	// Int values are whole numbers written without a decimal point
	Int
	// Float values always carry a decimal point or exponent when formatted
	Float
)

// Value is a single scalar cell of a Table
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
}

// StringValue wraps s as a string cell
func StringValue(s string) Value { return Value{kind: String, s: s} }

// IntValue wraps i as an integer cell
func IntValue(i int) Value { return Value{kind: Int, i: int64(i)} }

// FloatValue wraps f as a floating point cell
func FloatValue(f float64) Value { return Value{kind: Float, f: f} }

// ParseValue converts a text token into the narrowest matching Value.
// Integers are tried first, then finite floats; everything else, including
// zero-padded digit strings, stays a string so that it is written back unchanged.
func ParseValue(text string) Value {
	if text == "" {
		return StringValue(text)
	}
	if !hasLeadingZero(text) {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return Value{kind: Int, i: i}
		}
	}
	if looksNumeric(text) {
		if f, err := strconv.ParseFloat(text, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return FloatValue(f)
		}
	}
	return StringValue(text)
}

// hasLeadingZero reports whether text is an integer literal written with a
// redundant leading zero, e.g. "000123" or "-01"
func hasLeadingZero(text string) bool {
	t := strings.TrimLeft(text, "+-")
	return len(t) > 1 && t[0] == '0' && t[1] >= '0' && t[1] <= '9'
}

// looksNumeric rejects tokens that strconv would accept but a catalog
// would not treat as numbers (nan, inf, hex floats, digit separators)
func looksNumeric(text string) bool {
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '+' || r == 'e' || r == 'E':
		default:
			return false
		}
	}
	return true
}

// Kind returns the scalar type of v
func (v Value) Kind() Kind { return v.kind }

// IsNumeric reports whether v holds an Int or a Float
func (v Value) IsNumeric() bool { return v.kind == Int || v.kind == Float }

// Float returns v as a float64. Strings are parsed, and yield false when they
// are not numbers.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case Int:
		return float64(v.i), true
	case Float:
		return v.f, true
	default:
		f, err := strconv.ParseFloat(v.s, 64)
		return f, err == nil
	}
}

// Int returns v as an int. Floats are accepted only when they hold a whole number.
func (v Value) Int() (int, bool) {
	switch v.kind {
	case Int:
		return int(v.i), true
	case Float:
		if v.f != math.Trunc(v.f) {
			return 0, false
		}
		return int(v.f), true
	default:
		i, err := strconv.Atoi(v.s)
		return i, err == nil
	}
}

// String formats v the way it is written to a catalog
func (v Value) String() string {
	switch v.kind {
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return formatFloat(v.f)
	default:
		return v.s
	}
}

// formatFloat writes the shortest representation that parses back to f,
// forcing a decimal point so the token is read as a float again
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	abs := math.Abs(f)
	var s string
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		s = strconv.FormatFloat(f, 'e', -1, 64)
	} else {
		s = strconv.FormatFloat(f, 'f', -1, 64)
	}
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// Compare orders two values. Numbers compare numerically and sort before
// strings; strings compare lexically.
func Compare(a, b Value) int {
	an, bn := a.IsNumeric(), b.IsNumeric()
	switch {
	case an && bn:
		if a.kind == Int && b.kind == Int {
			return cmpOrdered(a.i, b.i)
		}
		af, _ := a.Float()
		bf, _ := b.Float()
		return cmpOrdered(af, bf)
	case an:
		return -1
	case bn:
		return 1
	default:
		return strings.Compare(a.s, b.s)
	}
}

// Equal reports whether a and b compare equal
func Equal(a, b Value) bool { return Compare(a, b) == 0 }

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
