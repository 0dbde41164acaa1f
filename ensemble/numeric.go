package ensemble

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind tags the concrete representation held by a Value.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindReal
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	default:
		return "text"
	}
}

// Value is a scalar parsed from a realization file. It is exactly one of
// an integer, a real number or a piece of text.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

// IntValue wraps an integer.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// RealValue wraps a real number as-is, without collapsing integral values.
func RealValue(f float64) Value { return Value{kind: KindReal, f: f} }

// TextValue wraps a string.
func TextValue(s string) Value { return Value{kind: KindText, s: s} }

func (v Value) Kind() Kind { return v.kind }

// Int returns the integer and whether the value is an integer.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

// Real returns the real number and whether the value is a real.
func (v Value) Real() (float64, bool) { return v.f, v.kind == KindReal }

// Text returns the string and whether the value is text.
func (v Value) Text() (string, bool) { return v.s, v.kind == KindText }

// Float64 returns the numeric value of an integer or real. Text yields false.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindReal:
		return v.f, true
	default:
		return math.NaN(), false
	}
}

// Any returns the underlying Go value (int64, float64 or string).
func (v Value) Any() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindReal:
		return v.f
	default:
		return v.s
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		return v.s
	}
}

// Equal reports whether both values have the same kind and content.
// NaN reals compare equal to each other.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindReal:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	default:
		return v.s == o.s
	}
}

// Coerce converts an arbitrary scalar into a Value. Integers stay integers,
// reals without a fractional part collapse to integers, strings go through
// CoerceString. Anything else is formatted as text. Coerce never fails.
func Coerce(v any) Value {
	switch x := v.(type) {
	case Value:
		if x.kind == KindReal {
			return coerceReal(x.f)
		}
		return x
	case int:
		return IntValue(int64(x))
	case int8:
		return IntValue(int64(x))
	case int16:
		return IntValue(int64(x))
	case int32:
		return IntValue(int64(x))
	case int64:
		return IntValue(x)
	case uint:
		return coerceUint(uint64(x))
	case uint8:
		return IntValue(int64(x))
	case uint16:
		return IntValue(int64(x))
	case uint32:
		return IntValue(int64(x))
	case uint64:
		return coerceUint(x)
	case bool:
		if x {
			return IntValue(1)
		}
		return IntValue(0)
	case float32:
		return coerceReal(float64(x))
	case float64:
		return coerceReal(x)
	case string:
		return CoerceString(x)
	case nil:
		return TextValue("")
	default:
		return TextValue(fmt.Sprint(x))
	}
}

// CoerceString tries an integer parse, then a real parse, and otherwise
// returns the input untouched as text.
func CoerceString(s string) Value {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return TextValue(s)
	}
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return IntValue(i)
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err == nil || errors.Is(err, strconv.ErrRange) {
		return coerceReal(f)
	}
	return TextValue(s)
}

func coerceUint(u uint64) Value {
	if u > math.MaxInt64 {
		return RealValue(float64(u))
	}
	return IntValue(int64(u))
}

// Reals outside the int64 range, infinities and NaN are kept as reals.
func coerceReal(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return RealValue(f)
	}
	if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return RealValue(f)
	}
	return IntValue(int64(f))
}
