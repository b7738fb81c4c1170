package ir

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"

	"github.com/google/uuid"
)

// GUID identifies classes, elements, nodes, signals and descriptors.
type GUID = uuid.UUID

// NilGUID is the empty GUID. As a signal sender it acts as a wildcard.
var NilGUID = uuid.Nil

// ValueKind enumerates the scratchpad value types.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindGUID
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindGUID:
		return "guid"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseValueKind maps a data type name to its kind.
func ParseValueKind(s string) (ValueKind, error) {
	switch s {
	case "null":
		return KindNull, nil
	case "bool":
		return KindBool, nil
	case "int":
		return KindInt, nil
	case "float":
		return KindFloat, nil
	case "string":
		return KindString, nil
	case "guid":
		return KindGUID, nil
	default:
		return KindNull, fmt.Errorf("unknown value kind %q", s)
	}
}

// Value is a sealed interface over the types a scratchpad slot can hold.
// Only Null, Bool, Int, Float, String and GUIDValue implement it.
type Value interface {
	Kind() ValueKind
	value() // sealed
}

// Null is the empty value. Unset slots hold Null.
type Null struct{}

func (Null) Kind() ValueKind { return KindNull }
func (Null) value()          {}

// Bool is a boolean value.
type Bool bool

func (Bool) Kind() ValueKind { return KindBool }
func (Bool) value()          {}

// Int is a 64-bit integer value.
type Int int64

func (Int) Kind() ValueKind { return KindInt }
func (Int) value()          {}

// Float is a 64-bit floating point value. NaN and infinities are rejected
// by canonical marshaling.
type Float float64

func (Float) Kind() ValueKind { return KindFloat }
func (Float) value()          {}

// String is a string value.
type String string

func (String) Kind() ValueKind { return KindString }
func (String) value()          {}

// GUIDValue holds a GUID, e.g. a signal or state reference.
type GUIDValue GUID

func (GUIDValue) Kind() ValueKind { return KindGUID }
func (GUIDValue) value()          {}

// ZeroValue returns the default value for a kind.
func ZeroValue(k ValueKind) Value {
	switch k {
	case KindBool:
		return Bool(false)
	case KindInt:
		return Int(0)
	case KindFloat:
		return Float(0)
	case KindString:
		return String("")
	case KindGUID:
		return GUIDValue(NilGUID)
	default:
		return Null{}
	}
}

// AsBool reports v as a bool. Ints and floats are true when non-zero.
func AsBool(v Value) (bool, bool) {
	switch val := v.(type) {
	case Bool:
		return bool(val), true
	case Int:
		return val != 0, true
	case Float:
		return val != 0, true
	default:
		return false, false
	}
}

// AsInt reports v as an int64. Floats are truncated.
func AsInt(v Value) (int64, bool) {
	switch val := v.(type) {
	case Int:
		return int64(val), true
	case Float:
		return int64(val), true
	case Bool:
		if val {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// AsFloat reports v as a float64.
func AsFloat(v Value) (float64, bool) {
	switch val := v.(type) {
	case Float:
		return float64(val), true
	case Int:
		return float64(val), true
	default:
		return 0, false
	}
}

// AsString reports v as a string. Only String values convert.
func AsString(v Value) (string, bool) {
	s, ok := v.(String)
	return string(s), ok
}

// AsGUID reports v as a GUID. Strings are parsed.
func AsGUID(v Value) (GUID, bool) {
	switch val := v.(type) {
	case GUIDValue:
		return GUID(val), true
	case String:
		id, err := uuid.Parse(string(val))
		if err != nil {
			return NilGUID, false
		}
		return id, true
	default:
		return NilGUID, false
	}
}

// Equal reports whether two values have the same kind and content.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	return a == b
}

// Format renders v for logs and dumps.
func Format(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "null"
	case Bool:
		return strconv.FormatBool(bool(val))
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case String:
		return strconv.Quote(string(val))
	case GUIDValue:
		return GUID(val).String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// FromAny converts a decoded Go value (CUE, YAML or JSON) into a Value.
// Integral float64 values stay floats; json.Number is split on its lexical form.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case float32:
		return Float(val), nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("non-finite float %v", val)
		}
		return Float(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", val)
		}
		return Float(f), nil
	case string:
		return String(val), nil
	case uuid.UUID:
		return GUIDValue(val), nil
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}

// Coerce converts v to kind k where a lossless or conventional conversion
// exists (int to float, string to guid). Null coerces to the kind's zero.
func Coerce(v Value, k ValueKind) (Value, error) {
	if v == nil || v.Kind() == KindNull {
		return ZeroValue(k), nil
	}
	if v.Kind() == k {
		return v, nil
	}
	switch k {
	case KindFloat:
		if f, ok := AsFloat(v); ok {
			return Float(f), nil
		}
	case KindInt:
		if f, ok := v.(Float); ok && f == Float(math.Trunc(float64(f))) {
			return Int(int64(f)), nil
		}
	case KindGUID:
		if id, ok := AsGUID(v); ok {
			return GUIDValue(id), nil
		}
	}
	return nil, fmt.Errorf("cannot convert %s value %s to %s", v.Kind(), Format(v), k)
}

// Properties is a named set of values, used for component properties,
// class default properties and public variable overrides.
// Use SortedKeys() for deterministic iteration.
type Properties map[string]Value

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
func (p Properties) SortedKeys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// Clone returns a shallow copy. Values are immutable so this is a full copy.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Overlay returns a copy of p with every key of over replacing p's entry.
func (p Properties) Overlay(over Properties) Properties {
	out := make(Properties, len(p)+len(over))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}
