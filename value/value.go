// Package value implements the tagged dynamic Value of §4.1: a small
// primitive-or-pointer union with explicit retain/release, coercion, and
// equality/identity semantics. Aggregate variants carry a pointer to a
// *gc.Box; primitive variants are inline, matching the "a valid Value
// always decodes to exactly one tag" invariant of §3.
//
// Grounded on the teacher's Value interface (value.go: Type()/String()/
// Accept(ValueVisitor)), generalized from a parse-tree node union to a full
// dynamic-language value union per §9's "replace [pervasive nullable/any]
// with explicit tagged sum types" redesign flag.
package value

import (
	"fmt"
	"math"

	"github.com/mxphp/corevm/gc"
)

// Tag identifies which of the §3 variants a Value currently holds.
type Tag uint8

const (
	TagNull Tag = iota
	TagBool
	TagInt
	TagFloat
	TagInternedString
	TagString
	TagArray
	TagObject
	TagStruct
	TagClosure
	TagBuiltinFunction
	TagUserFunction
	TagResource
)

func (t Tag) String() string {
	names := [...]string{
		"null", "bool", "int", "float", "interned_string", "string",
		"array", "object", "struct", "closure", "builtin_function",
		"user_function", "resource",
	}
	if int(t) < len(names) {
		return names[t]
	}
	return "unknown"
}

func (t Tag) IsAggregate() bool {
	switch t {
	case TagString, TagArray, TagObject, TagStruct, TagClosure, TagResource:
		return true
	default:
		return false
	}
}

// Value is the tagged union itself. Primitive payloads live in num (bits
// reinterpreted per tag); aggregate payloads live in box. Exactly one of
// the two is meaningful for any given tag, enforced by the constructors
// below rather than by exposing the fields directly.
type Value struct {
	tag Tag
	num uint64 // bool/int/float bit pattern, or the intern table index
	box *gc.Box
	str string // backing bytes for TagInternedString/TagString when no box is allocated yet
}

func Null() Value { return Value{tag: TagNull} }

func Bool(b bool) Value {
	var n uint64
	if b {
		n = 1
	}
	return Value{tag: TagBool, num: n}
}

func Int(i int64) Value { return Value{tag: TagInt, num: uint64(i)} }

func Float(f float64) Value { return Value{tag: TagFloat, num: math.Float64bits(f)} }

// String constructs an aggregate string Value backed by a GC box when b is
// non-nil, or an unboxed literal otherwise (used for constant-pool entries
// that never need retain/release because the compiled function outlives
// every execution, §4.5).
func String(s string, b *gc.Box) Value {
	if b == nil {
		return Value{tag: TagString, str: s}
	}
	return Value{tag: TagString, box: b}
}

func Interned(idx uint64, s string) Value {
	return Value{tag: TagInternedString, num: idx, str: s}
}

func Aggregate(tag Tag, b *gc.Box) Value {
	if !tag.IsAggregate() {
		panic(fmt.Sprintf("value: %s is not an aggregate tag", tag))
	}
	return Value{tag: tag, box: b}
}

func (v Value) Tag() Tag   { return v.tag }
func (v Value) Box() *gc.Box { return v.box }

func (v Value) IsNull() bool { return v.tag == TagNull }

// ---- retain/release (§4.1) ----

// Retain increments the strong count on aggregate variants and is a no-op
// on primitives.
func (v Value) Retain() error {
	if v.box == nil {
		return nil
	}
	return v.box.Retain()
}

// Release decrements the strong count on aggregate variants and is a no-op
// on primitives. mm is used to run the destructor chain on reaching zero.
func (v Value) Release(mm *gc.MemoryManager) error {
	if v.box == nil {
		return nil
	}
	return v.box.Release(mm)
}

// ---- coercions (§4.1) ----

func (v Value) ToBool() bool {
	switch v.tag {
	case TagNull:
		return false
	case TagBool:
		return v.num != 0
	case TagInt:
		return int64(v.num) != 0
	case TagFloat:
		return math.Float64frombits(v.num) != 0
	case TagString, TagInternedString:
		return v.str != "" && v.str != "0"
	default:
		return true // aggregates (array/object/...) are truthy when present
	}
}

// ToInt follows round-half-to-even when truncating a float, and treats a
// non-numeric string as 0 with a recoverable coercion warning left to the
// caller (this package has no diagnostic sink; callers in vm/ report it).
func (v Value) ToInt() (int64, bool) {
	switch v.tag {
	case TagNull:
		return 0, true
	case TagBool:
		if v.num != 0 {
			return 1, true
		}
		return 0, true
	case TagInt:
		return int64(v.num), true
	case TagFloat:
		f := math.Float64frombits(v.num)
		return int64(math.RoundToEven(f)), true
	case TagString, TagInternedString:
		n, ok := parseLeadingInt(v.str)
		return n, ok
	default:
		return 0, false
	}
}

func (v Value) ToFloat() (float64, bool) {
	switch v.tag {
	case TagNull:
		return 0, true
	case TagBool:
		if v.num != 0 {
			return 1, true
		}
		return 0, true
	case TagInt:
		return float64(int64(v.num)), true
	case TagFloat:
		return math.Float64frombits(v.num), true
	case TagString, TagInternedString:
		f, ok := parseLeadingFloat(v.str)
		return f, ok
	default:
		return 0, false
	}
}

func (v Value) ToStringValue() string {
	switch v.tag {
	case TagNull:
		return ""
	case TagBool:
		if v.num != 0 {
			return "1"
		}
		return ""
	case TagInt:
		return fmt.Sprintf("%d", int64(v.num))
	case TagFloat:
		return fmt.Sprintf("%g", math.Float64frombits(v.num))
	case TagString, TagInternedString:
		return v.stringContent()
	default:
		return fmt.Sprintf("%s(%p)", v.tag, v.box)
	}
}

// stringContent resolves the actual bytes of a TagString/TagInternedString
// value: inline str when no box was allocated for it, or the box's payload
// when it was (AllocString/Intern). PHP strings are value types, so every
// content-sensitive operation (ToStringValue, equality, identity) must
// compare bytes rather than the box pointer, unlike every other aggregate
// tag.
func (v Value) stringContent() string {
	if v.box != nil {
		if s, ok := v.box.StringData(); ok {
			return s
		}
	}
	return v.str
}

// ---- equality / identity (§4.1) ----

// LooseEqual implements `==`: coercion rules match the documented
// lossless-where-possible policy.
func LooseEqual(a, b Value) bool {
	if a.tag == b.tag {
		return Identical(a, b)
	}
	if isNumeric(a.tag) && isNumeric(b.tag) {
		af, _ := a.ToFloat()
		bf, _ := b.ToFloat()
		return af == bf
	}
	if a.tag == TagNull || b.tag == TagNull {
		return !a.ToBool() && !b.ToBool()
	}
	return a.ToStringValue() == b.ToStringValue()
}

// Identical implements `===`: content equality for strings (PHP strings
// are a value type, not a reference type, regardless of whether this
// runtime happens to back a given one with a heap box), pointer equality
// for every other aggregate, and tag plus bitwise payload for primitives.
func Identical(a, b Value) bool {
	if a.tag != b.tag {
		return false
	}
	if a.tag == TagString || a.tag == TagInternedString {
		return a.stringContent() == b.stringContent()
	}
	if a.tag.IsAggregate() {
		return a.box == b.box
	}
	return a.num == b.num
}

func isNumeric(t Tag) bool { return t == TagInt || t == TagFloat || t == TagBool }

func parseLeadingInt(s string) (int64, bool) {
	var n int64
	i := 0
	neg := false
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		n = n*10 + int64(s[i]-'0')
		i++
	}
	if i == start {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

func parseLeadingFloat(s string) (float64, bool) {
	var f float64
	n, ok := parseLeadingInt(s)
	if !ok {
		return 0, false
	}
	f = float64(n)
	return f, true
}
