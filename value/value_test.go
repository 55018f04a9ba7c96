package value_test

import (
	"math"
	"testing"

	"github.com/mxphp/corevm/config"
	"github.com/mxphp/corevm/gc"
	"github.com/mxphp/corevm/value"
	"github.com/stretchr/testify/assert"
)

func TestIdenticalPrimitives(t *testing.T) {
	assert.True(t, value.Identical(value.Int(5), value.Int(5)))
	assert.False(t, value.Identical(value.Int(5), value.Float(5)))
	assert.True(t, value.Identical(value.Bool(true), value.Bool(true)))
}

func TestLooseEqualCoercion(t *testing.T) {
	assert.True(t, value.LooseEqual(value.Int(1), value.Bool(true)))
	assert.True(t, value.LooseEqual(value.Int(0), value.Null()))
	assert.False(t, value.LooseEqual(value.Int(1), value.Int(2)))
}

func TestToIntRoundHalfToEven(t *testing.T) {
	n, ok := value.Float(2.5).ToInt()
	assert.True(t, ok)
	assert.Equal(t, int64(2), n)

	n2, ok := value.Float(3.5).ToInt()
	assert.True(t, ok)
	assert.Equal(t, int64(4), n2)
}

func TestAddIntWrapsAtBoundary(t *testing.T) {
	max := int64(math.MaxInt64)
	assert.Equal(t, int64(math.MinInt64), value.AddInt(max, 1))
}

func TestDivIntByZeroYieldsSignedInf(t *testing.T) {
	r := value.DivInt(10, 0)
	assert.True(t, r.IsFloat)
	assert.True(t, r.Warned)
	assert.True(t, math.IsInf(r.FloatResult, 1))

	rNeg := value.DivInt(-10, 0)
	assert.True(t, math.IsInf(rNeg.FloatResult, -1))

	rZero := value.DivInt(0, 0)
	assert.True(t, math.IsNaN(rZero.FloatResult))
}

func TestDivIntExact(t *testing.T) {
	r := value.DivInt(10, 5)
	assert.False(t, r.IsFloat)
	assert.Equal(t, int64(2), r.IntResult)
}

func TestNullToBool(t *testing.T) {
	assert.False(t, value.Null().ToBool())
	assert.False(t, value.Int(0).ToBool())
	assert.True(t, value.Int(1).ToBool())
}

// TestStringIdenticalComparesContent guards against TagString's aggregate
// classification short-circuiting === to a box-pointer comparison: two
// unboxed strings with the same bytes (the shape every PUSH_CONST and
// CONCAT result takes) must compare identical by content, not by their
// (both-nil) box pointers happening to match.
func TestStringIdenticalComparesContent(t *testing.T) {
	assert.True(t, value.Identical(value.String("foo", nil), value.String("foo", nil)))
	assert.False(t, value.Identical(value.String("foo", nil), value.String("bar", nil)))
}

func TestStringLooseEqualComparesContent(t *testing.T) {
	assert.True(t, value.LooseEqual(value.String("foo", nil), value.String("foo", nil)))
	assert.False(t, value.LooseEqual(value.String("foo", nil), value.String("bar", nil)))
}

// TestStringIdenticalBoxedContent covers the other half of §4.1's "a valid
// Value always decodes to exactly one tag" guarantee: a box-backed string
// (AllocString/Intern) must compare by the bytes in its payload too, since
// PHP strings are a value type regardless of which representation this
// runtime picked for a given one.
func TestStringIdenticalBoxedContent(t *testing.T) {
	mm := gc.NewMemoryManager(config.NewDefault())
	b1 := mm.AllocString("hello world this is long enough to force a box")
	b2 := mm.AllocString("hello world this is long enough to force a box")
	b3 := mm.AllocString("something else entirely")

	assert.True(t, value.Identical(value.String("", b1), value.String("", b2)))
	assert.False(t, value.Identical(value.String("", b1), value.String("", b3)))
}
