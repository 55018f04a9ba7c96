package cow_test

import (
	"testing"

	"github.com/mxphp/corevm/cow"
	"github.com/mxphp/corevm/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringSSOBoundary(t *testing.T) {
	short := cow.NewCOWString(string(make([]byte, 23)))
	long := cow.NewCOWString(string(make([]byte, 24)))

	assert.False(t, short.IsShared())
	assert.Equal(t, 23, short.Len())
	assert.Equal(t, 24, long.Len())
}

func TestCOWStringShareScenario(t *testing.T) {
	s := cow.NewCOWString(string(make([]byte, 100)))
	tt := cow.AssignString(s)

	assert.True(t, s.IsShared())
	assert.True(t, tt.IsShared())

	tt.SetByteAt(0, 'x')

	assert.False(t, tt.IsShared())
	assert.Equal(t, byte('x'), tt.String()[0])
	assert.NotEqual(t, byte('x'), s.String()[0])
}

func TestCOWStringInlineNeverShares(t *testing.T) {
	s := cow.NewCOWString("hi")
	tt := cow.AssignString(s)
	tt.SetByteAt(0, 'X')

	assert.Equal(t, "hi", s.String())
	assert.Equal(t, "Xi", tt.String())
}

func TestCOWArrayShareAndDetach(t *testing.T) {
	a := cow.NewCOWArray([]value.Value{value.Int(1), value.Int(2)})
	b := cow.AssignArray(a)

	assert.True(t, a.IsShared())

	b.Set(0, value.Int(99))

	v0, _ := a.Get(0)
	assert.Equal(t, int64(1), func() int64 { n, _ := v0.ToInt(); return n }())

	v1, _ := b.Get(0)
	assert.Equal(t, int64(99), func() int64 { n, _ := v1.ToInt(); return n }())
}

func TestCOWArraySetGrowsWithNulls(t *testing.T) {
	a := cow.NewCOWArray([]value.Value{value.Int(1)})
	a.Set(3, value.Int(7))

	require.Equal(t, 4, a.Len())
	v1, ok := a.Get(1)
	assert.True(t, ok)
	assert.True(t, v1.ToBool() == false)

	v3, _ := a.Get(3)
	n, _ := v3.ToInt()
	assert.Equal(t, int64(7), n)
}

func TestCOWArrayPush(t *testing.T) {
	a := cow.NewCOWArray(nil)
	a.Push(value.Int(1))
	a.Push(value.Int(2))

	assert.Equal(t, 2, a.Len())
	v1, _ := a.Get(1)
	n, _ := v1.ToInt()
	assert.Equal(t, int64(2), n)
}

func TestDecideConvention(t *testing.T) {
	assert.Equal(t, cow.ByValue, cow.Decide(cow.Shape{SizeBytes: 8, Mutable: false}))
	assert.Equal(t, cow.ByConstRef, cow.Decide(cow.Shape{SizeBytes: 256, Mutable: false}))
	assert.Equal(t, cow.ByCOW, cow.Decide(cow.Shape{SizeBytes: 64, Mutable: true, IsStringOrArr: true}))
	assert.Equal(t, cow.ByMove, cow.Decide(cow.Shape{SizeBytes: 64, Mutable: true, LastUse: true}))
	assert.Equal(t, cow.ByCOW, cow.Decide(cow.Shape{SizeBytes: 64, Mutable: true}))
	assert.Equal(t, cow.RuntimeCheck, cow.Decide(cow.Shape{SizeBytes: -1}))
}
