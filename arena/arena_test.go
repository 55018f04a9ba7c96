package arena_test

import (
	"testing"

	"github.com/mxphp/corevm/arena"
	"github.com/mxphp/corevm/gc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginResetsBumpPointer(t *testing.T) {
	a := arena.New()
	a.Begin(1)
	a.Alloc(&gc.Box{})
	a.Alloc(&gc.Box{})
	require.Equal(t, 2, a.Len())

	a.Begin(2)
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, uint64(2), a.RequestID())
}

func TestMarkEscapeTracksSubsetOfAllocations(t *testing.T) {
	a := arena.New()
	a.Begin(1)
	kept := &gc.Box{}
	escaping := &gc.Box{}
	a.Alloc(kept)
	a.Alloc(escaping)
	a.MarkEscape(escaping)

	got := a.Escaped()
	require.Len(t, got, 1)
	assert.Same(t, escaping, got[0])
}

func TestEndPromotesEscapedAndFreesArena(t *testing.T) {
	a := arena.New()
	a.Begin(1)
	escaping := &gc.Box{}
	a.Alloc(escaping)
	a.MarkEscape(escaping)

	promoted := &gc.Box{}
	moved := a.End(func(b *gc.Box) *gc.Box {
		assert.Same(t, escaping, b)
		return promoted
	})

	assert.Same(t, promoted, moved[escaping])
	assert.Equal(t, 0, a.Len())
}

func TestEndSkipsObjectsThatNeverEscaped(t *testing.T) {
	a := arena.New()
	a.Begin(1)
	a.Alloc(&gc.Box{})

	calls := 0
	moved := a.End(func(b *gc.Box) *gc.Box {
		calls++
		return b
	})

	assert.Equal(t, 0, calls)
	assert.Empty(t, moved)
}
