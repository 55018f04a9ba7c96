// Package arena implements the RequestArena bump allocator of §4.4: a
// per-request allocation region that hands out slots in O(1) and is
// freed in O(1) once every escaping object has been promoted to the
// general heap.
//
// Grounded on the bump-pointer-plus-growable-blocks shape of
// other_examples' hyperpb arena.go, adapted away from raw unsafe byte
// pointers (that arena targets pointer-free data it manages with
// unsafe.Pointer arithmetic) to a slice of *gc.Box slots, since every
// allocation this runtime hands out is already a GC-tracked Box and
// our bump allocator only needs to control lifetime and escape
// promotion, not raw memory layout.
package arena

import "github.com/mxphp/corevm/gc"

// slot holds one arena-resident allocation plus whether it has been
// recorded as escaping via MarkEscape.
type slot struct {
	box     *gc.Box
	escaped bool
}

// Arena is a bump allocator for one logical request. A zero Arena is
// not ready to use; call Begin first.
type Arena struct {
	requestID uint64
	slots     []slot
}

// New creates an arena not yet bound to a request.
func New() *Arena {
	return &Arena{}
}

// Begin resets the bump pointer and assigns a fresh request id, per
// §4.4's begin_request contract.
func (a *Arena) Begin(requestID uint64) {
	a.requestID = requestID
	a.slots = a.slots[:0]
}

// RequestID returns the id assigned by the most recent Begin.
func (a *Arena) RequestID() uint64 { return a.requestID }

// Alloc bump-allocates b into the arena. Callers use this for
// allocations the compiler's escape analysis classified NoEscape for
// the current request; the Box is not yet reachable from the general
// heap's root set.
func (a *Arena) Alloc(b *gc.Box) {
	a.slots = append(a.slots, slot{box: b})
}

// MarkEscape records that box must survive End: it will be deep-copied
// into the general heap instead of discarded, per §4.4's
// mark_escape(obj) contract. Marking an object not allocated by this
// arena is a no-op escape record only used during End's promotion
// pass.
func (a *Arena) MarkEscape(b *gc.Box) {
	if idx, ok := a.findSlot(b); ok {
		a.slots[idx].escaped = true
		return
	}
	a.slots = append(a.slots, slot{box: b, escaped: true})
}

func (a *Arena) findSlot(b *gc.Box) (int, bool) {
	for i, s := range a.slots {
		if s.box == b {
			return i, true
		}
	}
	return -1, false
}

// Escaped returns every Box marked escaping since the last Begin, in
// allocation order.
func (a *Arena) Escaped() []*gc.Box {
	var out []*gc.Box
	for _, s := range a.slots {
		if s.escaped {
			out = append(out, s.box)
		}
	}
	return out
}

// Len reports how many allocations the arena currently holds.
func (a *Arena) Len() int { return len(a.slots) }

// End deep-copies every escaped object into the general heap via
// promote, updating all references from live structures, then frees
// the arena in O(1). After End returns, no live pointer may refer
// into the arena: the invariant is upheld by the caller discarding
// a.slots wholesale rather than by any per-object bookkeeping.
func (a *Arena) End(promote func(*gc.Box) *gc.Box) map[*gc.Box]*gc.Box {
	moved := make(map[*gc.Box]*gc.Box, len(a.slots))
	for _, s := range a.slots {
		if s.escaped {
			moved[s.box] = promote(s.box)
		}
	}
	a.slots = nil
	return moved
}
