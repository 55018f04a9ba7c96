// Package gc implements the tiered memory manager of §4.2-§4.4: a
// generational collector (nursery + two survivor spaces + old generation +
// large-object space) fronted by a MemoryManager that exposes the
// allocation, rooting and write-barrier contracts the rest of the runtime
// relies on.
//
// Grounded on the teacher's dispatch-loop idiom (vm.go) for the incremental
// marking step function, and on the retrieval pack's runtime reference
// files (mbarrier.go, malloc.go) for write-barrier/free-list shape — see
// DESIGN.md. There is no teacher GC to imitate line-for-line; a PEG VM has
// no allocator of its own.
package gc

import "fmt"

// Generation identifies which memory region currently owns a Box.
type Generation uint8

const (
	Nursery Generation = iota
	SurvivorSpace
	OldGen
	LargeObjectSpace
)

func (g Generation) String() string {
	switch g {
	case Nursery:
		return "nursery"
	case SurvivorSpace:
		return "survivor"
	case OldGen:
		return "old"
	case LargeObjectSpace:
		return "los"
	default:
		return "unknown"
	}
}

// Color is the tri-color mark state; Purple additionally flags a cycle
// collection candidate independent of the white/gray/black mark cycle, per
// §3 ("color (white/gray/black/purple for cycle candidates)").
type Color uint8

const (
	White Color = iota
	Gray
	Black
	Purple
)

// Traceable lets the GC discover outgoing references from an allocation's
// payload without the gc package needing to know about Value, COWArray, or
// any other aggregate type. Every payload the allocator accepts must
// implement it (a leaf payload with no references returns immediately).
type Traceable interface {
	Trace(visit func(*Box))
}

// leafPayload is used for allocations that hold no outgoing references
// (interned strings, scalars boxed for uniformity, resources).
type leafPayload struct{ data any }

func (leafPayload) Trace(func(*Box)) {}

// Box is the GCObject header of §3: every heap allocation this runtime
// tracks is a *Box. Strong is the reference count; refcount=0 implies
// unreachability from roots and the object must be destroyed before the
// next safepoint (§3 invariant).
type Box struct {
	Strong   uint32
	Color    Color
	Buffered bool // queued in the purple (cycle-candidate) worklist
	Age      uint8
	SizeClass uint16
	Gen      Generation
	Forward  *Box // set during a minor GC copy; non-nil means "moved, follow me"
	cardID   int  // index into the owning Regions' card table, -1 if nursery/survivor
	Payload  Traceable

	destroyed bool
}

// Size returns the logical allocation size in bytes, derived from the size
// class the allocator assigned (see Regions.classFor).
func (b *Box) Size() int { return sizeClassBytes[b.SizeClass] }

// StringData returns the bytes behind a box allocated by AllocString or
// Intern, for the value package's content-based string comparisons. ok is
// false for any other payload kind.
func (b *Box) StringData() (string, bool) {
	lp, ok := b.Payload.(leafPayload)
	if !ok {
		return "", false
	}
	s, ok := lp.data.(string)
	return s, ok
}

func (b *Box) String() string {
	return fmt.Sprintf("Box{gen=%s color=%v age=%d strong=%d}", b.Gen, b.Color, b.Age, b.Strong)
}

// Retain increments the strong count. It is a no-op contract-wise on
// primitive Values (those never carry a *Box), and saturates rather than
// wrapping: the caller gets ErrRefcountOverflow instead of silent UB.
func (b *Box) Retain() error {
	if b.Strong == ^uint32(0) {
		return ErrRefcountOverflow
	}
	b.Strong++
	// A count going from 1 to >1 means this object is now shared; flag it
	// as a cycle candidate the next time it is released down to a
	// positive-but-unreferenced-by-new-owners state is handled in Release.
	return nil
}

// Release decrements the strong count. On reaching zero the destructor
// recursively releases every traced reference and the Box is returned to
// its region; on staying positive the Box becomes a purple cycle
// candidate, per the cycle collector contract of §4.3.
func (b *Box) Release(mm *MemoryManager) error {
	if b.Strong == 0 {
		return ErrRefcountUnderflow
	}
	b.Strong--
	if b.Strong == 0 {
		return mm.destroy(b)
	}
	mm.markPurple(b)
	return nil
}
