package gc

import (
	"sync"

	"github.com/mxphp/corevm/config"
)

// MemoryManager is the embedding-facing API of §4.2: alloc_*, add_root/
// remove_root, write_barrier, force_collect, set_threshold. It owns the
// Regions and delegates collection scheduling to the embedded
// GenerationalGC.
type MemoryManager struct {
	mu      sync.Mutex
	regions *Regions
	gcState *GenerationalGC

	roots map[*Box]int // refcount of root registrations, so nested add/remove is safe

	internMu sync.RWMutex
	interned map[string]*Box

	largeObjectThreshold int
}

// NewMemoryManager builds a manager sized from cfg (see config.NewDefault
// for the full set of recognized keys).
func NewMemoryManager(cfg *config.Config) *MemoryManager {
	nurseryBytes := int(cfg.GetInt("gc.nursery_bytes"))
	cardBytes := int(cfg.GetInt("gc.card_bytes"))
	largeObjectBytes := int(cfg.GetInt("memory.large_object_bytes"))

	mm := &MemoryManager{
		regions:              newRegions(nurseryBytes, cardBytes, largeObjectBytes),
		roots:                make(map[*Box]int),
		interned:             make(map[string]*Box),
		largeObjectThreshold: largeObjectBytes,
	}
	mm.gcState = newGenerationalGC(mm, cfg)
	return mm
}

func (mm *MemoryManager) alloc(size int, payload Traceable) *Box {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if size >= mm.largeObjectThreshold {
		b := mm.regions.allocLOS(size, payload)
		return b
	}
	if mm.regions.NurseryUtilization() >= mm.gcState.minorThreshold {
		mm.gcState.minorCollectionLocked()
	}
	return mm.regions.allocNursery(size, payload)
}

// AllocString allocates a ref-counted (non-interned) string box. Small
// strings are expected to use the inline COW representation instead (§4.9);
// this path is for strings that have already decided they need a heap
// buffer.
func (mm *MemoryManager) AllocString(data string) *Box {
	return mm.alloc(len(data), leafPayload{data: data})
}

// AllocArray allocates a COW-array-backed box; elements is the tracer
// callback the array implementation supplies so the GC can find outgoing
// references without depending on the cow package.
func (mm *MemoryManager) AllocArray(approxSize int, elements Traceable) *Box {
	return mm.alloc(approxSize, elements)
}

// AllocObject allocates an object box for the given shape-sized payload.
func (mm *MemoryManager) AllocObject(approxSize int, fields Traceable) *Box {
	return mm.alloc(approxSize, fields)
}

// AllocStruct allocates a fixed-shape record (used by the escape-analysis
// NEW_STRUCT path when an allocation could not be fully scalar-replaced but
// still does not escape the function, §4.8).
func (mm *MemoryManager) AllocStruct(layoutSize int, fields Traceable) *Box {
	return mm.alloc(layoutSize, fields)
}

// AllocResource allocates a box for an opaque embedder-managed resource
// handle (file descriptors, DB cursors, ...).
func (mm *MemoryManager) AllocResource(payload Traceable) *Box {
	return mm.alloc(sizeClassBytes[1], payload)
}

// Intern returns the canonical *Box for s, allocating it on first use. The
// interned-string table is read-mostly and protected by a reader-writer
// lock shared across VM instances (§5).
func (mm *MemoryManager) Intern(s string) *Box {
	mm.internMu.RLock()
	if b, ok := mm.interned[s]; ok {
		mm.internMu.RUnlock()
		return b
	}
	mm.internMu.RUnlock()

	mm.internMu.Lock()
	defer mm.internMu.Unlock()
	if b, ok := mm.interned[s]; ok {
		return b
	}
	b := mm.AllocString(s)
	mm.AddRoot(b)
	mm.interned[s] = b
	return b
}

// AddRoot registers b as a GC root (§4.2: "Root set is the union of: VM
// value stack, call-frame locals, globals, interned strings, and
// caller-registered roots.").
func (mm *MemoryManager) AddRoot(b *Box) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.roots[b]++
}

// RemoveRoot unregisters one prior AddRoot call for b.
func (mm *MemoryManager) RemoveRoot(b *Box) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	if n, ok := mm.roots[b]; ok {
		if n <= 1 {
			delete(mm.roots, b)
		} else {
			mm.roots[b] = n - 1
		}
	}
}

func (mm *MemoryManager) rootSet() []*Box {
	out := make([]*Box, 0, len(mm.roots))
	for b := range mm.roots {
		out = append(out, b)
	}
	return out
}

// WriteBarrier must be called whenever source.Payload is mutated to point
// at target. It performs card marking unconditionally (§4.3 barrier
// contract: "During non-marking states the barrier still updates the card
// table ... it never omits that bookkeeping.") and, while a major
// collection is marking, applies the Dijkstra incremental-update rule.
func (mm *MemoryManager) WriteBarrier(source, target *Box) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	if source.Gen == OldGen || source.Gen == LargeObjectSpace {
		mm.regions.markCard(source)
	}
	mm.gcState.onWrite(source, target)
}

// ForceCollect runs a full minor collection followed by a full major
// collection synchronously, draining the gray worklist to completion.
func (mm *MemoryManager) ForceCollect() {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.gcState.minorCollectionLocked()
	mm.gcState.majorCollectionFullLocked()
}

// SetThreshold overrides a GC threshold at runtime (§4.2 set_threshold).
func (mm *MemoryManager) SetThreshold(name string, value float64) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	switch name {
	case "minor":
		mm.gcState.minorThreshold = value
	case "major":
		mm.gcState.majorThreshold = value
	}
}

// Stats returns a point-in-time snapshot of collector activity (supplement
// D.3 in SPEC_FULL.md — needed to make the adaptive policy testable).
func (mm *MemoryManager) Stats() Stats {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return mm.gcState.stats
}

// destroy runs b's destructor: recursively releases every traced
// reference, then returns the Box to its region's free space (§4.1
// release contract).
func (mm *MemoryManager) destroy(b *Box) error {
	if b.destroyed {
		return nil
	}
	b.destroyed = true
	var refErr error
	b.Payload.Trace(func(child *Box) {
		if child == nil {
			return
		}
		if err := child.Release(mm); err != nil && refErr == nil {
			refErr = err
		}
	})
	switch b.Gen {
	case OldGen:
		mm.regions.freeOldGen(b)
	case LargeObjectSpace:
		mm.regions.freeLOS(b)
	case Nursery, SurvivorSpace:
		// reclaimed implicitly at the next minor collection by simply
		// not being copied forward.
	}
	delete(mm.roots, b)
	return refErr
}

func (mm *MemoryManager) markPurple(b *Box) {
	mm.gcState.markPurple(b)
}

// StepMark drives one incremental marking batch from a VM safepoint
// (CHECK_GC), letting a long-running major collection interleave with
// the mutator instead of stopping the world (§4.3).
func (mm *MemoryManager) StepMark() {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.gcState.StepMark()
}
