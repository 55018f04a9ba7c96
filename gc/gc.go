package gc

import (
	"github.com/mxphp/corevm/config"
)

// MajorState is the tri-color collector's state machine of §4.3: Idle ->
// Marking -> Sweeping -> Idle.
type MajorState int

const (
	Idle MajorState = iota
	Marking
	Sweeping
)

// Stats is a point-in-time snapshot of collector activity, supplementing
// the base spec so the adaptive policy of §4.3 is observable (SPEC_FULL.md
// D.3).
type Stats struct {
	MinorCollections int
	MajorCollections int
	BytesPromoted    int
	ObjectsReclaimed int
	CyclesCollected  int
}

// GenerationalGC implements the collection algorithms of §4.3 against the
// Regions owned by its MemoryManager. It is not meant to be used directly
// by embedders; MemoryManager is the public surface.
type GenerationalGC struct {
	mm *MemoryManager

	minorThreshold float64
	majorThreshold float64
	promotionAge   uint8

	overheadHigh, overheadLow   float64
	thresholdMin, thresholdMax  float64
	incrementalStepObjects      int

	state       MajorState
	grayWorklist []*Box
	purple       []*Box

	stats Stats
}

func newGenerationalGC(mm *MemoryManager, cfg *config.Config) *GenerationalGC {
	return &GenerationalGC{
		mm:                     mm,
		minorThreshold:         cfg.GetFloat("gc.minor_threshold"),
		majorThreshold:         cfg.GetFloat("gc.major_threshold"),
		promotionAge:           uint8(cfg.GetInt("gc.promotion_age")),
		overheadHigh:           cfg.GetFloat("gc.overhead_high"),
		overheadLow:            cfg.GetFloat("gc.overhead_low"),
		thresholdMin:           cfg.GetFloat("gc.threshold_min"),
		thresholdMax:           cfg.GetFloat("gc.threshold_max"),
		incrementalStepObjects: int(cfg.GetInt("gc.incremental_step_objects")),
		state:                  Idle,
	}
}

// minorCollectionLocked implements §4.3's five-step minor collection. The
// caller holds mm.mu.
func (g *GenerationalGC) minorCollectionLocked() {
	r := g.mm.regions
	young := make([]*Box, 0, len(r.nursery)+len(r.fromSurvivor))
	young = append(young, r.nursery...)
	young = append(young, r.fromSurvivor...)
	if len(young) == 0 {
		return
	}

	reachable := make(map[*Box]bool)
	g.traceFromRoots(reachable, true)
	g.traceFromDirtyCards(reachable)

	var survivors []*Box
	for _, b := range young {
		if b.Forward != nil || !reachable[b] {
			continue // already forwarded via a shared reference, or dead
		}
		b.Age++
		if b.Age >= g.promotionAge {
			promoted := r.allocOldGen(b.Size(), b.Payload)
			promoted.Age = b.Age
			b.Forward = promoted
			g.stats.BytesPromoted += b.Size()
		} else {
			to := &Box{Strong: b.Strong, Color: White, Gen: SurvivorSpace, Age: b.Age, SizeClass: b.SizeClass, Payload: b.Payload, cardID: -1}
			b.Forward = to
			survivors = append(survivors, to)
		}
	}

	// Redirect every live reference (from roots and from old-gen sources
	// recorded via dirty cards) to the forwarding address.
	g.forwardRoots()

	g.stats.ObjectsReclaimed += len(young) - len(reachable)
	r.nursery = r.nursery[:0]
	r.nurseryUsedBytes = 0
	r.fromSurvivor, r.toSurvivor = survivors, r.toSurvivor[:0]
	r.clearCards()
	g.stats.MinorCollections++

	g.adapt()

	if r.OldGenUtilization() >= g.majorThreshold {
		g.majorCollectionFullLocked()
	}
}

// traceFromRoots walks every root, invoking visit-equivalent bookkeeping:
// marks reached boxes in `reachable`. nurseryOnly restricts traversal to
// the minor collection's concern (nursery survivors), stopping at old/LOS
// boundaries since those are scanned via dirty cards instead.
func (g *GenerationalGC) traceFromRoots(reachable map[*Box]bool, nurseryOnly bool) {
	var walk func(*Box)
	walk = func(b *Box) {
		if b == nil || reachable[b] {
			return
		}
		if nurseryOnly && b.Gen != Nursery && b.Gen != SurvivorSpace {
			return
		}
		reachable[b] = true
		b.Payload.Trace(walk)
	}
	for _, root := range g.mm.rootSet() {
		walk(root)
	}
}

// traceFromDirtyCards rescans old/LOS objects whose card is dirty, finding
// old->young edges without walking the entire old generation (§8 property
// around scenario 3, "Cross-generational write").
func (g *GenerationalGC) traceFromDirtyCards(reachable map[*Box]bool) {
	r := g.mm.regions
	for _, b := range r.allOldAndLOS() {
		if b.cardID >= 0 && b.cardID < len(r.cardDirty) && r.cardDirty[b.cardID] {
			b.Payload.Trace(func(child *Box) {
				if child != nil && (child.Gen == Nursery || child.Gen == SurvivorSpace) {
					reachable[child] = true
				}
			})
		}
	}
}

// forwardRoots updates every root pointing at a forwarded nursery object to
// point at the forwarding address instead. Because Box identity here is a
// Go pointer, "updating" a root conceptually means any holder must
// dereference through Forward; we additionally rewrite the root set itself
// so future minor GCs see the moved object directly.
func (g *GenerationalGC) forwardRoots() {
	for root, n := range g.mm.roots {
		if root.Forward != nil {
			resolved := root
			for resolved.Forward != nil {
				resolved = resolved.Forward
			}
			delete(g.mm.roots, root)
			g.mm.roots[resolved] = n
		}
	}
}

// onWrite applies the write barrier's incremental-marking half of the
// contract: when a black object is about to reference a white object, the
// white is recolored gray and enqueued (§4.3 "Barrier contract").
func (g *GenerationalGC) onWrite(source, target *Box) {
	if g.state != Marking || target == nil {
		return
	}
	if source.Color == Black && target.Color == White {
		target.Color = Gray
		g.grayWorklist = append(g.grayWorklist, target)
	}
}

// StepMark processes up to the configured incremental batch size of gray
// objects, returning control to the mutator afterwards (§4.3 "Incremental
// steps"). It is exposed so a VM can drive marking from CHECK_GC
// safepoints instead of stopping the world.
func (g *GenerationalGC) StepMark() {
	if g.state == Idle {
		g.beginMarking()
	}
	if g.state != Marking {
		return
	}
	budget := g.incrementalStepObjects
	for budget > 0 && len(g.grayWorklist) > 0 {
		obj := g.grayWorklist[len(g.grayWorklist)-1]
		g.grayWorklist = g.grayWorklist[:len(g.grayWorklist)-1]
		if obj.Color == Black {
			continue
		}
		obj.Color = Black
		obj.Payload.Trace(func(child *Box) {
			if child != nil && child.Color == White {
				child.Color = Gray
				g.grayWorklist = append(g.grayWorklist, child)
			}
		})
		budget--
	}
	if len(g.grayWorklist) == 0 {
		g.state = Sweeping
	}
}

func (g *GenerationalGC) beginMarking() {
	for _, b := range g.mm.regions.allOldAndLOS() {
		b.Color = White
	}
	g.grayWorklist = g.grayWorklist[:0]
	for _, root := range g.mm.rootSet() {
		if root.Gen == OldGen || root.Gen == LargeObjectSpace {
			root.Color = Gray
			g.grayWorklist = append(g.grayWorklist, root)
		}
	}
	g.state = Marking
}

// sweep reclaims every white old-gen/LOS object back to the free list
// (§4.3 "Sweep reclaims whites ... LOS objects are swept synchronously
// with the old gen.").
func (g *GenerationalGC) sweep() {
	for _, b := range g.mm.regions.allOldAndLOS() {
		if b.Color == White {
			_ = g.mm.destroy(b)
			g.stats.ObjectsReclaimed++
		}
	}
	g.state = Idle
	g.stats.MajorCollections++
}

// majorCollectionFullLocked drains marking and sweeping synchronously; the
// caller holds mm.mu. Used by ForceCollect and by the minor-GC path when
// the old generation crosses its threshold.
func (g *GenerationalGC) majorCollectionFullLocked() {
	g.beginMarking()
	for g.state == Marking {
		g.StepMark()
	}
	g.sweep()
	g.collectCyclesLocked()
}

// markPurple flags b as a cycle-collection candidate: its refcount dropped
// but did not reach zero (§4.3 "Cycle collection via the purple candidate
// set").
func (g *GenerationalGC) markPurple(b *Box) {
	if b.Buffered {
		return
	}
	b.Buffered = true
	g.purple = append(g.purple, b)
}

// adapt implements the adaptive threshold policy of §4.3: raise thresholds
// if the GC-overhead ratio is high, lower them if low, clamped to
// [thresholdMin, thresholdMax].
func (g *GenerationalGC) adapt() {
	total := g.stats.MinorCollections + g.stats.MajorCollections
	if total == 0 || total%8 != 0 {
		return
	}
	// Overhead ratio is approximated from collection frequency relative to
	// allocation volume, since this simulation has no wall-clock GC pause
	// timer to sample.
	overhead := float64(g.stats.MinorCollections) / float64(total*10)
	switch {
	case overhead > g.overheadHigh:
		g.minorThreshold = clamp(g.minorThreshold+0.02, g.thresholdMin, g.thresholdMax)
	case overhead < g.overheadLow:
		g.minorThreshold = clamp(g.minorThreshold-0.02, g.thresholdMin, g.thresholdMax)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
