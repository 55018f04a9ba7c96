package gc

// Regions owns the tiered memory layout of §3: a bump-allocated nursery,
// two equally sized survivor halves used as from/to spaces during minor
// GC, a segregated free-list old generation, a large-object space, and a
// card table used by the write barrier. Per the Open Question resolution
// in SPEC_FULL.md §E, only the card table is kept; no separate remembered
// set is maintained.
type Regions struct {
	nurseryCapacityBytes int
	nurseryUsedBytes     int
	nursery              []*Box

	fromSurvivor []*Box
	toSurvivor   []*Box

	oldGen     map[uint16][]*Box // size class -> free-list-managed live set
	oldGenFree map[uint16][]*Box // size class -> recycled slots available for reuse

	los []*Box

	cardBytes  int
	cardDirty  []bool
	largeObjectThreshold int
}

func newRegions(nurseryBytes, cardBytes, largeObjectThreshold int) *Regions {
	// One card per old/LOS object rather than per cardBytes of space:
	// this simulation tracks logical objects rather than raw byte ranges.
	// cardBytes is stored but not used for sizing; the table starts with
	// 64 entries and newCard appends one per allocated object.
	return &Regions{
		nurseryCapacityBytes: nurseryBytes,
		oldGen:               make(map[uint16][]*Box),
		oldGenFree:           make(map[uint16][]*Box),
		cardBytes:            cardBytes,
		cardDirty:            make([]bool, 64),
		largeObjectThreshold: largeObjectThreshold,
	}
}

// NurseryUtilization returns the fraction of the nursery bump region
// currently in use, compared against the minor-collection threshold.
func (r *Regions) NurseryUtilization() float64 {
	if r.nurseryCapacityBytes == 0 {
		return 0
	}
	return float64(r.nurseryUsedBytes) / float64(r.nurseryCapacityBytes)
}

// OldGenUtilization is a coarse ratio of live old-gen objects to a nominal
// capacity derived from the number of size classes in use; exact byte
// accounting is approximated since this is a logical, not byte-addressed,
// allocator.
func (r *Regions) OldGenUtilization() float64 {
	live := 0
	cap := 0
	for class, boxes := range r.oldGen {
		live += len(boxes)
		cap += len(boxes) + len(r.oldGenFree[class]) + 16
	}
	if cap == 0 {
		return 0
	}
	return float64(live) / float64(cap)
}

func (r *Regions) allocNursery(size int, payload Traceable) *Box {
	b := &Box{Strong: 1, Color: White, Gen: Nursery, SizeClass: classFor(size), Payload: payload, cardID: -1}
	r.nursery = append(r.nursery, b)
	r.nurseryUsedBytes += b.Size()
	return b
}

func (r *Regions) allocLOS(size int, payload Traceable) *Box {
	b := &Box{Strong: 1, Color: White, Gen: LargeObjectSpace, SizeClass: 0, Payload: payload}
	b.cardID = r.newCard()
	r.los = append(r.los, b)
	return b
}

func (r *Regions) allocOldGen(size int, payload Traceable) *Box {
	class := classFor(size)
	var b *Box
	if free := r.oldGenFree[class]; len(free) > 0 {
		b = free[len(free)-1]
		r.oldGenFree[class] = free[:len(free)-1]
		*b = Box{Strong: 1, Color: White, Gen: OldGen, SizeClass: class, Payload: payload, cardID: b.cardID}
	} else {
		b = &Box{Strong: 1, Color: White, Gen: OldGen, SizeClass: class, Payload: payload}
		b.cardID = r.newCard()
	}
	r.oldGen[class] = append(r.oldGen[class], b)
	return b
}

func (r *Regions) newCard() int {
	id := len(r.cardDirty)
	// grow lazily; a real implementation sizes this from the heap's
	// committed byte range instead of object count.
	r.cardDirty = append(r.cardDirty, false)
	return id
}

// markCard dirties the card covering b, per the write barrier contract of
// invariant 6 in §8: a store through the barrier always marks the covering
// card dirty before control returns.
func (r *Regions) markCard(b *Box) {
	if b.cardID < 0 {
		return
	}
	r.cardDirty[b.cardID] = true
}

func (r *Regions) clearCards() {
	for i := range r.cardDirty {
		r.cardDirty[i] = false
	}
}

// freeOldGen returns b's slot to its size class's free list for reuse, and
// clears its dirty card (a swept object holds no outgoing references).
func (r *Regions) freeOldGen(b *Box) {
	list := r.oldGen[b.SizeClass]
	for i, cand := range list {
		if cand == b {
			list[i] = list[len(list)-1]
			r.oldGen[b.SizeClass] = list[:len(list)-1]
			break
		}
	}
	if b.cardID >= 0 {
		r.cardDirty[b.cardID] = false
	}
	r.oldGenFree[b.SizeClass] = append(r.oldGenFree[b.SizeClass], b)
}

func (r *Regions) freeLOS(b *Box) {
	for i, cand := range r.los {
		if cand == b {
			r.los[i] = r.los[len(r.los)-1]
			r.los = r.los[:len(r.los)-1]
			break
		}
	}
}

// allOldAndLOS returns every object currently tracked by the old generation
// and the large-object space, used by the major-collection mark/sweep
// passes.
func (r *Regions) allOldAndLOS() []*Box {
	out := make([]*Box, 0, len(r.los))
	for _, boxes := range r.oldGen {
		out = append(out, boxes...)
	}
	out = append(out, r.los...)
	return out
}
