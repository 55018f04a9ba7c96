package feedback

// PIC is a polymorphic inline cache: a bounded (shape id -> slot) table
// attached to one GET_PROP_IC/SET_PROP_IC call site, per §4.7's "on
// hit, index directly into the property slot; on miss, do the full
// shape-walk and install the new (shape_id -> slot) entry, evicting
// LRU at capacity."
//
// Grounded on other_examples' sentra PolymorphicIC (Entries [4]InlineCache,
// Lookup/Add by ShapeID), generalized from a fixed HitCount/MissCount pair
// to an explicit LRU generation counter so eviction picks the least
// recently used entry rather than always overwriting slot 0 once full.
type PIC struct {
	entries  []picEntry
	capacity int
	clock    uint64
}

type picEntry struct {
	shapeID  uint64
	slot     int
	hits     uint32
	misses   uint32
	lastUsed uint64
}

// NewPIC returns an empty PIC bounded at capacity entries.
func NewPIC(capacity int) *PIC {
	if capacity <= 0 {
		capacity = DefaultPICCapacity
	}
	return &PIC{capacity: capacity}
}

// Lookup consults the cache for shapeID. On hit it bumps the entry's
// hit count and LRU timestamp and returns its slot.
func (p *PIC) Lookup(shapeID uint64) (slot int, found bool) {
	for i := range p.entries {
		if p.entries[i].shapeID == shapeID {
			p.entries[i].hits++
			p.clock++
			p.entries[i].lastUsed = p.clock
			return p.entries[i].slot, true
		}
	}
	return 0, false
}

// Install records a miss for shapeID and adds (or refreshes) its
// (shapeID -> slot) entry, evicting the least-recently-used entry once
// the table is at capacity.
func (p *PIC) Install(shapeID uint64, slot int) {
	p.clock++
	for i := range p.entries {
		if p.entries[i].shapeID == shapeID {
			p.entries[i].slot = slot
			p.entries[i].lastUsed = p.clock
			return
		}
	}
	entry := picEntry{shapeID: shapeID, slot: slot, misses: 1, lastUsed: p.clock}
	if len(p.entries) < p.capacity {
		p.entries = append(p.entries, entry)
		return
	}
	lru := 0
	for i := 1; i < len(p.entries); i++ {
		if p.entries[i].lastUsed < p.entries[lru].lastUsed {
			lru = i
		}
	}
	p.entries[lru] = entry
}

// Len reports how many live entries the cache currently holds.
func (p *PIC) Len() int { return len(p.entries) }

// Megamorphic reports whether the cache holds as many entries as its
// capacity allows, regardless of whether any lookup has missed since.
func (p *PIC) Megamorphic() bool {
	return len(p.entries) >= p.capacity
}

// PICTable maps call-site id to its PIC, created lazily on first
// install.
type PICTable struct {
	sites map[int]*PIC
}

// NewPICTable returns an empty PIC table.
func NewPICTable() *PICTable {
	return &PICTable{sites: make(map[int]*PIC)}
}

// PICFor returns (creating if necessary) the PIC for callSiteID.
func (t *PICTable) PICFor(callSiteID int) *PIC {
	p, ok := t.sites[callSiteID]
	if !ok {
		p = NewPIC(DefaultPICCapacity)
		t.sites[callSiteID] = p
	}
	return p
}
