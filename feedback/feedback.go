// Package feedback implements the type-feedback records, polymorphic
// inline caches, and specializer/deoptimizer of §4.7: each call-site id
// accumulates a TypeFeedback record; once a site is monomorphic with
// enough observations the specializer rewrites its opcode to a guarded,
// specialized form, and a GUARD failure deoptimizes it back.
//
// Grounded on other_examples' sentra and funxy VMs, which both track
// per-call-site observed-type counters and expose a promote/demote
// pair gating bytecode rewrite on an observation threshold; adapted
// here to the fixed-width 40-bit instruction encoding (bytecode.Opcode
// is a single byte, so rewriting is a same-width PatchOpcode store,
// not a length-changing re-emit).
package feedback

import "github.com/mxphp/corevm/value"

// DefaultPromotionThreshold is the observation count §4.7 calls out:
// "observation count >= 100".
const DefaultPromotionThreshold = 100

// DefaultPICCapacity bounds a PIC's shape->slot table before LRU
// eviction kicks in.
const DefaultPICCapacity = 4

// Record is the per-call-site type-feedback accumulator. A site
// starts Unknown (no observations) and becomes Monomorphic once every
// observation agrees on the same tag, Polymorphic otherwise.
type Record struct {
	total        int
	tag          value.Tag
	sawMismatch  bool
	specialized  bool
	currentGuard value.Tag
}

// Observe records one runtime type observation at this call site. The
// generic arithmetic (ANY) handler calls it on every execution; CALL
// and property-access handlers do not record observations.
func (r *Record) Observe(tag value.Tag) {
	if r.total == 0 {
		r.tag = tag
	} else if tag != r.tag {
		r.sawMismatch = true
	}
	r.total++
}

// Monomorphic reports whether every observation so far agreed on one
// tag.
func (r *Record) Monomorphic() bool {
	return r.total > 0 && !r.sawMismatch
}

// Observations returns how many times this site has been observed.
func (r *Record) Observations() int { return r.total }

// ReadyToSpecialize reports whether this site is monomorphic with at
// least threshold observations and not already specialized, the
// condition §4.7's background/JIT specializer checks before rewriting
// bytecode.
func (r *Record) ReadyToSpecialize(threshold int) bool {
	return !r.specialized && r.Monomorphic() && r.total >= threshold
}

// MarkSpecialized records that the site's opcode has been rewritten to
// its specialized INT/FLOAT sibling for tag. There is no separate guard
// opcode: the specialized opcode re-checks tag itself (CheckGuard).
func (r *Record) MarkSpecialized(tag value.Tag) {
	r.specialized = true
	r.currentGuard = tag
}

// Clear resets all accumulated observations, the contract §4.7 assigns
// to a GUARD failure ("reverts the site to the generic opcode ...
// and clears feedback").
func (r *Record) Clear() {
	*r = Record{}
}

// Specialized reports whether the site currently carries a guard.
func (r *Record) Specialized() bool { return r.specialized }

// GuardTag returns the tag the currently-installed guard expects; only
// meaningful when Specialized() is true.
func (r *Record) GuardTag() value.Tag { return r.currentGuard }

// Table maps call-site id to its Record, created lazily on first
// observation.
type Table struct {
	sites map[int]*Record
}

func NewTable() *Table {
	return &Table{sites: make(map[int]*Record)}
}

// Site returns (creating if necessary) the Record for callSiteID.
func (t *Table) Site(callSiteID int) *Record {
	r, ok := t.sites[callSiteID]
	if !ok {
		r = &Record{}
		t.sites[callSiteID] = r
	}
	return r
}
