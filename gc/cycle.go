package gc

// collectCyclesLocked runs the trial-deletion procedure over the purple
// candidate set (§4.3): decrement the reachable-count reachable from each
// purple root's subgraph, then restore counts, then free whatever is left
// with zero "external" references — the surviving cycle. Caller holds
// mm.mu.
func (g *GenerationalGC) collectCyclesLocked() {
	if len(g.purple) == 0 {
		return
	}
	candidates := g.purple
	g.purple = nil

	// markGray: tentatively decrement counts along every outgoing edge
	// from each candidate subgraph, so internal-only references are
	// distinguished from references held by the rest of the heap.
	trial := make(map[*Box]int)
	var markGray func(*Box)
	markGray = func(b *Box) {
		if b == nil || b.destroyed {
			return
		}
		if _, seen := trial[b]; !seen {
			trial[b] = int(b.Strong)
		}
		b.Payload.Trace(func(child *Box) {
			if child == nil || child.destroyed {
				return
			}
			if _, seen := trial[child]; !seen {
				trial[child] = int(child.Strong)
			}
			trial[child]--
			if trial[child] == int(child.Strong)-1 {
				markGray(child)
			}
		})
	}
	for _, c := range candidates {
		markGray(c)
	}

	// scan: anything whose trial count is still > 0 is externally
	// reachable and must be restored; what remains at zero is a genuine
	// unreachable cycle.
	var restore func(*Box)
	restore = func(b *Box) {
		if b == nil {
			return
		}
		trial[b] = int(b.Strong)
	}
	unreachable := make(map[*Box]bool)
	for b, count := range trial {
		if count > 0 {
			restore(b)
		} else {
			unreachable[b] = true
		}
	}

	// collect: release the unreachable set in an order that never
	// dereferences an already-destroyed Box, by repeatedly sweeping for
	// members with no remaining unreachable referrer.
	order := topoOrder(unreachable)
	for _, b := range order {
		b.Buffered = false
		if !b.destroyed {
			_ = g.mm.destroy(b)
			g.stats.CyclesCollected++
		}
	}
	for b := range unreachable {
		b.Buffered = false
	}
}

// topoOrder returns members of set in an order where a Box appears before
// anything it references that is also in set, so destruction never follows
// a dangling internal edge.
func topoOrder(set map[*Box]bool) []*Box {
	visited := make(map[*Box]bool, len(set))
	order := make([]*Box, 0, len(set))
	var visit func(*Box)
	visit = func(b *Box) {
		if visited[b] {
			return
		}
		visited[b] = true
		b.Payload.Trace(func(child *Box) {
			if set[child] {
				visit(child)
			}
		})
		order = append(order, b)
	}
	for b := range set {
		visit(b)
	}
	return order
}
