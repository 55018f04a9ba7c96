package cow

import "github.com/mxphp/corevm/value"

// COWArray owns its element table via a Wrapper; mutation paths call
// GetWrite before writing through the slice, per §4.9.
type COWArray struct {
	shared *Wrapper[[]value.Value]
}

func cloneElems(v []value.Value) []value.Value {
	out := make([]value.Value, len(v))
	copy(out, v)
	return out
}

func NewCOWArray(elems []value.Value) *COWArray {
	return &COWArray{shared: NewWrapper(elems, cloneElems)}
}

func (a *COWArray) Len() int { return len(a.shared.GetRead()) }

func (a *COWArray) Get(i int) (value.Value, bool) {
	elems := a.shared.GetRead()
	if i < 0 || i >= len(elems) {
		return value.Null(), false
	}
	return elems[i], true
}

// AssignArray implements `t := s` for arrays: retains the shared buffer so
// both copies observe the same elements until one of them writes.
func AssignArray(a *COWArray) *COWArray {
	a.shared.Retain()
	return &COWArray{shared: a.shared}
}

func (a *COWArray) detach() {
	owned := a.shared.GetWrite()
	if owned != a.shared {
		a.shared.Release()
		a.shared = owned
	}
}

// Set implements SET_ELEM. Per §8's boundary behavior, an index at or
// beyond the current length grows the array to length+1, filling any gap
// with null.
func (a *COWArray) Set(i int, v value.Value) {
	a.detach()
	elems := a.shared.GetRead()
	if i >= len(elems) {
		grown := make([]value.Value, i+1)
		copy(grown, elems)
		for j := len(elems); j < i; j++ {
			grown[j] = value.Null()
		}
		grown[i] = v
		a.shared.SetData(grown)
		return
	}
	elems[i] = v
	a.shared.SetData(elems)
}

// Push implements ARRAY_PUSH.
func (a *COWArray) Push(v value.Value) {
	a.detach()
	a.shared.SetData(append(a.shared.GetRead(), v))
}

func (a *COWArray) IsShared() bool { return a.shared.Refcount() > 1 }
