package vm

import (
	"github.com/mxphp/corevm/diag"
	"github.com/mxphp/corevm/value"
)

// valueStack is the single contiguous operand-stack buffer §4.7
// describes: "a contiguous Value buffer sized to the maximum across
// call frames on a single stack; overflow is checked on every push."
// Locals occupy the range starting at the active frame's LocalsBase,
// indexed directly rather than through a separate locals array.
type valueStack struct {
	values []value.Value
	max    int
}

func newValueStack(max int) *valueStack {
	return &valueStack{values: make([]value.Value, 0, 64), max: max}
}

func (s *valueStack) push(v value.Value) error {
	if len(s.values) >= s.max {
		return diag.NewFatal(diag.StackOverflow, "operand stack exceeded %d values", s.max)
	}
	s.values = append(s.values, v)
	return nil
}

func (s *valueStack) pop() value.Value {
	v := s.values[len(s.values)-1]
	s.values = s.values[:len(s.values)-1]
	return v
}

func (s *valueStack) peek() value.Value { return s.values[len(s.values)-1] }

func (s *valueStack) len() int { return len(s.values) }

// truncate drops every value above n, used when unwinding to a
// frame's base on return or exception propagation.
func (s *valueStack) truncate(n int) { s.values = s.values[:n] }

// at/setAt index directly into the buffer for local-slot access,
// relative to a frame's LocalsBase.
func (s *valueStack) at(i int) value.Value { return s.values[i] }

func (s *valueStack) setAt(i int, v value.Value) {
	for i >= len(s.values) {
		s.values = append(s.values, value.Null())
	}
	s.values[i] = v
}
