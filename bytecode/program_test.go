package bytecode_test

import (
	"testing"

	"github.com/mxphp/corevm/bytecode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstructionRoundTrip(t *testing.T) {
	i := bytecode.Instruction{Op: bytecode.OpAddInt, Operand1: -5, Operand2: 1000}
	buf := i.Encode(nil)
	require.Len(t, buf, 5)

	got := bytecode.Decode(buf, 0)
	assert.Equal(t, i, got)
}

func TestPoolDedupesConstants(t *testing.T) {
	p := bytecode.NewPool()
	a := p.Intern(bytecode.IntConst(42))
	b := p.Intern(bytecode.IntConst(42))
	c := p.Intern(bytecode.StringConst("42"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, 2, p.Len())
}

func TestBuilderResolvesForwardJump(t *testing.T) {
	b := bytecode.NewBuilder("sum")
	label := b.NewLabel()
	b.EmitJump(bytecode.OpJmp, label)
	b.Emit(bytecode.Instruction{Op: bytecode.OpNop})
	b.BindLabel(label)
	retIdx := b.Emit(bytecode.Instruction{Op: bytecode.OpRet})

	fn := b.Finish()
	instrs := fn.Instructions()
	require.Len(t, instrs, 3)
	assert.Equal(t, int16(retIdx), instrs[0].Operand1)
}

func TestBuilderResolvesBackwardJump(t *testing.T) {
	b := bytecode.NewBuilder("loop")
	top := b.NewLabel()
	b.BindLabel(top)
	b.Emit(bytecode.Instruction{Op: bytecode.OpCheckGC})
	b.EmitJump(bytecode.OpJmp, top)

	fn := b.Finish()
	instrs := fn.Instructions()
	require.Len(t, instrs, 2)
	assert.Equal(t, int16(0), instrs[1].Operand1)
}

func TestHandlerForMatchesRange(t *testing.T) {
	fn := bytecode.NewCompiledFunction("f")
	fn.ExceptionTbl = []bytecode.ExceptionEntry{
		{TryStart: 2, TryEnd: 5, HandlerPC: 10, CatchClass: -1},
	}

	_, ok := fn.HandlerFor(1, 0)
	assert.False(t, ok)

	e, ok := fn.HandlerFor(3, 99)
	assert.True(t, ok)
	assert.Equal(t, 10, e.HandlerPC)
}

func TestLineForPC(t *testing.T) {
	fn := bytecode.NewCompiledFunction("f")
	fn.LineMap = []bytecode.LineEntry{{PC: 0, Line: 1}, {PC: 10, Line: 2}}

	assert.Equal(t, 1, fn.LineForPC(5))
	assert.Equal(t, 2, fn.LineForPC(20))
}

func TestPrettyStringIncludesConstants(t *testing.T) {
	b := bytecode.NewBuilder("greet")
	idx := b.InternConst(bytecode.StringConst("hi"))
	b.Emit(bytecode.Instruction{Op: bytecode.OpPushConst, Operand1: int16(idx)})
	b.Emit(bytecode.Instruction{Op: bytecode.OpRet})
	fn := b.Finish()

	out := fn.PrettyString()
	assert.Contains(t, out, "push_const")
	assert.Contains(t, out, `"hi"`)
}
