package vm_test

import (
	"testing"

	"github.com/mxphp/corevm/bytecode"
	"github.com/mxphp/corevm/config"
	"github.com/mxphp/corevm/diag"
	"github.com/mxphp/corevm/gc"
	"github.com/mxphp/corevm/value"
	"github.com/mxphp/corevm/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotDumpsLiveFrameLocals(t *testing.T) {
	cfg := config.NewDefault()
	mm := gc.NewMemoryManager(cfg)
	m := vm.New(mm, cfg, diag.NewMemorySink())

	var dump string
	builtinID := m.Builtins().Register("dump", 0, 0, func(v *vm.VM, args []value.Value) (value.Value, error) {
		dump = v.Snapshot()
		return value.Null(), nil
	})

	b := bytecode.NewBuilder("traced")
	b.Emit(bytecode.Instruction{Op: bytecode.OpPushConst, Operand1: int16(b.InternConst(bytecode.IntConst(5)))})
	b.Emit(bytecode.Instruction{Op: bytecode.OpStoreLocal, Operand1: 0})
	b.Emit(bytecode.Instruction{Op: bytecode.OpCallBuiltin, Operand1: int16(builtinID), Operand2: 0})
	b.Emit(bytecode.Instruction{Op: bytecode.OpPop})
	b.Emit(bytecode.Instruction{Op: bytecode.OpPushConst, Operand1: int16(b.InternConst(bytecode.IntConst(5)))})
	b.Emit(bytecode.Instruction{Op: bytecode.OpRet})
	fn := b.Finish()
	fn.LocalCount = 1

	_, err := m.Call(fn, nil)
	require.NoError(t, err)
	assert.Contains(t, dump, "traced")
	assert.Contains(t, dump, "5")
}
