package bytecode_test

import (
	"testing"

	"github.com/mxphp/corevm/bytecode"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/require"
)

// TestPrettyStringGolden locks down PrettyString's column layout against a
// hand-written expected dump. A mismatch prints a unified diff instead of
// two opaque blobs, the same way the teacher leans on diff output for its
// grammar golden files rather than a raw string comparison.
func TestPrettyStringGolden(t *testing.T) {
	b := bytecode.NewBuilder("add")
	b.Emit(bytecode.Instruction{Op: bytecode.OpPushLocal, Operand1: 0})
	b.Emit(bytecode.Instruction{Op: bytecode.OpPushLocal, Operand1: 1})
	b.Emit(bytecode.Instruction{Op: bytecode.OpAddAny, Operand1: 7})
	b.Emit(bytecode.Instruction{Op: bytecode.OpRet})
	fn := b.Finish()
	fn.Params = []bytecode.Param{{Name: "a"}, {Name: "b"}}

	want := "function add(a, b)\n" +
		"000000  push_local 0\n" +
		"000005  push_local 1\n" +
		"000010  add_any\n" +
		"000015  ret\n"
	got := fn.PrettyString()

	if got != want {
		diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(want),
			B:        difflib.SplitLines(got),
			FromFile: "want",
			ToFile:   "got",
			Context:  2,
		})
		require.NoError(t, err)
		t.Fatalf("PrettyString mismatch:\n%s", diff)
	}
}
