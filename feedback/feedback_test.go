package feedback_test

import (
	"testing"

	"github.com/mxphp/corevm/bytecode"
	"github.com/mxphp/corevm/feedback"
	"github.com/mxphp/corevm/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordBecomesMonomorphicAfterAgreement(t *testing.T) {
	var r feedback.Record
	for i := 0; i < 5; i++ {
		r.Observe(value.TagInt)
	}
	assert.True(t, r.Monomorphic())
	assert.Equal(t, 5, r.Observations())
}

func TestRecordMismatchMakesItPolymorphic(t *testing.T) {
	var r feedback.Record
	r.Observe(value.TagInt)
	r.Observe(value.TagFloat)
	assert.False(t, r.Monomorphic())
}

func TestReadyToSpecializeRequiresThreshold(t *testing.T) {
	var r feedback.Record
	for i := 0; i < 9; i++ {
		r.Observe(value.TagInt)
	}
	assert.False(t, r.ReadyToSpecialize(10))
	r.Observe(value.TagInt)
	assert.True(t, r.ReadyToSpecialize(10))
}

func TestClearResetsRecord(t *testing.T) {
	var r feedback.Record
	r.Observe(value.TagInt)
	r.MarkSpecialized(value.TagInt)
	r.Clear()
	assert.Equal(t, 0, r.Observations())
	assert.False(t, r.Specialized())
}

func TestTableCreatesRecordsLazily(t *testing.T) {
	tbl := feedback.NewTable()
	r1 := tbl.Site(10)
	r1.Observe(value.TagInt)
	r2 := tbl.Site(10)
	assert.Equal(t, 1, r2.Observations(), "same call site must share a Record")
}

func TestPICHitAfterInstall(t *testing.T) {
	pic := feedback.NewPIC(4)
	pic.Install(111, 2)
	slot, found := pic.Lookup(111)
	require.True(t, found)
	assert.Equal(t, 2, slot)
}

func TestPICMissOnUnknownShape(t *testing.T) {
	pic := feedback.NewPIC(4)
	_, found := pic.Lookup(999)
	assert.False(t, found)
}

func TestPICEvictsLRUAtCapacity(t *testing.T) {
	pic := feedback.NewPIC(2)
	pic.Install(1, 0)
	pic.Install(2, 1)
	// Touch shape 1 so shape 2 becomes the least recently used.
	pic.Lookup(1)
	pic.Install(3, 2)

	_, found2 := pic.Lookup(2)
	assert.False(t, found2, "LRU entry should have been evicted")
	slot1, found1 := pic.Lookup(1)
	assert.True(t, found1)
	assert.Equal(t, 0, slot1)
	slot3, found3 := pic.Lookup(3)
	assert.True(t, found3)
	assert.Equal(t, 2, slot3)
}

func TestPICMegamorphicAtCapacity(t *testing.T) {
	pic := feedback.NewPIC(2)
	pic.Install(1, 0)
	assert.False(t, pic.Megamorphic())
	pic.Install(2, 1)
	assert.True(t, pic.Megamorphic())
}

func TestPICTableCreatesLazily(t *testing.T) {
	tbl := feedback.NewPICTable()
	p1 := tbl.PICFor(5)
	p1.Install(1, 0)
	p2 := tbl.PICFor(5)
	_, found := p2.Lookup(1)
	assert.True(t, found)
}

func buildAddAnySite() (*bytecode.CompiledFunction, int) {
	b := bytecode.NewBuilder("f")
	b.Emit(bytecode.Instruction{Op: bytecode.OpPushLocal, Operand1: 0})
	b.Emit(bytecode.Instruction{Op: bytecode.OpPushLocal, Operand1: 1})
	pc := b.NextIndex()
	b.Emit(bytecode.Instruction{Op: bytecode.OpAddAny, Operand1: 0})
	b.Emit(bytecode.Instruction{Op: bytecode.OpRet})
	fn := b.Finish()
	return fn, pc * 5
}

func TestSpecializeRewritesAddAnyToAddInt(t *testing.T) {
	fn, pc := buildAddAnySite()
	var rec feedback.Record
	for i := 0; i < feedback.DefaultPromotionThreshold; i++ {
		rec.Observe(value.TagInt)
	}

	ok := feedback.Specialize(fn, pc, &rec, feedback.DefaultPromotionThreshold)
	require.True(t, ok)
	assert.Equal(t, bytecode.OpAddInt, bytecode.Decode(fn.Code, pc).Op)
	assert.True(t, rec.Specialized())
}

func TestSpecializeRefusesBelowThreshold(t *testing.T) {
	fn, pc := buildAddAnySite()
	var rec feedback.Record
	rec.Observe(value.TagInt)

	ok := feedback.Specialize(fn, pc, &rec, feedback.DefaultPromotionThreshold)
	assert.False(t, ok)
	assert.Equal(t, bytecode.OpAddAny, bytecode.Decode(fn.Code, pc).Op)
}

func TestSpecializeRefusesPolymorphicSite(t *testing.T) {
	fn, pc := buildAddAnySite()
	var rec feedback.Record
	for i := 0; i < feedback.DefaultPromotionThreshold/2; i++ {
		rec.Observe(value.TagInt)
	}
	for i := 0; i < feedback.DefaultPromotionThreshold/2; i++ {
		rec.Observe(value.TagFloat)
	}

	ok := feedback.Specialize(fn, pc, &rec, feedback.DefaultPromotionThreshold)
	assert.False(t, ok)
}

func TestDeoptimizeRevertsAndClears(t *testing.T) {
	fn, pc := buildAddAnySite()
	var rec feedback.Record
	for i := 0; i < feedback.DefaultPromotionThreshold; i++ {
		rec.Observe(value.TagInt)
	}
	require.True(t, feedback.Specialize(fn, pc, &rec, feedback.DefaultPromotionThreshold))

	feedback.Deoptimize(fn, pc, &rec)
	assert.Equal(t, bytecode.OpAddAny, bytecode.Decode(fn.Code, pc).Op)
	assert.Equal(t, 0, rec.Observations())
	assert.False(t, rec.Specialized())
}

func TestCheckGuardDeoptimizesOnMismatch(t *testing.T) {
	fn, pc := buildAddAnySite()
	var rec feedback.Record
	for i := 0; i < feedback.DefaultPromotionThreshold; i++ {
		rec.Observe(value.TagInt)
	}
	require.True(t, feedback.Specialize(fn, pc, &rec, feedback.DefaultPromotionThreshold))

	stillSpecialized := feedback.CheckGuard(fn, pc, &rec, value.TagFloat)
	assert.False(t, stillSpecialized)
	assert.Equal(t, bytecode.OpAddAny, bytecode.Decode(fn.Code, pc).Op)
}

func TestCheckGuardHoldsOnMatch(t *testing.T) {
	fn, pc := buildAddAnySite()
	var rec feedback.Record
	for i := 0; i < feedback.DefaultPromotionThreshold; i++ {
		rec.Observe(value.TagInt)
	}
	require.True(t, feedback.Specialize(fn, pc, &rec, feedback.DefaultPromotionThreshold))

	stillSpecialized := feedback.CheckGuard(fn, pc, &rec, value.TagInt)
	assert.True(t, stillSpecialized)
	assert.Equal(t, bytecode.OpAddInt, bytecode.Decode(fn.Code, pc).Op)
}
