package bytecode

// ConstKind tags an entry of the constant pool, matching the "tagged by
// constant-kind" requirement of the persisted bytecode file format (§6).
type ConstKind uint8

const (
	ConstNull ConstKind = iota
	ConstBool
	ConstInt
	ConstFloat
	ConstString
)

// Const is one constant-pool entry. Only the field matching Kind is
// meaningful.
type Const struct {
	Kind ConstKind
	I    int64
	F    float64
	S    string
	B    bool
}

func IntConst(n int64) Const      { return Const{Kind: ConstInt, I: n} }
func FloatConst(f float64) Const  { return Const{Kind: ConstFloat, F: f} }
func StringConst(s string) Const  { return Const{Kind: ConstString, S: s} }
func BoolConst(b bool) Const      { return Const{Kind: ConstBool, B: b} }
func NullConst() Const            { return Const{Kind: ConstNull} }

// Pool is the immutable constant pool of a CompiledFunction: primitive
// constants and interned symbol names, deduplicated at construction.
type Pool struct {
	entries []Const
	index   map[Const]int
}

func NewPool() *Pool {
	return &Pool{index: make(map[Const]int)}
}

// Intern returns the index of c in the pool, appending it if this is
// the first occurrence.
func (p *Pool) Intern(c Const) int {
	if idx, ok := p.index[c]; ok {
		return idx
	}
	idx := len(p.entries)
	p.entries = append(p.entries, c)
	p.index[c] = idx
	return idx
}

func (p *Pool) Get(idx int) Const { return p.entries[idx] }

func (p *Pool) Len() int { return len(p.entries) }
