package compiler

import "github.com/mxphp/corevm/cow"

// paramShape captures what the compiler can statically determine
// about one declared parameter ahead of calling cow.Decide, per
// §4.9's size/mutability table.
type paramShape struct {
	sizeBytes     int
	mutable       bool
	isStringOrArr bool
	lastUse       bool
}

// decideConvention wraps cow.Decide so the compiler package owns the
// policy for filling in a Param's Convention field; kept separate
// from cow.Decide itself so a richer type-inference pass can replace
// this function without touching the cow package's public contract.
func decideConvention(s paramShape) cow.Convention {
	return cow.Decide(cow.Shape{
		SizeBytes:     s.sizeBytes,
		Mutable:       s.mutable,
		IsStringOrArr: s.isStringOrArr,
		LastUse:       s.lastUse,
	})
}
