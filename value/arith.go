package value

import "math"

// AddInt implements ADD_INT: wraps modulo 2^64, well-defined at i64
// MIN/MAX per §8's boundary-behavior invariant.
func AddInt(a, b int64) int64 { return int64(uint64(a) + uint64(b)) }

func SubInt(a, b int64) int64 { return int64(uint64(a) - uint64(b)) }

func MulInt(a, b int64) int64 { return int64(uint64(a) * uint64(b)) }

// DivResult distinguishes an exact integer quotient from the INF/NaN
// sentinel path division-by-zero takes, per the Open Question resolution
// recorded in SPEC_FULL.md §E (INF/NaN is authoritative, not an exception).
type DivResult struct {
	IsFloat    bool
	IntResult  int64
	FloatResult float64
	Warned     bool
}

// DivInt implements DIV_INT. A non-zero divisor yields a truncating integer
// quotient; a zero divisor yields the signed IEEE INF/NaN value and the
// caller must report a recoverable diag.DivisionByZero diagnostic.
func DivInt(a, b int64) DivResult {
	if b == 0 {
		return DivResult{IsFloat: true, FloatResult: signedInfOrNaN(a), Warned: true}
	}
	return DivResult{IntResult: a / b}
}

func ModInt(a, b int64) (int64, bool) {
	if b == 0 {
		return 0, false
	}
	return a % b, true
}

// DivFloat implements DIV_FLOAT; Go's float division already produces
// +Inf/-Inf/NaN for a zero divisor, matching §4.1 directly.
func DivFloat(a, b float64) (float64, bool) {
	warn := b == 0
	return a / b, warn
}

func signedInfOrNaN(numerator int64) float64 {
	switch {
	case numerator > 0:
		return math.Inf(1)
	case numerator < 0:
		return math.Inf(-1)
	default:
		return math.NaN()
	}
}
