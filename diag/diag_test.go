package diag_test

import (
	"testing"

	"github.com/mxphp/corevm/diag"
	"github.com/stretchr/testify/assert"
)

func TestMemorySinkAccumulates(t *testing.T) {
	sink := diag.NewMemorySink()
	sink.Report(diag.Recoverable{Kind: diag.DivisionByZero, Message: "x / 0", PC: 12})
	sink.Report(diag.Recoverable{Kind: diag.UndefinedVariable, Message: "$x", PC: 20})

	require := sink.Records()
	assert.Len(t, require, 2)
	assert.Equal(t, diag.DivisionByZero, require[0].Kind)
}

func TestFatalError(t *testing.T) {
	err := diag.NewFatal(diag.StackOverflow, "depth %d exceeded", 10000)
	assert.Contains(t, err.Error(), "stack_overflow")
	assert.Contains(t, err.Error(), "10000")
}

func TestThrownDisplayMode(t *testing.T) {
	thrown := diag.NewThrown("RuntimeException", "bad state", 42, nil, diag.DisplayPlain)
	assert.Contains(t, thrown.Error(), "RuntimeException")
	assert.Contains(t, thrown.Error(), "line 42")
}

func TestThrownDisplayModeFormatsVariableMarkers(t *testing.T) {
	plain := diag.NewThrown("TypeError", "undefined variable %{count}", 7, nil, diag.DisplayPlain)
	dollar := diag.NewThrown("TypeError", "undefined variable %{count}", 7, nil, diag.DisplayDollarPrefixedVars)

	assert.Contains(t, plain.Error(), "undefined variable count")
	assert.Contains(t, dollar.Error(), "undefined variable $count")
	assert.NotEqual(t, plain.Error(), dollar.Error())
}

func TestThrownDisplayModeNoopWithoutMarkers(t *testing.T) {
	thrown := diag.NewThrown("RuntimeException", "bad state", 42, nil, diag.DisplayDollarPrefixedVars)
	assert.Contains(t, thrown.Error(), "bad state")
}
