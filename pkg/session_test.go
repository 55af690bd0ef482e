package tilo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runSession(src string) (string, string) {
	var out, errOut strings.Builder
	NewSession(strings.NewReader(src), &out, &errOut).Run()

	return out.String(), errOut.String()
}

func TestSessionPrompts(t *testing.T) {
	out, errOut := runSession("")
	assert.Equal(t, "ready> ", out)
	assert.Empty(t, errOut)
}

func TestSessionDefinition(t *testing.T) {
	out, errOut := runSession("def inc(a) a+1")

	assert.Contains(t, out, "Parsed a function definition.")
	assert.Contains(t, out, "@inc")
	assert.Empty(t, errOut)
}

func TestSessionExtern(t *testing.T) {
	out, errOut := runSession("extern sin(x)")

	assert.Contains(t, out, "Parsed an extern.")
	assert.Contains(t, out, "@sin")
	assert.Empty(t, errOut)
}

func TestSessionTopLevelExpression(t *testing.T) {
	out, errOut := runSession("4+5")

	assert.Contains(t, out, "Parsed a top-level expression.")
	assert.Contains(t, out, "Evaluated to 9.000000")
	assert.Empty(t, errOut)
}

func TestSessionSeparatorsAreNoOps(t *testing.T) {
	out, errOut := runSession(";;;")
	assert.Empty(t, errOut)

	// One prompt per handled form, plus the final one before EOF.
	assert.Equal(t, 4, strings.Count(out, "ready> "))
}

func TestSessionEvaluatesDefinitionsAndCalls(t *testing.T) {
	out, errOut := runSession("def avg(a b) (a+b)*0.5; avg(3, 5)")

	assert.Contains(t, out, "Evaluated to 4.000000")
	assert.Empty(t, errOut)
}

func TestSessionSyntaxErrorRecovery(t *testing.T) {
	// The number cannot name a function; the driver reports the error,
	// skips the offending token, and the next form still runs.
	out, errOut := runSession("def 1\n2+3")

	assert.Contains(t, errOut, "Error: expected function name in prototype")
	assert.Contains(t, out, "Evaluated to 5.000000")
}

func TestSessionRedefinitionRejected(t *testing.T) {
	out, errOut := runSession("def foo(a) a; def foo(a) a+1; foo(9)")

	assert.Contains(t, errOut, "Error: function cannot be redefined: foo")
	// The first definition stands.
	assert.Contains(t, out, "Evaluated to 9.000000")
}

func TestSessionArgMismatchDoesNotKillLoop(t *testing.T) {
	out, errOut := runSession("def foo(a b) a+b; foo(1); foo(1, 2)")

	assert.Contains(t, errOut, "takes 2 arguments, 1 given")
	assert.Contains(t, out, "Evaluated to 3.000000")
}

func TestSessionUnknownNamesDoNotKillLoop(t *testing.T) {
	out, errOut := runSession("nope; nosuch(1); 1+1")

	assert.Contains(t, errOut, "Error: unknown variable name: nope")
	assert.Contains(t, errOut, "Error: unknown function referenced: nosuch")
	assert.Contains(t, out, "Evaluated to 2.000000")
}

func TestSessionForwardDeclarationThenDefinition(t *testing.T) {
	out, errOut := runSession("extern foo(a); def foo(a) a+1; foo(2)")

	assert.Contains(t, out, "Parsed an extern.")
	assert.Contains(t, out, "Parsed a function definition.")
	assert.Contains(t, out, "Evaluated to 3.000000")
	assert.Empty(t, errOut)
}

func TestSessionExecutionErrorDoesNotKillLoop(t *testing.T) {
	// mystery has no host binding, so execution fails; compilation state
	// is unharmed and later forms still run.
	out, errOut := runSession("extern mystery(x); mystery(1); 2*3")

	assert.Contains(t, errOut, "Error: extern function has no host binding: mystery")
	assert.Contains(t, out, "Evaluated to 6.000000")
}

func TestSessionAnonymousWrapperDiscarded(t *testing.T) {
	var out, errOut strings.Builder
	s := NewSession(strings.NewReader("1+1; 2+2"), &out, &errOut)
	s.Run()

	assert.Empty(t, errOut.String())
	assert.Empty(t, s.gen.Module().Funcs)
}

func TestSessionReset(t *testing.T) {
	var out, errOut strings.Builder
	s := NewSession(strings.NewReader("def foo(a) a"), &out, &errOut)
	s.Run()

	_, ok := s.gen.Lookup("foo")
	require.True(t, ok)

	s.Reset()

	_, ok = s.gen.Lookup("foo")
	assert.False(t, ok)
}
