package tilo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bufferedTokenizer feeds the parser a fixed token sequence, isolating it
// from the lexer.
type bufferedTokenizer struct {
	buf []Token
	pos int
}

func newBufferedTokenizer(toks []Token) *bufferedTokenizer {
	return &bufferedTokenizer{buf: toks}
}

func (b *bufferedTokenizer) Do() {}

func (b *bufferedTokenizer) Get() Token {
	if b.pos >= len(b.buf) {
		return Token{Typ: TokenEOF}
	}

	tok := b.buf[b.pos]
	b.pos++

	return tok
}

// parserFor builds a parser over source text with the default operator
// table installed.
func parserFor(src string) *Parser {
	p := NewParser(NewLexer(strings.NewReader(src)))
	for op, prec := range defaultPrecedence {
		p.SetPrecedence(op, prec)
	}

	return p
}

func TestParserFromTokens(t *testing.T) {
	p := NewParser(newBufferedTokenizer([]Token{
		{Typ: TokenDef, Value: "def"},
		{Typ: TokenIdentifier, Value: "foo"},
		{Typ: TokenChar, Value: "("},
		{Typ: TokenIdentifier, Value: "a"},
		{Typ: TokenChar, Value: ")"},
		{Typ: TokenIdentifier, Value: "a"},
	}))

	fn, err := p.ParseDefinition()
	require.NoError(t, err)
	assert.Equal(t, &Function{
		Proto: &Prototype{Name: "foo", Params: []string{"a"}},
		Body:  &VariableExpr{Name: "a"},
	}, fn)
}

func TestParseTopLevel(t *testing.T) {
	cases := []struct {
		data   string
		expect Expr
	}{
		{
			"42",
			&NumberExpr{Val: 42},
		},
		{
			"x",
			&VariableExpr{Name: "x"},
		},
		{
			// * binds tighter than +
			"1+2*3",
			&BinaryExpr{
				Op:  "+",
				LHS: &NumberExpr{Val: 1},
				RHS: &BinaryExpr{
					Op:  "*",
					LHS: &NumberExpr{Val: 2},
					RHS: &NumberExpr{Val: 3},
				},
			},
		},
		{
			// Equal precedence associates left
			"1-2-3",
			&BinaryExpr{
				Op: "-",
				LHS: &BinaryExpr{
					Op:  "-",
					LHS: &NumberExpr{Val: 1},
					RHS: &NumberExpr{Val: 2},
				},
				RHS: &NumberExpr{Val: 3},
			},
		},
		{
			"(1+2)*3",
			&BinaryExpr{
				Op: "*",
				LHS: &BinaryExpr{
					Op:  "+",
					LHS: &NumberExpr{Val: 1},
					RHS: &NumberExpr{Val: 2},
				},
				RHS: &NumberExpr{Val: 3},
			},
		},
		{
			"a < b + 1",
			&BinaryExpr{
				Op:  "<",
				LHS: &VariableExpr{Name: "a"},
				RHS: &BinaryExpr{
					Op:  "+",
					LHS: &VariableExpr{Name: "b"},
					RHS: &NumberExpr{Val: 1},
				},
			},
		},
		{
			"foo()",
			&CallExpr{Callee: "foo"},
		},
		{
			"foo(1, x+2, bar(y))",
			&CallExpr{
				Callee: "foo",
				Args: []Expr{
					&NumberExpr{Val: 1},
					&BinaryExpr{
						Op:  "+",
						LHS: &VariableExpr{Name: "x"},
						RHS: &NumberExpr{Val: 2},
					},
					&CallExpr{
						Callee: "bar",
						Args:   []Expr{&VariableExpr{Name: "y"}},
					},
				},
			},
		},
	}

	for _, c := range cases {
		fn, err := parserFor(c.data).ParseTopLevel()
		require.NoError(t, err, "input: %q", c.data)

		// Bare expressions come back wrapped in an anonymous
		// zero-parameter function.
		assert.Equal(t, &Prototype{}, fn.Proto, "input: %q", c.data)
		assert.Equal(t, c.expect, fn.Body, "input: %q", c.data)
	}
}

func TestParseDefinition(t *testing.T) {
	fn, err := parserFor("def foo(a b) a+b").ParseDefinition()
	require.NoError(t, err)

	assert.Equal(t, &Prototype{Name: "foo", Params: []string{"a", "b"}}, fn.Proto)
	assert.Equal(t, &BinaryExpr{
		Op:  "+",
		LHS: &VariableExpr{Name: "a"},
		RHS: &VariableExpr{Name: "b"},
	}, fn.Body)
}

func TestParseExtern(t *testing.T) {
	proto, err := parserFor("extern atan2(y x)").ParseExtern()
	require.NoError(t, err)

	assert.Equal(t, &Prototype{Name: "atan2", Params: []string{"y", "x"}}, proto)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		data string
		want string
	}{
		{")", "expected an expression"},
		{"1+", "expected an expression"},
		{"(1+2", "expected ')'"},
		{"foo(1 2)", "expected ')' or ',' in argument list"},
		{"foo(1,)", "expected an expression"},
	}

	for _, c := range cases {
		_, err := parserFor(c.data).ParseTopLevel()
		require.Error(t, err, "input: %q", c.data)

		var syntaxErr *SyntaxError
		assert.ErrorAs(t, err, &syntaxErr, "input: %q", c.data)
		assert.Contains(t, err.Error(), c.want, "input: %q", c.data)
	}
}

func TestParsePrototypeErrors(t *testing.T) {
	cases := []struct {
		data string
		want string
	}{
		{"def (a) 1", "expected function name in prototype"},
		{"def foo a) 1", "expected '(' in prototype"},
		{"def foo(a 1", "expected ')' in prototype"},
		{"def foo(a) )", "expected an expression"},
	}

	for _, c := range cases {
		_, err := parserFor(c.data).ParseDefinition()
		require.Error(t, err, "input: %q", c.data)
		assert.Contains(t, err.Error(), c.want, "input: %q", c.data)
	}
}

// A failed primary must leave the offending token unconsumed, so the
// driver's one-token recovery lands on it rather than on good input.
func TestParseFailureLeavesBadTokenBuffered(t *testing.T) {
	p := parserFor("@ 7")

	_, err := p.ParseTopLevel()
	require.Error(t, err)
	assert.True(t, p.peek().isChar("@"))

	p.next() // Skip it, as the driver would
	fn, err := p.ParseTopLevel()
	require.NoError(t, err)
	assert.Equal(t, &NumberExpr{Val: 7}, fn.Body)
}

func TestSetPrecedence(t *testing.T) {
	p := parserFor("a|b|c")
	p.SetPrecedence("|", 5)

	fn, err := p.ParseTopLevel()
	require.NoError(t, err)
	assert.Equal(t, &BinaryExpr{
		Op: "|",
		LHS: &BinaryExpr{
			Op:  "|",
			LHS: &VariableExpr{Name: "a"},
			RHS: &VariableExpr{Name: "b"},
		},
		RHS: &VariableExpr{Name: "c"},
	}, fn.Body)
}

func TestUnknownOperatorEndsExpression(t *testing.T) {
	// '|' has no precedence by default, so lookahead stops before it.
	p := parserFor("a|b")

	fn, err := p.ParseTopLevel()
	require.NoError(t, err)
	assert.Equal(t, &VariableExpr{Name: "a"}, fn.Body)
	assert.True(t, p.peek().isChar("|"))
}
