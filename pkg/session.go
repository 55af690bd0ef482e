package tilo

import (
	"fmt"
	"io"
)

// defaultPrecedence holds the binding powers installed for the infix
// operators before the loop starts; higher binds tighter.
var defaultPrecedence = map[string]int{
	"<": 10,
	"+": 20,
	"-": 20,
	"*": 40,
}

// Session drives the interactive loop. It reads one top-level form at a
// time, lowers it against the session's persistent function table, and
// executes bare expressions immediately. A malformed form never ends the
// session: the loop reports the error, skips a single token, and carries
// on. Only end of input terminates it.
type Session struct {
	parser *Parser
	gen    *CodeGen
	engine *Engine

	out    io.Writer
	errOut io.Writer
}

// NewSession builds a session reading source from in. Results and prompts
// go to out, diagnostics to errOut.
func NewSession(in io.Reader, out, errOut io.Writer) *Session {
	parser := NewParser(NewLexer(in))
	for op, prec := range defaultPrecedence {
		parser.SetPrecedence(op, prec)
	}

	return &Session{
		parser: parser,
		gen:    NewCodeGen(),
		engine: NewEngine(out),
		out:    out,
		errOut: errOut,
	}
}

// Reset opens a fresh compilation unit, dropping every definition lowered
// so far. The input stream and the operator table are untouched.
func (s *Session) Reset() {
	s.gen.Reset()
}

// Run processes forms until the input is exhausted.
func (s *Session) Run() {
	for {
		fmt.Fprint(s.out, "ready> ")

		switch tok := s.parser.peek(); {
		case tok.isEnd():
			return
		case tok.isChar(";"):
			s.parser.next()
		case tok.Typ == TokenDef:
			s.handleDefinition()
		case tok.Typ == TokenExtern:
			s.handleExtern()
		default:
			s.handleTopLevel()
		}
	}
}

func (s *Session) handleDefinition() {
	fn, err := s.parser.ParseDefinition()
	if err != nil {
		s.recover(err)
		return
	}

	f, err := s.gen.EmitFunction(fn)
	if err != nil {
		s.recover(err)
		return
	}

	fmt.Fprintf(s.out, "Parsed a function definition.\n%s\n", f.LLString())
}

func (s *Session) handleExtern() {
	proto, err := s.parser.ParseExtern()
	if err != nil {
		s.recover(err)
		return
	}

	f, err := s.gen.EmitPrototype(proto)
	if err != nil {
		s.recover(err)
		return
	}

	fmt.Fprintf(s.out, "Parsed an extern.\n%s\n", f.LLString())
}

func (s *Session) handleTopLevel() {
	fn, err := s.parser.ParseTopLevel()
	if err != nil {
		s.recover(err)
		return
	}

	f, err := s.gen.EmitFunction(fn)
	if err != nil {
		s.recover(err)
		return
	}
	// The wrapper exists only to be run once.
	defer s.gen.RemoveFunction(f)

	fmt.Fprintf(s.out, "Parsed a top-level expression.\n%s\n", f.LLString())

	ret, err := s.engine.Execute(f)
	if err != nil {
		// The form was fully consumed; nothing to skip.
		fmt.Fprintf(s.errOut, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(s.out, "Evaluated to %f\n", ret)
}

// recover reports err and skips exactly one token, so the loop cannot
// retry an unconsumed bad token forever.
func (s *Session) recover(err error) {
	fmt.Fprintf(s.errOut, "Error: %v\n", err)
	s.parser.next()
}
