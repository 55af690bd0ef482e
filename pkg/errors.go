package tilo

import "fmt"

// SyntaxError reports an unexpected token at a grammar position. Expected
// describes what the parser was looking for.
type SyntaxError struct {
	Expected string
	Got      Token
}

func (e *SyntaxError) Error() string {
	if e.Got.isEnd() {
		return fmt.Sprintf("%s, found end of input", e.Expected)
	}

	return fmt.Sprintf("%s, found '%s'", e.Expected, e.Got.Value)
}

type UnknownVariableError struct {
	Name string
}

func (e *UnknownVariableError) Error() string {
	return "unknown variable name: " + e.Name
}

type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return "unknown function referenced: " + e.Name
}

type ArgCountError struct {
	Callee string
	Want   int
	Got    int
}

func (e *ArgCountError) Error() string {
	return fmt.Sprintf("function '%s' takes %d arguments, %d given", e.Callee, e.Want, e.Got)
}

type InvalidOperatorError struct {
	Op string
}

func (e *InvalidOperatorError) Error() string {
	return "invalid binary operator: " + e.Op
}

// RedefinedFunctionError reports a definition for a name that already has a
// body in this session.
type RedefinedFunctionError struct {
	Name string
}

func (e *RedefinedFunctionError) Error() string {
	return "function cannot be redefined: " + e.Name
}

// RedeclaredFunctionError reports a prototype for a name already declared
// with a different parameter count.
type RedeclaredFunctionError struct {
	Name string
	Want int
	Got  int
}

func (e *RedeclaredFunctionError) Error() string {
	return fmt.Sprintf("function '%s' redeclared with %d parameters, previously %d", e.Name, e.Got, e.Want)
}

// UnknownExternError reports a call, at execution time, to an extern
// declaration that has no host binding.
type UnknownExternError struct {
	Name string
}

func (e *UnknownExternError) Error() string {
	return "extern function has no host binding: " + e.Name
}
