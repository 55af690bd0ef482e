package tilo

// Expr is the closed set of expression nodes produced by the parser. Nodes
// are immutable after construction and exclusively owned by their parent;
// the code generator dispatches on them with an exhaustive type switch.
type Expr interface{}

type NumberExpr struct {
	Val float64
}

type VariableExpr struct {
	Name string
}

type BinaryExpr struct {
	Op  string
	LHS Expr
	RHS Expr
}

type CallExpr struct {
	Callee string
	Args   []Expr
}

// Prototype is a function signature: the name and the parameter names in
// declaration order. An empty name marks the anonymous wrapper synthesized
// for a bare top-level expression.
type Prototype struct {
	Name   string
	Params []string
}

// Function pairs a prototype with an optional body. A nil body is an
// extern declaration.
type Function struct {
	Proto *Prototype
	Body  Expr
}
