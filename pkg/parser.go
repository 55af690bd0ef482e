package tilo

// Parser is a recursive-descent parser with one token of lookahead. Binary
// expressions are parsed by precedence climbing over the operator table.
//
// On failure the parse methods return a *SyntaxError and leave the token
// stream positioned so that consuming a single token resumes at a sane
// point; the interactive driver relies on this for recovery.
type Parser struct {
	tokenizer Tokenizer
	buf       *Token
	prec      map[string]int
	started   bool
}

func NewParser(tokenizer Tokenizer) *Parser {
	return &Parser{
		tokenizer: tokenizer,
		prec:      make(map[string]int),
	}
}

// SetPrecedence installs the binding power for a single-character infix
// operator; higher binds tighter. Intended for session setup, before
// parsing starts. Non-positive powers disable the operator.
func (p *Parser) SetPrecedence(op string, prec int) {
	p.prec[op] = prec
}

// ParseDefinition parses 'def' prototype expression.
func (p *Parser) ParseDefinition() (*Function, error) {
	p.next() // Skip 'def'

	proto, err := p.parsePrototype()
	if err != nil {
		return nil, err
	}

	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	return &Function{Proto: proto, Body: body}, nil
}

// ParseExtern parses 'extern' prototype.
func (p *Parser) ParseExtern() (*Prototype, error) {
	p.next() // Skip 'extern'

	return p.parsePrototype()
}

// ParseTopLevel parses a bare expression and wraps it in an anonymous
// zero-parameter function so it can be lowered like any other definition.
func (p *Parser) ParseTopLevel() (*Function, error) {
	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	return &Function{Proto: &Prototype{}, Body: body}, nil
}

func (p *Parser) parseExpression() (Expr, error) {
	lhs, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	return p.parseBinOpRHS(0, lhs)
}

func (p *Parser) parseBinOpRHS(minPrec int, lhs Expr) (Expr, error) {
	for {
		tokPrec := p.tokenPrecedence(p.peek())
		if tokPrec < minPrec {
			return lhs, nil
		}

		op := p.next().Value

		rhs, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}

		// If the operator after the right operand binds tighter, it takes
		// the right operand first. Equal precedence stays left-associative.
		if tokPrec < p.tokenPrecedence(p.peek()) {
			rhs, err = p.parseBinOpRHS(tokPrec+1, rhs)
			if err != nil {
				return nil, err
			}
		}

		lhs = &BinaryExpr{Op: op, LHS: lhs, RHS: rhs}
	}
}

func (p *Parser) parsePrimary() (Expr, error) {
	switch tok := p.peek(); {
	case tok.Typ == TokenNumber:
		p.next()
		return &NumberExpr{Val: tok.Num}, nil
	case tok.Typ == TokenIdentifier:
		return p.parseIdentifierExpr()
	case tok.isChar("("):
		return p.parseParenExpr()
	default:
		// The offending token stays unconsumed; the driver skips it.
		return nil, &SyntaxError{Expected: "expected an expression", Got: tok}
	}
}

func (p *Parser) parseParenExpr() (Expr, error) {
	p.next() // Skip '('

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if tok := p.peek(); !tok.isChar(")") {
		return nil, &SyntaxError{Expected: "expected ')'", Got: tok}
	}
	p.next() // Skip ')'

	return expr, nil
}

// parseIdentifierExpr parses a variable reference, or a call when the
// identifier is immediately followed by '('.
func (p *Parser) parseIdentifierExpr() (Expr, error) {
	name := p.next().Value

	if !p.peek().isChar("(") {
		return &VariableExpr{Name: name}, nil
	}
	p.next() // Skip '('

	var args []Expr
	if !p.peek().isChar(")") {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)

			if p.peek().isChar(")") {
				break
			}

			if tok := p.peek(); !tok.isChar(",") {
				return nil, &SyntaxError{Expected: "expected ')' or ',' in argument list", Got: tok}
			}
			p.next() // Skip ','
		}
	}
	p.next() // Skip ')'

	return &CallExpr{Callee: name, Args: args}, nil
}

// parsePrototype parses name '(' param* ')'. Parameter names have no
// separators.
func (p *Parser) parsePrototype() (*Prototype, error) {
	if tok := p.peek(); tok.Typ != TokenIdentifier {
		return nil, &SyntaxError{Expected: "expected function name in prototype", Got: tok}
	}
	name := p.next().Value

	if tok := p.peek(); !tok.isChar("(") {
		return nil, &SyntaxError{Expected: "expected '(' in prototype", Got: tok}
	}
	p.next() // Skip '('

	var params []string
	for p.peek().Typ == TokenIdentifier {
		params = append(params, p.next().Value)
	}

	if tok := p.peek(); !tok.isChar(")") {
		return nil, &SyntaxError{Expected: "expected ')' in prototype", Got: tok}
	}
	p.next() // Skip ')'

	return &Prototype{Name: name, Params: params}, nil
}

// tokenPrecedence returns the binding power of tok as an infix operator,
// or -1 if it cannot be one.
func (p *Parser) tokenPrecedence(tok Token) int {
	if tok.Typ != TokenChar {
		return -1
	}

	prec, ok := p.prec[tok.Value]
	if !ok || prec <= 0 {
		return -1
	}

	return prec
}

func (p *Parser) peek() Token {
	if p.buf == nil {
		tok := p.next()
		p.buf = &tok
	}

	return *p.buf
}

func (p *Parser) next() Token {
	if !p.started {
		go p.tokenizer.Do()
		p.started = true
	}

	if p.buf != nil {
		if p.buf.isEnd() {
			// Keep the end token buffered so repeated reads stay at the end.
			return *p.buf
		}

		tok := *p.buf
		p.buf = nil

		return tok
	}

	tok := p.tokenizer.Get()
	if tok.isEnd() {
		p.buf = &tok
	}

	return tok
}
