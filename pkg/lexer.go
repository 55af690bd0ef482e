package tilo

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type TokenType uint64
type stateFunc func(l *Lexer) stateFunc

const (
	EOF rune = 0

	TokenEOF TokenType = iota
	TokenNumber
	TokenIdentifier
	TokenDef
	TokenExtern
	TokenChar
)

var keywordTable = map[string]TokenType{
	"def":    TokenDef,
	"extern": TokenExtern,
}

// Token is one lexical unit. Number tokens carry both their spelling and
// the parsed value; character tokens carry the rune verbatim. There is no
// error kind: anything the lexer does not recognize becomes a character
// token and is rejected later, by the parser.
type Token struct {
	Typ   TokenType
	Value string
	Num   float64
}

func (t Token) isEnd() bool {
	return t.Typ == TokenEOF
}

func (t Token) isChar(c string) bool {
	return t.Typ == TokenChar && t.Value == c
}

// Tokenizer produces tokens one at a time. Do runs the token source and
// must be started (usually on its own goroutine) before Get is called.
type Tokenizer interface {
	Do()
	Get() Token
}

type Lexer struct {
	reader *bufio.Reader
	out    chan Token
}

func NewLexer(reader io.Reader) *Lexer {
	return &Lexer{
		reader: bufio.NewReader(reader),
		out:    make(chan Token),
	}
}

func (l *Lexer) Do() {
	for state := defaultState; state != nil; {
		state = state(l)
	}

	close(l.out)
}

// Get returns the next token, blocking until one is available. Once the
// input is exhausted it returns the end token on every call.
func (l *Lexer) Get() Token {
	tok, ok := <-l.out
	if !ok {
		return Token{Typ: TokenEOF}
	}

	return tok
}

// RunBlocking drains the whole input and returns every token before the
// end marker. Tests and benchmarks use this; the parser pulls tokens one
// at a time through Get.
func (l *Lexer) RunBlocking() []Token {
	go l.Do()

	var tokens []Token
	for tok := l.Get(); !tok.isEnd(); tok = l.Get() {
		tokens = append(tokens, tok)
	}

	return tokens
}

func defaultState(l *Lexer) stateFunc {
	for {
		switch r := l.peek(); {
		case r == EOF:
			l.emit(Token{Typ: TokenEOF})
			return nil
		case unicode.IsSpace(r):
			l.next()
		case isDigit(r) || r == '.':
			return numberState
		case isAlpha(r):
			return identifierState
		case r == '#':
			return commentState
		default:
			return charState
		}
	}
}

func numberState(l *Lexer) stateFunc {
	var num strings.Builder
	for r := l.peek(); isDigit(r) || r == '.'; r = l.peek() {
		num.WriteRune(l.next())
	}

	text := num.String()
	val, err := strconv.ParseFloat(text, 64)
	if err != nil {
		val = leadingFloat(text)
	}

	l.emit(Token{Typ: TokenNumber, Value: text, Num: val})
	return defaultState
}

// leadingFloat handles greedy scans that over-collect dots, like "1.2.3":
// the longest prefix that still parses is used, as strtod would.
func leadingFloat(text string) float64 {
	for i := len(text) - 1; i > 0; i-- {
		if v, err := strconv.ParseFloat(text[:i], 64); err == nil {
			return v
		}
	}

	return 0
}

func identifierState(l *Lexer) stateFunc {
	var id strings.Builder
	id.WriteRune(l.next())
	for r := l.peek(); isAlpha(r) || isDigit(r); r = l.peek() {
		id.WriteRune(l.next())
	}

	if t, ok := keywordTable[id.String()]; ok {
		l.emit(Token{Typ: t, Value: id.String()})
		return defaultState
	}

	l.emit(Token{Typ: TokenIdentifier, Value: id.String()})
	return defaultState
}

// commentState absorbs a '#' comment up to the end of the line; nothing is
// emitted for it.
func commentState(l *Lexer) stateFunc {
	for r := l.peek(); r != '\n' && r != EOF; r = l.peek() {
		l.next()
	}

	return defaultState
}

func charState(l *Lexer) stateFunc {
	l.emit(Token{Typ: TokenChar, Value: string(l.next())})
	return defaultState
}

func (l *Lexer) emit(tok Token) {
	l.out <- tok
}

func (l *Lexer) peek() rune {
	r := l.next()
	_ = l.reader.UnreadRune()

	return r
}

func (l *Lexer) next() rune {
	r, _, err := l.reader.ReadRune()
	if err != nil {
		if err == io.EOF {
			return EOF
		}

		return utf8.RuneError
	}

	return r
}

func isAlpha(r rune) bool {
	return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}
