package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type kind uint8

const (
	kindEOF kind = iota
	kindIdent
	kindString
	kindNumber
	kindTrue
	kindFalse
	kindNull
	kindEq
	kindNeq
	kindGt
	kindGte
	kindLt
	kindLte
	kindAnd
	kindOr
	kindNot
	kindOpen
	kindClose
)

var symbols = map[kind]string{
	kindEq: "==", kindNeq: "!=", kindGt: ">", kindGte: ">=", kindLt: "<", kindLte: "<=",
	kindAnd: "&&", kindOr: "||", kindNot: "!", kindOpen: "(", kindClose: ")",
}

type token struct {
	kind kind
	text string
}

func (t token) String() string {
	if sym, ok := symbols[t.kind]; ok {
		return sym
	}
	return t.text
}

// lexer splits a rule into tokens. Bare words run until whitespace or an
// operator character.
type lexer struct {
	src string
	pos int
}

func (l *lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// pair consumes a second byte when it matches want.
func (l *lexer) pair(want byte) bool {
	if l.peek() == want {
		l.pos++
		return true
	}
	return false
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{kind: kindEOF}, nil
	}

	ch := l.src[l.pos]
	l.pos++
	switch ch {
	case '(':
		return token{kind: kindOpen}, nil
	case ')':
		return token{kind: kindClose}, nil
	case '!':
		if l.pair('=') {
			return token{kind: kindNeq}, nil
		}
		return token{kind: kindNot}, nil
	case '>':
		if l.pair('=') {
			return token{kind: kindGte}, nil
		}
		return token{kind: kindGt}, nil
	case '<':
		if l.pair('=') {
			return token{kind: kindLte}, nil
		}
		return token{kind: kindLt}, nil
	case '=':
		if !l.pair('=') {
			return token{}, errors.New("visibility/expr: unexpected '='; use '=='")
		}
		return token{kind: kindEq}, nil
	case '&':
		if !l.pair('&') {
			return token{}, errors.New("visibility/expr: unexpected '&'; use '&&'")
		}
		return token{kind: kindAnd}, nil
	case '|':
		if !l.pair('|') {
			return token{}, errors.New("visibility/expr: unexpected '|'; use '||'")
		}
		return token{kind: kindOr}, nil
	case '"', '\'':
		return l.quoted(ch)
	}

	start := l.pos - 1
	for l.pos < len(l.src) && !isSpace(l.src[l.pos]) && !strings.ContainsRune("()!=&|<>", rune(l.src[l.pos])) {
		l.pos++
	}
	word := l.src[start:l.pos]
	switch strings.ToLower(word) {
	case "true":
		return token{kind: kindTrue, text: "true"}, nil
	case "false":
		return token{kind: kindFalse, text: "false"}, nil
	case "null", "nil":
		return token{kind: kindNull, text: "null"}, nil
	}
	if c := word[0]; c == '-' || c == '+' || (c >= '0' && c <= '9') {
		return token{kind: kindNumber, text: word}, nil
	}
	return token{kind: kindIdent, text: word}, nil
}

// quoted reads a string literal. Single quoted literals follow the same
// escape rules as double quoted ones.
func (l *lexer) quoted(quote byte) (token, error) {
	start := l.pos
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case '\\':
			l.pos += 2
			continue
		case quote:
			body := l.src[start:l.pos]
			l.pos++
			if quote == '\'' {
				body = strings.ReplaceAll(strings.ReplaceAll(body, `\'`, `'`), `"`, `\"`)
			}
			value, err := strconv.Unquote(`"` + body + `"`)
			if err != nil {
				return token{}, fmt.Errorf("visibility/expr: invalid string literal: %w", err)
			}
			return token{kind: kindString, text: value}, nil
		}
		l.pos++
	}
	return token{}, errors.New("visibility/expr: unterminated string literal")
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

// tokenize lexes the whole rule, ending with a kindEOF token.
func tokenize(rule string) ([]token, error) {
	lx := &lexer{src: rule}
	var tokens []token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == kindEOF {
			return tokens, nil
		}
	}
}
