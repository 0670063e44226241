package parse

import (
	"context"
	"math"
	"strconv"
)

type (
	tokKind int

	token struct {
		kind tokKind
		pos  int
		end  int
		text string
	}

	spaces uint64
)

const (
	tEOF tokKind = iota
	tIdent
	tKeyword
	tInt
	tStr
	tPunct
)

var spaceAll = newSpaces(' ', '\t', '\r', '\n')

var keywords = map[string]struct{}{
	"int":    {},
	"bool":   {},
	"void":   {},
	"struct": {},
	"if":     {},
	"else":   {},
	"while":  {},
	"return": {},
	"true":   {},
	"false":  {},
	"cin":    {},
	"cout":   {},
}

var puncts2 = []string{"==", "!=", "<=", ">=", "&&", "||", "++", "--", "<<", ">>"}

const puncts1 = "{}();,.=<>+-*/!"

func (k tokKind) String() string {
	switch k {
	case tEOF:
		return "EOF"
	case tIdent:
		return "identifier"
	case tKeyword:
		return "keyword"
	case tInt:
		return "integer literal"
	case tStr:
		return "string literal"
	case tPunct:
		return "punctuation"
	default:
		return "token(" + strconv.Itoa(int(k)) + ")"
	}
}

func (t token) String() string {
	if t.kind == tEOF {
		return "end of file"
	}

	return strconv.Quote(t.text)
}

func newSpaces(skip ...byte) (ss spaces) {
	for _, q := range skip {
		if q >= 64 {
			panic("too high char code")
		}

		ss |= 1 << q
	}

	return
}

func (s spaces) skip(b []byte, st int) (i int) {
	i = st

	for i < len(b) && b[i] < 64 && s&(1<<b[i]) != 0 {
		i++
	}

	return
}

func (s *State) scan(ctx context.Context) (toks []token, err error) {
	i := 0

	for {
		i = s.skipSpaces(i)

		if i == len(s.b) {
			toks = append(toks, token{kind: tEOF, pos: i, end: i})
			return toks, nil
		}

		t, err := s.token(i)
		if err != nil {
			return nil, err
		}

		toks = append(toks, t)
		i = t.end
	}
}

// skipSpaces skips white space and comments.
func (s *State) skipSpaces(i int) int {
	for {
		i = spaceAll.skip(s.b, i)

		if i < len(s.b) && (s.b[i] == '#' || s.b[i] == '/' && i+1 < len(s.b) && s.b[i+1] == '/') {
			i = s.skipLine(i)
			continue
		}

		return i
	}
}

func (s *State) skipLine(i int) int {
	for i < len(s.b) && s.b[i] != '\n' {
		i++
	}

	return i
}

func (s *State) token(st int) (t token, err error) {
	b := s.b
	c := b[st]

	switch {
	case isLetter(c):
		i := st + 1

		for i < len(b) && (isLetter(b[i]) || isDigit(b[i])) {
			i++
		}

		t = token{kind: tIdent, pos: st, end: i, text: string(b[st:i])}

		if _, ok := keywords[t.text]; ok {
			t.kind = tKeyword
		}

		return t, nil
	case isDigit(c):
		i := st + 1

		for i < len(b) && isDigit(b[i]) {
			i++
		}

		if i < len(b) && isLetter(b[i]) {
			return t, s.errorf(i, "unexpected %q in integer literal", b[i])
		}

		text := string(b[st:i])

		v, err := strconv.ParseUint(text, 10, 64)
		if err != nil || v > math.MaxInt32 {
			return t, s.errorf(st, "integer literal too large: %s", text)
		}

		return token{kind: tInt, pos: st, end: i, text: text}, nil
	case c == '"':
		return s.stringLit(st)
	}

	for _, p := range puncts2 {
		if st+1 < len(b) && b[st] == p[0] && b[st+1] == p[1] {
			return token{kind: tPunct, pos: st, end: st + 2, text: p}, nil
		}
	}

	for i := 0; i < len(puncts1); i++ {
		if c == puncts1[i] {
			return token{kind: tPunct, pos: st, end: st + 1, text: puncts1[i : i+1]}, nil
		}
	}

	return t, s.errorf(st, "illegal character %q", c)
}

func (s *State) stringLit(st int) (t token, err error) {
	b := s.b

	for i := st + 1; i < len(b); i++ {
		switch b[i] {
		case '"':
			return token{kind: tStr, pos: st, end: i + 1, text: string(b[st : i+1])}, nil
		case '\n':
			return t, s.errorf(st, "unterminated string literal")
		case '\\':
			if i+1 == len(b) {
				return t, s.errorf(st, "unterminated string literal")
			}

			switch b[i+1] {
			case 'n', 't', '"', '\\', '\'':
				i++
			default:
				return t, s.errorf(i, "illegal escape sequence \\%c in string literal", b[i+1])
			}
		}
	}

	return t, s.errorf(st, "unterminated string literal")
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
