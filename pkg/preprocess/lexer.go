package preprocess

import "strings"

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src string
	pos int // index of the next byte to consume
}

func newLexer(src string) *Lexer {
	return &Lexer{src: src}
}

// Lex splits src into tokens. The result always ends with a TokEOF token
// positioned at len(src). Bytes the language does not use are grouped into
// TokInvalid tokens and left for the parser to reject; only an unterminated
// literal is a lexing error.
func Lex(src string) ([]Token, error) {
	l := newLexer(src)
	var toks []Token
	for {
		t, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.Kind == TokEOF {
			return toks, nil
		}
	}
}

var punctuation = map[byte]TokenKind{
	',': TokComma,
	':': TokColon,
	'+': TokPlus,
	'[': TokLBracket,
	']': TokRBracket,
	'(': TokLParen,
	')': TokRParen,
	'{': TokLBrace,
	'}': TokRBrace,
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v'
}

// isKnownStart reports whether the byte at i begins some valid token.
func (l *Lexer) isKnownStart(i int) bool {
	c := l.src[i]
	if isIdentStart(c) || isDigit(c) || isSpace(c) || c == '\n' || c == '"' || c == '\'' || c == '-' {
		return true
	}
	if c == '<' {
		return i+1 < len(l.src) && l.src[i+1] == '-'
	}
	_, ok := punctuation[c]
	return ok
}

func (l *Lexer) token(kind TokenKind, start int) Token {
	return Token{Kind: kind, Text: l.src[start:l.pos], Start: start, End: l.pos}
}

func (l *Lexer) next() (Token, error) {
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.pos++
	}
	start := l.pos
	if l.pos >= len(l.src) {
		return Token{Kind: TokEOF, Start: start, End: start}, nil
	}

	c := l.src[l.pos]
	switch {
	case c == '\n':
		l.pos++
		return l.token(TokNewline, start), nil
	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		return l.token(TokIdent, start), nil
	case isDigit(c):
		// Digits and letters together so 0x1F and 0b101 form one token; the
		// parser rejects malformed literals with a precise message.
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		return l.token(TokNumber, start), nil
	case c == '"' || c == '\'':
		if err := l.scanQuoted(c); err != nil {
			return Token{}, err
		}
		kind := TokString
		if c == '\'' {
			kind = TokChar
		}
		return l.token(kind, start), nil
	case c == '-':
		l.pos++
		if l.pos < len(l.src) && l.src[l.pos] == '>' {
			l.pos++
			return l.token(TokArrow, start), nil
		}
		return l.token(TokMinus, start), nil
	case c == '<' && strings.HasPrefix(l.src[l.pos:], "<-"):
		l.pos += 2
		return l.token(TokBackArrow, start), nil
	}

	if kind, ok := punctuation[c]; ok {
		l.pos++
		return l.token(kind, start), nil
	}

	for l.pos < len(l.src) && !l.isKnownStart(l.pos) {
		l.pos++
	}
	return l.token(TokInvalid, start), nil
}

// scanQuoted consumes a literal delimited by q. Literals may not span lines.
func (l *Lexer) scanQuoted(q byte) error {
	start := l.pos
	l.pos++
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '\n' {
			break
		}
		l.pos++
		if c == '\\' && l.pos < len(l.src) && l.src[l.pos] != '\n' {
			l.pos++
			continue
		}
		if c == q {
			return nil
		}
	}
	return &InvalidToken{Location: start}
}
