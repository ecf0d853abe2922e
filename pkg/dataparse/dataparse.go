// Package dataparse parses data directives (db, dw, resb, resw) and lays them
// out in a memory image.
//
// The same parser is used twice: once while preprocessing, to validate a
// directive and learn its size, and once while loading, to write it. Both
// passes therefore agree on layout by construction.
package dataparse

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// MaxCount bounds resb/resw/dup repeat counts.
const MaxCount = 65536

// MaxSize is the default bound on the bytes one directive may occupy.
const MaxSize = 65536

// Names of the recognised directives, lowercase.
var Directives = map[string]int{
	"db":   1,
	"dw":   2,
	"resb": 1,
	"resw": 2,
}

// IsDirective reports whether word names a data directive.
func IsDirective(word string) bool {
	_, ok := Directives[strings.ToLower(word)]
	return ok
}

// Directive is a parsed data directive.
type Directive struct {
	Name   string  // lowercase directive name
	Unit   int     // bytes per value
	Values []int64 // one entry per unit, reserved space is zero
}

// Size is the number of bytes the directive occupies.
func (d Directive) Size() int {
	return len(d.Values) * d.Unit
}

// Bytes encodes the directive little-endian.
func (d Directive) Bytes() []byte {
	out := make([]byte, d.Size())
	for i, v := range d.Values {
		if d.Unit == 1 {
			out[i] = byte(v)
		} else {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
		}
	}
	return out
}

// SyntaxError reports a malformed directive. Offset is relative to the start
// of the directive text.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return e.Msg
}

// SizeError reports a directive that would occupy more than Limit bytes. It
// is returned before the values are materialised.
type SizeError struct {
	Offset int
	Limit  int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("data directive exceeds %d bytes", e.Limit)
}

// Memory is the write side of a memory image.
type Memory interface {
	Store(addr int, b []byte) error
}

// Parser writes directives into memory at a caller-owned allocation counter.
type Parser struct{}

// Parse parses text, stores it at *ctr and advances *ctr by its size. On
// error *ctr is left unchanged.
func (Parser) Parse(m Memory, ctr *int, text string) error {
	return Load(m, ctr, text)
}

// Load is Parser.Parse as a plain function.
func Load(m Memory, ctr *int, text string) error {
	d, err := ParseDirective(text)
	if err != nil {
		return err
	}
	if err := m.Store(*ctr, d.Bytes()); err != nil {
		return err
	}
	*ctr += d.Size()
	return nil
}

// ParseDirective parses a single directive such as `db 1, "hi", 4 dup(0)`
// occupying at most MaxSize bytes.
func ParseDirective(text string) (Directive, error) {
	return ParseDirectiveLimit(text, MaxSize)
}

// ParseDirectiveLimit is ParseDirective with a caller-chosen size bound. A
// directive larger than limit bytes fails with *SizeError.
func ParseDirectiveLimit(text string, limit int) (Directive, error) {
	s := &scanner{text: text, limit: limit}
	s.skipSpace()
	at, name := s.word()
	unit, ok := Directives[strings.ToLower(name)]
	if !ok {
		return Directive{}, &SyntaxError{Offset: at, Msg: fmt.Sprintf("unknown data directive '%s'", name)}
	}
	d := Directive{Name: strings.ToLower(name), Unit: unit}

	var err error
	if strings.HasPrefix(d.Name, "res") {
		err = s.reserve(&d)
	} else {
		err = s.items(&d)
	}
	if err != nil {
		return Directive{}, err
	}

	s.skipSpace()
	if !s.eof() {
		return Directive{}, s.errorf("unexpected '%s' after %s", s.text[s.pos:], d.Name)
	}
	return d, nil
}

// ParseNumber parses an integer literal with an optional sign. Prefixes 0x,
// 0b and 0o select the base. Digit separators and C-style octal (a leading
// zero followed by a digit) are rejected.
func ParseNumber(lit string) (int64, error) {
	body := lit
	if body != "" && (body[0] == '-' || body[0] == '+') {
		body = body[1:]
	}
	if strings.IndexByte(body, '_') >= 0 ||
		(len(body) > 1 && body[0] == '0' && body[1] >= '0' && body[1] <= '9') {
		return 0, fmt.Errorf("invalid number %q", lit)
	}
	return strconv.ParseInt(lit, 0, 64)
}

// ParseChar parses a quoted character literal such as 'a' or '\n'.
func ParseChar(lit string) (int64, error) {
	s, err := strconv.Unquote(lit)
	if err != nil {
		return 0, fmt.Errorf("invalid character literal %s", lit)
	}
	if len(s) != 1 {
		return 0, fmt.Errorf("character literal %s is not a single byte", lit)
	}
	return int64(s[0]), nil
}

// Range returns the inclusive range accepted for a value of unit bytes.
func Range(unit int) (lo, hi int64) {
	if unit == 1 {
		return -128, 255
	}
	return -32768, 65535
}

func (s *scanner) reserve(d *Directive) error {
	s.skipSpace()
	at, lit := s.word()
	if lit == "" {
		return s.errorf("%s expects a count", d.Name)
	}
	n, err := s.count(at, lit)
	if err != nil {
		return err
	}
	if err := s.grow(d, at, int64(n)); err != nil {
		return err
	}
	d.Values = make([]int64, n)
	return nil
}

func (s *scanner) items(d *Directive) error {
	for {
		s.skipSpace()
		if s.eof() {
			if len(d.Values) == 0 {
				return s.errorf("%s expects at least one value", d.Name)
			}
			return s.errorf("%s: missing value after ','", d.Name)
		}

		switch s.peek() {
		case '"':
			at, lit, err := s.quoted('"')
			if err != nil {
				return err
			}
			str, err := strconv.Unquote(lit)
			if err != nil {
				return &SyntaxError{Offset: at, Msg: fmt.Sprintf("invalid string literal %s", lit)}
			}
			if err := s.grow(d, at, int64(len(str))); err != nil {
				return err
			}
			for i := 0; i < len(str); i++ {
				d.Values = append(d.Values, int64(str[i]))
			}
		default:
			at := s.pos
			isChar := s.peek() == '\''
			v, err := s.value()
			if err != nil {
				return err
			}
			s.skipSpace()
			if _, after := s.peekWord(); !strings.EqualFold(after, "dup") {
				if err := checkRange(d, at, v); err != nil {
					return err
				}
				if err := s.grow(d, at, 1); err != nil {
					return err
				}
				d.Values = append(d.Values, v)
				break
			}
			if isChar {
				return &SyntaxError{Offset: at, Msg: "dup count must be a number"}
			}
			if v < 0 || v > MaxCount {
				return &SyntaxError{Offset: at, Msg: fmt.Sprintf("count %d out of range 0..%d", v, MaxCount)}
			}
			s.word()
			s.skipSpace()
			if err := s.expect('('); err != nil {
				return err
			}
			s.skipSpace()
			vat := s.pos
			fill, err := s.value()
			if err != nil {
				return err
			}
			if err := checkRange(d, vat, fill); err != nil {
				return err
			}
			s.skipSpace()
			if err := s.expect(')'); err != nil {
				return err
			}
			if err := s.grow(d, at, v); err != nil {
				return err
			}
			for i := int64(0); i < v; i++ {
				d.Values = append(d.Values, fill)
			}
		}

		s.skipSpace()
		if s.eof() || s.peek() != ',' {
			return nil
		}
		s.pos++
	}
}

// value parses a number or a character literal.
func (s *scanner) value() (int64, error) {
	if s.peek() == '\'' {
		at, lit, err := s.quoted('\'')
		if err != nil {
			return 0, err
		}
		v, err := ParseChar(lit)
		if err != nil {
			return 0, &SyntaxError{Offset: at, Msg: err.Error()}
		}
		return v, nil
	}
	at, lit := s.word()
	if lit == "" {
		if s.eof() {
			return 0, s.errorf("missing value")
		}
		return 0, s.errorf("unexpected '%c'", s.peek())
	}
	v, err := ParseNumber(lit)
	if err != nil {
		return 0, &SyntaxError{Offset: at, Msg: fmt.Sprintf("invalid number '%s'", lit)}
	}
	return v, nil
}

func (s *scanner) count(at int, lit string) (int, error) {
	n, err := ParseNumber(lit)
	if err != nil {
		return 0, &SyntaxError{Offset: at, Msg: fmt.Sprintf("invalid count '%s'", lit)}
	}
	if n < 0 || n > MaxCount {
		return 0, &SyntaxError{Offset: at, Msg: fmt.Sprintf("count %d out of range 0..%d", n, MaxCount)}
	}
	return int(n), nil
}

func checkRange(d *Directive, at int, v int64) error {
	lo, hi := Range(d.Unit)
	if v < lo || v > hi {
		what := "byte"
		if d.Unit == 2 {
			what = "word"
		}
		return &SyntaxError{Offset: at, Msg: fmt.Sprintf("value %d does not fit in a %s", v, what)}
	}
	return nil
}

type scanner struct {
	text  string
	pos   int
	limit int // bytes the directive may occupy
}

// grow fails when n more values would take d past the size limit.
func (s *scanner) grow(d *Directive, at int, n int64) error {
	if (int64(len(d.Values))+n)*int64(d.Unit) > int64(s.limit) {
		return &SizeError{Offset: at, Limit: s.limit}
	}
	return nil
}

func (s *scanner) eof() bool { return s.pos >= len(s.text) }

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.text[s.pos]
}

func (s *scanner) skipSpace() {
	for !s.eof() && (s.text[s.pos] == ' ' || s.text[s.pos] == '\t' || s.text[s.pos] == '\r') {
		s.pos++
	}
}

func isWordByte(c byte) bool {
	return c == '_' || c == '-' || c == '+' ||
		(c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// peekWord returns the word at the cursor without consuming it.
func (s *scanner) peekWord() (int, string) {
	end := s.pos
	for end < len(s.text) && isWordByte(s.text[end]) {
		end++
	}
	return s.pos, s.text[s.pos:end]
}

func (s *scanner) word() (int, string) {
	at, w := s.peekWord()
	s.pos += len(w)
	return at, w
}

// quoted consumes a literal delimited by q, honouring backslash escapes.
func (s *scanner) quoted(q byte) (int, string, error) {
	at := s.pos
	s.pos++
	for !s.eof() {
		c := s.text[s.pos]
		s.pos++
		if c == '\\' && !s.eof() {
			s.pos++
			continue
		}
		if c == q {
			return at, s.text[at:s.pos], nil
		}
	}
	return at, "", &SyntaxError{Offset: at, Msg: "unterminated literal"}
}

func (s *scanner) expect(c byte) error {
	if s.peek() != c {
		if s.eof() {
			return s.errorf("expected '%c'", c)
		}
		return s.errorf("expected '%c', found '%c'", c, s.peek())
	}
	s.pos++
	return nil
}

func (s *scanner) errorf(format string, args ...interface{}) error {
	return &SyntaxError{Offset: s.pos, Msg: fmt.Sprintf(format, args...)}
}
