// Package preprocess is the grammar engine of the assembler. A single
// streaming pass over the stripped source expands macros, records label and
// procedure definitions, validates data directives and produces the
// canonical instruction stream together with its position map.
//
// Names may be used before they are defined. Such uses are recorded in
// Context.Undefined and must be checked by the caller once parsing is done.
package preprocess

import (
	"errors"
	"strconv"
	"strings"

	"sicasm/pkg/dataparse"
	"sicasm/pkg/vm"
)

// DefaultMaxMacroDepth bounds nested macro expansion.
const DefaultMaxMacroDepth = 16

// Parser holds the limits of one grammar configuration. It keeps no state
// between calls.
type Parser struct {
	MaxMacroDepth int
	DataCapacity  int // bytes available to data directives
}

// New returns a Parser with default limits.
func New() *Parser {
	return &Parser{MaxMacroDepth: DefaultMaxMacroDepth, DataCapacity: vm.MemorySize}
}

// Parse runs the grammar over src, accumulating bookkeeping into ctx and
// results into out.
func (p *Parser) Parse(ctx *Context, out *Output, src string) error {
	ctx.init()
	toks, err := Lex(src)
	if err != nil {
		return err
	}

	st := &state{p: p, ctx: ctx, out: out, src: src}
	if err := st.statements(&stream{toks: toks}); err != nil {
		return err
	}
	if st.proc != "" {
		proc := ctx.Functions[st.proc]
		return customError(proc.Offset, "procedure %s is never closed (missing '}')", proc.Name)
	}
	return nil
}

// stream is a cursor over a token slice that always ends with TokEOF.
type stream struct {
	toks      []Token
	pos       int
	expanding bool // tokens come from a macro body
}

func (s *stream) peek() Token {
	return s.toks[s.pos]
}

func (s *stream) peekAt(n int) Token {
	if s.pos+n >= len(s.toks) {
		return s.toks[len(s.toks)-1]
	}
	return s.toks[s.pos+n]
}

func (s *stream) next() Token {
	t := s.toks[s.pos]
	if t.Kind != TokEOF {
		s.pos++
	}
	return t
}

func atLineEnd(t Token) bool {
	return t.Kind == TokNewline || t.Kind == TokEOF
}

type state struct {
	p    *Parser
	ctx  *Context
	out  *Output
	src  string
	proc string // open procedure, if any
}

var statementExpected = []string{"label", "instruction", "data directive", "macro", "def", "'}'"}

func (st *state) statements(s *stream) error {
	for {
		switch s.peek().Kind {
		case TokEOF:
			return nil
		case TokNewline:
			s.next()
			continue
		}
		if err := st.statement(s); err != nil {
			return err
		}
	}
}

func (st *state) statement(s *stream) error {
	var labels []Token
	for s.peek().Kind == TokIdent && s.peekAt(1).Kind == TokColon {
		t := s.next()
		s.next()
		if s.expanding {
			return customError(t.Start, "labels cannot be defined inside a macro")
		}
		labels = append(labels, t)
	}

	t := s.peek()
	if t.Kind == TokIdent && dataparse.IsDirective(t.Text) {
		return st.dataDirective(s, labels)
	}
	for _, l := range labels {
		if err := st.defineLabel(l, LabelCode, len(st.out.Code)); err != nil {
			return err
		}
	}

	switch t.Kind {
	case TokNewline, TokEOF:
		return st.endOfStatement(s)
	case TokRBrace:
		return st.closeProcedure(s)
	case TokIdent:
		word := strings.ToLower(t.Text)
		switch {
		case word == keywordMacro:
			return st.defineMacro(s)
		case word == keywordDef:
			return st.openProcedure(s)
		case IsMnemonic(word):
			return st.instruction(s)
		case s.peekAt(1).Kind == TokLParen:
			return st.expandMacro(s)
		}
	}
	return st.unexpected(s, t, statementExpected...)
}

func (st *state) endOfStatement(s *stream) error {
	t := s.peek()
	if !atLineEnd(t) {
		return st.unexpected(s, t, "end of line")
	}
	s.next()
	return nil
}

// unexpected reports t as a syntax error. The end of a macro body is not the
// end of input, so it is reported as a domain error at the call site.
func (st *state) unexpected(s *stream, t Token, expected ...string) error {
	if t.Kind == TokEOF {
		if s.expanding {
			return customError(t.Start, "unexpected end of macro body")
		}
		return &UnrecognizedEOF{Location: t.Start, Expected: expected}
	}
	return &UnrecognizedToken{Start: t.Start, End: t.End, Token: t, Expected: expected}
}

func (st *state) defineLabel(t Token, kind LabelKind, target int) error {
	if IsReserved(t.Text) {
		return customError(t.Start, "'%s' is a reserved word and cannot be used as a label", t.Text)
	}
	if _, ok := st.ctx.Labels[t.Text]; ok {
		return customError(t.Start, "Label %s is already defined", t.Text)
	}
	st.ctx.Labels[t.Text] = Label{Name: t.Text, Kind: kind, Target: target, Offset: t.Start}
	return nil
}

// reference accepts a use of a name already defined with the right kind and
// defers every other use to the validator, so a misuse is reported the same
// way whichever side of the definition it appears on.
func (st *state) reference(t Token, want RefKind) {
	if want == RefProc {
		if _, ok := st.ctx.Functions[t.Text]; ok {
			return
		}
	} else if l, ok := st.ctx.Labels[t.Text]; ok && l.Kind == want.LabelKind() {
		return
	}
	st.ctx.Undefined = append(st.ctx.Undefined, UndefinedRef{Offset: t.Start, Name: t.Text, Want: want})
}

func (st *state) instruction(s *stream) error {
	mt := s.next()
	mnemonic := strings.ToLower(mt.Text)
	shape, _ := instructionShape(mnemonic)

	ops := make([]string, 0, len(shape))
	for i, kind := range shape {
		if i > 0 {
			if err := st.missing(s, mt, len(shape), "','"); err != nil {
				return err
			}
			if t := s.peek(); t.Kind != TokComma {
				return st.unexpected(s, t, "','")
			}
			s.next()
		}
		if err := st.missing(s, mt, len(shape), kind.expected()...); err != nil {
			return err
		}
		op, err := st.operand(s, kind)
		if err != nil {
			return err
		}
		ops = append(ops, op)
	}
	if s.peek().Kind == TokComma {
		return customError(mt.Start, "%s expects %s", mnemonic, plural(len(shape), "operand"))
	}
	if err := st.endOfStatement(s); err != nil {
		return err
	}

	st.out.EmitCode(render(mnemonic, ops), mt.Start)
	return nil
}

// missing fails when the statement ends before every operand of mt was seen.
func (st *state) missing(s *stream, mt Token, n int, expected ...string) error {
	t := s.peek()
	switch {
	case t.Kind == TokNewline || (t.Kind == TokEOF && s.expanding):
		return customError(mt.Start, "%s expects %s", strings.ToLower(mt.Text), plural(n, "operand"))
	case t.Kind == TokEOF:
		return &UnrecognizedEOF{Location: t.Start, Expected: expected}
	}
	return nil
}

func render(mnemonic string, ops []string) string {
	if len(ops) == 0 {
		return mnemonic
	}
	return mnemonic + " " + strings.Join(ops, ", ")
}

func refFor(kind operandKind) RefKind {
	switch kind {
	case opCode:
		return RefCode
	case opProc:
		return RefProc
	}
	return RefData
}

func (st *state) operand(s *stream, kind operandKind) (string, error) {
	t := s.peek()
	switch t.Kind {
	case TokIdent:
		if IsRegister(t.Text) {
			if kind != opReg && kind != opValue {
				return "", st.unexpected(s, t, kind.expected()...)
			}
			s.next()
			return strings.ToLower(t.Text), nil
		}
		if kind == opReg || IsReserved(t.Text) {
			return "", st.unexpected(s, t, kind.expected()...)
		}
		s.next()
		st.reference(t, refFor(kind))
		return t.Text, nil
	case TokNumber, TokChar, TokMinus, TokPlus:
		if kind == opReg || kind == opProc {
			return "", st.unexpected(s, t, kind.expected()...)
		}
		v, err := st.immediate(s)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(v, 10), nil
	case TokLBracket:
		if kind == opValue {
			return st.memory(s)
		}
	}
	return "", st.unexpected(s, t, kind.expected()...)
}

// immediate parses an optionally signed number or a character literal into a
// 16-bit value.
func (st *state) immediate(s *stream) (int64, error) {
	t := s.next()
	start := t.Start
	neg := false
	if t.Kind == TokMinus || t.Kind == TokPlus {
		neg = t.Kind == TokMinus
		t = s.peek()
		if t.Kind != TokNumber {
			return 0, st.unexpected(s, t, "number")
		}
		s.next()
	}

	var v int64
	switch t.Kind {
	case TokNumber:
		n, err := dataparse.ParseNumber(t.Text)
		if err != nil {
			return 0, customError(t.Start, "invalid number '%s'", t.Text)
		}
		v = n
	case TokChar:
		c, err := dataparse.ParseChar(t.Text)
		if err != nil {
			return 0, customError(t.Start, "%s", err.Error())
		}
		v = c
	default:
		return 0, st.unexpected(s, t, "number", "character")
	}
	if neg {
		v = -v
	}

	if lo, hi := dataparse.Range(2); v < lo || v > hi {
		return 0, customError(start, "value %d does not fit in 16 bits", v)
	}
	return v, nil
}

// memory parses `[base]`, `[base + n]` or `[base - n]`.
func (st *state) memory(s *stream) (string, error) {
	s.next() // '['
	t := s.peek()
	var base string
	switch {
	case t.Kind == TokIdent && IsRegister(t.Text):
		s.next()
		base = strings.ToLower(t.Text)
	case t.Kind == TokIdent && !IsReserved(t.Text):
		s.next()
		st.reference(t, RefData)
		base = t.Text
	case t.Kind == TokNumber || t.Kind == TokChar:
		v, err := st.immediate(s)
		if err != nil {
			return "", err
		}
		base = strconv.FormatInt(v, 10)
	default:
		return "", st.unexpected(s, t, "register", "number", "data label")
	}

	t = s.peek()
	if t.Kind == TokPlus || t.Kind == TokMinus {
		s.next()
		if n := s.peek(); n.Kind != TokNumber && n.Kind != TokChar {
			return "", st.unexpected(s, n, "number")
		}
		v, err := st.immediate(s)
		if err != nil {
			return "", err
		}
		base += " " + t.Text + " " + strconv.FormatInt(v, 10)
		t = s.peek()
	}

	if t.Kind != TokRBracket {
		return "", st.unexpected(s, t, "']'")
	}
	s.next()
	return "[" + base + "]", nil
}

func (st *state) dataDirective(s *stream, labels []Token) error {
	first := s.peek()
	if s.expanding {
		return customError(first.Start, "data directives are not allowed inside a macro")
	}
	last := first
	for !atLineEnd(s.peek()) {
		last = s.next()
	}
	text := st.src[first.Start:last.End]

	d, err := dataparse.ParseDirectiveLimit(text, st.p.DataCapacity-st.ctx.DataCounter)
	if err != nil {
		var (
			se *dataparse.SyntaxError
			ze *dataparse.SizeError
		)
		switch {
		case errors.As(err, &ze):
			return customError(first.Start, "data segment exceeds memory capacity of %d bytes", st.p.DataCapacity)
		case errors.As(err, &se):
			return customError(first.Start+se.Offset, "%s", se.Msg)
		}
		return customError(first.Start, "%s", err.Error())
	}

	for _, l := range labels {
		if err := st.defineLabel(l, LabelData, st.ctx.DataCounter); err != nil {
			return err
		}
	}
	st.out.EmitData(text, first.Start)
	st.ctx.DataCounter += d.Size()
	return st.endOfStatement(s)
}

func (st *state) openProcedure(s *stream) error {
	kw := s.next()
	if s.expanding {
		return customError(kw.Start, "procedures cannot be defined inside a macro")
	}
	name := s.peek()
	if name.Kind != TokIdent {
		return st.unexpected(s, name, "procedure name")
	}
	s.next()
	if IsReserved(name.Text) {
		return customError(name.Start, "'%s' is a reserved word and cannot be used as a procedure name", name.Text)
	}
	if st.proc != "" {
		return customError(kw.Start, "procedure %s cannot be defined inside procedure %s", name.Text, st.proc)
	}
	if _, ok := st.ctx.Functions[name.Text]; ok {
		return customError(name.Start, "Procedure %s is already defined", name.Text)
	}
	if t := s.peek(); t.Kind != TokLBrace {
		return st.unexpected(s, t, "'{'")
	}
	s.next()

	st.ctx.Functions[name.Text] = Procedure{Name: name.Text, Start: len(st.out.Code), End: -1, Offset: kw.Start}
	st.proc = name.Text
	return st.endOfStatement(s)
}

func (st *state) closeProcedure(s *stream) error {
	t := s.next()
	if s.expanding {
		return customError(t.Start, "procedures cannot be closed inside a macro")
	}
	if st.proc == "" {
		return customError(t.Start, "'}' without a matching def")
	}
	proc := st.ctx.Functions[st.proc]
	proc.End = len(st.out.Code)
	st.ctx.Functions[st.proc] = proc
	st.proc = ""
	return st.endOfStatement(s)
}
