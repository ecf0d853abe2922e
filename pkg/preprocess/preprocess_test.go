package preprocess

import (
	"errors"
	"reflect"
	"runtime"
	"strings"
	"testing"
)

func parse(t *testing.T, src string) (*Context, *Output, error) {
	t.Helper()
	ctx := NewContext()
	out := &Output{}
	err := New().Parse(ctx, out, src)
	return ctx, out, err
}

func mustParse(t *testing.T, src string) (*Context, *Output) {
	t.Helper()
	ctx, out, err := parse(t, src)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	return ctx, out
}

func TestLexKinds(t *testing.T) {
	tests := []struct {
		src  string
		want []TokenKind
	}{
		{"ldi r1, -5\n", []TokenKind{TokIdent, TokIdent, TokComma, TokMinus, TokNumber, TokNewline, TokEOF}},
		{"macro m(a) -> inc a <-", []TokenKind{TokIdent, TokIdent, TokLParen, TokIdent, TokRParen, TokArrow, TokIdent, TokIdent, TokBackArrow, TokEOF}},
		{"x: [r1 + 2] 'c' \"s\"", []TokenKind{TokIdent, TokColon, TokLBracket, TokIdent, TokPlus, TokNumber, TokRBracket, TokChar, TokString, TokEOF}},
		{"def p {}", []TokenKind{TokIdent, TokIdent, TokLBrace, TokRBrace, TokEOF}},
		{"@@@", []TokenKind{TokInvalid, TokEOF}},
		{"", []TokenKind{TokEOF}},
	}
	for _, tc := range tests {
		toks, err := Lex(tc.src)
		if err != nil {
			t.Fatalf("Lex(%q) failed: %v", tc.src, err)
		}
		var got []TokenKind
		for _, tok := range toks {
			got = append(got, tok.Kind)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Lex(%q) kinds = %v; want %v", tc.src, got, tc.want)
		}
		if last := toks[len(toks)-1]; last.Start != len(tc.src) {
			t.Errorf("Lex(%q) EOF at %d; want %d", tc.src, last.Start, len(tc.src))
		}
	}
}

func TestLexSpans(t *testing.T) {
	toks, err := Lex("mov r0,  0x1F")
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	want := []Token{
		{Kind: TokIdent, Text: "mov", Start: 0, End: 3},
		{Kind: TokIdent, Text: "r0", Start: 4, End: 6},
		{Kind: TokComma, Text: ",", Start: 6, End: 7},
		{Kind: TokNumber, Text: "0x1F", Start: 9, End: 13},
		{Kind: TokEOF, Start: 13, End: 13},
	}
	if !reflect.DeepEqual(toks, want) {
		t.Errorf("Lex tokens = %+v; want %+v", toks, want)
	}
}

func TestLexUnterminatedLiteral(t *testing.T) {
	_, err := Lex("ldi r0, 'a\nhlt")
	var it *InvalidToken
	if !errors.As(err, &it) {
		t.Fatalf("Lex error = %v; want *InvalidToken", err)
	}
	if it.Location != 8 {
		t.Errorf("InvalidToken.Location = %d; want 8", it.Location)
	}
}

func TestParseCanonicalInstructions(t *testing.T) {
	src := "start: MOV R0, 5\nldi r1, 'A'\nld r2, [r1 + 4]\nst [r1 - 2], r2\njmp start\n"
	ctx, out := mustParse(t, src)

	wantCode := []string{"mov r0, 5", "ldi r1, 65", "ld r2, [r1 + 4]", "st [r1 - 2], r2", "jmp start"}
	if !reflect.DeepEqual(out.Code, wantCode) {
		t.Errorf("Code = %q; want %q", out.Code, wantCode)
	}
	wantPos := []int{7, 17, 29, 45, 61}
	if !reflect.DeepEqual(out.Positions.Code, wantPos) {
		t.Errorf("Positions.Code = %v; want %v", out.Positions.Code, wantPos)
	}
	wantLabel := Label{Name: "start", Kind: LabelCode, Target: 0, Offset: 0}
	if got := ctx.Labels["start"]; got != wantLabel {
		t.Errorf("Labels[start] = %+v; want %+v", got, wantLabel)
	}
	if len(ctx.Undefined) != 0 {
		t.Errorf("Undefined = %+v; want none", ctx.Undefined)
	}
}

func TestParseImmediates(t *testing.T) {
	src := "ldi r0, 0x10\nldi r1, -1\nmov r2, +3\nld r3, [0x100]\nadd r4, '\\n'\n"
	_, out := mustParse(t, src)
	want := []string{"ldi r0, 16", "ldi r1, -1", "mov r2, 3", "ld r3, [256]", "add r4, 10"}
	if !reflect.DeepEqual(out.Code, want) {
		t.Errorf("Code = %q; want %q", out.Code, want)
	}
}

func TestParseDataLabels(t *testing.T) {
	src := "msg: db \"hi\", 0\nbuf: resb 4\ncount: dw 1, 2\nmain: ld r0, msg\nld r1, [buf + 1]\nhlt\n"
	ctx, out := mustParse(t, src)

	wantData := []string{"db \"hi\", 0", "resb 4", "dw 1, 2"}
	if !reflect.DeepEqual(out.Data, wantData) {
		t.Errorf("Data = %q; want %q", out.Data, wantData)
	}
	if !reflect.DeepEqual(out.Positions.Data, []int{5, 21, 35}) {
		t.Errorf("Positions.Data = %v; want [5 21 35]", out.Positions.Data)
	}
	wantCode := []string{"ld r0, msg", "ld r1, [buf + 1]", "hlt"}
	if !reflect.DeepEqual(out.Code, wantCode) {
		t.Errorf("Code = %q; want %q", out.Code, wantCode)
	}
	if ctx.DataCounter != 11 {
		t.Errorf("DataCounter = %d; want 11", ctx.DataCounter)
	}

	targets := map[string]struct {
		kind   LabelKind
		target int
	}{
		"msg":   {LabelData, 0},
		"buf":   {LabelData, 3},
		"count": {LabelData, 7},
		"main":  {LabelCode, 0},
	}
	for name, want := range targets {
		got, ok := ctx.Labels[name]
		if !ok {
			t.Errorf("label %s missing", name)
			continue
		}
		if got.Kind != want.kind || got.Target != want.target {
			t.Errorf("Labels[%s] = %v@%d; want %v@%d", name, got.Kind, got.Target, want.kind, want.target)
		}
	}
}

func TestParseForwardReferences(t *testing.T) {
	ctx, _ := mustParse(t, "jmp end\nld r0, val\nend: hlt\nval: dw 7\n")
	want := []UndefinedRef{
		{Offset: 4, Name: "end", Want: RefCode},
		{Offset: 15, Name: "val", Want: RefData},
	}
	if !reflect.DeepEqual(ctx.Undefined, want) {
		t.Errorf("Undefined = %+v; want %+v", ctx.Undefined, want)
	}
	if l := ctx.Labels["end"]; l.Kind != LabelCode || l.Target != 2 {
		t.Errorf("Labels[end] = %+v; want code label at 2", l)
	}
}

func TestParseDefersKindMismatch(t *testing.T) {
	ctx, _ := mustParse(t, "buf: db 1\njmp buf\nl: nop\nld r0, [l]\nld r1, buf\n")
	want := []UndefinedRef{
		{Offset: 14, Name: "buf", Want: RefCode},
		{Offset: 33, Name: "l", Want: RefData},
	}
	if !reflect.DeepEqual(ctx.Undefined, want) {
		t.Errorf("Undefined = %+v; want %+v", ctx.Undefined, want)
	}
}

func TestParseProcedures(t *testing.T) {
	ctx, out := mustParse(t, "def twice {\nadd r0, r0\nret\n}\ncall twice\nhlt\n")
	want := Procedure{Name: "twice", Start: 0, End: 2, Offset: 0}
	if got := ctx.Functions["twice"]; got != want {
		t.Errorf("Functions[twice] = %+v; want %+v", got, want)
	}
	wantCode := []string{"add r0, r0", "ret", "call twice", "hlt"}
	if !reflect.DeepEqual(out.Code, wantCode) {
		t.Errorf("Code = %q; want %q", out.Code, wantCode)
	}
	if len(ctx.Undefined) != 0 {
		t.Errorf("Undefined = %+v; want none", ctx.Undefined)
	}

	ctx, _ = mustParse(t, "call f\ndef f {\nret\n}\n")
	wantRef := []UndefinedRef{{Offset: 5, Name: "f", Want: RefProc}}
	if !reflect.DeepEqual(ctx.Undefined, wantRef) {
		t.Errorf("Undefined = %+v; want %+v", ctx.Undefined, wantRef)
	}
}

func TestParseMacroExpansion(t *testing.T) {
	src := "macro push2(a, b) ->\npush a\npush b\n<-\nstart: push2(r0, r1)\nhlt\n"
	ctx, out := mustParse(t, src)
	if want := []string{"push r0", "push r1", "hlt"}; !reflect.DeepEqual(out.Code, want) {
		t.Errorf("Code = %q; want %q", out.Code, want)
	}
	// Expanded instructions are attributed to the invocation.
	if want := []int{45, 45, 59}; !reflect.DeepEqual(out.Positions.Code, want) {
		t.Errorf("Positions.Code = %v; want %v", out.Positions.Code, want)
	}
	if l := ctx.Labels["start"]; l.Target != 0 || l.Kind != LabelCode {
		t.Errorf("Labels[start] = %+v; want code label at 0", l)
	}
	if ctx.MacroNestingCounter != 0 {
		t.Errorf("MacroNestingCounter = %d after parse; want 0", ctx.MacroNestingCounter)
	}
}

func TestParseNestedMacros(t *testing.T) {
	src := "macro inc2(r) -> inc r\ninc r <-\nmacro inc4(r) -> inc2(r)\ninc2(r) <-\ninc4(r3)\n"
	_, out := mustParse(t, src)
	want := []string{"inc r3", "inc r3", "inc r3", "inc r3"}
	if !reflect.DeepEqual(out.Code, want) {
		t.Errorf("Code = %q; want %q", out.Code, want)
	}
}

func TestParseMacroBracketArgument(t *testing.T) {
	_, out := mustParse(t, "macro load(d, m) -> ld d, m <-\nload(r0, [r1 + 2])\n")
	if want := []string{"ld r0, [r1 + 2]"}; !reflect.DeepEqual(out.Code, want) {
		t.Errorf("Code = %q; want %q", out.Code, want)
	}
}

func TestParseCustomErrors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		offset int
		msg    string
	}{
		{"duplicate label", "a: nop\na: nop\n", 7, "Label a is already defined"},
		{"reserved label", "mov: nop\n", 0, "'mov' is a reserved word and cannot be used as a label"},
		{"missing operand", "mov r0\n", 0, "mov expects 2 operands"},
		{"missing operand after comma", "mov r0,\n", 0, "mov expects 2 operands"},
		{"extra operand", "inc r0, r1\n", 0, "inc expects 1 operand"},
		{"undefined macro", "foo(1)\n", 0, "Macro foo is not defined"},
		{"macro arity", "macro m(a) -> inc a <-\nm(r0, r1)\n", 23, "macro m expects 1 argument, got 2"},
		{"macro call unterminated", "macro m(a) -> inc a <-\nm(r0\n", 23, "call of macro m is missing ')'"},
		{"macro never closed", "macro m() -> nop\n", 0, "macro m is never closed (missing '<-')"},
		{"duplicate macro param", "macro m(a, a) -> nop <-\n", 11, "parameter a of macro m is declared twice"},
		{"label in macro", "macro m() -> x: nop <-\nm()\n", 23, "labels cannot be defined inside a macro"},
		{"data in macro", "macro m() -> db 1 <-\nm()\n", 21, "data directives are not allowed inside a macro"},
		{"truncated macro body", "macro m() -> mov r0 <-\nm()\n", 23, "mov expects 2 operands"},
		{"recursive macro", "macro f() -> f() <-\nf()\n", 20, "macro expansion nested deeper than 16 levels"},
		{"procedure never closed", "def p {\nret\n", 0, "procedure p is never closed (missing '}')"},
		{"stray brace", "}\n", 0, "'}' without a matching def"},
		{"nested procedure", "def a {\ndef b {\n", 8, "procedure b cannot be defined inside procedure a"},
		{"duplicate procedure", "def a {\n}\ndef a {\n}\n", 14, "Procedure a is already defined"},
		{"byte out of range", "db 1, 300\n", 6, "value 300 does not fit in a byte"},
		{"immediate out of range", "ldi r0, 70000\n", 8, "value 70000 does not fit in 16 bits"},
		{"malformed number", "ldi r0, 12ab\n", 8, "invalid number '12ab'"},
		{"leading zero", "ldi r0, 010\n", 8, "invalid number '010'"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := parse(t, tc.src)
			if !IsCustom(err) {
				t.Fatalf("error = %v (%T); want custom error", err, err)
			}
			ut := err.(*UnrecognizedToken)
			if ut.Start != tc.offset {
				t.Errorf("offset = %d; want %d", ut.Start, tc.offset)
			}
			if msg, _ := ut.Custom(); msg != tc.msg {
				t.Errorf("message = %q; want %q", msg, tc.msg)
			}
			if err.Error() != tc.msg {
				t.Errorf("Error() = %q; want %q", err.Error(), tc.msg)
			}
		})
	}
}

func TestParseDataCapacity(t *testing.T) {
	p := &Parser{MaxMacroDepth: DefaultMaxMacroDepth, DataCapacity: 4}
	ctx := NewContext()
	err := p.Parse(ctx, &Output{}, "db 1, 2\ndw 1, 2\n")
	if !IsCustom(err) {
		t.Fatalf("error = %v; want custom error", err)
	}
	if got, want := err.Error(), "data segment exceeds memory capacity of 4 bytes"; got != want {
		t.Errorf("Error() = %q; want %q", got, want)
	}
	if ctx.DataCounter != 2 {
		t.Errorf("DataCounter = %d; want 2", ctx.DataCounter)
	}
}

func TestParseDataCapacityFailsEarly(t *testing.T) {
	src := "start: hlt\nd: db " + strings.Repeat("65536 dup(0), ", 200) + "0\n"

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	_, _, err := parse(t, src)
	runtime.ReadMemStats(&after)

	if !IsCustom(err) {
		t.Fatalf("error = %v; want custom error", err)
	}
	ut := err.(*UnrecognizedToken)
	if msg, _ := ut.Custom(); msg != "data segment exceeds memory capacity of 65536 bytes" || ut.Start != 14 {
		t.Errorf("error = %q at %d; want capacity error at 14", msg, ut.Start)
	}
	// One full segment of values at most, not one per dup item.
	if alloc := after.TotalAlloc - before.TotalAlloc; alloc > 16<<20 {
		t.Errorf("parsing allocated %d bytes", alloc)
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	tests := []struct {
		src        string
		text       string
		start, end int
	}{
		{"@@@\n", "@@@", 0, 3},
		{"mov r0, 5 6\n", "6", 10, 11},
		{"jmp r0\n", "r0", 4, 6},
		{"nop\nfoo\n", "foo", 4, 7},
	}
	for _, tc := range tests {
		_, _, err := parse(t, tc.src)
		ut, ok := err.(*UnrecognizedToken)
		if !ok {
			t.Errorf("Parse(%q) error = %v (%T); want *UnrecognizedToken", tc.src, err, err)
			continue
		}
		if IsCustom(err) {
			t.Errorf("Parse(%q) error is custom: %v", tc.src, err)
		}
		if ut.Token.Text != tc.text || ut.Start != tc.start || ut.End != tc.end {
			t.Errorf("Parse(%q) token = %q@%d:%d; want %q@%d:%d",
				tc.src, ut.Token.Text, ut.Start, ut.End, tc.text, tc.start, tc.end)
		}
	}
}

func TestParseUnexpectedEOF(t *testing.T) {
	_, _, err := parse(t, "mov r0,")
	var ue *UnrecognizedEOF
	if !errors.As(err, &ue) {
		t.Fatalf("error = %v (%T); want *UnrecognizedEOF", err, err)
	}
	if ue.Location != 7 {
		t.Errorf("Location = %d; want 7", ue.Location)
	}
}

func TestErrorRendering(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&InvalidToken{Location: 4}, "Invalid token at 4"},
		{&UnrecognizedEOF{Location: 3, Expected: []string{"register"}}, "Unrecognized EOF found at 3\nExpected register"},
		{&UnrecognizedToken{Start: 0, End: 1, Token: Token{Kind: TokIdent, Text: "x"}, Expected: []string{"'('", "','"}},
			"Unrecognized token `x` found at 0:1\nExpected one of '(', ','"},
		{customError(5, "Label %s is already defined", "a"), "Label a is already defined"},
	}
	for _, tc := range tests {
		if got := tc.err.Error(); got != tc.want {
			t.Errorf("Error() = %q; want %q", got, tc.want)
		}
	}
}

func TestIsCustom(t *testing.T) {
	if IsCustom(nil) {
		t.Error("IsCustom(nil) = true")
	}
	if IsCustom(&UnrecognizedToken{Token: Token{Kind: TokIdent, Text: "x"}, Expected: []string{"register"}}) {
		t.Error("IsCustom(real token) = true")
	}
	if IsCustom(&UnrecognizedEOF{Expected: []string{"register"}}) {
		t.Error("IsCustom(EOF) = true")
	}
	if !IsCustom(customError(0, "boom")) {
		t.Error("IsCustom(customError) = false")
	}
}

func TestReservedWords(t *testing.T) {
	for _, w := range []string{"mov", "MOV", "r0", "SP", "db", "resw", "macro", "def", "hlt"} {
		if !IsReserved(w) {
			t.Errorf("IsReserved(%q) = false", w)
		}
	}
	for _, w := range []string{"start", "loop", "r8", "buffer"} {
		if IsReserved(w) {
			t.Errorf("IsReserved(%q) = true", w)
		}
	}
}

func TestParseDeterministic(t *testing.T) {
	src := "macro m(x) -> inc x <-\nstart: m(r1)\njmp start\nd: dw 5\n"
	_, a := mustParse(t, src)
	_, b := mustParse(t, src)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("two parses differ: %+v vs %+v", a, b)
	}
}
