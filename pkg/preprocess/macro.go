package preprocess

// defineMacro parses `macro NAME(p1, p2) -> body <-`. The body is kept as
// tokens and only parsed when the macro is invoked.
func (st *state) defineMacro(s *stream) error {
	kw := s.next()
	if s.expanding {
		return customError(kw.Start, "macros cannot be defined inside a macro")
	}
	name := s.peek()
	if name.Kind != TokIdent {
		return st.unexpected(s, name, "macro name")
	}
	s.next()
	if IsReserved(name.Text) {
		return customError(name.Start, "'%s' is a reserved word and cannot be used as a macro name", name.Text)
	}
	if _, ok := st.ctx.Macros[name.Text]; ok {
		return customError(name.Start, "Macro %s is already defined", name.Text)
	}

	if t := s.peek(); t.Kind != TokLParen {
		return st.unexpected(s, t, "'('")
	}
	s.next()
	params, err := st.macroParams(s, name.Text)
	if err != nil {
		return err
	}
	if t := s.peek(); t.Kind != TokArrow {
		return st.unexpected(s, t, "'->'")
	}
	s.next()

	var body []Token
	for {
		t := s.peek()
		if t.Kind == TokEOF {
			return customError(kw.Start, "macro %s is never closed (missing '<-')", name.Text)
		}
		s.next()
		if t.Kind == TokBackArrow {
			break
		}
		body = append(body, t)
	}

	st.ctx.Macros[name.Text] = &Macro{Name: name.Text, Params: params, Body: body, Offset: kw.Start}
	return st.endOfStatement(s)
}

// macroParams parses the parameter list up to and including ')'.
func (st *state) macroParams(s *stream, macro string) ([]string, error) {
	var params []string
	if s.peek().Kind == TokRParen {
		s.next()
		return params, nil
	}
	seen := make(map[string]bool)
	for {
		p := s.peek()
		if p.Kind != TokIdent || IsReserved(p.Text) {
			return nil, st.unexpected(s, p, "parameter name")
		}
		s.next()
		if seen[p.Text] {
			return nil, customError(p.Start, "parameter %s of macro %s is declared twice", p.Text, macro)
		}
		seen[p.Text] = true
		params = append(params, p.Text)

		switch t := s.peek(); t.Kind {
		case TokComma:
			s.next()
		case TokRParen:
			s.next()
			return params, nil
		default:
			return nil, st.unexpected(s, t, "','", "')'")
		}
	}
}

// expandMacro substitutes the arguments of a `NAME(args)` call into the
// macro body and parses the result in place. Everything the expansion
// produces is attributed to the call site.
func (st *state) expandMacro(s *stream) error {
	call := s.next()
	s.next() // '('
	m, ok := st.ctx.Macros[call.Text]
	if !ok {
		return customError(call.Start, "Macro %s is not defined", call.Text)
	}
	args, err := st.macroArgs(s, call)
	if err != nil {
		return err
	}
	if len(args) != len(m.Params) {
		return customError(call.Start, "macro %s expects %s, got %d",
			m.Name, plural(len(m.Params), "argument"), len(args))
	}
	if err := st.endOfStatement(s); err != nil {
		return err
	}

	st.ctx.MacroNestingCounter++
	defer func() { st.ctx.MacroNestingCounter-- }()
	if st.ctx.MacroNestingCounter > st.p.MaxMacroDepth {
		return customError(call.Start, "macro expansion nested deeper than %d levels", st.p.MaxMacroDepth)
	}

	return st.statements(&stream{toks: substitute(m, args, call), expanding: true})
}

// macroArgs splits the argument list on commas that are not nested inside
// parentheses or brackets. It consumes the closing ')'.
func (st *state) macroArgs(s *stream, call Token) ([][]Token, error) {
	var args [][]Token
	if s.peek().Kind == TokRParen {
		s.next()
		return args, nil
	}

	var cur []Token
	depth := 0
	for {
		t := s.peek()
		if atLineEnd(t) {
			return nil, customError(call.Start, "call of macro %s is missing ')'", call.Text)
		}
		s.next()

		switch t.Kind {
		case TokLParen, TokLBracket:
			depth++
		case TokRBracket:
			depth--
		case TokRParen, TokComma:
			if depth == 0 {
				if len(cur) == 0 {
					return nil, customError(call.Start, "empty argument in call of macro %s", call.Text)
				}
				args = append(args, cur)
				cur = nil
				if t.Kind == TokRParen {
					return args, nil
				}
				continue
			}
			if t.Kind == TokRParen {
				depth--
			}
		}
		cur = append(cur, t)
	}
}

func substitute(m *Macro, args [][]Token, call Token) []Token {
	bound := make(map[string][]Token, len(m.Params))
	for i, p := range m.Params {
		bound[p] = args[i]
	}

	out := make([]Token, 0, len(m.Body)+1)
	for _, t := range m.Body {
		if arg, ok := bound[t.Text]; ok && t.Kind == TokIdent {
			for _, a := range arg {
				out = append(out, relocate(a, call))
			}
			continue
		}
		out = append(out, relocate(t, call))
	}
	return append(out, Token{Kind: TokEOF, Start: call.Start, End: call.Start})
}

func relocate(t, call Token) Token {
	t.Start, t.End = call.Start, call.End
	return t
}
