package preprocess

// TokenKind identifies the category of a lexed token.
type TokenKind int

const (
	TokEOF TokenKind = iota // sentinel: end of input

	TokIdent  // name, mnemonic, register or keyword
	TokNumber // integer literal, validated by the parser
	TokChar   // 'c'
	TokString // "..."

	TokComma     // ,
	TokColon     // :
	TokPlus      // +
	TokMinus     // -
	TokLBracket  // [
	TokRBracket  // ]
	TokLParen    // (
	TokRParen    // )
	TokLBrace    // {
	TokRBrace    // }
	TokArrow     // ->
	TokBackArrow // <-

	TokNewline
	TokInvalid // run of bytes the lexer does not recognise
)

var tokenNames = map[TokenKind]string{
	TokEOF:       "end of input",
	TokIdent:     "name",
	TokNumber:    "number",
	TokChar:      "character",
	TokString:    "string",
	TokComma:     "','",
	TokColon:     "':'",
	TokPlus:      "'+'",
	TokMinus:     "'-'",
	TokLBracket:  "'['",
	TokRBracket:  "']'",
	TokLParen:    "'('",
	TokRParen:    "')'",
	TokLBrace:    "'{'",
	TokRBrace:    "'}'",
	TokArrow:     "'->'",
	TokBackArrow: "'<-'",
	TokNewline:   "end of line",
	TokInvalid:   "invalid token",
}

func (k TokenKind) String() string {
	if s, ok := tokenNames[k]; ok {
		return s
	}
	return "unknown"
}

// Token is a lexeme with its [Start, End) byte span in the source buffer.
// Tokens produced by macro expansion carry the span of the invocation.
type Token struct {
	Kind  TokenKind
	Text  string
	Start int
	End   int
}

// String returns the surface text of the token. Only the end-of-input token
// has empty text.
func (t Token) String() string {
	if t.Kind == TokNewline {
		return "end of line"
	}
	return t.Text
}
